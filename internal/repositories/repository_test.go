package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medical-records-service/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "records.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedRecord(t *testing.T, db *gorm.DB, patientID, physicianID string) *models.MedicalRecord {
	t.Helper()
	record := &models.MedicalRecord{
		PatientID:   patientID,
		PhysicianID: physicianID,
		Date:        time.Now().UTC(),
		Symptoms:    "fiebre",
		Status:      models.RecordStatusActive,
	}
	require.NoError(t, NewMedicalRecordRepository(db).Create(context.Background(), record))
	return record
}

func newDiagnostic(record *models.MedicalRecord, diagType models.DiagnosticType) *models.Diagnostic {
	return &models.Diagnostic{
		PatientID:       record.PatientID,
		DoctorID:        record.PhysicianID,
		MedicalRecordID: record.ID,
		DiseaseCode:     "J00",
		DiseaseName:     "Resfriado común",
		Type:            diagType,
		Title:           "Resfriado",
		Description:     "Congestión nasal",
		Diagnosis:       "J00 - Resfriado común",
		Treatment:       "Reposo",
		State:           models.DiagnosticActive,
	}
}

func newDocument(storeName string) models.Document {
	return models.Document{
		Filename:      storeName + ".pdf",
		StoreFilename: storeName,
		FilePath:      "/tmp/" + storeName,
		MimeType:      "application/pdf",
		FileSize:      12,
		FileType:      "pdf",
		Category:      models.CategoryDiagnosticAttachment,
		UploadedBy:    "doctor-1",
	}
}

func TestCreateWithDocumentsPersistsBoth(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)
	record := seedRecord(t, db, "patient-1", "doctor-1")

	diag := newDiagnostic(record, models.DiagnosticPrimary)
	docs := []models.Document{newDocument("a"), newDocument("b")}

	require.NoError(t, repo.CreateWithDocuments(context.Background(), diag, docs))

	assert.NotEmpty(t, diag.ID)
	require.Len(t, diag.Documents, 2)
	for _, doc := range diag.Documents {
		require.NotNil(t, doc.DiagnosticID)
		assert.Equal(t, diag.ID, *doc.DiagnosticID)
		assert.Equal(t, record.ID, doc.MedicalRecordID)
		assert.Equal(t, "patient-1", doc.PatientID)
	}

	exists, err := repo.HasActivePrimary(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateWithDocumentsRollsBackWhenADocumentFails(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)
	record := seedRecord(t, db, "patient-1", "doctor-1")

	// Same stored filename twice violates the unique index on the second row.
	docs := []models.Document{newDocument("dup"), newDocument("dup")}
	err := repo.CreateWithDocuments(context.Background(), newDiagnostic(record, models.DiagnosticPrimary), docs)
	require.Error(t, err)

	var diagnostics, documents int64
	require.NoError(t, db.Model(&models.Diagnostic{}).Count(&diagnostics).Error)
	require.NoError(t, db.Unscoped().Model(&models.Document{}).Count(&documents).Error)
	assert.Zero(t, diagnostics)
	assert.Zero(t, documents)
}

func TestCreateWithDocumentsRejectsSecondPrimary(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)
	record := seedRecord(t, db, "patient-1", "doctor-1")

	require.NoError(t, repo.CreateWithDocuments(context.Background(), newDiagnostic(record, models.DiagnosticPrimary), nil))

	err := repo.CreateWithDocuments(context.Background(), newDiagnostic(record, models.DiagnosticPrimary), []models.Document{newDocument("x")})
	assert.ErrorIs(t, err, ErrPrimaryDiagnosisExists)

	// Secondary diagnostics are unrestricted.
	require.NoError(t, repo.CreateWithDocuments(context.Background(), newDiagnostic(record, models.DiagnosticSecondary), nil))

	list, err := repo.ListByMedicalRecord(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	var documents int64
	require.NoError(t, db.Model(&models.Document{}).Count(&documents).Error)
	assert.Zero(t, documents)
}

func TestCreateWithDocumentsUnknownRecord(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)

	diag := newDiagnostic(&models.MedicalRecord{BaseModel: models.BaseModel{ID: "missing"}, PatientID: "p", PhysicianID: "d"}, models.DiagnosticSecondary)
	err := repo.CreateWithDocuments(context.Background(), diag, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateWithDocumentsAllowsConsecutiveSecondaries(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)
	record := seedRecord(t, db, "patient-1", "doctor-1")
	ctx := context.Background()

	first := newDiagnostic(record, models.DiagnosticSecondary)
	second := newDiagnostic(record, models.DiagnosticSecondary)
	require.NoError(t, repo.CreateWithDocuments(ctx, first, []models.Document{newDocument("s1")}))
	require.NoError(t, repo.CreateWithDocuments(ctx, second, []models.Document{newDocument("s2")}))
	assert.NotEqual(t, first.ID, second.ID)

	list, err := repo.ListByMedicalRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Locking the parent row must not rewrite it.
	var reloaded models.MedicalRecord
	require.NoError(t, db.First(&reloaded, "id = ?", record.ID).Error)
	assert.True(t, record.UpdatedAt.Equal(reloaded.UpdatedAt))
}

func TestDiagnosticGetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)
	record := seedRecord(t, db, "patient-1", "doctor-1")
	ctx := context.Background()

	diag := newDiagnostic(record, models.DiagnosticSecondary)
	require.NoError(t, repo.CreateWithDocuments(ctx, diag, nil))

	found, err := repo.GetByID(ctx, diag.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.MedicalRecordID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchPatientIDsReturnsDistinctPatients(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiagnosticRepository(db)
	ctx := context.Background()

	r1 := seedRecord(t, db, "patient-1", "doctor-1")
	r2 := seedRecord(t, db, "patient-1", "doctor-1")
	r3 := seedRecord(t, db, "patient-2", "doctor-1")
	require.NoError(t, repo.CreateWithDocuments(ctx, newDiagnostic(r1, models.DiagnosticPrimary), nil))
	require.NoError(t, repo.CreateWithDocuments(ctx, newDiagnostic(r2, models.DiagnosticPrimary), nil))
	other := newDiagnostic(r3, models.DiagnosticPrimary)
	other.Diagnosis = "E11 - Diabetes tipo 2"
	require.NoError(t, repo.CreateWithDocuments(ctx, other, nil))

	ids, total, err := repo.SearchPatientIDs(ctx, PatientSearchFilter{Diagnosis: "RESFRIADO"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []string{"patient-1"}, ids)

	ids, total, err = repo.SearchPatientIDs(ctx, PatientSearchFilter{Diagnosis: " - "})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.ElementsMatch(t, []string{"patient-1", "patient-2"}, ids)

	latest, err := repo.LatestMatching(ctx, PatientSearchFilter{Diagnosis: "diabetes"}, ids)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, other.ID, latest["patient-2"].ID)
}

func TestDiseaseCatalogLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiseaseRepository(db)
	ctx := context.Background()

	cold := &models.DiseaseCatalog{Code: "J00", Name: "Common cold", IsActive: true}
	flu := &models.DiseaseCatalog{Code: "J11", Name: "Influenza", IsActive: true}
	require.NoError(t, repo.Create(ctx, cold))
	require.NoError(t, repo.Create(ctx, flu))

	byID, err := repo.GetByID(ctx, cold.ID)
	require.NoError(t, err)
	byCode, err := repo.GetByCode(ctx, "J00")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byCode.ID)
	assert.Equal(t, byID.Name, byCode.Name)

	flu.IsActive = false
	require.NoError(t, repo.Update(ctx, flu))

	active := true
	list, err := repo.List(ctx, DiseaseFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "J00", list[0].Code)

	inactive, err := repo.GetByCode(ctx, "J11")
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	list, err = repo.List(ctx, DiseaseFilter{Query: "influ"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.GetByCode(ctx, "Z99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiseaseListMatchesWildcardsLiterally(t *testing.T) {
	db := newTestDB(t)
	repo := NewDiseaseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.DiseaseCatalog{Code: "X1", Name: "Quemadura 100% superficie", IsActive: true}))
	require.NoError(t, repo.Create(ctx, &models.DiseaseCatalog{Code: "X2", Name: "Quemadura 1000 casos", IsActive: true}))
	require.NoError(t, repo.Create(ctx, &models.DiseaseCatalog{Code: "X3", Name: "Lesion tipo_b", IsActive: true}))
	require.NoError(t, repo.Create(ctx, &models.DiseaseCatalog{Code: "X4", Name: "Lesion tipob!", IsActive: true}))

	list, err := repo.List(ctx, DiseaseFilter{Query: "100%"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "X1", list[0].Code)

	list, err = repo.List(ctx, DiseaseFilter{Query: "_"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "X3", list[0].Code)

	list, err = repo.List(ctx, DiseaseFilter{Query: "tipob!"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "X4", list[0].Code)

	list, err = repo.List(ctx, DiseaseFilter{Query: "%"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "X1", list[0].Code)
}

func TestDocumentSoftDeleteKeepsStoredName(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()

	doc := newDocument("kept")
	doc.PatientID = "patient-1"
	doc.MedicalRecordID = "record-1"
	doc.Category = models.CategoryGeneral
	require.NoError(t, repo.Create(ctx, &doc))

	list, total, err := repo.List(ctx, DocumentFilter{PatientID: "patient-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	require.NoError(t, repo.SoftDelete(ctx, doc.ID))
	assert.ErrorIs(t, repo.SoftDelete(ctx, doc.ID), ErrNotFound)

	_, err = repo.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.StoredFilenameExists(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.StoredFilenameExists(ctx, "never-stored")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMedicalRecordListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewMedicalRecordRepository(db)
	ctx := context.Background()

	seedRecord(t, db, "patient-1", "doctor-1")
	seedRecord(t, db, "patient-1", "doctor-2")
	archived := seedRecord(t, db, "patient-2", "doctor-1")
	archived.Status = models.RecordStatusArchived
	require.NoError(t, repo.Update(ctx, archived))

	list, total, err := repo.List(ctx, MedicalRecordFilter{PatientID: "patient-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = repo.List(ctx, MedicalRecordFilter{Status: models.RecordStatusArchived})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, archived.ID, list[0].ID)

	list, total, err = repo.List(ctx, MedicalRecordFilter{Page: Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, list, 1)
}

func TestPageNormalize(t *testing.T) {
	p := Page{}.Normalize(10, 100)
	assert.Equal(t, Page{Page: 1, Limit: 10}, p)
	assert.Equal(t, 0, p.Offset())

	p = Page{Page: 3, Limit: 500}.Normalize(10, 100)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset())
}
