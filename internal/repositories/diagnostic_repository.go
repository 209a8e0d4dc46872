package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medical-records-service/internal/models"
)

// PatientSearchFilter selects patients through their ACTIVE diagnostics.
type PatientSearchFilter struct {
	Diagnosis string
	From      *time.Time
	To        *time.Time
	Page      Page
}

// DiagnosticRepositoryContract defines persistence for diagnostics.
type DiagnosticRepositoryContract interface {
	GetByID(ctx context.Context, id string) (*models.Diagnostic, error)
	HasActivePrimary(ctx context.Context, medicalRecordID string) (bool, error)
	CreateWithDocuments(ctx context.Context, diagnostic *models.Diagnostic, documents []models.Document) error
	ListByMedicalRecord(ctx context.Context, medicalRecordID string) ([]models.Diagnostic, error)
	SearchPatientIDs(ctx context.Context, filter PatientSearchFilter) ([]string, int64, error)
	LatestMatching(ctx context.Context, filter PatientSearchFilter, patientIDs []string) (map[string]models.Diagnostic, error)
}

var _ DiagnosticRepositoryContract = (*DiagnosticRepository)(nil)

// DiagnosticRepository is the gorm implementation.
type DiagnosticRepository struct {
	db *gorm.DB
}

func NewDiagnosticRepository(db *gorm.DB) *DiagnosticRepository {
	return &DiagnosticRepository{db: db}
}

func (r *DiagnosticRepository) GetByID(ctx context.Context, id string) (*models.Diagnostic, error) {
	var diagnostic models.Diagnostic
	if err := r.db.WithContext(ctx).First(&diagnostic, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get diagnostic")
	}
	return &diagnostic, nil
}

func (r *DiagnosticRepository) HasActivePrimary(ctx context.Context, medicalRecordID string) (bool, error) {
	return hasActivePrimary(r.db.WithContext(ctx), medicalRecordID)
}

func hasActivePrimary(db *gorm.DB, medicalRecordID string) (bool, error) {
	var count int64
	err := db.Model(&models.Diagnostic{}).
		Where("medical_record_id = ? AND type = ? AND state = ?", medicalRecordID, models.DiagnosticPrimary, models.DiagnosticActive).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "count primary diagnostics")
	}
	return count > 0, nil
}

// CreateWithDocuments inserts the diagnostic and its documents atomically and
// reloads the diagnostic with its documents attached. The parent medical
// record row is locked FOR UPDATE first so concurrent creations for the same
// record serialize; the primary uniqueness rule is then re-checked under that
// lock.
func (r *DiagnosticRepository) CreateWithDocuments(ctx context.Context, diagnostic *models.Diagnostic, documents []models.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.MedicalRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&record, "id = ?", diagnostic.MedicalRecordID).Error
		if err != nil {
			return translate(err, "lock medical record")
		}

		if diagnostic.Type == models.DiagnosticPrimary && diagnostic.State == models.DiagnosticActive {
			exists, err := hasActivePrimary(tx, diagnostic.MedicalRecordID)
			if err != nil {
				return err
			}
			if exists {
				return ErrPrimaryDiagnosisExists
			}
		}

		if err := tx.Omit(clause.Associations).Create(diagnostic).Error; err != nil {
			return translate(err, "create diagnostic")
		}

		if len(documents) > 0 {
			for i := range documents {
				documents[i].DiagnosticID = &diagnostic.ID
				documents[i].MedicalRecordID = diagnostic.MedicalRecordID
				documents[i].PatientID = diagnostic.PatientID
			}
			if err := tx.Create(&documents).Error; err != nil {
				return translate(err, "create diagnostic documents")
			}
		}

		err = tx.Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
			First(diagnostic, "id = ?", diagnostic.ID).Error
		if err != nil {
			return translate(err, "reload diagnostic")
		}
		return nil
	})
}

// ListByMedicalRecord returns the ACTIVE diagnostics of a record, newest first.
func (r *DiagnosticRepository) ListByMedicalRecord(ctx context.Context, medicalRecordID string) ([]models.Diagnostic, error) {
	var diagnostics []models.Diagnostic
	err := r.db.WithContext(ctx).
		Preload("Documents").
		Where("medical_record_id = ? AND state = ?", medicalRecordID, models.DiagnosticActive).
		Order("created_at desc").
		Find(&diagnostics).Error
	if err != nil {
		return nil, translate(err, "list diagnostics")
	}
	return diagnostics, nil
}

// SearchPatientIDs returns distinct patient ids, most recently diagnosed first.
func (r *DiagnosticRepository) SearchPatientIDs(ctx context.Context, filter PatientSearchFilter) ([]string, int64, error) {
	base := func() *gorm.DB { return r.searchScope(ctx, filter) }

	var total int64
	if err := base().Distinct("patient_id").Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count searched patients")
	}

	page := filter.Page.Normalize(10, 100)
	var rows []struct {
		PatientID string
	}
	err := base().
		Select("patient_id").
		Group("patient_id").
		Order("MAX(created_at) desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translate(err, "search patients")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PatientID)
	}
	return ids, total, nil
}

func (r *DiagnosticRepository) searchScope(ctx context.Context, filter PatientSearchFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Diagnostic{}).Where("state = ?", models.DiagnosticActive)
	if filter.Diagnosis != "" {
		q = q.Where("LOWER(diagnosis) LIKE ?"+likeEscape, containsPattern(filter.Diagnosis))
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	return q
}

// LatestMatching returns, per patient, the newest diagnostic that matched
// the search filter.
func (r *DiagnosticRepository) LatestMatching(ctx context.Context, filter PatientSearchFilter, patientIDs []string) (map[string]models.Diagnostic, error) {
	latest := make(map[string]models.Diagnostic, len(patientIDs))
	if len(patientIDs) == 0 {
		return latest, nil
	}
	var diagnostics []models.Diagnostic
	err := r.searchScope(ctx, filter).
		Where("patient_id IN ?", patientIDs).
		Order("created_at desc").
		Find(&diagnostics).Error
	if err != nil {
		return nil, translate(err, "latest matching diagnostics")
	}
	for _, d := range diagnostics {
		if _, seen := latest[d.PatientID]; !seen {
			latest[d.PatientID] = d
		}
	}
	return latest, nil
}
