package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"medical-records-service/internal/models"
)

// MedicalRecordFilter narrows List. Zero values are ignored.
type MedicalRecordFilter struct {
	PatientID   string
	PhysicianID string
	Status      models.RecordStatus
	FromDate    *time.Time
	ToDate      *time.Time
	Page        Page
}

// MedicalRecordRepositoryContract defines persistence for encounters.
type MedicalRecordRepositoryContract interface {
	Create(ctx context.Context, record *models.MedicalRecord) error
	GetByID(ctx context.Context, id string) (*models.MedicalRecord, error)
	GetDetailed(ctx context.Context, id string) (*models.MedicalRecord, error)
	GetWithActiveDiagnostics(ctx context.Context, id string) (*models.MedicalRecord, error)
	GetByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error)
	List(ctx context.Context, filter MedicalRecordFilter) ([]models.MedicalRecord, int64, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error)
	Update(ctx context.Context, record *models.MedicalRecord) error
}

var _ MedicalRecordRepositoryContract = (*MedicalRecordRepository)(nil)

// MedicalRecordRepository is the gorm implementation.
type MedicalRecordRepository struct {
	db *gorm.DB
}

func NewMedicalRecordRepository(db *gorm.DB) *MedicalRecordRepository {
	return &MedicalRecordRepository{db: db}
}

func (r *MedicalRecordRepository) Create(ctx context.Context, record *models.MedicalRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error, "create medical record")
}

func (r *MedicalRecordRepository) GetByID(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get medical record")
	}
	return &record, nil
}

// GetDetailed loads the record with every child collection.
func (r *MedicalRecordRepository) GetDetailed(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	err := r.db.WithContext(ctx).
		Preload("Prescriptions", func(db *gorm.DB) *gorm.DB { return db.Order("prescription_date desc") }).
		Preload("LabResults", func(db *gorm.DB) *gorm.DB { return db.Order("test_date desc") }).
		Preload("Diagnostics", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Preload("Diagnostics.Documents").
		Preload("MedicalOrders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "get medical record")
	}
	return &record, nil
}

// GetWithActiveDiagnostics loads the record and only its ACTIVE diagnostics,
// newest first.
func (r *MedicalRecordRepository) GetWithActiveDiagnostics(ctx context.Context, id string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	err := r.db.WithContext(ctx).
		Preload("Diagnostics", func(db *gorm.DB) *gorm.DB {
			return db.Where("state = ?", models.DiagnosticActive).Order("created_at desc")
		}).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "get medical record")
	}
	return &record, nil
}

func (r *MedicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID string) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	err := r.db.WithContext(ctx).
		Preload("Diagnostics", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Preload("Prescriptions").
		Where("appointment_id = ?", appointmentID).
		Order("date desc").
		First(&record).Error
	if err != nil {
		return nil, translate(err, "get medical record by appointment")
	}
	return &record, nil
}

func (r *MedicalRecordRepository) List(ctx context.Context, filter MedicalRecordFilter) ([]models.MedicalRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MedicalRecord{})
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.PhysicianID != "" {
		query = query.Where("physician_id = ?", filter.PhysicianID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count medical records")
	}

	page := filter.Page.Normalize(10, 100)
	var records []models.MedicalRecord
	err := query.Order("date desc").Offset(page.Offset()).Limit(page.Limit).Find(&records).Error
	if err != nil {
		return nil, 0, translate(err, "list medical records")
	}
	return records, total, nil
}

func (r *MedicalRecordRepository) ListByPatient(ctx context.Context, patientID string) ([]models.MedicalRecord, error) {
	var records []models.MedicalRecord
	err := r.db.WithContext(ctx).
		Preload("Diagnostics", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Where("patient_id = ?", patientID).
		Order("date desc").
		Find(&records).Error
	if err != nil {
		return nil, translate(err, "list medical records by patient")
	}
	return records, nil
}

func (r *MedicalRecordRepository) Update(ctx context.Context, record *models.MedicalRecord) error {
	err := r.db.WithContext(ctx).Omit("Diagnostics", "Prescriptions", "LabResults", "MedicalOrders").Save(record).Error
	return translate(err, "update medical record")
}
