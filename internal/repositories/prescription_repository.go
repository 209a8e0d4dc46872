package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medical-records-service/internal/models"
)

// PrescriptionFilter narrows prescription listings.
type PrescriptionFilter struct {
	MedicalRecordID string
	PatientID       string
	DoctorID        string
	Medication      string
	Page            Page
}

// PrescriptionRepositoryContract defines persistence for prescriptions.
type PrescriptionRepositoryContract interface {
	Create(ctx context.Context, prescription *models.Prescription) error
	GetByID(ctx context.Context, id string) (*models.Prescription, error)
	List(ctx context.Context, filter PrescriptionFilter) ([]models.Prescription, int64, error)
	Update(ctx context.Context, prescription *models.Prescription) error
	Delete(ctx context.Context, id string) error
}

var _ PrescriptionRepositoryContract = (*PrescriptionRepository)(nil)

// PrescriptionRepository is the gorm implementation.
type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, prescription *models.Prescription) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(prescription).Error
	return translate(err, "create prescription")
}

// GetByID loads the prescription joined with its medical record summary.
func (r *PrescriptionRepository) GetByID(ctx context.Context, id string) (*models.Prescription, error) {
	var prescription models.Prescription
	if err := r.db.WithContext(ctx).Preload("MedicalRecord").First(&prescription, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get prescription")
	}
	return &prescription, nil
}

func (r *PrescriptionRepository) List(ctx context.Context, filter PrescriptionFilter) ([]models.Prescription, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Prescription{})
	if filter.MedicalRecordID != "" {
		query = query.Where("medical_record_id = ?", filter.MedicalRecordID)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.Medication != "" {
		query = query.Where("LOWER(medication) LIKE ?"+likeEscape, containsPattern(filter.Medication))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count prescriptions")
	}

	page := filter.Page.Normalize(10, 100)
	var prescriptions []models.Prescription
	err := query.Preload("MedicalRecord").
		Order("prescription_date desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&prescriptions).Error
	if err != nil {
		return nil, 0, translate(err, "list prescriptions")
	}
	return prescriptions, total, nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, prescription *models.Prescription) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(prescription).Error
	return translate(err, "update prescription")
}

func (r *PrescriptionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Prescription{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "delete prescription")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
