package repositories

import (
	"context"

	"gorm.io/gorm"

	"medical-records-service/internal/models"
)

// DocumentFilter narrows a patient's document listing.
type DocumentFilter struct {
	PatientID       string
	MedicalRecordID string
	DiagnosticID    string
	Category        models.DocumentCategory
	MimeType        string
	Query           string
	Page            Page
}

// DocumentRepositoryContract defines persistence for stored-file references.
type DocumentRepositoryContract interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]models.Document, int64, error)
	SoftDelete(ctx context.Context, id string) error
	StoredFilenameExists(ctx context.Context, storeFilename string) (bool, error)
}

var _ DocumentRepositoryContract = (*DocumentRepository)(nil)

// DocumentRepository is the gorm implementation.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	return translate(r.db.WithContext(ctx).Create(document).Error, "create document")
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var document models.Document
	if err := r.db.WithContext(ctx).First(&document, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get document")
	}
	return &document, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter DocumentFilter) ([]models.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Document{}).Where("patient_id = ?", filter.PatientID)
	if filter.MedicalRecordID != "" {
		query = query.Where("medical_record_id = ?", filter.MedicalRecordID)
	}
	if filter.DiagnosticID != "" {
		query = query.Where("diagnostic_id = ?", filter.DiagnosticID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MimeType != "" {
		query = query.Where("mime_type = ?", filter.MimeType)
	}
	if filter.Query != "" {
		pattern := containsPattern(filter.Query)
		query = query.Where("LOWER(filename) LIKE ?"+likeEscape+" OR LOWER(description) LIKE ?"+likeEscape, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count documents")
	}

	page := filter.Page.Normalize(20, 100)
	var documents []models.Document
	err := query.Order("created_at desc").Offset(page.Offset()).Limit(page.Limit).Find(&documents).Error
	if err != nil {
		return nil, 0, translate(err, "list documents")
	}
	return documents, total, nil
}

// SoftDelete stamps deleted_at; the stored file is kept.
func (r *DocumentRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "delete document")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// StoredFilenameExists includes soft-deleted rows, whose files are retained.
func (r *DocumentRepository) StoredFilenameExists(ctx context.Context, storeFilename string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Document{}).
		Where("store_filename = ?", storeFilename).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "lookup stored filename")
	}
	return count > 0, nil
}
