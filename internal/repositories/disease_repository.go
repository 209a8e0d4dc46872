package repositories

import (
	"context"

	"gorm.io/gorm"

	"medical-records-service/internal/models"
)

// DiseaseFilter narrows catalog listings. A nil IsActive lists every entry.
type DiseaseFilter struct {
	Query    string
	IsActive *bool
	Limit    int
}

// DiseaseRepositoryContract defines persistence for the disease catalog.
type DiseaseRepositoryContract interface {
	Create(ctx context.Context, disease *models.DiseaseCatalog) error
	GetByID(ctx context.Context, id string) (*models.DiseaseCatalog, error)
	GetByCode(ctx context.Context, code string) (*models.DiseaseCatalog, error)
	List(ctx context.Context, filter DiseaseFilter) ([]models.DiseaseCatalog, error)
	Update(ctx context.Context, disease *models.DiseaseCatalog) error
}

var _ DiseaseRepositoryContract = (*DiseaseRepository)(nil)

// DiseaseRepository is the gorm implementation.
type DiseaseRepository struct {
	db *gorm.DB
}

func NewDiseaseRepository(db *gorm.DB) *DiseaseRepository {
	return &DiseaseRepository{db: db}
}

func (r *DiseaseRepository) Create(ctx context.Context, disease *models.DiseaseCatalog) error {
	return translate(r.db.WithContext(ctx).Create(disease).Error, "create disease")
}

func (r *DiseaseRepository) GetByID(ctx context.Context, id string) (*models.DiseaseCatalog, error) {
	var disease models.DiseaseCatalog
	if err := r.db.WithContext(ctx).First(&disease, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get disease")
	}
	return &disease, nil
}

func (r *DiseaseRepository) GetByCode(ctx context.Context, code string) (*models.DiseaseCatalog, error) {
	var disease models.DiseaseCatalog
	if err := r.db.WithContext(ctx).First(&disease, "code = ?", code).Error; err != nil {
		return nil, translate(err, "get disease by code")
	}
	return &disease, nil
}

func (r *DiseaseRepository) List(ctx context.Context, filter DiseaseFilter) ([]models.DiseaseCatalog, error) {
	query := r.db.WithContext(ctx).Model(&models.DiseaseCatalog{})
	if filter.Query != "" {
		pattern := containsPattern(filter.Query)
		query = query.Where("LOWER(code) LIKE ?"+likeEscape+" OR LOWER(name) LIKE ?"+likeEscape, pattern, pattern)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var diseases []models.DiseaseCatalog
	if err := query.Order("name asc").Limit(limit).Find(&diseases).Error; err != nil {
		return nil, translate(err, "list diseases")
	}
	return diseases, nil
}

func (r *DiseaseRepository) Update(ctx context.Context, disease *models.DiseaseCatalog) error {
	return translate(r.db.WithContext(ctx).Save(disease).Error, "update disease")
}
