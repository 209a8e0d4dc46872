package repositories

import (
	"context"

	"gorm.io/gorm"

	"medical-records-service/internal/models"
)

// MedicalOrderRepositoryContract defines persistence for medical orders.
type MedicalOrderRepositoryContract interface {
	Create(ctx context.Context, order *models.MedicalOrder) error
	GetByID(ctx context.Context, id string) (*models.MedicalOrder, error)
	ListByPatient(ctx context.Context, patientID string, orderType models.OrderType, status models.OrderStatus) ([]models.MedicalOrder, error)
}

var _ MedicalOrderRepositoryContract = (*MedicalOrderRepository)(nil)

// MedicalOrderRepository is the gorm implementation.
type MedicalOrderRepository struct {
	db *gorm.DB
}

func NewMedicalOrderRepository(db *gorm.DB) *MedicalOrderRepository {
	return &MedicalOrderRepository{db: db}
}

func (r *MedicalOrderRepository) Create(ctx context.Context, order *models.MedicalOrder) error {
	return translate(r.db.WithContext(ctx).Create(order).Error, "create medical order")
}

func (r *MedicalOrderRepository) GetByID(ctx context.Context, id string) (*models.MedicalOrder, error) {
	var order models.MedicalOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get medical order")
	}
	return &order, nil
}

func (r *MedicalOrderRepository) ListByPatient(ctx context.Context, patientID string, orderType models.OrderType, status models.OrderStatus) ([]models.MedicalOrder, error) {
	query := r.db.WithContext(ctx).Where("patient_id = ?", patientID)
	if orderType != "" {
		query = query.Where("type = ?", orderType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.MedicalOrder
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, translate(err, "list medical orders")
	}
	return orders, nil
}
