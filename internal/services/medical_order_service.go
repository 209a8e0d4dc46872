package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
)

// CreateOrderInput is shared by laboratory and radiology orders. Items are
// the requested tests or exams.
type CreateOrderInput struct {
	PatientID          string
	DoctorID           string
	MedicalRecordID    string
	Items              []string
	Priority           string
	ClinicalIndication string
	Notes              string
}

// OrderTemplates lists what can be ordered.
type OrderTemplates struct {
	Laboratory []string               `json:"laboratory"`
	Radiology  []string               `json:"radiology"`
	Priorities []models.OrderPriority `json:"priorities"`
	Statuses   []models.OrderStatus   `json:"statuses"`
}

// MedicalOrderService creates and reads laboratory and radiology orders.
type MedicalOrderService struct {
	orders   repositories.MedicalOrderRepositoryContract
	records  repositories.MedicalRecordRepositoryContract
	verifier IdentityVerifier
	audit    AuditEmitter
}

func NewMedicalOrderService(
	orders repositories.MedicalOrderRepositoryContract,
	records repositories.MedicalRecordRepositoryContract,
	verifier IdentityVerifier,
	audit AuditEmitter,
) *MedicalOrderService {
	return &MedicalOrderService{orders: orders, records: records, verifier: verifier, audit: audit}
}

func (s *MedicalOrderService) Templates() OrderTemplates {
	return OrderTemplates{
		Laboratory: models.LabTestsAllowed,
		Radiology:  models.RadiologyExamsAllowed,
		Priorities: models.OrderPriorities,
		Statuses:   models.OrderStatuses,
	}
}

func (s *MedicalOrderService) CreateLaboratory(ctx context.Context, actor Actor, in CreateOrderInput) (*models.MedicalOrder, error) {
	return s.create(ctx, actor, models.OrderLaboratory, in)
}

func (s *MedicalOrderService) CreateRadiology(ctx context.Context, actor Actor, in CreateOrderInput) (*models.MedicalOrder, error) {
	return s.create(ctx, actor, models.OrderRadiology, in)
}

func (s *MedicalOrderService) create(ctx context.Context, actor Actor, orderType models.OrderType, in CreateOrderInput) (*models.MedicalOrder, error) {
	if in.DoctorID == "" {
		in.DoctorID = actor.ID
	}
	if isBlank(in.PatientID) {
		return nil, Validation("patientId y doctorId son requeridos")
	}
	if err := verifyParticipants(ctx, s.verifier, in.PatientID, in.DoctorID, actor.AuthHeader); err != nil {
		return nil, err
	}

	if isBlank(in.MedicalRecordID) {
		return nil, Validation("medicalRecordId es requerido para la orden")
	}
	record, err := s.records.GetByID(ctx, in.MedicalRecordID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, Validation("Historia clínica no existe")
	}
	if err != nil {
		return nil, Internal("Error al consultar la historia clínica", err)
	}
	if record.PatientID != in.PatientID {
		return nil, Validation("La historia clínica no pertenece al paciente indicado").WithCode("RECORD_PATIENT_MISMATCH")
	}

	priority := models.OrderPriority(strings.ToUpper(strings.TrimSpace(in.Priority)))
	if priority == "" {
		priority = models.PriorityRoutine
	}
	if !slices.Contains(models.OrderPriorities, priority) {
		return nil, Validation("Prioridad inválida").WithDetail("allowed", models.OrderPriorities)
	}

	allowed, emptyMsg, invalidMsg := models.LabTestsAllowed, "Debe seleccionar al menos un examen de laboratorio", "Exámenes de laboratorio inválidos"
	if orderType == models.OrderRadiology {
		allowed, emptyMsg, invalidMsg = models.RadiologyExamsAllowed, "Debe seleccionar al menos un estudio de radiología", "Estudios de radiología inválidos"
	}
	picked := normalizeItems(in.Items)
	if len(picked) == 0 {
		return nil, Validation(emptyMsg)
	}
	var invalid []string
	for _, item := range picked {
		if !slices.Contains(allowed, item) {
			invalid = append(invalid, item)
		}
	}
	if len(invalid) > 0 {
		return nil, Validation(invalidMsg).WithDetail("invalid", invalid)
	}

	order := &models.MedicalOrder{
		PatientID:          in.PatientID,
		DoctorID:           in.DoctorID,
		MedicalRecordID:    record.ID,
		Type:               orderType,
		Priority:           priority,
		Status:             models.OrderOrdered,
		ClinicalIndication: in.ClinicalIndication,
		Notes:              in.Notes,
	}
	if orderType == models.OrderLaboratory {
		order.LabTests = picked
		order.RadiologyExams = []string{}
	} else {
		order.RadiologyExams = picked
		order.LabTests = []string{}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, Internal("Error creando la orden médica", err)
	}
	s.audit.Emit(actor.audit("MEDICAL_ORDER_CREATE", "MedicalOrder", order.ID, map[string]any{
		"type":      orderType,
		"patientId": in.PatientID,
	}), actor.AuthHeader)
	return order, nil
}

func normalizeItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *MedicalOrderService) Get(ctx context.Context, id string) (*models.MedicalOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err := notFoundOr(err, "Orden no encontrada", "Error obteniendo orden"); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByPatient ignores unknown type or status filters.
func (s *MedicalOrderService) ListByPatient(ctx context.Context, patientID, orderType, status string) ([]models.MedicalOrder, error) {
	t := models.OrderType(strings.ToUpper(orderType))
	if t != models.OrderLaboratory && t != models.OrderRadiology {
		t = ""
	}
	st := models.OrderStatus(strings.ToUpper(status))
	if !slices.Contains(models.OrderStatuses, st) {
		st = ""
	}
	orders, err := s.orders.ListByPatient(ctx, patientID, t, st)
	if err != nil {
		return nil, Internal("Error listando órdenes del paciente", err)
	}
	return orders, nil
}
