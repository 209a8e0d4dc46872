package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
)

// CodeDuplicateDisease marks a catalog code already in use.
const CodeDuplicateDisease = "DUPLICATE_CODE"

// DiseaseInput is used for create and partial update.
type DiseaseInput struct {
	Code        *string
	Name        *string
	Description *string
	IsActive    *bool
}

// DiseaseService administers the disease catalog.
type DiseaseService struct {
	diseases repositories.DiseaseRepositoryContract
	audit    AuditEmitter
}

func NewDiseaseService(diseases repositories.DiseaseRepositoryContract, audit AuditEmitter) *DiseaseService {
	return &DiseaseService{diseases: diseases, audit: audit}
}

// List defaults to active entries only.
func (s *DiseaseService) List(ctx context.Context, filter repositories.DiseaseFilter) ([]models.DiseaseCatalog, error) {
	if filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}
	items, err := s.diseases.List(ctx, filter)
	if err != nil {
		return nil, Internal("Error al listar enfermedades", err)
	}
	return items, nil
}

// Get and GetByCode return inactive entries too.
func (s *DiseaseService) Get(ctx context.Context, id string) (*models.DiseaseCatalog, error) {
	disease, err := s.diseases.GetByID(ctx, id)
	return disease, notFoundOr(err, "Enfermedad no encontrada", "Error al obtener la enfermedad")
}

func (s *DiseaseService) GetByCode(ctx context.Context, code string) (*models.DiseaseCatalog, error) {
	if isBlank(code) {
		return nil, Validation("code es requerido")
	}
	disease, err := s.diseases.GetByCode(ctx, strings.TrimSpace(code))
	return disease, notFoundOr(err, "Enfermedad no encontrada", "Error al obtener la enfermedad")
}

func (s *DiseaseService) Create(ctx context.Context, actor Actor, in DiseaseInput) (*models.DiseaseCatalog, error) {
	if in.Code == nil || isBlank(*in.Code) || in.Name == nil || isBlank(*in.Name) {
		return nil, Validation("code y name son obligatorios").WithDetail("required", []string{"code", "name"})
	}
	code := strings.TrimSpace(*in.Code)

	_, err := s.diseases.GetByCode(ctx, code)
	switch {
	case err == nil:
		return nil, duplicateDisease(code)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, Internal("Error al crear enfermedad", err)
	}

	disease := &models.DiseaseCatalog{
		Code:     code,
		Name:     strings.TrimSpace(*in.Name),
		IsActive: true,
	}
	if in.Description != nil {
		disease.Description = *in.Description
	}
	if in.IsActive != nil {
		disease.IsActive = *in.IsActive
	}

	if err := s.diseases.Create(ctx, disease); err != nil {
		if errors.Is(err, repositories.ErrDuplicateCode) {
			return nil, duplicateDisease(code)
		}
		return nil, Internal("Error al crear enfermedad", err)
	}
	s.audit.Emit(actor.audit("DISEASE_CREATE", "DiseaseCatalog", disease.ID, map[string]any{"code": code}), actor.AuthHeader)
	return disease, nil
}

// Update applies a partial change. The code is the business key and
// cannot be changed.
func (s *DiseaseService) Update(ctx context.Context, actor Actor, id string, in DiseaseInput) (*models.DiseaseCatalog, error) {
	disease, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Code == nil && in.Name == nil && in.Description == nil && in.IsActive == nil {
		return nil, Validation("No hay campos para actualizar")
	}
	if in.Code != nil && strings.TrimSpace(*in.Code) != disease.Code {
		return nil, Validation("El código de una enfermedad no puede modificarse").WithCode("IMMUTABLE_CODE")
	}
	if in.Name != nil {
		if isBlank(*in.Name) {
			return nil, Validation("name no puede estar vacío")
		}
		disease.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		disease.Description = *in.Description
	}
	if in.IsActive != nil {
		disease.IsActive = *in.IsActive
	}

	if err := s.diseases.Update(ctx, disease); err != nil {
		if errors.Is(err, repositories.ErrDuplicateCode) {
			return nil, duplicateDisease(disease.Code)
		}
		return nil, Internal("Error al actualizar enfermedad", err)
	}
	s.audit.Emit(actor.audit("DISEASE_UPDATE", "DiseaseCatalog", disease.ID, nil), actor.AuthHeader)
	return disease, nil
}

// Deactivate is the catalog's delete. It reports whether anything changed.
func (s *DiseaseService) Deactivate(ctx context.Context, actor Actor, id string) (*models.DiseaseCatalog, bool, error) {
	disease, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !disease.IsActive {
		return disease, false, nil
	}

	disease.IsActive = false
	if err := s.diseases.Update(ctx, disease); err != nil {
		return nil, false, Internal("Error al eliminar enfermedad", err)
	}
	s.audit.Emit(actor.audit("DISEASE_DEACTIVATE", "DiseaseCatalog", disease.ID, nil), actor.AuthHeader)
	return disease, true, nil
}

func duplicateDisease(code string) *Error {
	return Conflict(http.StatusConflict, CodeDuplicateDisease, "Ya existe una enfermedad con ese código").WithDetail("code", code)
}

// notFoundOr maps repository lookups onto service errors.
func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return NotFound(notFoundMsg)
	default:
		return Internal(internalMsg, err)
	}
}
