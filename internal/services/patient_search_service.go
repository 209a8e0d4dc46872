package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"medical-records-service/internal/repositories"
)

// SearchPatientsInput holds raw query parameters. Dates are YYYY-MM-DD or RFC 3339.
type SearchPatientsInput struct {
	Diagnostic string
	DateFrom   string
	DateTo     string
	Page       repositories.Page
}

// PatientMatch pairs a patient with the newest diagnostic that matched.
type PatientMatch struct {
	Diagnostic map[string]any `json:"diagnostic"`
	Patient    map[string]any `json:"patient"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

type SearchPatientsResult struct {
	Data       []PatientMatch `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

const enrichConcurrency = 8

// PatientSearchService finds patients through their active diagnostics.
type PatientSearchService struct {
	diagnostics repositories.DiagnosticRepositoryContract
	directory   UserDirectory
	audit       AuditEmitter
}

func NewPatientSearchService(diagnostics repositories.DiagnosticRepositoryContract, directory UserDirectory, audit AuditEmitter) *PatientSearchService {
	return &PatientSearchService{diagnostics: diagnostics, directory: directory, audit: audit}
}

func (s *PatientSearchService) Search(ctx context.Context, actor Actor, in SearchPatientsInput) (*SearchPatientsResult, error) {
	if isBlank(in.Diagnostic) && isBlank(in.DateFrom) && isBlank(in.DateTo) {
		return nil, Validation("Debe proporcionar al menos un criterio de búsqueda (diagnostic, dateFrom, dateTo)")
	}

	filter := repositories.PatientSearchFilter{Diagnosis: in.Diagnostic, Page: in.Page.Normalize(10, 100)}
	if !isBlank(in.DateFrom) {
		from, err := parseSearchDate(in.DateFrom)
		if err != nil {
			return nil, Validation("Formato de fecha inicial inválido. Use YYYY-MM-DD")
		}
		from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		filter.From = &from
	}
	if !isBlank(in.DateTo) {
		to, err := parseSearchDate(in.DateTo)
		if err != nil {
			return nil, Validation("Formato de fecha final inválido. Use YYYY-MM-DD")
		}
		to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
		filter.To = &to
	}

	ids, total, err := s.diagnostics.SearchPatientIDs(ctx, filter)
	if err != nil {
		return nil, Internal("Error al procesar la búsqueda avanzada", err)
	}
	latest, err := s.diagnostics.LatestMatching(ctx, filter, ids)
	if err != nil {
		return nil, Internal("Error al procesar la búsqueda avanzada", err)
	}

	matches := make([]PatientMatch, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			patient := s.directory.UserDetails(gctx, id, actor.AuthHeader)
			if patient == nil {
				patient = map[string]any{"id": id, "message": "Información de paciente no disponible"}
			}
			d := latest[id]
			matches[i] = PatientMatch{
				Diagnostic: map[string]any{
					"id":        d.ID,
					"title":     d.Title,
					"diagnosis": d.Diagnosis,
					"createdAt": d.CreatedAt,
				},
				Patient: patient,
			}
			return nil
		})
	}
	_ = g.Wait()

	page := filter.Page
	result := &SearchPatientsResult{
		Data: matches,
		Pagination: Pagination{
			Total: total,
			Pages: (total + int64(page.Limit) - 1) / int64(page.Limit),
			Page:  page.Page,
			Limit: page.Limit,
		},
	}

	s.audit.Emit(actor.audit("ADVANCED_SEARCH", "Patient", "", map[string]any{
		"filters": map[string]any{
			"diagnostic": in.Diagnostic,
			"dateFrom":   filter.From,
			"dateTo":     filter.To,
		},
		"resultsCount": len(matches),
		"page":         page.Page,
		"limit":        page.Limit,
	}), actor.AuthHeader)
	return result, nil
}

func parseSearchDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
