package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"medical-records-service/internal/integrations"
	"medical-records-service/internal/models"
)

// IdentityVerifier checks that a patient or doctor id exists upstream.
type IdentityVerifier interface {
	VerifyExists(ctx context.Context, kind integrations.Kind, id, authHeader string) bool
}

// AuditEmitter records mutations after the fact. It must not block.
type AuditEmitter interface {
	Emit(event integrations.AuditEvent, authHeader string)
}

// AllergyLookup returns a patient's allergies, empty on failure.
type AllergyLookup interface {
	Allergies(ctx context.Context, patientID, authHeader string) []string
}

// UserDirectory returns display data for users. Nil means unavailable.
type UserDirectory interface {
	UserDetails(ctx context.Context, userID, authHeader string) map[string]any
	PatientInfo(ctx context.Context, patientID, authHeader string) map[string]any
}

// AppointmentValidator checks an appointment can anchor a new encounter.
type AppointmentValidator interface {
	ValidateAppointmentForPatient(ctx context.Context, appointmentID, patientID, authHeader string) integrations.AppointmentCheck
}

// Actor is the authenticated caller. AuthHeader is forwarded verbatim to
// upstream services.
type Actor struct {
	ID         string
	Role       models.Role
	AuthHeader string
}

func (a Actor) audit(action, entity, entityID string, metadata map[string]any) integrations.AuditEvent {
	return integrations.AuditEvent{
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		ActorID:   a.ID,
		ActorRole: string(a.Role),
		Metadata:  metadata,
	}
}

// verifyParticipants checks patient and doctor concurrently.
func verifyParticipants(ctx context.Context, verifier IdentityVerifier, patientID, doctorID, authHeader string) error {
	var patientOK, doctorOK bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		patientOK = verifier.VerifyExists(gctx, integrations.KindPatient, patientID, authHeader)
		return nil
	})
	g.Go(func() error {
		doctorOK = verifier.VerifyExists(gctx, integrations.KindDoctor, doctorID, authHeader)
		return nil
	})
	_ = g.Wait()

	if !patientOK {
		return NotFound("Paciente no existe")
	}
	if !doctorOK {
		return NotFound("Doctor no existe")
	}
	return nil
}

// missingFields returns the names whose value is blank.
func missingFields(fields ...[2]string) []string {
	var missing []string
	for _, f := range fields {
		if isBlank(f[1]) {
			missing = append(missing, f[0])
		}
	}
	return missing
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
