package integrations

import (
	"context"
	"fmt"
	"strings"
)

// UserDetails returns the user profile from the first service that has it.
func (c *Client) UserDetails(ctx context.Context, userID, authHeader string) map[string]any {
	data, _ := c.firstFound(ctx, c.userChain, userID, authHeader)
	return data
}

// PatientInfo returns the patient profile, trying patient-specific paths
// before the generic user record.
func (c *Client) PatientInfo(ctx context.Context, patientID, authHeader string) map[string]any {
	data, _ := c.firstFound(ctx, c.profileChain, patientID, authHeader)
	return data
}

// Appointment fetches an appointment, unwrapping a {"data": {...}} envelope.
func (c *Client) Appointment(ctx context.Context, appointmentID, authHeader string) map[string]any {
	if c.cfg.AppointmentServiceURL == "" || appointmentID == "" {
		return nil
	}
	endpoint := Endpoint{Service: "appointment", BaseURL: c.cfg.AppointmentServiceURL, Path: c.cfg.AppointmentByIDPath}
	data, outcome := c.getJSON(ctx, endpoint.URL(appointmentID), authHeader)
	if outcome != OutcomeFound {
		return nil
	}
	if inner, ok := data["data"].(map[string]any); ok {
		return inner
	}
	return data
}

// Appointment rejection reasons.
const (
	ReasonNoAppointment   = "NO_APPOINTMENT"
	ReasonNotFound        = "NOT_FOUND"
	ReasonPatientMismatch = "PATIENT_MISMATCH"
	ReasonInvalidStatus   = "INVALID_STATUS"
)

// AppointmentCheck is the verdict on using an appointment for an encounter.
type AppointmentCheck struct {
	OK          bool
	Reason      string
	Appointment map[string]any
}

// ValidateAppointmentForPatient requires the appointment to exist, belong to
// patientID and not be cancelled or missed.
func (c *Client) ValidateAppointmentForPatient(ctx context.Context, appointmentID, patientID, authHeader string) AppointmentCheck {
	if appointmentID == "" {
		return AppointmentCheck{Reason: ReasonNoAppointment}
	}

	appt := c.Appointment(ctx, appointmentID, authHeader)
	if appt == nil {
		return AppointmentCheck{Reason: ReasonNotFound}
	}
	if fmt.Sprint(appt["patientId"]) != patientID {
		return AppointmentCheck{Reason: ReasonPatientMismatch, Appointment: appt}
	}
	switch strings.ToUpper(fmt.Sprint(appt["status"])) {
	case "CANCELLED", "NO_SHOW":
		return AppointmentCheck{Reason: ReasonInvalidStatus, Appointment: appt}
	}
	return AppointmentCheck{OK: true, Appointment: appt}
}
