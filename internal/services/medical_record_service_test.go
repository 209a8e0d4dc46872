package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-records-service/internal/integrations"
	"medical-records-service/internal/models"
	"medical-records-service/internal/repositories"
)

func newRecordService(records *MockMedicalRecordRepository, check integrations.AppointmentCheck, audit *fakeAudit) *MedicalRecordService {
	directory := &fakeDirectory{patients: map[string]map[string]any{"patient-1": {"id": "patient-1", "fullName": "Ana Pérez"}}}
	s := NewMedicalRecordService(records, &fakeVerifier{}, fakeAppointments{check: check}, directory, audit, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateMedicalRecord(t *testing.T) {
	records := &MockMedicalRecordRepository{}
	audit := &fakeAudit{}
	appt := map[string]any{"id": "appt-1", "patientId": "patient-1", "status": "CONFIRMED"}
	s := newRecordService(records, integrations.AppointmentCheck{OK: true, Appointment: appt}, audit)

	res, err := s.Create(context.Background(), doctor, CreateMedicalRecordInput{
		PatientID:     "patient-1",
		AppointmentID: "appt-1",
		Symptoms:      "fiebre",
	})
	require.NoError(t, err)

	assert.Equal(t, "doctor-1", res.Record.PhysicianID)
	assert.Equal(t, models.RecordStatusActive, res.Record.Status)
	require.NotNil(t, res.Record.AppointmentID)
	assert.Equal(t, "appt-1", *res.Record.AppointmentID)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), res.Record.Date)
	assert.Equal(t, "Ana Pérez", res.PatientInfo["fullName"])
	assert.Equal(t, appt, res.Appointment)
	assert.Equal(t, []string{"MEDICAL_RECORD_CREATE"}, audit.actions())
}

func TestCreateMedicalRecordRejectsInvalidAppointment(t *testing.T) {
	records := &MockMedicalRecordRepository{}
	s := newRecordService(records, integrations.AppointmentCheck{Reason: integrations.ReasonInvalidStatus}, &fakeAudit{})

	_, err := s.Create(context.Background(), doctor, CreateMedicalRecordInput{
		PatientID:     "patient-1",
		AppointmentID: "appt-1",
		Symptoms:      "fiebre",
	})

	svcErr, status := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_APPOINTMENT", svcErr.Code)
	assert.Equal(t, integrations.ReasonInvalidStatus, svcErr.Details["reason"])
	assert.Equal(t, int32(0), records.CreateFuncCallCount)
}

func TestCreateMedicalRecordRequiresSymptoms(t *testing.T) {
	records := &MockMedicalRecordRepository{}
	s := newRecordService(records, integrations.AppointmentCheck{OK: true}, &fakeAudit{})

	_, err := s.Create(context.Background(), doctor, CreateMedicalRecordInput{PatientID: "patient-1"})

	svcErr, status := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{"symptoms"}, svcErr.Details["required"])
}

func TestArchiveMedicalRecordIsIdempotent(t *testing.T) {
	record := &models.MedicalRecord{BaseModel: models.BaseModel{ID: "record-1"}, Status: models.RecordStatusActive}
	records := &MockMedicalRecordRepository{
		GetByIDFunc: func(_ context.Context, id string) (*models.MedicalRecord, error) {
			if id != "record-1" {
				return nil, repositories.ErrNotFound
			}
			return record, nil
		},
	}
	audit := &fakeAudit{}
	s := newRecordService(records, integrations.AppointmentCheck{}, audit)

	got, err := s.Archive(context.Background(), doctor, "record-1")
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusArchived, got.Status)

	_, err = s.Archive(context.Background(), doctor, "record-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), records.UpdateFuncCallCount)
	assert.Equal(t, []string{"MEDICAL_RECORD_ARCHIVE"}, audit.actions())

	_, err = s.Archive(context.Background(), doctor, "record-x")
	_, status := statusOf(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdateMedicalRecordValidatesStatus(t *testing.T) {
	records := &MockMedicalRecordRepository{
		GetByIDFunc: func(_ context.Context, id string) (*models.MedicalRecord, error) {
			return &models.MedicalRecord{BaseModel: models.BaseModel{ID: id}, Status: models.RecordStatusActive, Symptoms: "fiebre"}, nil
		},
	}
	s := newRecordService(records, integrations.AppointmentCheck{}, &fakeAudit{})

	bad := "deleted"
	_, err := s.Update(context.Background(), doctor, "record-1", UpdateMedicalRecordInput{Status: &bad})
	_, status := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	notes := "control en 7 días"
	got, err := s.Update(context.Background(), doctor, "record-1", UpdateMedicalRecordInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, "fiebre", got.Symptoms)
}

func TestListMedicalRecordsRejectsUnknownStatus(t *testing.T) {
	s := newRecordService(&MockMedicalRecordRepository{}, integrations.AppointmentCheck{}, &fakeAudit{})

	_, _, err := s.List(context.Background(), repositories.MedicalRecordFilter{Status: "closed"})
	_, status := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}
