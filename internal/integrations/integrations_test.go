package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-records-service/internal/config"
)

// recorder is an upstream stub answering from a path→response table and
// remembering what it was asked.
type recorder struct {
	mu        sync.Mutex
	paths     []string
	auth      []string
	responses map[string]func(w http.ResponseWriter)
}

func newRecorder(responses map[string]func(w http.ResponseWriter)) (*recorder, *httptest.Server) {
	rec := &recorder{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.paths = append(rec.paths, r.URL.Path)
		rec.auth = append(rec.auth, r.Header.Get("Authorization"))
		rec.mu.Unlock()
		if respond, ok := rec.responses[r.URL.Path]; ok {
			respond(w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	return rec, srv
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func jsonBody(v any) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { w.WriteHeader(code) }
}

func servicesConfig(userURL, authURL string) config.ServicesConfig {
	return config.ServicesConfig{
		UserServiceURL:      userURL,
		AuthServiceURL:      authURL,
		AuthUserPath:        "/api/v1/users/{id}",
		AuthPatientPath:     "/api/v1/patients/{id}",
		AppointmentByIDPath: "/api/v1/appointments/by-id/{id}",
		Timeout:             time.Second,
		ValidatePatient:     true,
		ValidateDoctor:      true,
	}
}

func TestVerifyExistsStopsAtFirstHit(t *testing.T) {
	users, userSrv := newRecorder(map[string]func(http.ResponseWriter){
		"/api/v1/users/patients/p1": jsonBody(map[string]any{"id": "p1"}),
	})
	defer userSrv.Close()
	auths, authSrv := newRecorder(nil)
	defer authSrv.Close()

	client := NewClient(servicesConfig(userSrv.URL, authSrv.URL), zerolog.Nop())

	assert.True(t, client.VerifyExists(context.Background(), KindPatient, "p1", "Bearer abc"))
	assert.Equal(t, []string{"/api/v1/users/p1", "/api/v1/users/patients/p1"}, users.calls())
	assert.Empty(t, auths.calls(), "fallback service must not be consulted after a hit")
	assert.Equal(t, []string{"Bearer abc", "Bearer abc"}, users.auth)
}

func TestVerifyExistsFallsBackToAuthService(t *testing.T) {
	users, userSrv := newRecorder(map[string]func(http.ResponseWriter){
		"/api/v1/users/d1": status(http.StatusInternalServerError),
	})
	defer userSrv.Close()
	auths, authSrv := newRecorder(map[string]func(http.ResponseWriter){
		"/api/v1/users/d1": jsonBody(map[string]any{"id": "d1", "role": "MEDICO"}),
	})
	defer authSrv.Close()

	client := NewClient(servicesConfig(userSrv.URL, authSrv.URL), zerolog.Nop())

	assert.True(t, client.VerifyExists(context.Background(), KindDoctor, "d1", ""))
	assert.Equal(t, []string{"/api/v1/users/d1"}, users.calls())
	assert.Equal(t, []string{"/api/v1/users/d1"}, auths.calls())
}

func TestVerifyExistsExhaustsEveryEndpoint(t *testing.T) {
	users, userSrv := newRecorder(map[string]func(http.ResponseWriter){
		"/api/v1/users/p9": jsonBody(nil),
	})
	defer userSrv.Close()
	auths, authSrv := newRecorder(nil)
	defer authSrv.Close()

	client := NewClient(servicesConfig(userSrv.URL, authSrv.URL), zerolog.Nop())

	assert.False(t, client.VerifyExists(context.Background(), KindPatient, "p9", ""))
	assert.Len(t, users.calls(), 2)
	assert.Equal(t, []string{"/api/v1/users/p9", "/api/v1/patients/p9"}, auths.calls())
	assert.Equal(t, OutcomeNotFound, client.Resolve(context.Background(), KindPatient, "p9", ""))
}

func TestVerifyExistsTreatsUnreachableAsAbsent(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	client := NewClient(servicesConfig(deadURL, ""), zerolog.Nop())

	assert.Equal(t, OutcomeUnknown, client.Resolve(context.Background(), KindPatient, "p1", ""))
	assert.False(t, client.VerifyExists(context.Background(), KindPatient, "p1", ""))
}

func TestVerifyExistsBypassFlags(t *testing.T) {
	cfg := servicesConfig("", "")
	cfg.ValidatePatient = false
	client := NewClient(cfg, zerolog.Nop())

	assert.True(t, client.VerifyExists(context.Background(), KindPatient, "anyone", ""))
	assert.False(t, client.VerifyExists(context.Background(), KindDoctor, "anyone", ""))
	assert.False(t, client.VerifyExists(context.Background(), KindPatient, "", ""))
}

func TestPatientInfoPrefersPatientProfile(t *testing.T) {
	users, userSrv := newRecorder(map[string]func(http.ResponseWriter){
		"/api/v1/users/by-user/u1": jsonBody(map[string]any{"fullname": "Ana Pérez"}),
	})
	defer userSrv.Close()

	client := NewClient(servicesConfig(userSrv.URL, ""), zerolog.Nop())

	info := client.PatientInfo(context.Background(), "u1", "")
	require.NotNil(t, info)
	assert.Equal(t, "Ana Pérez", info["fullname"])
	assert.Equal(t, []string{"/api/v1/users/patients/u1", "/api/v1/users/by-user/u1"}, users.calls())

	assert.Nil(t, client.UserDetails(context.Background(), "missing", ""))
}

func TestValidateAppointmentForPatient(t *testing.T) {
	_, srv := newRecorder(map[string]func(http.ResponseWriter){
		"/api/v1/appointments/by-id/a1": jsonBody(map[string]any{"data": map[string]any{"patientId": "p1", "status": "SCHEDULED"}}),
		"/api/v1/appointments/by-id/a2": jsonBody(map[string]any{"patientId": "p2", "status": "SCHEDULED"}),
		"/api/v1/appointments/by-id/a3": jsonBody(map[string]any{"patientId": "p1", "status": "CANCELLED"}),
	})
	defer srv.Close()

	cfg := servicesConfig("", "")
	cfg.AppointmentServiceURL = srv.URL
	client := NewClient(cfg, zerolog.Nop())
	ctx := context.Background()

	check := client.ValidateAppointmentForPatient(ctx, "a1", "p1", "")
	assert.True(t, check.OK)
	assert.Equal(t, "SCHEDULED", check.Appointment["status"])

	assert.Equal(t, ReasonPatientMismatch, client.ValidateAppointmentForPatient(ctx, "a2", "p1", "").Reason)
	assert.Equal(t, ReasonInvalidStatus, client.ValidateAppointmentForPatient(ctx, "a3", "p1", "").Reason)
	assert.Equal(t, ReasonNotFound, client.ValidateAppointmentForPatient(ctx, "zz", "p1", "").Reason)
	assert.Equal(t, ReasonNoAppointment, client.ValidateAppointmentForPatient(ctx, "", "p1", "").Reason)
}

func TestAllergiesAcceptsBothShapesAndFailsOpen(t *testing.T) {
	_, srv := newRecorder(map[string]func(http.ResponseWriter){
		"/patients/p1/allergies": jsonBody(map[string]any{"allergies": []any{"Penicilina", map[string]any{"name": "Ibuprofeno"}, map[string]any{}}}),
		"/patients/p2/allergies": status(http.StatusServiceUnavailable),
	})
	defer srv.Close()

	client := NewClient(servicesConfig(srv.URL, ""), zerolog.Nop())

	assert.Equal(t, []string{"Penicilina", "Ibuprofeno"}, client.Allergies(context.Background(), "p1", ""))
	assert.Empty(t, client.Allergies(context.Background(), "p2", ""))
}

func TestAuditorPostsInBackground(t *testing.T) {
	received := make(chan AuditEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/audit", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		var event AuditEvent
		json.NewDecoder(r.Body).Decode(&event)
		received <- event
	}))
	defer srv.Close()

	cfg := servicesConfig("", "")
	cfg.AuditServiceURL = srv.URL
	auditor := NewAuditor(cfg, zerolog.Nop())

	auditor.Emit(AuditEvent{Action: "DIAGNOSIS_CREATE", Entity: "Diagnostics", EntityID: "d1"}, "Bearer t")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, auditor.Close(ctx))

	select {
	case event := <-received:
		assert.Equal(t, "DIAGNOSIS_CREATE", event.Action)
		assert.Equal(t, "d1", event.EntityID)
	default:
		t.Fatal("audit event was not delivered")
	}
}

func TestAuditorSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := servicesConfig("", "")
	cfg.AuditServiceURL = srv.URL
	auditor := NewAuditor(cfg, zerolog.Nop())

	assert.NotPanics(t, func() { auditor.Emit(AuditEvent{Action: "X"}, "") })
	require.NoError(t, auditor.Close(context.Background()))

	NewAuditor(servicesConfig("", ""), zerolog.Nop()).Emit(AuditEvent{Action: "noop"}, "")
}
