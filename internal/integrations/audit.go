package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medical-records-service/internal/config"
)

// AuditEvent is posted to the audit service after a mutation.
type AuditEvent struct {
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entityId"`
	ActorID   string         `json:"actorId,omitempty"`
	ActorRole string         `json:"actorRole,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Auditor emits audit events in the background. Failures are logged and
// dropped; they never reach the caller.
type Auditor struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
	wg         sync.WaitGroup
}

// NewAuditor returns an Auditor posting to {AUDIT_SERVICE_URL}/api/audit.
// With no audit URL configured every Emit is a no-op.
func NewAuditor(cfg config.ServicesConfig, logger zerolog.Logger) *Auditor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var endpoint string
	if cfg.AuditServiceURL != "" {
		endpoint = cfg.AuditServiceURL + "/api/audit"
	}
	return &Auditor{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     logger.With().Str("component", "audit").Logger(),
	}
}

// Emit returns immediately. The request runs detached from any request
// context so a client disconnect does not cancel it.
func (a *Auditor) Emit(event AuditEvent, authHeader string) {
	if a.endpoint == "" {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.post(ctx, event, authHeader); err != nil {
			a.logger.Warn().Err(err).
				Str("action", event.Action).
				Str("entityId", event.EntityID).
				Msg("audit emission failed")
		}
	}()
}

func (a *Auditor) post(ctx context.Context, event AuditEvent, authHeader string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("audit service returned %d", resp.StatusCode)
	}
	return nil
}

// Close waits for in-flight emissions or until ctx is done.
func (a *Auditor) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
