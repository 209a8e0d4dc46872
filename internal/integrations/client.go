// Package integrations talks to the user, auth, appointment and audit
// services that own data this service only references.
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medical-records-service/internal/config"
)

// Outcome is the result of a single upstream lookup.
type Outcome int

const (
	// OutcomeUnknown means the upstream could not answer (network error,
	// timeout, 5xx, unreadable body).
	OutcomeUnknown Outcome = iota
	OutcomeFound
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Endpoint is one upstream service plus a path template containing {id}.
type Endpoint struct {
	Service string
	BaseURL string
	Path    string
}

// URL expands the template for id.
func (e Endpoint) URL(id string) string {
	return e.BaseURL + strings.ReplaceAll(e.Path, "{id}", url.PathEscape(id))
}

// Client issues the outbound reads. It is safe for concurrent use.
type Client struct {
	cfg        config.ServicesConfig
	httpClient *http.Client
	logger     zerolog.Logger

	patientChain []Endpoint
	doctorChain  []Endpoint
	userChain    []Endpoint
	profileChain []Endpoint
}

// NewClient builds the lookup chains from cfg. Services with an empty base
// URL are left out of every chain.
func NewClient(cfg config.ServicesConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	user := func(path string) Endpoint { return Endpoint{Service: "user", BaseURL: cfg.UserServiceURL, Path: path} }
	auth := func(path string) Endpoint { return Endpoint{Service: "auth", BaseURL: cfg.AuthServiceURL, Path: path} }

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "integrations").Logger(),
		patientChain: compact(
			user("/api/v1/users/{id}"),
			user("/api/v1/users/patients/{id}"),
			auth(cfg.AuthUserPath),
			auth(cfg.AuthPatientPath),
		),
		doctorChain: compact(
			user("/api/v1/users/{id}"),
			auth(cfg.AuthUserPath),
		),
		userChain: compact(
			user("/api/v1/users/{id}"),
			auth(cfg.AuthUserPath),
		),
		profileChain: compact(
			user("/api/v1/users/patients/{id}"),
			user("/api/v1/users/by-user/{id}"),
			auth(cfg.AuthPatientPath),
			auth(cfg.AuthUserPath),
		),
	}
}

func compact(endpoints ...Endpoint) []Endpoint {
	out := endpoints[:0]
	for _, e := range endpoints {
		if e.BaseURL != "" && e.Path != "" {
			out = append(out, e)
		}
	}
	return out
}

// getJSON performs one GET forwarding the caller's Authorization header
// verbatim. A 2xx with an empty or null body counts as not found.
func (c *Client) getJSON(ctx context.Context, rawURL, authHeader string) (map[string]any, Outcome) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("invalid upstream url")
		return nil, OutcomeUnknown
	}
	req.Header.Set("Accept", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("upstream request failed")
		return nil, OutcomeUnknown
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, OutcomeNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Debug().Int("status", resp.StatusCode).Str("url", rawURL).Msg("upstream returned non-2xx")
		return nil, OutcomeUnknown
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, OutcomeUnknown
	}
	data, err := decodeObject(body)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("upstream body is not json")
		return nil, OutcomeUnknown
	}
	if len(data) == 0 {
		return nil, OutcomeNotFound
	}
	return data, OutcomeFound
}

var errNotJSON = errors.New("body is not a json document")

// decodeObject returns JSON objects as-is and wraps any other non-null
// value under "data".
func decodeObject(body []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotJSON, err)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return t, nil
	default:
		return map[string]any{"data": t}, nil
	}
}

// firstFound walks chain in order and stops at the first positive answer.
// An explicit not-found from any endpoint makes the aggregate not-found;
// if every endpoint was unreachable the aggregate is unknown.
func (c *Client) firstFound(ctx context.Context, chain []Endpoint, id, authHeader string) (map[string]any, Outcome) {
	sawNotFound := false
	for _, endpoint := range chain {
		data, outcome := c.getJSON(ctx, endpoint.URL(id), authHeader)
		c.logger.Debug().
			Str("service", endpoint.Service).
			Str("path", endpoint.Path).
			Str("id", id).
			Stringer("outcome", outcome).
			Msg("identity lookup")
		switch outcome {
		case OutcomeFound:
			return data, OutcomeFound
		case OutcomeNotFound:
			sawNotFound = true
		}
	}
	if sawNotFound {
		return nil, OutcomeNotFound
	}
	return nil, OutcomeUnknown
}
