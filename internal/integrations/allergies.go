package integrations

import (
	"context"
	"fmt"
	"strings"
)

// Allergies returns the names of the patient's recorded allergies. Lookup
// failures yield an empty list so that prescribing is never blocked by an
// unavailable user service.
func (c *Client) Allergies(ctx context.Context, patientID, authHeader string) []string {
	if c.cfg.UserServiceURL == "" {
		return nil
	}
	endpoint := Endpoint{Service: "user", BaseURL: c.cfg.UserServiceURL, Path: "/patients/{id}/allergies"}
	data, outcome := c.getJSON(ctx, endpoint.URL(patientID), authHeader)
	if outcome != OutcomeFound {
		if outcome == OutcomeUnknown {
			c.logger.Warn().Str("patientId", patientID).Msg("allergy lookup failed, continuing without allergies")
		}
		return nil
	}
	return allergyNames(data["allergies"])
}

// allergyNames accepts ["penicilina"] as well as [{"name": "penicilina"}].
func allergyNames(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		var name string
		switch v := item.(type) {
		case string:
			name = v
		case map[string]any:
			if n, ok := v["name"]; ok && n != nil {
				name = fmt.Sprint(n)
			}
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
