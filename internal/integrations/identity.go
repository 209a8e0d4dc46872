package integrations

import "context"

// Kind selects which identity chain to consult.
type Kind int

const (
	KindPatient Kind = iota
	KindDoctor
)

func (k Kind) String() string {
	if k == KindDoctor {
		return "doctor"
	}
	return "patient"
}

// Resolve walks the ordered endpoint chain for kind and reports the
// aggregate outcome. It ignores the validation bypass flags.
func (c *Client) Resolve(ctx context.Context, kind Kind, id, authHeader string) Outcome {
	chain := c.patientChain
	if kind == KindDoctor {
		chain = c.doctorChain
	}
	_, outcome := c.firstFound(ctx, chain, id, authHeader)
	return outcome
}

// VerifyExists reports whether id is known to any upstream identity service.
// Unreachable services are indistinguishable from an absent identity.
//
// VALIDATE_PATIENT / VALIDATE_DOCTOR set to false make this return true
// unconditionally. That is an operational escape hatch for running without
// the identity services, not an access control.
func (c *Client) VerifyExists(ctx context.Context, kind Kind, id, authHeader string) bool {
	if id == "" {
		return false
	}
	if kind == KindPatient && !c.cfg.ValidatePatient {
		return true
	}
	if kind == KindDoctor && !c.cfg.ValidateDoctor {
		return true
	}

	outcome := c.Resolve(ctx, kind, id, authHeader)
	if outcome == OutcomeUnknown {
		c.logger.Warn().Stringer("kind", kind).Str("id", id).Msg("identity services unreachable, treating as absent")
	}
	return outcome == OutcomeFound
}
