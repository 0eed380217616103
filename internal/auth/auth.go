// Package auth implements the bearer-token gate in front of the API.
//
// The gate runs in one of three modes, decided once at startup:
//
//   - disabled: no credentials configured, every request passes through
//     unauthenticated.
//   - dev: credentials may exist but verification is bypassed.
//   - enforced: requests must carry a valid "Authorization: Bearer <token>"
//     JWT; the decoded identity is attached to the request context.
//
// The two permissive modes exist for local and demo operation. They are an
// explicit configuration switch, never inferred per request.
package auth

import "context"

// Modes the gate can run in.
const (
	ModeDisabled = "disabled"
	ModeDev      = "dev"
	ModeEnforced = "enforced"
)

// Identity is the decoded subject attached to a request after successful
// verification.
type Identity struct {
	UserID string
	Email  string
}

type contextKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the identity, if any, from the context.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}
