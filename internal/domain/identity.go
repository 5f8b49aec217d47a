package domain

import (
	"context"
	"fmt"
)

// TrustMode selects where the caller's identity comes from.
type TrustMode string

const (
	// TrustPrincipal takes the owner from the authenticated principal.
	TrustPrincipal TrustMode = "principal"
	// TrustAsserted takes the owner from the request itself.
	TrustAsserted TrustMode = "asserted"
)

// ParseTrustMode validates a configured trust mode.
func ParseTrustMode(s string) (TrustMode, error) {
	switch TrustMode(s) {
	case TrustPrincipal, TrustAsserted:
		return TrustMode(s), nil
	default:
		return "", fmt.Errorf("unknown trust mode %q", s)
	}
}

type principalKey struct{}

// ContextWithPrincipal stores the authenticated principal in the context.
func ContextWithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey{}).(string)
	return p, ok && p != ""
}
