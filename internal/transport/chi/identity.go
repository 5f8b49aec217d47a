package chi

import (
	"context"
	"errors"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

var errUnauthenticated = errors.New("no authenticated principal")

// Identity resolves the owner of a call according to the trust mode.
type Identity struct {
	mode domain.TrustMode
}

// NewIdentity creates a resolver. An empty mode is TrustPrincipal.
func NewIdentity(mode domain.TrustMode) Identity {
	if mode == "" {
		mode = domain.TrustPrincipal
	}
	return Identity{mode: mode}
}

// Mode returns the configured trust mode.
func (i Identity) Mode() domain.TrustMode { return i.mode }

// Owner returns the principal from ctx in TrustPrincipal mode, ignoring
// asserted. In TrustAsserted mode it returns asserted as given; emptiness
// is left to the use case validation.
func (i Identity) Owner(ctx context.Context, asserted *string) (string, error) {
	if i.mode == domain.TrustPrincipal {
		p, ok := domain.PrincipalFromContext(ctx)
		if !ok {
			return "", errUnauthenticated
		}
		return p, nil
	}
	if asserted == nil {
		return "", nil
	}
	return *asserted, nil
}
