package auth

import (
	"context"
	"strings"

	"github.com/taskapp/apiserver/types"
)

// Resolver turns a bearer token back into the user it was issued for.
// It shares the signing config with the Service but never mints tokens.
type Resolver struct {
	repo UserRepository
	cfg  Config
}

func NewResolver(repo UserRepository, cfg Config) *Resolver {
	return &Resolver{repo: repo, cfg: cfg}
}

// Verify checks the token's signature, issuer, audience, and expiry and
// returns its claims. It performs no repository lookup.
func (r *Resolver) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	return parseClaims(tokenString, r.cfg)
}

// Resolve verifies the token and fetches the user named by its subject.
// A valid token whose subject no longer exists (deleted after issuance)
// yields store.ErrNotFound, distinct from token errors.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (types.User, error) {
	claims, err := r.Verify(tokenString)
	if err != nil {
		return types.User{}, err
	}
	return r.repo.GetByID(ctx, claims.Subject)
}
