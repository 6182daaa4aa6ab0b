package auth

import (
	"context"
	"slices"

	"github.com/goliatone/go-accounts/model"
)

// Principal is the authenticated caller.
type Principal struct {
	AccountID int64
	Username  string
	Roles     []string
}

// IsAdmin reports whether the principal holds ROLE_ADMIN.
func (p Principal) IsAdmin() bool {
	return slices.Contains(p.Roles, model.RoleAdmin)
}

// HasAnyRole reports whether the principal holds one of roles.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
