package auth

import (
	"context"
	"errors"
	"slices"
)

// Info is the opaque caller identity handed to every rating operation.
type Info struct {
	UserID string
	Roles  []string
}

func (i Info) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

func (i Info) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

var ErrNoIdentity = errors.New("identity not in context")

func FromContext(ctx context.Context) (Info, error) {
	if v, ok := ctx.Value(ctxKey{}).(Info); ok && v.UserID != "" {
		return v, nil
	}
	return Info{}, ErrNoIdentity
}
