// Package access describes how a request reached a league: through a signed
// in member or through the league's public token.
package access

import (
	"context"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
)

type Mode string

const (
	ModeAuthenticated Mode = "authenticated"
	ModePublic        Mode = "public"
)

type Context struct {
	LeagueID uuid.UUID
	Mode     Mode
	UserID   uuid.UUID
	Role     league.Role
}

func (c Context) Public() bool {
	return c.Mode == ModePublic
}

// IsAdmin is never true for public token access.
func (c Context) IsAdmin() bool {
	return c.Mode == ModeAuthenticated && c.Role == league.RoleAdmin
}

type contextKey struct{}

func NewContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(contextKey{}).(Context)
	return c, ok
}
