package auth

import (
	"context"

	"github.com/16madina/lazone/backend/internal/domain/enums"
)

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

// Identity is the engine's read-only input from the auth collaborator:
// who is acting and which pricing category they belong to.
type Identity struct {
	UserID   int64
	Category enums.UserCategory
	Role     string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
