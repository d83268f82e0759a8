package auth

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
)

// Identity is the request-scoped view of the caller, attached by the verifier.
type Identity struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (i Identity) HasPermission(p string) bool {
	return slices.Contains(i.Permissions, p)
}

type ctxKey int

const ctxIdentity ctxKey = iota

const ginIdentityKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

// Attach stores id on both the request context and the gin context.
func Attach(c *gin.Context, id Identity) {
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
	c.Set(ginIdentityKey, id)
}
