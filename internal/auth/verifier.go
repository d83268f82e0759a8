package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"production-tracker/internal/apperr"
	"production-tracker/internal/config"
	"production-tracker/internal/users"
)

const (
	msgTokenRequired    = "Access token required"
	msgUserUnavailable  = "User not found or inactive"
	authorizationHeader = "Authorization"
)

// UserFinder is the slice of users.Repository the verifier needs.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// PermissionResolver maps a role to its permissions. rbac.Table implements it.
type PermissionResolver interface {
	Permissions(role string) []string
}

// Verifier turns an Authorization header into an Identity. Every request is
// verified from scratch: there is no identity cache, so a disabled account
// is locked out on its next request.
type Verifier struct {
	tokens *Manager
	users  UserFinder
	perms  PermissionResolver
	source config.PermissionSource
	clock  func() time.Time
}

func NewVerifier(tokens *Manager, users UserFinder, perms PermissionResolver, source config.PermissionSource) *Verifier {
	if source == "" {
		source = config.PermissionSourceToken
	}
	return &Verifier{tokens: tokens, users: users, perms: perms, source: source, clock: time.Now}
}

func (v *Verifier) Verify(ctx context.Context, header string) (Identity, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return Identity{}, apperr.Unauthenticated(msgTokenRequired)
	}

	claims, err := v.tokens.VerifyAccessToken(raw, v.clock())
	if err != nil {
		return Identity{}, err
	}

	u, err := v.users.GetByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		return Identity{}, apperr.Unauthenticated(msgUserUnavailable)
	case err != nil:
		return Identity{}, apperr.Internal(err)
	case !u.Active:
		return Identity{}, apperr.Unauthenticated(msgUserUnavailable)
	}

	id := Identity{ID: u.ID, Email: u.Email}
	if v.source == config.PermissionSourceUser {
		id.Role = u.Role
		id.Permissions = v.perms.Permissions(u.Role)
	} else {
		id.Role = claims.Role
		id.Permissions = claims.Permissions
	}
	return id, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
