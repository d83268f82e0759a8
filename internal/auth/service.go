package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production-tracker/internal/apperr"
	"production-tracker/internal/audit"
	"production-tracker/internal/metrics"
	"production-tracker/internal/refreshtokens"
	"production-tracker/internal/users"
	"production-tracker/pkg/logger"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgEmailTaken         = "User already exists with this email"
	msgAccountInactive    = "User account is inactive"
	msgUserNotFound       = "User not found"
	msgValidationFailed   = "Validation failed"

	// DefaultRole is assigned when registration does not name one.
	DefaultRole = "team_member"
)

// Session is what register, login and refresh hand back to the client.
type Session struct {
	User         users.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	Department string
}

// Caller carries request metadata for audit records.
type Caller struct {
	IP     string
	Method string
	Path   string
}

type Service struct {
	users   users.Repository
	store   refreshtokens.Store
	tokens  *Manager
	hasher  *Hasher
	perms   PermissionResolver
	audit   *audit.Service
	metrics *metrics.Metrics
	clock   func() time.Time
}

type ServiceDeps struct {
	Users   users.Repository
	Store   refreshtokens.Store
	Tokens  *Manager
	Hasher  *Hasher
	Perms   PermissionResolver
	Audit   *audit.Service
	Metrics *metrics.Metrics
}

func NewService(d ServiceDeps) *Service {
	return &Service{
		users:   d.Users,
		store:   d.Store,
		tokens:  d.Tokens,
		hasher:  d.Hasher,
		perms:   d.Perms,
		audit:   d.Audit,
		metrics: d.Metrics,
		clock:   time.Now,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput, caller Caller) (sess Session, err error) {
	defer func() { s.metrics.AuthAttempt("register", err) }()

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return Session{}, apperr.Conflict(msgEmailTaken)
	} else if !errors.Is(err, users.ErrNotFound) {
		return Session{}, apperr.Internal(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		return Session{}, apperr.Validation(msgValidationFailed, []apperr.FieldError{{
			Field: "password", Message: "Must be at most 72 bytes",
		}})
	}
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	role := in.Role
	if role == "" {
		role = DefaultRole
	}

	u, err := s.users.Create(ctx, users.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		Department:   in.Department,
		Active:       true,
	})
	if errors.Is(err, users.ErrEmailTaken) {
		return Session{}, apperr.Conflict(msgEmailTaken)
	}
	if err != nil {
		return Session{}, apperr.Internal(err)
	}

	sess, err = s.openSession(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeRegister, u, caller, "")
	logger.From(ctx).Info("user registered", "user_id", u.ID)
	return sess, nil
}

// Login answers every failure with the same message so a caller cannot tell
// a wrong password from an unknown or disabled account.
func (s *Service) Login(ctx context.Context, email, password string, caller Caller) (sess Session, err error) {
	defer func() { s.metrics.AuthAttempt("login", err) }()

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		s.hasher.Burn(password)
		s.record(ctx, audit.EventTypeLoginFailed, users.User{Email: users.NormalizeEmail(email)}, caller, "unknown account")
		return Session{}, apperr.Unauthenticated(msgInvalidCredentials)
	case err != nil:
		return Session{}, apperr.Internal(err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		s.record(ctx, audit.EventTypeLoginFailed, u, caller, "wrong password")
		return Session{}, apperr.Unauthenticated(msgInvalidCredentials)
	}
	if !u.Active {
		s.record(ctx, audit.EventTypeLoginFailed, u, caller, "inactive account")
		return Session{}, apperr.Unauthenticated(msgInvalidCredentials)
	}

	sess, err = s.openSession(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeLogin, u, caller, "")
	return sess, nil
}

// Refresh rotates the session: the presented token is replaced and a fresh
// access token is minted from the user's current role.
func (s *Service) Refresh(ctx context.Context, refreshToken string, caller Caller) (sess Session, err error) {
	defer func() { s.metrics.AuthAttempt("refresh", err) }()

	if err := s.tokens.VerifyRefreshToken(refreshToken, s.clock()); err != nil {
		return Session{}, err
	}

	rec, err := s.store.Lookup(ctx, refreshToken)
	if errors.Is(err, refreshtokens.ErrNotFound) {
		return Session{}, apperr.Unauthenticated(msgInvalidRefreshToken)
	}
	if err != nil {
		return Session{}, apperr.Internal(err)
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return Session{}, apperr.Unauthenticated(msgInvalidRefreshToken)
	}
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	if !u.Active {
		return Session{}, apperr.Unauthenticated(msgAccountInactive)
	}

	sess, err = s.openSession(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.EventTypeRefresh, u, caller, "")
	return sess, nil
}

// Logout revokes the given refresh token. Unknown tokens are not an error.
// Outstanding access tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, refreshToken string, caller Caller) (err error) {
	defer func() { s.metrics.AuthAttempt("logout", err) }()

	if err := s.store.Revoke(ctx, refreshToken); err != nil {
		return apperr.Internal(err)
	}
	s.record(ctx, audit.EventTypeLogout, users.User{}, caller, "")
	return nil
}

func (s *Service) Profile(ctx context.Context, userID string) (users.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !u.Active) {
		return users.User{}, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return users.User{}, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) openSession(ctx context.Context, u users.User) (Session, error) {
	now := s.clock()

	access, err := s.tokens.IssueAccessToken(now, AccessSubject{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: s.perms.Permissions(u.Role),
	})
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("issue access token: %w", err))
	}

	refresh, expiresAt, err := s.tokens.IssueRefreshToken(now)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("issue refresh token: %w", err))
	}
	if err := s.store.Persist(ctx, refresh, u.ID, expiresAt); err != nil {
		return Session{}, apperr.Internal(err)
	}

	return Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) record(ctx context.Context, t audit.EventType, u users.User, caller Caller, msg string) {
	s.audit.Record(ctx, audit.Event{
		Type:        t,
		ActorUserID: u.ID,
		ActorEmail:  u.Email,
		ActorRole:   u.Role,
		IPAddress:   caller.IP,
		Method:      caller.Method,
		Path:        caller.Path,
		Message:     msg,
	})
}
