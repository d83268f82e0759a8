package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"production-tracker/pkg/utils"

	"github.com/google/uuid"
)

const emailConstraint = "users_email_key"

const userColumns = `id, email, password_hash, first_name, last_name, role, department, avatar_url, is_active, created_at, updated_at`

type PostgresRepository struct {
	db    utils.DBTX
	clock func() time.Time
}

func NewPostgresRepository(db utils.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, clock: time.Now}
}

func (r *PostgresRepository) Create(ctx context.Context, u User) (User, error) {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	now := r.clock().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, q,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Role,
		nullString(u.Department),
		nullString(u.AvatarURL),
		u.Active,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if utils.IsUniqueViolation(err, emailConstraint) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, NormalizeEmail(email)))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (User, error) {
	var (
		u          User
		department sql.NullString
		avatar     sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&department,
		&avatar,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	u.Department = department.String
	u.AvatarURL = avatar.String
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
