package users

import "context"

// Repository is the persistence contract for users.
type Repository interface {
	// Create inserts u. A duplicate email returns ErrEmailTaken.
	Create(ctx context.Context, u User) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}
