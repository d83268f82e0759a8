package projects

import "context"

// Store persists projects with their stage rows and activity log.
// Multi-row writes happen in one transaction.
type Store interface {
	// Create inserts p, its stages and the activity together.
	Create(ctx context.Context, p Project, act Activity) error
	List(ctx context.Context, f ListFilter) ([]Project, int, error)
	// Get returns the project with its stages ordered by number.
	Get(ctx context.Context, id string) (Project, error)
	// Update writes every column of p. A non-zero startStage marks that stage
	// in progress. The activities are appended in the same transaction.
	Update(ctx context.Context, p Project, startStage int, acts []Activity) error
	Delete(ctx context.Context, id string) error
	Activities(ctx context.Context, projectID string, limit int) ([]Activity, error)
}
