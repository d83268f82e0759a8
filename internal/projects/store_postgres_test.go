package projects

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

var projectCols = []string{"id", "title", "description", "brief", "client_id", "project_manager_id", "stage", "priority", "status", "progress",
	"budget", "currency", "start_date", "end_date", "project_type", "genre", "deliverables", "tags", "created_at", "updated_at"}

func TestListWhere(t *testing.T) {
	where, args := listWhere(ListFilter{Stage: "2", Priority: PriorityUrgent, Search: "50%_off"})
	require.Equal(t, " WHERE stage = $1 AND priority = $2 AND (title ILIKE $3 OR description ILIKE $3)", where)
	require.Equal(t, []any{"2", "urgent", `%50\%\_off%`}, args)

	where, args = listWhere(ListFilter{})
	require.Empty(t, where)
	require.Empty(t, args)
}

func TestPostgresCreate_WritesEverythingInOneTx(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()
	p := Project{ID: "p1", Title: "Spot", ClientID: "c1", ProjectManagerID: "u1", Stage: "1", Priority: PriorityLow,
		Status: StatusActive, CreatedAt: now, UpdatedAt: now, Stages: initialStages(1)}

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+projects\b`).WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 1; i <= StageCount; i++ {
		mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+project_stages\b`).
			WithArgs("p1", i, StageNames[i-1], sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+project_activities\b`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Create(context.Background(), p, Activity{ID: "a1", ProjectID: "p1", Type: ActivityProjectCreated}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_StageFailureRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t)
	p := Project{ID: "p1", Stages: initialStages(1)}

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+projects\b`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+project_stages\b`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	require.Error(t, s.Create(context.Background(), p, Activity{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet_ScansProjectAndStages(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+projects\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(projectCols).AddRow(
			"p1", "Spot", nil, "brief", "c1", "u1", "2", "high", "active", 20,
			1500.5, "USD", now, nil, "Commercial", nil, []byte(`["master"]`), []byte(`["tv","30s"]`), now, now))
	mock.ExpectQuery(`(?s)^\s*SELECT\s+stage_number.*FROM\s+project_stages`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stage_number", "stage_name", "status", "progress", "start_date"}).
			AddRow(1, StageNames[0], "completed", 100, now).
			AddRow(2, StageNames[1], "in_progress", 10, nil))

	p, err := s.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, PriorityHigh, p.Priority)
	require.Equal(t, "brief", p.Brief)
	require.Empty(t, p.Description)
	require.NotNil(t, p.Budget)
	require.Equal(t, 1500.5, *p.Budget)
	require.NotNil(t, p.StartDate)
	require.Nil(t, p.EndDate)
	require.Equal(t, []string{"tv", "30s"}, p.Tags)
	require.Equal(t, []string{"master"}, p.Deliverables)
	require.Len(t, p.Stages, 2)
	require.Equal(t, StageInProgress, p.Stages[1].Status)
	require.Nil(t, p.Stages[1].StartDate)
}

func TestPostgresGet_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT\s+id,`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresList_CountsThenPages(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM projects WHERE status = \$1$`).
		WithArgs("on_hold").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)FROM projects WHERE status = \$1 ORDER BY updated_at DESC LIMIT \$2 OFFSET \$3$`).
		WithArgs("on_hold", 10, 10).
		WillReturnRows(sqlmock.NewRows(projectCols))

	items, total, err := s.List(context.Background(), ListFilter{Status: StatusOnHold, Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, items)
	require.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_StartsStageAndAppendsActivities(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()
	p := Project{ID: "p1", Stage: "4", UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*UPDATE\s+projects\s+SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*UPDATE\s+project_stages\s+SET`).
		WithArgs("p1", 4, "in_progress", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+project_activities\b`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+project_activities\b`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Update(context.Background(), p, 4, []Activity{{ID: "a1"}, {ID: "a2"}}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`^DELETE FROM projects WHERE id = \$1$`).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, s.Delete(context.Background(), "p1"), ErrNotFound)
}

func TestPostgresActivities_DecodesMetadata(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)FROM\s+project_activities.*LIMIT\s+\$2`).
		WithArgs("p1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "activity_type", "title", "description", "metadata", "created_at"}).
			AddRow("a1", "p1", "u1", "stage_changed", "Project moved to stage 2", nil, []byte(`{"newStage":"2"}`), now))

	acts, err := s.Activities(context.Background(), "p1", 5)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Equal(t, ActivityStageChanged, acts[0].Type)
	require.Equal(t, "2", acts[0].Metadata["newStage"])
}
