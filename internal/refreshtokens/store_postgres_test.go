package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newStoreWithMock(t *testing.T, now time.Time) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := NewPostgresStore(db)
	s.clock = func() time.Time { return now }
	return s, mock
}

func TestPersist_RevokesPriorTokensInOneTx(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s, mock := newStoreWithMock(t, now)
	exp := now.Add(30 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^INSERT\s+INTO\s+refresh_tokens\b`).
		WithArgs("tokB", "u1", exp, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Persist(context.Background(), "tokB", "u1", exp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPersist_InsertFailureRollsBack(t *testing.T) {
	now := time.Now().UTC()
	s, mock := newStoreWithMock(t, now)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^INSERT\s+INTO\s+refresh_tokens\b`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := s.Persist(context.Background(), "tok", "u1", now.Add(time.Hour))
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLookup_FiltersExpiredRows(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s, mock := newStoreWithMock(t, now)

	mock.ExpectQuery(`^SELECT\s+token,\s*user_id,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2$`).
		WithArgs("old", now).
		WillReturnError(sql.ErrNoRows)

	if _, err := s.Lookup(context.Background(), "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLookup_Found(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	s, mock := newStoreWithMock(t, now)
	exp := now.Add(time.Hour)

	mock.ExpectQuery(`^SELECT\s+token,`).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at", "created_at"}).
			AddRow("tok", "u1", exp, now))

	rec, err := s.Lookup(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.UserID != "u1" || !rec.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRevoke_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t, time.Now())

	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1$`).
		WithArgs("tok").
		WillReturnError(errors.New("db err"))

	if err := s.Revoke(context.Background(), "tok"); err == nil {
		t.Fatalf("expected wrapped db error")
	}
}
