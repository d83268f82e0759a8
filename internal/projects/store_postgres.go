package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"production-tracker/pkg/utils"
)

// NOTE: assumes the tables in schema.sql: projects, project_stages and
// project_activities, the latter two with ON DELETE CASCADE to projects.

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const projectColumns = `id, title, description, brief, client_id, project_manager_id, stage, priority, status, progress,
budget, currency, start_date, end_date, project_type, genre, deliverables, tags, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p Project, act Activity) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertProject(ctx, tx, p); err != nil {
			return err
		}
		for _, st := range p.Stages {
			if err := insertStage(ctx, tx, p.ID, st); err != nil {
				return err
			}
		}
		return insertActivity(ctx, tx, act)
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return Project{}, err
	}
	p.Stages, err = s.stages(ctx, id)
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) stages(ctx context.Context, projectID string) ([]StageRecord, error) {
	const q = `
SELECT stage_number, stage_name, status, progress, start_date
FROM project_stages
WHERE project_id = $1
ORDER BY stage_number ASC
`
	rows, err := s.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("select stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var (
			st    StageRecord
			start sql.NullTime
		)
		if err := rows.Scan(&st.Number, &st.Name, &st.Status, &st.Progress, &start); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		st.StartDate = timePtr(start)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Project, int, error) {
	where, args := listWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	q := `SELECT ` + projectColumns + ` FROM projects` + where +
		` ORDER BY updated_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := s.db.QueryContext(ctx, q, append(args, f.Limit, f.offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("select projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// listWhere builds the shared WHERE clause for List's count and page queries.
func listWhere(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.Stage != "" {
		add("stage = ?", f.Stage)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.Priority != "" {
		add("priority = ?", string(f.Priority))
	}
	if f.ClientID != "" {
		add("client_id = ?", f.ClientID)
	}
	if f.ProjectManagerID != "" {
		add("project_manager_id = ?", f.ProjectManagerID)
	}
	if f.Search != "" {
		add("(title ILIKE ? OR description ILIKE ?)", "%"+escapeLike(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) Update(ctx context.Context, p Project, startStage int, acts []Activity) error {
	const updateProject = `
UPDATE projects SET
  title = $2, description = $3, brief = $4, client_id = $5, project_manager_id = $6,
  stage = $7, priority = $8, status = $9, progress = $10, budget = $11, currency = $12,
  start_date = $13, end_date = $14, project_type = $15, genre = $16,
  deliverables = $17, tags = $18, updated_at = $19
WHERE id = $1
`
	const startStageQuery = `
UPDATE project_stages SET status = $3, start_date = $4
WHERE project_id = $1 AND stage_number = $2
`
	deliverables, tags, err := encodeLists(p)
	if err != nil {
		return err
	}

	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateProject,
			p.ID,
			p.Title,
			nullString(p.Description),
			nullString(p.Brief),
			p.ClientID,
			p.ProjectManagerID,
			p.Stage,
			string(p.Priority),
			string(p.Status),
			p.Progress,
			nullFloat(p.Budget),
			nullString(p.Currency),
			nullTime(p.StartDate),
			nullTime(p.EndDate),
			nullString(p.ProjectType),
			nullString(p.Genre),
			deliverables,
			tags,
			p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if startStage > 0 {
			if _, err := tx.ExecContext(ctx, startStageQuery, p.ID, startStage, string(StageInProgress), p.UpdatedAt); err != nil {
				return fmt.Errorf("start stage: %w", err)
			}
		}
		for _, a := range acts {
			if err := insertActivity(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Activities(ctx context.Context, projectID string, limit int) ([]Activity, error) {
	const q = `
SELECT id, project_id, user_id, activity_type, title, description, metadata, created_at
FROM project_activities
WHERE project_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	defer rows.Close()

	out := []Activity{}
	for rows.Next() {
		var (
			a    Activity
			desc sql.NullString
			meta []byte
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.Type, &a.Title, &desc, &meta, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Description = desc.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode activity metadata: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func insertProject(ctx context.Context, tx *sql.Tx, p Project) error {
	const q = `
INSERT INTO projects (` + projectColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
`
	deliverables, tags, err := encodeLists(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, q,
		p.ID,
		p.Title,
		nullString(p.Description),
		nullString(p.Brief),
		p.ClientID,
		p.ProjectManagerID,
		p.Stage,
		string(p.Priority),
		string(p.Status),
		p.Progress,
		nullFloat(p.Budget),
		nullString(p.Currency),
		nullTime(p.StartDate),
		nullTime(p.EndDate),
		nullString(p.ProjectType),
		nullString(p.Genre),
		deliverables,
		tags,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func insertStage(ctx context.Context, tx *sql.Tx, projectID string, st StageRecord) error {
	const q = `
INSERT INTO project_stages (project_id, stage_number, stage_name, status, progress, start_date)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := tx.ExecContext(ctx, q, projectID, st.Number, st.Name, string(st.Status), st.Progress, nullTime(st.StartDate)); err != nil {
		return fmt.Errorf("insert stage %d: %w", st.Number, err)
	}
	return nil
}

func insertActivity(ctx context.Context, tx *sql.Tx, a Activity) error {
	const q = `
INSERT INTO project_activities (id, project_id, user_id, activity_type, title, description, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, a.ID, a.ProjectID, a.UserID, string(a.Type), a.Title, nullString(a.Description), meta, a.CreatedAt); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p            Project
		desc, brief  sql.NullString
		currency     sql.NullString
		projectType  sql.NullString
		genre        sql.NullString
		budget       sql.NullFloat64
		start, end   sql.NullTime
		deliverables []byte
		tags         []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&desc,
		&brief,
		&p.ClientID,
		&p.ProjectManagerID,
		&p.Stage,
		&p.Priority,
		&p.Status,
		&p.Progress,
		&budget,
		&currency,
		&start,
		&end,
		&projectType,
		&genre,
		&deliverables,
		&tags,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("scan project: %w", err)
	}

	p.Description = desc.String
	p.Brief = brief.String
	p.Currency = currency.String
	p.ProjectType = projectType.String
	p.Genre = genre.String
	if budget.Valid {
		p.Budget = &budget.Float64
	}
	p.StartDate = timePtr(start)
	p.EndDate = timePtr(end)
	if p.Deliverables, err = decodeList(deliverables); err != nil {
		return Project{}, err
	}
	if p.Tags, err = decodeList(tags); err != nil {
		return Project{}, err
	}
	return p, nil
}

func encodeLists(p Project) ([]byte, []byte, error) {
	deliverables, err := json.Marshal(nonNil(p.Deliverables))
	if err != nil {
		return nil, nil, err
	}
	tags, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return nil, nil, err
	}
	return deliverables, tags, nil
}

func decodeList(b []byte) ([]string, error) {
	out := []string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
