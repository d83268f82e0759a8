package projects

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"production-tracker/internal/apperr"
	"production-tracker/internal/users"
	"production-tracker/pkg/logger"

	"github.com/google/uuid"
)

const (
	msgProjectNotFound = "Project not found"
	msgManagerNotFound = "Project Manager not found"
	msgValidation      = "Validation failed"

	DefaultActivityLimit = 20
)

// UserFinder resolves project managers.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

type Service struct {
	store Store
	users UserFinder
	clock func() time.Time
}

func NewService(store Store, users UserFinder) *Service {
	return &Service{store: store, users: users, clock: time.Now}
}

func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Project, error) {
	if err := validateCreate(in); err != nil {
		return Project{}, err
	}
	pm, err := s.manager(ctx, in.ProjectManagerID)
	if err != nil {
		return Project{}, err
	}

	now := s.clock().UTC()
	stage, _ := strconv.Atoi(in.Stage)
	p := Project{
		ID:               uuid.NewString(),
		Title:            in.Title,
		Description:      in.Description,
		Brief:            in.Brief,
		ClientID:         in.ClientID,
		ProjectManagerID: in.ProjectManagerID,
		Stage:            in.Stage,
		Priority:         in.Priority,
		Status:           StatusActive,
		Budget:           in.Budget,
		Currency:         in.Currency,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		ProjectType:      in.ProjectType,
		Genre:            in.Genre,
		Deliverables:     nonNil(in.Deliverables),
		Tags:             nonNil(in.Tags),
		CreatedAt:        now,
		UpdatedAt:        now,
		Stages:           initialStages(stage),
	}

	act := s.activity(p.ID, actorID, ActivityProjectCreated,
		fmt.Sprintf("Project %q created", p.Title),
		fmt.Sprintf("New project created by %s %s", pm.FirstName, pm.LastName),
		map[string]any{"stage": p.Stage, "priority": p.Priority, "budget": p.Budget},
	)
	if err := s.store.Create(ctx, p, act); err != nil {
		return Project{}, apperr.Internal(err)
	}

	logger.From(ctx).Info("project created", "project_id", p.ID, "user_id", actorID)
	return p, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	f = f.normalized()
	if f.Stage != "" && !ValidStage(f.Stage) {
		return ListResult{}, invalid("stage", "Invalid stage")
	}
	if f.Status != "" && !f.Status.Valid() {
		return ListResult{}, invalid("status", "Invalid status")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return ListResult{}, invalid("priority", "Invalid priority")
	}

	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return ListResult{}, apperr.Internal(err)
	}
	return ListResult{Projects: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Project{}, notFoundOr(err)
	}
	return p, nil
}

// Update applies a partial patch. Moving to another stage marks that stage in
// progress and logs a stage_changed entry; every update logs progress_updated.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (Project, error) {
	if err := validateUpdate(in); err != nil {
		return Project{}, err
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Project{}, notFoundOr(err)
	}
	if in.ProjectManagerID != nil && *in.ProjectManagerID != p.ProjectManagerID {
		if _, err := s.manager(ctx, *in.ProjectManagerID); err != nil {
			return Project{}, err
		}
	}

	oldStage := p.Stage
	changes := applyPatch(&p, in)
	p.UpdatedAt = s.clock().UTC()

	var (
		acts       []Activity
		startStage int
	)
	if p.Stage != oldStage {
		startStage, _ = strconv.Atoi(p.Stage)
		acts = append(acts, s.activity(p.ID, actorID, ActivityStageChanged,
			fmt.Sprintf("Project moved to stage %s", p.Stage),
			fmt.Sprintf("Stage changed from %s to %s", oldStage, p.Stage),
			map[string]any{"oldStage": oldStage, "newStage": p.Stage},
		))
	}
	acts = append(acts, s.activity(p.ID, actorID, ActivityProgressUpdated,
		fmt.Sprintf("Project %q updated", p.Title),
		"Project details updated",
		changes,
	))

	if err := s.store.Update(ctx, p, startStage, acts); err != nil {
		return Project{}, notFoundOr(err)
	}
	logger.From(ctx).Info("project updated", "project_id", p.ID, "user_id", actorID)
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return notFoundOr(err)
	}
	logger.From(ctx).Info("project deleted", "project_id", id, "user_id", actorID)
	return nil
}

// Duplicate copies a project into a new one that restarts at stage 1.
func (s *Service) Duplicate(ctx context.Context, actorID, id, title string) (Project, error) {
	if title == "" {
		return Project{}, invalid("title", "Title is required for duplicated project")
	}
	src, err := s.store.Get(ctx, id)
	if err != nil {
		return Project{}, notFoundOr(err)
	}

	now := s.clock().UTC()
	p := src
	p.ID = uuid.NewString()
	p.Title = title
	p.Stage = "1"
	p.Status = StatusActive
	p.Progress = 0
	p.StartDate, p.EndDate = nil, nil
	p.Tags = append([]string{}, src.Tags...)
	p.Deliverables = append([]string{}, src.Deliverables...)
	p.CreatedAt, p.UpdatedAt = now, now
	p.Stages = initialStages(1)

	act := s.activity(p.ID, actorID, ActivityProjectCreated,
		fmt.Sprintf("Project duplicated from %q", src.Title),
		fmt.Sprintf("Project %q created as duplicate", title),
		map[string]any{"originalProjectId": src.ID, "originalTitle": src.Title},
	)
	if err := s.store.Create(ctx, p, act); err != nil {
		return Project{}, apperr.Internal(err)
	}
	logger.From(ctx).Info("project duplicated", "project_id", p.ID, "source_id", src.ID, "user_id", actorID)
	return p, nil
}

func (s *Service) Activity(ctx context.Context, id string, limit int) ([]Activity, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, notFoundOr(err)
	}
	if limit < 1 {
		limit = DefaultActivityLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	acts, err := s.store.Activities(ctx, id, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return acts, nil
}

func (s *Service) manager(ctx context.Context, id string) (users.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !u.Active) {
		return users.User{}, apperr.NotFound(msgManagerNotFound)
	}
	if err != nil {
		return users.User{}, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) activity(projectID, userID string, t ActivityType, title, desc string, meta map[string]any) Activity {
	return Activity{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		UserID:      userID,
		Type:        t,
		Title:       title,
		Description: desc,
		Metadata:    meta,
		CreatedAt:   s.clock().UTC(),
	}
}

// applyPatch copies set fields of in onto p and returns them keyed by their
// API names for the activity log.
func applyPatch(p *Project, in UpdateInput) map[string]any {
	changes := map[string]any{}
	set := func(name string, v any) { changes[name] = v }

	if in.Title != nil {
		p.Title = *in.Title
		set("title", p.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
		set("description", p.Description)
	}
	if in.Brief != nil {
		p.Brief = *in.Brief
		set("brief", p.Brief)
	}
	if in.ClientID != nil {
		p.ClientID = *in.ClientID
		set("clientId", p.ClientID)
	}
	if in.ProjectManagerID != nil {
		p.ProjectManagerID = *in.ProjectManagerID
		set("projectManagerId", p.ProjectManagerID)
	}
	if in.Stage != nil {
		p.Stage = *in.Stage
		set("stage", p.Stage)
	}
	if in.Priority != nil {
		p.Priority = *in.Priority
		set("priority", p.Priority)
	}
	if in.Status != nil {
		p.Status = *in.Status
		set("status", p.Status)
	}
	if in.Progress != nil {
		p.Progress = *in.Progress
		set("progress", p.Progress)
	}
	if in.Budget != nil {
		b := *in.Budget
		p.Budget = &b
		set("budget", b)
	}
	if in.Currency != nil {
		p.Currency = *in.Currency
		set("currency", p.Currency)
	}
	if in.StartDate != nil {
		p.StartDate = in.StartDate
		set("startDate", *in.StartDate)
	}
	if in.EndDate != nil {
		p.EndDate = in.EndDate
		set("endDate", *in.EndDate)
	}
	if in.ProjectType != nil {
		p.ProjectType = *in.ProjectType
		set("projectType", p.ProjectType)
	}
	if in.Genre != nil {
		p.Genre = *in.Genre
		set("genre", p.Genre)
	}
	if in.Deliverables != nil {
		p.Deliverables = append([]string{}, in.Deliverables...)
		set("deliverables", p.Deliverables)
	}
	if in.Tags != nil {
		p.Tags = append([]string{}, in.Tags...)
		set("tags", p.Tags)
	}
	return changes
}

func validateCreate(in CreateInput) error {
	var fields []apperr.FieldError
	if in.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title is required"})
	}
	if !ValidStage(in.Stage) {
		fields = append(fields, apperr.FieldError{Field: "stage", Message: "Invalid stage"})
	}
	if !in.Priority.Valid() {
		fields = append(fields, apperr.FieldError{Field: "priority", Message: "Invalid priority"})
	}
	if in.ProjectManagerID == "" {
		fields = append(fields, apperr.FieldError{Field: "projectManagerId", Message: "Invalid project manager ID"})
	}
	return fieldErrors(fields)
}

func validateUpdate(in UpdateInput) error {
	var fields []apperr.FieldError
	if in.Title != nil && *in.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title is required"})
	}
	if in.Stage != nil && !ValidStage(*in.Stage) {
		fields = append(fields, apperr.FieldError{Field: "stage", Message: "Invalid stage"})
	}
	if in.Priority != nil && !in.Priority.Valid() {
		fields = append(fields, apperr.FieldError{Field: "priority", Message: "Invalid priority"})
	}
	if in.Status != nil && !in.Status.Valid() {
		fields = append(fields, apperr.FieldError{Field: "status", Message: "Invalid status"})
	}
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		fields = append(fields, apperr.FieldError{Field: "progress", Message: "Progress must be between 0 and 100"})
	}
	return fieldErrors(fields)
}

func fieldErrors(fields []apperr.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation(msgValidation, fields)
}

func invalid(field, msg string) error {
	return apperr.Validation(msgValidation, []apperr.FieldError{{Field: field, Message: msg}})
}

func notFoundOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(msgProjectNotFound)
	}
	return apperr.Internal(err)
}
