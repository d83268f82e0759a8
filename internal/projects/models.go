package projects

import (
	"errors"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("projects: not found")

// StageNames is the fixed production pipeline, in order. Stage codes are
// "1".."9" and index into this list.
var StageNames = [...]string{
	"Project Initiation",
	"Pre-Production",
	"Production Planning",
	"Production",
	"Post-Production",
	"Client Review",
	"Final Delivery",
	"Quality Assurance",
	"Project Complete",
}

const StageCount = len(StageNames)

// initialStageProgress is the progress a stage gets when a project starts in it.
const initialStageProgress = 10

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
)

type ActivityType string

const (
	ActivityProjectCreated  ActivityType = "project_created"
	ActivityStageChanged    ActivityType = "stage_changed"
	ActivityProgressUpdated ActivityType = "progress_updated"
)

type Project struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Brief            string     `json:"brief,omitempty"`
	ClientID         string     `json:"clientId"`
	ProjectManagerID string     `json:"projectManagerId"`
	Stage            string     `json:"stage"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	Progress         int        `json:"progress"`
	Budget           *float64   `json:"budget,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	ProjectType      string     `json:"projectType,omitempty"`
	Genre            string     `json:"genre,omitempty"`
	Deliverables     []string   `json:"deliverables"`
	Tags             []string   `json:"tags"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	Stages []StageRecord `json:"stages,omitempty"`
}

type StageRecord struct {
	Number    int         `json:"stageNumber"`
	Name      string      `json:"stageName"`
	Status    StageStatus `json:"status"`
	Progress  int         `json:"progress"`
	StartDate *time.Time  `json:"startDate,omitempty"`
}

// Activity is an append-only project log row.
type Activity struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	UserID      string         `json:"userId"`
	Type        ActivityType   `json:"activityType"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ValidStage reports whether code is one of "1".."9".
func ValidStage(code string) bool {
	n, err := strconv.Atoi(code)
	return err == nil && n >= 1 && n <= StageCount && strconv.Itoa(n) == code
}

// initialStages lays out the pipeline for a project starting in current.
func initialStages(current int) []StageRecord {
	out := make([]StageRecord, StageCount)
	for i, name := range StageNames {
		st := StageRecord{Number: i + 1, Name: name, Status: StagePending}
		if i+1 == current {
			st.Status = StageInProgress
			st.Progress = initialStageProgress
		}
		out[i] = st
	}
	return out
}

type CreateInput struct {
	Title            string
	Description      string
	Brief            string
	ClientID         string
	ProjectManagerID string
	Stage            string
	Priority         Priority
	Budget           *float64
	Currency         string
	StartDate        *time.Time
	EndDate          *time.Time
	ProjectType      string
	Genre            string
	Deliverables     []string
	Tags             []string
}

// UpdateInput is a partial patch: nil fields are left unchanged.
type UpdateInput struct {
	Title            *string
	Description      *string
	Brief            *string
	ClientID         *string
	ProjectManagerID *string
	Stage            *string
	Priority         *Priority
	Status           *Status
	Progress         *int
	Budget           *float64
	Currency         *string
	StartDate        *time.Time
	EndDate          *time.Time
	ProjectType      *string
	Genre            *string
	Deliverables     []string
	Tags             []string
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps the computed offset well inside int range.
	MaxPage = 1000000
)

type ListFilter struct {
	Page             int
	Limit            int
	Stage            string
	Status           Status
	Priority         Priority
	Search           string
	ClientID         string
	ProjectManagerID string
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

func (f ListFilter) offset() int { return (f.Page - 1) * f.Limit }

type ListResult struct {
	Projects []Project
	Total    int
	Page     int
	Limit    int
}
