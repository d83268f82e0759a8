package httpapi

import (
	"time"

	"production-tracker/internal/auth"
	"production-tracker/internal/projects"
)

type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8,max=72,maxbytes=72"`
	FirstName  string `json:"firstName" binding:"required,max=100"`
	LastName   string `json:"lastName" binding:"required,max=100"`
	Role       string `json:"role" binding:"omitempty,oneof=project_manager team_member client"`
	Department string `json:"department" binding:"omitempty,max=100"`
}

func (r RegisterRequest) input() auth.RegisterInput {
	return auth.RegisterInput{
		Email:      r.Email,
		Password:   r.Password,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Role:       r.Role,
		Department: r.Department,
	}
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// RefreshRequest is the body of both refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type CreateProjectRequest struct {
	Title            string     `json:"title" binding:"required,max=255"`
	Description      string     `json:"description" binding:"omitempty,max=1000"`
	Brief            string     `json:"brief" binding:"omitempty,max=2000"`
	ClientID         string     `json:"clientId" binding:"required,uuid"`
	ProjectManagerID string     `json:"projectManagerId" binding:"required,uuid"`
	Stage            string     `json:"stage" binding:"required,oneof=1 2 3 4 5 6 7 8 9"`
	Priority         string     `json:"priority" binding:"required,oneof=low medium high urgent"`
	Budget           *float64   `json:"budget" binding:"omitempty,gt=0"`
	Currency         string     `json:"currency" binding:"omitempty,len=3"`
	StartDate        *time.Time `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	ProjectType      string     `json:"projectType" binding:"required,max=100"`
	Genre            string     `json:"genre" binding:"omitempty,max=100"`
	Deliverables     []string   `json:"deliverables"`
	Tags             []string   `json:"tags"`
}

func (r CreateProjectRequest) input() projects.CreateInput {
	return projects.CreateInput{
		Title:            r.Title,
		Description:      r.Description,
		Brief:            r.Brief,
		ClientID:         r.ClientID,
		ProjectManagerID: r.ProjectManagerID,
		Stage:            r.Stage,
		Priority:         projects.Priority(r.Priority),
		Budget:           r.Budget,
		Currency:         r.Currency,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		ProjectType:      r.ProjectType,
		Genre:            r.Genre,
		Deliverables:     r.Deliverables,
		Tags:             r.Tags,
	}
}

type UpdateProjectRequest struct {
	Title            *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description      *string    `json:"description" binding:"omitempty,max=1000"`
	Brief            *string    `json:"brief" binding:"omitempty,max=2000"`
	ClientID         *string    `json:"clientId" binding:"omitempty,uuid"`
	ProjectManagerID *string    `json:"projectManagerId" binding:"omitempty,uuid"`
	Stage            *string    `json:"stage" binding:"omitempty,oneof=1 2 3 4 5 6 7 8 9"`
	Priority         *string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status           *string    `json:"status" binding:"omitempty,oneof=active on_hold completed cancelled"`
	Progress         *int       `json:"progress" binding:"omitempty,min=0,max=100"`
	Budget           *float64   `json:"budget" binding:"omitempty,gt=0"`
	Currency         *string    `json:"currency" binding:"omitempty,len=3"`
	StartDate        *time.Time `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	ProjectType      *string    `json:"projectType" binding:"omitempty,max=100"`
	Genre            *string    `json:"genre" binding:"omitempty,max=100"`
	Deliverables     []string   `json:"deliverables"`
	Tags             []string   `json:"tags"`
}

func (r UpdateProjectRequest) input() projects.UpdateInput {
	in := projects.UpdateInput{
		Title:            r.Title,
		Description:      r.Description,
		Brief:            r.Brief,
		ClientID:         r.ClientID,
		ProjectManagerID: r.ProjectManagerID,
		Stage:            r.Stage,
		Progress:         r.Progress,
		Budget:           r.Budget,
		Currency:         r.Currency,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		ProjectType:      r.ProjectType,
		Genre:            r.Genre,
		Deliverables:     r.Deliverables,
		Tags:             r.Tags,
	}
	if r.Priority != nil {
		p := projects.Priority(*r.Priority)
		in.Priority = &p
	}
	if r.Status != nil {
		s := projects.Status(*r.Status)
		in.Status = &s
	}
	return in
}

type ListProjectsQuery struct {
	Page             int    `form:"page" binding:"omitempty,min=1,max=1000000"`
	Limit            int    `form:"limit" binding:"omitempty,min=1"`
	Stage            string `form:"stage" binding:"omitempty,oneof=1 2 3 4 5 6 7 8 9"`
	Status           string `form:"status" binding:"omitempty,oneof=active on_hold completed cancelled"`
	Priority         string `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Search           string `form:"search" binding:"omitempty,max=255"`
	ClientID         string `form:"clientId" binding:"omitempty,uuid"`
	ProjectManagerID string `form:"projectManagerId" binding:"omitempty,uuid"`
}

// filter leaves limit clamping to the service.
func (q ListProjectsQuery) filter() projects.ListFilter {
	return projects.ListFilter{
		Page:             q.Page,
		Limit:            q.Limit,
		Stage:            q.Stage,
		Status:           projects.Status(q.Status),
		Priority:         projects.Priority(q.Priority),
		Search:           q.Search,
		ClientID:         q.ClientID,
		ProjectManagerID: q.ProjectManagerID,
	}
}

type DuplicateProjectRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

type ActivityQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}
