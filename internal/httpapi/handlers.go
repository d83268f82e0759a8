package httpapi

import (
	"net/http"

	"production-tracker/internal/apperr"
	"production-tracker/internal/auth"
	"production-tracker/internal/pipeline"
	"production-tracker/internal/projects"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: read the bound request, call internal services, return a Result.
type Handlers struct {
	Auth     *auth.Service
	Projects *projects.Service
}

func caller(c *gin.Context) auth.Caller {
	return auth.Caller{IP: c.ClientIP(), Method: c.Request.Method, Path: c.Request.URL.Path}
}

// UUIDParam rejects a malformed path id before it reaches storage.
func UUIDParam(name, message string) pipeline.Stage {
	return func(c *gin.Context) pipeline.Result {
		if _, err := uuid.Parse(c.Param(name)); err != nil {
			return pipeline.Reject(apperr.Validation(msgValidationFailed, []apperr.FieldError{{Field: name, Message: message}}))
		}
		return pipeline.Continue()
	}
}

// --- Auth ---

func (h Handlers) Register(c *gin.Context) pipeline.Result {
	req := Body[RegisterRequest](c)
	sess, err := h.Auth.Register(c.Request.Context(), req.input(), caller(c))
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusCreated, sess, "User registered successfully")
}

func (h Handlers) Login(c *gin.Context) pipeline.Result {
	req := Body[LoginRequest](c)
	sess, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, caller(c))
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, sess, "Login successful")
}

func (h Handlers) Refresh(c *gin.Context) pipeline.Result {
	req := Body[RefreshRequest](c)
	sess, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken, caller(c))
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, sess, "Tokens refreshed successfully")
}

func (h Handlers) Logout(c *gin.Context) pipeline.Result {
	req := Body[RefreshRequest](c)
	if err := h.Auth.Logout(c.Request.Context(), req.RefreshToken, caller(c)); err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, nil, "Logged out successfully")
}

// Profile loads the stored user behind the verified identity.
func (h Handlers) Profile(c *gin.Context) pipeline.Result {
	id, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		return pipeline.Reject(apperr.Unauthenticated("User not authenticated"))
	}
	u, err := h.Auth.Profile(c.Request.Context(), id.ID)
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, gin.H{"user": u}, "")
}

// Me echoes the identity the verifier attached, if any.
func (h Handlers) Me(c *gin.Context) pipeline.Result {
	id, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		return pipeline.Respond(http.StatusOK, gin.H{"anonymous": true}, "")
	}
	return pipeline.Respond(http.StatusOK, gin.H{"anonymous": false, "identity": id}, "")
}

// --- Projects ---

func actorID(c *gin.Context) string {
	id, _ := auth.IdentityFrom(c.Request.Context())
	return id.ID
}

func (h Handlers) ListProjects(c *gin.Context) pipeline.Result {
	q := Body[ListProjectsQuery](c)
	res, err := h.Projects.List(c.Request.Context(), q.filter())
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.RespondList(res.Projects, pipeline.NewMeta(res.Page, res.Limit, res.Total))
}

func (h Handlers) GetProject(c *gin.Context) pipeline.Result {
	p, err := h.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, p, "")
}

func (h Handlers) CreateProject(c *gin.Context) pipeline.Result {
	req := Body[CreateProjectRequest](c)
	p, err := h.Projects.Create(c.Request.Context(), actorID(c), req.input())
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusCreated, p, "Project created successfully")
}

func (h Handlers) UpdateProject(c *gin.Context) pipeline.Result {
	req := Body[UpdateProjectRequest](c)
	p, err := h.Projects.Update(c.Request.Context(), actorID(c), c.Param("id"), req.input())
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, p, "Project updated successfully")
}

func (h Handlers) DeleteProject(c *gin.Context) pipeline.Result {
	if err := h.Projects.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, nil, "Project deleted successfully")
}

func (h Handlers) DuplicateProject(c *gin.Context) pipeline.Result {
	req := Body[DuplicateProjectRequest](c)
	p, err := h.Projects.Duplicate(c.Request.Context(), actorID(c), c.Param("id"), req.Title)
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusCreated, p, "Project duplicated successfully")
}

func (h Handlers) ProjectActivity(c *gin.Context) pipeline.Result {
	q := Body[ActivityQuery](c)
	acts, err := h.Projects.Activity(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		return pipeline.Reject(err)
	}
	return pipeline.Respond(http.StatusOK, acts, "")
}
