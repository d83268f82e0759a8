package main

import (
	"net/http"

	"production-tracker/internal/auth"
	"production-tracker/internal/httpapi"
	"production-tracker/internal/metrics"
	"production-tracker/internal/pipeline"
	"production-tracker/internal/ratelimit"
	"production-tracker/internal/rbac"

	"github.com/gin-gonic/gin"
)

const msgInvalidProjectID = "Invalid project ID"

type routeDeps struct {
	prefix   string
	driver   *pipeline.Driver
	handlers httpapi.Handlers
	health   *httpapi.Health
	verifier *auth.Verifier
	gate     *rbac.Gate
	metrics  *metrics.Metrics

	generalLimiter ratelimit.Limiter
	authLimiter    ratelimit.Limiter
	metricsHandler http.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Every chain is declared in the
// same order: rate limit, verifier, gates, validation, handler.
func registerRoutes(r *gin.Engine, d routeDeps) {
	chain := d.driver.Chain
	h := d.handlers
	general := ratelimit.Stage(d.generalLimiter, ratelimit.Policy{Scope: "general"}, d.metrics)
	authLimit := ratelimit.Stage(d.authLimiter, ratelimit.Policy{
		Scope:          "auth",
		Message:        ratelimit.MsgTooManyAuthAttempts,
		SkipSuccessful: true,
	}, d.metrics)
	authenticate := auth.Authenticate(d.verifier)
	projectID := httpapi.UUIDParam("id", msgInvalidProjectID)

	// public
	r.GET("/health", chain(d.health.Check))
	if d.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.metricsHandler))
	}
	r.NoRoute(d.driver.NotFound())

	api := r.Group(d.prefix)
	api.GET("/health", chain(general, d.health.Check))

	// AUTH routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", chain(general, authLimit, httpapi.BindJSON[httpapi.RegisterRequest](), h.Register))
		authGroup.POST("/login", chain(general, authLimit, httpapi.BindJSON[httpapi.LoginRequest](), h.Login))
		authGroup.POST("/refresh", chain(general, authLimit, httpapi.BindJSON[httpapi.RefreshRequest](), h.Refresh))
		authGroup.POST("/logout", chain(general, authLimit, httpapi.BindJSON[httpapi.RefreshRequest](), h.Logout))
		authGroup.GET("/profile", chain(general, authLimit, authenticate, h.Profile))
		authGroup.GET("/me", chain(general, authLimit, auth.OptionalAuthenticate(d.verifier), h.Me))
	}

	// PROJECT routes
	projects := api.Group("/projects")
	{
		projects.GET("", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectRead),
			httpapi.BindQuery[httpapi.ListProjectsQuery](),
			h.ListProjects))
		projects.POST("", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectCreate),
			httpapi.BindJSON[httpapi.CreateProjectRequest](),
			h.CreateProject))
		projects.GET("/:id", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectRead),
			projectID,
			h.GetProject))
		projects.PUT("/:id", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectUpdate),
			projectID,
			httpapi.BindJSON[httpapi.UpdateProjectRequest](),
			h.UpdateProject))
		projects.DELETE("/:id", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectDelete),
			projectID,
			h.DeleteProject))
		projects.POST("/:id/duplicate", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectCreate),
			projectID,
			httpapi.BindJSON[httpapi.DuplicateProjectRequest](),
			h.DuplicateProject))
		projects.GET("/:id/activity", chain(general, authenticate,
			d.gate.RequirePermissions(rbac.ProjectRead),
			projectID,
			httpapi.BindQuery[httpapi.ActivityQuery](),
			h.ProjectActivity))
	}
}
