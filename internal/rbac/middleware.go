package rbac

import (
	"production-tracker/internal/apperr"
	"production-tracker/internal/audit"
	"production-tracker/internal/auth"
	"production-tracker/internal/metrics"
	"production-tracker/internal/pipeline"
	"production-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	msgAuthRequired      = "Authentication required"
	msgInsufficientPerms = "Insufficient permissions"
	msgInsufficientRole  = "Insufficient role access"
	gatePermission       = "permission"
	gateRole             = "role"
)

// Gate builds permission and role stages. Both run on the identity attached
// by auth.Authenticate, so they must come after it in a chain.
type Gate struct {
	audit   *audit.Service
	metrics *metrics.Metrics
}

func NewGate(a *audit.Service, m *metrics.Metrics) *Gate {
	return &Gate{audit: a, metrics: m}
}

func (g *Gate) RequirePermissions(required ...Permission) pipeline.Stage {
	required = append([]Permission(nil), required...)
	return func(c *gin.Context) pipeline.Result {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			return pipeline.Reject(apperr.Unauthenticated(msgAuthRequired))
		}
		if Allowed(id.Permissions, required...) {
			return pipeline.Continue()
		}
		g.deny(c, id, gatePermission, required, id.Permissions, msgInsufficientPerms)
		return pipeline.Reject(apperr.Forbidden(msgInsufficientPerms))
	}
}

func (g *Gate) RequireRoles(allowed ...string) pipeline.Stage {
	allowed = append([]string(nil), allowed...)
	return func(c *gin.Context) pipeline.Result {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			return pipeline.Reject(apperr.Unauthenticated(msgAuthRequired))
		}
		if RoleAllowed(id.Role, allowed...) {
			return pipeline.Continue()
		}
		g.deny(c, id, gateRole, allowed, []string{id.Role}, msgInsufficientRole)
		return pipeline.Reject(apperr.Forbidden(msgInsufficientRole))
	}
}

func (g *Gate) deny(c *gin.Context, id auth.Identity, gate string, required, granted []string, msg string) {
	logger.FromGin(c).Warn(msg,
		"user_id", id.ID,
		"role", id.Role,
		"required", required,
		"granted", granted,
		"action", c.Request.Method+" "+c.Request.URL.Path,
	)
	g.metrics.Denied(gate)
	g.audit.AccessDenied(c.Request.Context(), audit.Event{
		ActorUserID: id.ID,
		ActorEmail:  id.Email,
		ActorRole:   id.Role,
		IPAddress:   c.ClientIP(),
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		Required:    required,
		Granted:     granted,
		Message:     msg,
	})
}
