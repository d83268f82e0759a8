package auth

import (
	"production-tracker/internal/pipeline"
	"production-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Authenticate resolves the caller or ends the chain with 401.
// It does not check permissions; those belong to internal/rbac.
func Authenticate(v *Verifier) pipeline.Stage {
	return func(c *gin.Context) pipeline.Result {
		id, err := v.Verify(c.Request.Context(), c.GetHeader(authorizationHeader))
		if err != nil {
			return pipeline.Reject(err)
		}
		Attach(c, id)
		logger.FromGin(c).Debug("user authenticated", "user_id", id.ID, "role", id.Role)
		return pipeline.Continue()
	}
}

// OptionalAuthenticate attaches an identity when the credential checks out
// and otherwise lets the request through anonymously.
func OptionalAuthenticate(v *Verifier) pipeline.Stage {
	return func(c *gin.Context) pipeline.Result {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			return pipeline.Continue()
		}
		id, err := v.Verify(c.Request.Context(), header)
		if err != nil {
			logger.FromGin(c).Debug("optional auth failed, continuing anonymously", "err", err)
			return pipeline.Continue()
		}
		Attach(c, id)
		return pipeline.Continue()
	}
}
