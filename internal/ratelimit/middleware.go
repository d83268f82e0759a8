package ratelimit

import (
	"context"
	"net/http"
	"strconv"

	"production-tracker/internal/apperr"
	"production-tracker/internal/metrics"
	"production-tracker/internal/pipeline"
	"production-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	MsgTooManyRequests     = "Too many requests from this IP, please try again later."
	MsgTooManyAuthAttempts = "Too many authentication attempts from this IP, please try again later."
)

// Policy describes one limited scope.
type Policy struct {
	// Scope names the counter and the throttle metric label.
	Scope string
	// Message is returned with 429 responses. Empty means MsgTooManyRequests.
	Message string
	// SkipSuccessful refunds the hit once the request ends below 400, so only
	// failed attempts use up the window.
	SkipSuccessful bool
}

func (p Policy) message() string {
	if p.Message == "" {
		return MsgTooManyRequests
	}
	return p.Message
}

// Stage limits by client IP. Limiter failures let the request through: an
// unavailable counter store must not take the API down with it.
func Stage(l Limiter, p Policy, m *metrics.Metrics) pipeline.Stage {
	return func(c *gin.Context) pipeline.Result {
		key := p.Scope + ":" + c.ClientIP()
		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			logger.FromGin(c).Error("rate limiter unavailable, allowing request", "scope", p.Scope, "err", err)
			return pipeline.Continue()
		}

		c.Header("RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			m.Throttled(p.Scope)
			return pipeline.Reject(apperr.New(apperr.KindRateLimited, p.message())).WithRetryAfter(d.RetryAfter)
		}

		if p.SkipSuccessful {
			ctx := context.WithoutCancel(c.Request.Context())
			pipeline.OnFinish(c, func(status int) {
				if status >= http.StatusBadRequest {
					return
				}
				if err := l.Refund(ctx, key); err != nil {
					logger.FromGin(c).Error("rate limit refund failed", "scope", p.Scope, "err", err)
				}
			})
		}
		return pipeline.Continue()
	}
}
