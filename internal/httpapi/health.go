package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"production-tracker/internal/apperr"
	"production-tracker/internal/pipeline"
	"production-tracker/pkg/logger"
	"production-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	checkUp       = "up"
	checkDown     = "down"
	checkDisabled = "disabled"
)

// RedisPinger is the slice of a redis client the health check needs.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Health reports dependency reachability. Redis is optional; a nil client
// reports "disabled" and does not degrade the service.
type Health struct {
	DB      *sql.DB
	Redis   RedisPinger
	Timeout time.Duration

	started time.Time
}

func NewHealth(db *sql.DB, rdb RedisPinger) *Health {
	return &Health{DB: db, Redis: rdb, Timeout: 2 * time.Second, started: time.Now()}
}

type healthReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    float64           `json:"uptime"`
	Services  map[string]string `json:"services"`
}

func (h *Health) Check(c *gin.Context) pipeline.Result {
	ctx := c.Request.Context()
	report := healthReport{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
		Services:  map[string]string{"database": checkUp, "redis": checkDisabled},
	}

	if err := utils.HealthCheck(ctx, h.DB, h.Timeout); err != nil {
		logger.FromGin(c).Error("database health check failed", "err", err)
		report.Services["database"] = checkDown
	}
	if h.Redis != nil {
		report.Services["redis"] = checkUp
		pingCtx, cancel := context.WithTimeout(ctx, h.Timeout)
		err := h.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.FromGin(c).Error("redis health check failed", "err", err)
			report.Services["redis"] = checkDown
		}
	}

	for _, s := range report.Services {
		if s == checkDown {
			report.Status = "degraded"
			return pipeline.Reject(&apperr.Error{Kind: apperr.KindUnavailable, Message: "Service unavailable", Details: report})
		}
	}
	return pipeline.Respond(http.StatusOK, report, "")
}
