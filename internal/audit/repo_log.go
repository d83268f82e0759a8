package audit

import (
	"context"
	"log/slog"
)

// LogRepo writes events to the structured logger. It is the default sink
// when no audit table is provisioned.
type LogRepo struct {
	log *slog.Logger
}

func NewLogRepo(l *slog.Logger) *LogRepo {
	return &LogRepo{log: l.With("component", "audit")}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	if e.Type == EventTypeAccessDenied || e.Type == EventTypeLoginFailed {
		level = slog.LevelWarn
	}
	r.log.Log(ctx, level, string(e.Type),
		"event_id", e.ID,
		"actor_user_id", e.ActorUserID,
		"actor_email", e.ActorEmail,
		"actor_role", e.ActorRole,
		"ip", e.IPAddress,
		"method", e.Method,
		"path", e.Path,
		"required", e.Required,
		"granted", e.Granted,
		"message", e.Message,
	)
	return nil
}
