package audit

import "time"

// Event is an immutable, append-only security audit record.
//
// Events are never updated or deleted. Actor and IP capture are best-effort;
// a failed append must not block the request that caused it.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	ActorUserID string `json:"actor_user_id,omitempty"`
	ActorEmail  string `json:"actor_email,omitempty"`
	ActorRole   string `json:"actor_role,omitempty"`

	// IPAddress is the resolved client IP (gin ClientIP).
	IPAddress string `json:"ip_address,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	// Required and Granted describe a gate decision: what the route demanded
	// and what the caller held.
	Required []string `json:"required,omitempty"`
	Granted  []string `json:"granted,omitempty"`

	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTypeAccessDenied EventType = "access_denied"
	EventTypeRegister     EventType = "register"
	EventTypeLogin        EventType = "login"
	EventTypeLoginFailed  EventType = "login_failed"
	EventTypeRefresh      EventType = "refresh"
	EventTypeLogout       EventType = "logout"
)
