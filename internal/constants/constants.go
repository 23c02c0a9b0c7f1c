package constants

// Session / context keys
const (
	SessionCookieName = "taskflow_session"

	ContextKeyUserID     = "user_id"
	ContextKeyRequestID  = "request_id"
	ContextKeyProject    = "project"
	ContextKeyMemberRole = "member_role"
	ContextKeyTask       = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
)

// Reordering
const (
	// MaxReorderAttempts bounds the optimistic retry loop when concurrent
	// reorders race for the same gap.
	MaxReorderAttempts = 3
)

// AI
const (
	MaxAISuggestedTasks = 20
)

// RequestIDHeader carries the per-request ID on responses.
const RequestIDHeader = "X-Request-ID"
