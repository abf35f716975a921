package domain

// CtxKey names values stored on the gin context by middleware.
type CtxKey string

const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyUserRole  CtxKey = "Role"
	KeyRequestID CtxKey = "RequestID"
)

// Roles carried in the Supabase app_metadata claim.
const (
	RoleEmployer = "employer"
	RoleWorker   = "worker"
	RoleAdmin    = "admin"
)
