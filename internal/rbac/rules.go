package rbac

type Permission string

const (
	TestView       Permission = "test:view"
	AttemptCreate  Permission = "attempt:create"
	AttemptAnswer  Permission = "attempt:answer"
	AttemptSubmit  Permission = "attempt:submit"
	AttemptViewOwn Permission = "attempt:view-own"
	DashboardView  Permission = "dashboard:view"
	EventsRead     Permission = "events:read"
)

// RolePermissions is the default policy. A trailing "*" grants a prefix.
var RolePermissions = map[string][]Permission{
	"user": {
		TestView,
		AttemptCreate,
		AttemptAnswer,
		AttemptSubmit,
		AttemptViewOwn,
		DashboardView,
	},
	"admin": {"*"},
}
