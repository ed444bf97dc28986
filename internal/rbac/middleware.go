package rbac

import "net/http"

var defaultChecker = NewChecker(nil)

// Require rejects requests whose role lacks perm.
func Require(perm Permission) func(http.Handler) http.Handler {
	return RequireAny(perm)
}

// RequireAny passes when the role holds at least one of perms.
func RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !defaultChecker.Any(RoleFromContext(r.Context()), perms...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
