package auth

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mind-engage/mindengage-iq/internal/rbac"
)

// AttachRoleFromDB replaces the token's role claim with the stored role, so
// demotions apply before the token expires. Unknown users are rejected.
func AttachRoleFromDB(users *UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role, err := users.Role(ctx, SubjectFromContext(ctx))
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "unknown user", http.StatusUnauthorized)
			case err != nil:
				slog.ErrorContext(ctx, "role lookup failed", "user_id", SubjectFromContext(ctx), "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			case role == "":
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			}
		})
	}
}
