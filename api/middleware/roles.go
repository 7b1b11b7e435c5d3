package middleware

import (
	"net/http"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/responses"
	pkgAuth "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/auth"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
)

// RequireAdmin guards the admin route group.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(pkgAuth.RoleAdmin, logg)
}

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
