package middleware

import (
	"net/http"

	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/handler/http/response"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
)

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}

		if !claims.IsAdmin {
			response.HandleError(w, user.ErrAdminPrivilegeRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
