package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/pkg/auth"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

type claimsKey struct{}

// ClaimsFromContext returns the claims of an authenticated request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// Authenticate validates the bearer token of every request. A nil validator
// disables authentication. Tokens that carry a session claim may only be
// used with that session.
func Authenticate(validator *auth.JWTValidator, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.ValidateToken(extractToken(r))
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError(err.Error()))
				return
			}

			if claims.Session != "" && !sameSession(claims.Session, r.Header.Get(SessionHeader)) {
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("token is not valid for this session").
					WithCode(apperrors.CodeForeignSession))
				return
			}

			logger.Debug("Request authenticated",
				zap.String("subject", claims.Subject),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func sameSession(claimed, header string) bool {
	a, err := valueobjects.NewSessionID(claimed)
	if err != nil {
		return false
	}
	b, err := valueobjects.NewSessionID(header)
	if err != nil {
		return false
	}
	return a.Equals(b)
}

// extractToken reads the Authorization header, falling back to the
// auth_token cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return header
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}
