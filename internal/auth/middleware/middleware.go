// Package middleware authenticates callers of the relay's webhooks.
package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/ajanottaja/identity-bridge/internal/auth/constants"
	"github.com/ajanottaja/identity-bridge/internal/logger"
	"github.com/ajanottaja/identity-bridge/internal/utils"
	"go.uber.org/zap"
)

// HookSecret requires `Authorization: Bearer <secret>` on every request.
// An empty secret disables the check.
func HookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, "unauthorized", "Authentication required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				logger.FromContext(r.Context()).Warn("rejected hook call with wrong secret",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, "unauthorized", "Invalid hook secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the Bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get(constants.AuthHeaderName)
	if len(authHeader) > len(constants.AuthHeaderPrefix) &&
		strings.EqualFold(authHeader[:len(constants.AuthHeaderPrefix)], constants.AuthHeaderPrefix) {
		return strings.TrimSpace(authHeader[len(constants.AuthHeaderPrefix):])
	}
	return ""
}

// writeError writes a 401 with a Bearer challenge
func writeError(w http.ResponseWriter, code, message string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`%s realm="%s", error="%s"`, constants.TokenType, constants.Realm, code))
	utils.WriteError(w, code, message, http.StatusUnauthorized)
}
