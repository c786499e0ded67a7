package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/pkg/auth"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/common"
)

// Authenticate validates the bearer token and installs the authenticated
// user on the request context. Per-user rate limiting runs after validation
// so the key is a real user ID rather than an attacker-chosen string.
func Authenticate(tokens *auth.TokenManager, userLimiter *auth.DistributedRateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication token")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", ClientIP(r)),
					zap.String("path", r.URL.Path),
				)
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			if userLimiter != nil {
				allowed, err := userLimiter.Allow(r.Context(), claims.UserID)
				if err != nil {
					// Limiter fails open; record the degradation.
					logger.Warn("User rate limiter degraded", zap.Error(err))
				}
				if !allowed {
					common.RespondError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "User rate limit exceeded")
					return
				}
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			ctx = common.WithIsAdmin(ctx, claims.IsAdmin)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose token does not carry the admin flag.
func RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !common.IsAdmin(r.Context()) {
				common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP throttles unauthenticated endpoints per client IP.
func RateLimitByIP(limiter *auth.IPRateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, _ := limiter.Allow(r.Context(), ClientIP(r))
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken pulls the JWT from the Authorization header or auth cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// ClientIP extracts the client IP address
func ClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
