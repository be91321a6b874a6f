package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
	"github.com/crowdtask/platform-backend/internal/serve/auth"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/utils"
)

type ContextKey string

const (
	// UserIDContextKey holds the authenticated user's ID.
	UserIDContextKey ContextKey = "user_id"
	// UserRoleContextKey holds the authenticated user's role.
	UserRoleContextKey ContextKey = "user_role"
)

// UserIDFromContext returns the authenticated user ID, empty when the request
// is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDContextKey).(string)
	return userID
}

// UserRoleFromContext returns the authenticated user's role.
func UserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleContextKey).(string)
	return role
}

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			logger.Ctx(ctx).Errorf("%+v", err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler is a middleware that monitors http requests, and export the data
// to the metrics server
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HttpRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			if err := monitorService.MonitorHttpRequestDuration(duration, labels); err != nil {
				logger.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

// LoggingMiddleware attaches a request-scoped logger carrying the request ID.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		requestID := chimiddleware.GetReqID(ctx)
		if requestID != "" {
			ctx = logger.Set(ctx, logger.Ctx(ctx).WithField("req_id", requestID))
		}
		next.ServeHTTP(rw, req.WithContext(ctx))
	})
}

// AuthenticateMiddleware is a middleware that validates the Authorization header for
// authenticated endpoints.
func AuthenticateMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			authHeaderParts := strings.Split(authHeader, " ")
			if len(authHeaderParts) != 2 || !strings.EqualFold(authHeaderParts[0], "Bearer") {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx := req.Context()
			claims, err := jwtManager.ParseToken(authHeaderParts[1])
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					logger.Ctx(ctx).Errorf("error validating auth token: %v", err)
				}
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx = context.WithValue(ctx, UserIDContextKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRoleContextKey, claims.Role)
			ctx = logger.Set(ctx, logger.Ctx(ctx).WithField("user_id", claims.Subject))

			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// RequireRoleMiddleware rejects authenticated requests whose role is not in
// the allowed set.
func RequireRoleMiddleware(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			role := UserRoleFromContext(req.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(rw, req)
					return
				}
			}
			httperror.Forbidden("", nil, nil).Render(rw)
		})
	}
}

// CorsMiddleware handles Cross-Origin Resource Sharing (CORS) settings for the API.
func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		corsHandler := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		})
		return corsHandler.Handler(next)
	}
}

// RateLimitMiddleware limits each client IP to requestLimit requests per window.
func RateLimitMiddleware(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestLimit, window)
}
