package middleware

import (
	"io"
	"net/http"
	"strconv"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// TokenVerifier resolves a bearer token into a caller.
type TokenVerifier interface {
	Verify(token string) (domain.Caller, error)
}

// Authenticate rejects requests without a valid bearer token and stores the caller in the
// request context.
func Authenticate(v TokenVerifier, logger logx.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, logger, r, "missing bearer token")
				return
			}
			caller, err := v.Verify(token)
			if err != nil {
				logger.Debug("token rejected", logx.Any("err", err))
				unauthorized(w, logger, r, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter, logger logx.Logger, r *http.Request, msg string) {
	logger.Info("unauthenticated request",
		logx.String("method", r.Method),
		logx.String("path", r.URL.Path),
		logx.String("reason", msg),
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, `{"error":"`+msg+`","reason":"unauthenticated"}`)
}

// CallerKey keys rate limiting by authenticated caller, falling back to fallback.
func CallerKey(fallback func(*http.Request) string) func(*http.Request) string {
	return func(r *http.Request) string {
		if c, ok := auth.CallerFrom(r.Context()); ok {
			return "caller:" + strconv.FormatInt(c.ID, 10)
		}
		return fallback(r)
	}
}
