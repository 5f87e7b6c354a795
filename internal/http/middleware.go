package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type contextKey string

const (
	principalKey contextKey = "principal_id"
	requestIDKey contextKey = "request_id"
)

// PrincipalMiddleware extracts the authenticated principal set by the edge
// auth layer. Authentication itself happens upstream; an empty header means
// the request never passed it.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principalID := r.Header.Get("X-Principal-ID")
		ctx := context.WithValue(r.Context(), principalKey, principalID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getPrincipalID(ctx context.Context) string {
	if principalID, ok := ctx.Value(principalKey).(string); ok {
		return principalID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
