package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const memberContextKey contextKey = "member"

// MemberHeader carries the authenticated member id set by the gateway in front of the API.
const MemberHeader = "X-Member-ID"

// RequireMember is middleware that requires an acting member id
func RequireMember() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseMemberID(r.Header.Get(MemberHeader))
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), memberContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseMemberID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetMemberFromContext retrieves the acting member id from the request context
func GetMemberFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(memberContextKey).(int64)
	return id, ok
}

// SetMemberInContext adds an acting member id to the context.
// This is primarily for testing - use RequireMember middleware in production.
func SetMemberInContext(ctx context.Context, memberID int64) context.Context {
	return context.WithValue(ctx, memberContextKey, memberID)
}
