package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a package-private type so no other package can read or
// shadow values stored under it.
type contextKey string

const subjectKey contextKey = "subject"

// RequireAuth rejects requests without a valid access token with 401 and
// stores the token subject in the request context otherwise.
//
// The token is read from "Authorization: Bearer <jwt>" and, failing that,
// from the "token" query parameter. The query form exists for plain links
// such as receipt downloads, where the browser cannot set a header.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				unauthorized(w, "authentication required")
				return
			}

			claims, err := tokens.Validate(r.Context(), raw)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the login of the authenticated organizer.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// TokenFromRequest extracts the raw token, or "" when none was sent.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="event-registration"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
