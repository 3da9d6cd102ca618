package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
)

type contextKey string

const identityContextKey contextKey = "identity"

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireIdentity is middleware that resolves the current identity from the bearer token
func RequireIdentity(v *TokenValidator, identities database.IdentityReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			id, err := v.Validate(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			identity, err := identities.GetIdentity(r.Context(), id)
			if err != nil {
				log.Printf("auth: loading identity %d: %v", id, err)
				writeJSONError(w, http.StatusInternalServerError, "failed to load identity")
				return
			}
			if identity == nil {
				writeJSONError(w, http.StatusUnauthorized, "unknown identity")
				return
			}

			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), identity)))
		})
	}
}

// IdentityFromContext retrieves the current identity from the request context
func IdentityFromContext(ctx context.Context) *database.Identity {
	identity, ok := ctx.Value(identityContextKey).(*database.Identity)
	if !ok {
		return nil
	}
	return identity
}

// SetIdentityInContext adds an identity to the context.
// This is primarily for testing - use RequireIdentity middleware in production.
func SetIdentityInContext(ctx context.Context, identity *database.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
