package middleware

import (
	"net/http"
	"strings"

	"github.com/Keyzen2/spamguard-v2/internal/services"
	"github.com/gorilla/mux"
)

// APIKeyMiddleware resolves the presented secret to a key record and puts
// key and owning user on the request context. Unknown secrets are audited
// as rejected requests before the 401 goes out.
func APIKeyMiddleware(apiKeyService services.APIKeyService, accountant services.AccountantService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := extractAPIKey(r)
			if secret == "" {
				accountant.RecordRejection(r.Context(), r.URL.Path, r.Method, clientIP(r), r.UserAgent(), http.StatusUnauthorized, "missing api key")
				http.Error(w, "API key is required", http.StatusUnauthorized)
				return
			}

			apiKey, err := apiKeyService.Resolve(r.Context(), secret)
			if err != nil {
				accountant.RecordRejection(r.Context(), r.URL.Path, r.Method, clientIP(r), r.UserAgent(), http.StatusUnauthorized, "invalid api key")
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := services.WithAuthContext(r.Context(), &apiKey.User, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey accepts the secret as a bearer token or an x-api-key
// header.
func extractAPIKey(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if parts := strings.Split(bearer, " "); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return r.Header.Get("x-api-key")
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return host
}
