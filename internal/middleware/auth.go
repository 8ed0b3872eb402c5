package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"foodcourt-be/internal/auth"
	"foodcourt-be/internal/logger"
	"foodcourt-be/internal/utils"

	"go.uber.org/zap"
)

const ServiceAuthHeader = "X-Service-Auth"

// Auth resolves the acting user from the access token. Requests without a
// token pass through anonymously; handlers decide whether that is enough.
// A token that is present but invalid is rejected with 401.
func Auth(tokens *auth.Tokens, internalSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if internalSecret != "" &&
				subtle.ConstantTimeCompare([]byte(r.Header.Get(ServiceAuthHeader)), []byte(internalSecret)) == 1 {
				ctx = utils.WithInternalRequest(ctx)
			}

			raw := auth.ExtractAccessToken(r)
			if raw == "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				logger.FromCtx(ctx).Info("rejected access token",
					zap.String("layer", "middleware"),
					zap.Error(err),
				)
				writeUnauthorized(w)
				return
			}

			userID, _ := claims.UserID()
			ctx = utils.SetUserContext(ctx, userID, claims.Role)
			ctx = logger.WithActorID(ctx, userID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired access token"})
}
