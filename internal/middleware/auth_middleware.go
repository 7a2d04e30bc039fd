package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/jwt"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				response.Unauthorized(w, "Missing or malformed authorization header")
				return
			}

			claims, err := jwt.ValidateToken(token, jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

// BearerToken extracts the token of a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	if slot, ok := ctx.Value(userSlotKey).(*userSlot); ok {
		slot.id = userID
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

func contextWithSlot(ctx context.Context, slot *userSlot) context.Context {
	return context.WithValue(ctx, userSlotKey, slot)
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}
