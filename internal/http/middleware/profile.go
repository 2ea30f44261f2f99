package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinicbook/internal/backend"
)

type contextKey string

const profileIDKey contextKey = "clinicbook.profile_id"

const profileCookieMaxAge = 180 * 24 * time.Hour

// WithProfileID stores the browser profile id in context.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDKey, profileID)
}

// ProfileIDFromContext extracts the profile id if present.
func ProfileIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(profileIDKey).(string)
	return id, ok && id != ""
}

// Profile identifies the browser profile that owns the booking form.
// A bearer token signed with secret wins: its subject is the profile id and
// the raw token is forwarded to the clinic backend. Without one, a
// first-party cookie carries a random profile id, issued on first visit.
func Profile(secret, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = "booking_profile"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if auth := r.Header.Get("Authorization"); auth != "" {
				if secret == "" || !strings.HasPrefix(auth, "Bearer ") {
					http.Error(w, "invalid authorization header", http.StatusUnauthorized)
					return
				}
				tokenString := strings.TrimPrefix(auth, "Bearer ")
				subject, err := profileSubject(tokenString, secret)
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				ctx = backend.WithToken(WithProfileID(ctx, subject), tokenString)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			var profileID string
			if c, err := r.Cookie(cookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					profileID = id.String()
				}
			}
			if profileID == "" {
				profileID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    profileID,
					Path:     "/",
					MaxAge:   int(profileCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithProfileID(ctx, profileID)))
		})
	}
}

func profileSubject(tokenString, secret string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return claims.Subject, nil
}
