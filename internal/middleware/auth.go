package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/config"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/httputil"
	users "github.com/AdamBeresnev/floorball-scorekeeper/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// SessionUserKey is where the browser session keeps the signed in user id.
const SessionUserKey = "userID"

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// UserLoader loads the user behind an authenticated request.
type UserLoader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// InitAuth registers the OAuth providers that have credentials configured.
func InitAuth(cfg config.OAuthConfig) []string {
	var providers []goth.Provider
	var names []string
	if cfg.Discord.Enabled() {
		providers = append(providers, discord.New(cfg.Discord.Key, cfg.Discord.Secret, cfg.Discord.CallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
		names = append(names, "discord")
	}
	if cfg.Google.Enabled() {
		providers = append(providers, google.New(cfg.Google.Key, cfg.Google.Secret, cfg.Google.CallbackURL, "email", "profile"))
		names = append(names, "google")
	}
	goth.UseProviders(providers...)
	return names
}

// Authenticate identifies the caller from a bearer token or, failing that,
// from the browser session. Anonymous requests pass through untouched so
// that public token routes keep working. An invalid bearer token is
// rejected outright.
func Authenticate(sessionManager *scs.SessionManager, tokens TokenValidator, loader UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := identify(r, sessionManager, tokens)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)

			// Add the user to context so that we can easily get it whenever we want
			if user, err := loader.GetUser(ctx, userID); err == nil {
				ctx = context.WithValue(ctx, users.UserKey, user)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identify(r *http.Request, sessionManager *scs.SessionManager, tokens TokenValidator) (uuid.UUID, bool, error) {
	if token, ok := BearerToken(r); ok {
		id, err := tokens.Validate(token)
		if err != nil {
			return uuid.Nil, false, err
		}
		return id, true, nil
	}

	if sessionManager == nil {
		return uuid.Nil, false, nil
	}
	userIDStr := sessionManager.GetString(r.Context(), SessionUserKey)
	if userIDStr == "" {
		return uuid.Nil, false, nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		sessionManager.Remove(r.Context(), SessionUserKey)
		return uuid.Nil, false, nil
	}
	return userID, true, nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			httputil.Unauthorized(w, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	val := ctx.Value(users.UserKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*users.User)
	if !ok {
		return nil
	}
	return user
}
