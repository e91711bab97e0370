package middleware

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/httputil"
	"github.com/google/uuid"
)

// LeagueResolver turns the league query parameters of a request into an
// access context.
type LeagueResolver interface {
	Resolve(ctx context.Context, leagueID, publicToken string, userID uuid.UUID) (access.Context, error)
}

// ErrorWriter writes err as a response. httputil.WriteError fits.
type ErrorWriter func(w http.ResponseWriter, err error) int

// ResolveLeague reads ?leagueId= or ?publicToken= and stores the resolved
// access context on the request.
func ResolveLeague(resolver LeagueResolver, writeError ErrorWriter) func(http.Handler) http.Handler {
	if writeError == nil {
		writeError = httputil.WriteError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := GetUserIDFromContext(r.Context())
			q := r.URL.Query()
			ac, err := resolver.Resolve(r.Context(), q.Get("leagueId"), q.Get("publicToken"), userID)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(access.NewContext(r.Context(), ac)))
		})
	}
}

// RequireAdmin admits only league admins that came in through a league id.
func RequireAdmin(writeError ErrorWriter) func(http.Handler) http.Handler {
	if writeError == nil {
		writeError = httputil.WriteError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := access.FromContext(r.Context())
			if !ok || !ac.IsAdmin() {
				writeError(w, apperr.Forbidden("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
