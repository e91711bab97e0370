package main

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/httputil"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/leaderboard"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth/gothic"
	"github.com/tidwall/gjson"
)

type nameBody struct {
	Name string `json:"name"`
}

var okBody = map[string]bool{"ok": true}

func (a *app) beginAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, provider))
}

func (a *app) completeAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = gothic.GetContextWithProvider(r, provider)

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		httputil.BadRequest(w, "Authentication failure", err)
		return
	}

	user, err := a.userService.FindOrCreateUserByProvider(r.Context(), gothUser)
	if err != nil {
		a.fail(w, err)
		return
	}

	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	slog.Info("user signed in", "user_id", user.ID, "provider", provider)

	http.Redirect(w, r, "/auth/me", http.StatusFound)
}

// guestLogin keeps a browser that is already signed in as a guest on its
// account and gives everyone else a new one.
func (a *app) guestLogin(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	if !user.IsGuest() {
		var err error
		user, err = a.userService.CreateGuestUser(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
	}
	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessionManager.Destroy(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody)
}

func (a *app) me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	if user == nil {
		a.fail(w, apperr.Unauthorized("Unauthorized"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// issueToken hands the signed in user a bearer token for the terminal client.
func (a *app) issueToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	if user == nil {
		a.fail(w, apperr.Unauthorized("Unauthorized"))
		return
	}
	token, expiresAt, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"token": token, "expiresAt": expiresAt})
}

func (a *app) listLeagues(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	leagues, err := a.leagueService.ListForUser(r.Context(), userID)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"leagues": leagues})
}

func (a *app) createLeague(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		a.fail(w, err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	created, err := a.leagueService.CreateLeague(r.Context(), userID, body.Name)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"league": created})
}

func (a *app) adminContext(r *http.Request) (access.Context, error) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	return a.accessService.Admin(r.Context(), chi.URLParam(r, "id"), userID)
}

func (a *app) getScoring(w http.ResponseWriter, r *http.Request) {
	ac, err := a.adminContext(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	cfg, err := a.leagueService.ScoringConfig(r.Context(), ac.LeagueID)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (a *app) putScoring(w http.ResponseWriter, r *http.Request) {
	ac, err := a.adminContext(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		a.fail(w, err)
		return
	}
	cfg, err := league.ParseScoringConfig(body)
	if err != nil {
		a.fail(w, err)
		return
	}
	saved, err := a.leagueService.UpdateScoringConfig(r.Context(), ac.LeagueID, cfg)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

func (a *app) publicLeague(w http.ResponseWriter, r *http.Request) {
	summary, err := a.leagueService.PublicSummary(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"league": summary})
}

func (a *app) listPlayers(w http.ResponseWriter, r *http.Request) {
	ac, _ := access.FromContext(r.Context())
	players, err := a.playerService.ListPlayers(r.Context(), ac)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (a *app) addPlayer(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		a.fail(w, err)
		return
	}
	ac, _ := access.FromContext(r.Context())
	player, err := a.playerService.AddPlayer(r.Context(), ac, body.Name)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"player": player})
}

func (a *app) renamePlayer(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		a.fail(w, err)
		return
	}
	ac, _ := access.FromContext(r.Context())
	if err := a.playerService.RenamePlayer(r.Context(), ac, chi.URLParam(r, "id"), body.Name); err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody)
}

func (a *app) deletePlayer(w http.ResponseWriter, r *http.Request) {
	ac, _ := access.FromContext(r.Context())
	if err := a.playerService.DeletePlayer(r.Context(), ac, chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody)
}

func (a *app) getLiveGame(w http.ResponseWriter, r *http.Request) {
	ac, _ := access.FromContext(r.Context())
	state, err := a.liveService.GetState(r.Context(), ac)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (a *app) putLiveGame(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if !gjson.ValidBytes(body) {
		a.fail(w, apperr.Validation("Invalid JSON body"))
		return
	}
	ac, _ := access.FromContext(r.Context())
	state, err := a.liveService.PutState(r.Context(), ac, []byte(gjson.GetBytes(body, "state").Raw))
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (a *app) deleteLiveGame(w http.ResponseWriter, r *http.Request) {
	ac, _ := access.FromContext(r.Context())
	if err := a.liveService.DeleteState(r.Context(), ac); err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody)
}

func (a *app) listSessions(w http.ResponseWriter, r *http.Request) {
	ac, _ := access.FromContext(r.Context())
	sessions, err := a.sessionService.ListSessions(r.Context(), ac)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *app) createSession(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		a.fail(w, err)
		return
	}
	if !gjson.ValidBytes(body) {
		a.fail(w, apperr.Validation("Invalid JSON body"))
		return
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("teamAScore").Type != gjson.Number || doc.Get("teamBScore").Type != gjson.Number {
		a.fail(w, apperr.Validation("Scores are required"))
		return
	}

	var payload league.SessionPayload
	if err := httputil.DecodeBytes(body, &payload); err != nil {
		a.fail(w, err)
		return
	}
	ac, _ := access.FromContext(r.Context())
	saved, err := a.sessionService.RecordSession(r.Context(), ac, payload)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"session": saved})
}

func (a *app) deleteSession(w http.ResponseWriter, r *http.Request) {
	ac, _ := access.FromContext(r.Context())
	if err := a.sessionService.DeleteSession(r.Context(), ac, chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, okBody)
}

func (a *app) leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	column, err := leaderboard.ParseColumn(q.Get("sort"))
	if err != nil {
		a.fail(w, &apperr.Error{Kind: apperr.ErrValidation, Message: "Unknown sort column", Err: err})
		return
	}
	dir, err := leaderboard.ParseDirection(q.Get("dir"))
	if err != nil {
		a.fail(w, &apperr.Error{Kind: apperr.ErrValidation, Message: "Unknown sort direction", Err: err})
		return
	}
	ac, _ := access.FromContext(r.Context())
	rows, err := a.sessionService.Leaderboard(r.Context(), ac, column, dir)
	if err != nil {
		a.fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

