package main

import (
	"net/http"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", a.metrics.Handler())

	// The websocket route stays outside the session middleware, whose
	// response writer cannot be hijacked. Subscribers authenticate with a
	// bearer token or a public token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(nil, a.tokens, a.userService))
		r.Use(middleware.RateLimitPublic(a.limiter))
		r.Use(middleware.ResolveLeague(a.accessService, a.fail))

		r.Get("/api/live-game/ws", a.hub.HandleWS)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.sessionManager.LoadAndSave)
		r.Use(middleware.Authenticate(a.sessionManager, a.tokens, a.userService))

		r.Get("/auth/{provider}", a.beginAuth)
		r.Get("/auth/{provider}/callback", a.completeAuth)
		r.Post("/auth/guest", a.guestLogin)
		r.Post("/logout", a.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/auth/me", a.me)
			r.Post("/auth/token", a.issueToken)

			r.Get("/api/leagues", a.listLeagues)
			r.Post("/api/leagues", a.createLeague)
			r.Get("/api/leagues/{id}/scoring", a.getScoring)
			r.Put("/api/leagues/{id}/scoring", a.putScoring)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitPublic(a.limiter))

			r.Get("/api/public/league", a.publicLeague)

			r.Group(func(r chi.Router) {
				r.Use(middleware.ResolveLeague(a.accessService, a.fail))

				r.Get("/api/players", a.listPlayers)
				r.Post("/api/players", a.addPlayer)
				r.Put("/api/players/{id}", a.renamePlayer)
				r.Delete("/api/players/{id}", a.deletePlayer)

				r.Get("/api/live-game", a.getLiveGame)
				r.Put("/api/live-game", a.putLiveGame)
				r.Delete("/api/live-game", a.deleteLiveGame)

				r.Get("/api/sessions", a.listSessions)
				r.Post("/api/sessions", a.createSession)
				r.With(middleware.RequireAdmin(a.fail)).Delete("/api/sessions/{id}", a.deleteSession)

				r.Get("/api/leaderboard", a.leaderboard)
			})
		})
	})

	return r
}
