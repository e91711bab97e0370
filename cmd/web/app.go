package main

import (
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/authtoken"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/config"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/httputil"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/metrics"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/middleware"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/realtime"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/service"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"
)

// app carries the wired services every handler needs.
type app struct {
	sessionManager *scs.SessionManager
	tokens         *authtoken.Issuer
	metrics        *metrics.Metrics
	hub            *realtime.Hub
	limiter        *middleware.IPRateLimiter

	userService    *service.UserService
	accessService  *service.AccessService
	leagueService  *service.LeagueService
	playerService  *service.PlayerService
	liveService    *service.LiveGameService
	sessionService *service.SessionService
}

func newApp(database *sqlx.DB, sessionManager *scs.SessionManager, cfg *config.Config) *app {
	m := metrics.New()
	hub := realtime.NewHub(m)
	leagueStore := store.NewLeagueStore(database)
	playerStore := store.NewPlayerStore(database)

	return &app{
		sessionManager: sessionManager,
		tokens:         authtoken.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		metrics:        m,
		hub:            hub,
		limiter:        middleware.NewIPRateLimiter(rate.Limit(cfg.Server.PublicRateLimit), cfg.Server.PublicRateBurst),

		userService:    service.NewUserService(store.NewUserStore(database)),
		accessService:  service.NewAccessService(leagueStore),
		leagueService:  service.NewLeagueService(database, leagueStore),
		playerService:  service.NewPlayerService(playerStore),
		liveService:    service.NewLiveGameService(store.NewLiveGameStore(database), hub, m),
		sessionService: service.NewSessionService(database, store.NewSessionStore(database), playerStore, m),
	}
}

// fail writes err and counts it by status code.
func (a *app) fail(w http.ResponseWriter, err error) int {
	status := httputil.WriteError(w, err)
	a.metrics.APIError(strconv.Itoa(status))
	return status
}
