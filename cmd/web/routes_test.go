package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/config"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/db"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/realtime"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	users "github.com/AdamBeresnev/floorball-scorekeeper/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(database.DB, "../../migrations"), "Failed to apply migrations")
	return database
}

type testServer struct {
	*httptest.Server
	app *app
	db  *sqlx.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := setupTestDB(t)
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	cfg.Server.PublicRateLimit = 1000
	cfg.Server.PublicRateBurst = 1000

	a := newApp(database, scs.New(), &cfg)
	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: a, db: database}
}

// signIn creates a user and returns a bearer token for them.
func (s *testServer) signIn(t *testing.T) string {
	t.Helper()
	u := &users.User{ID: uuid.New(), Email: gofakeit.Email(), Username: gofakeit.Username()}
	require.NoError(t, store.NewUserStore(s.db).CreateUser(context.Background(), u))
	token, _, err := s.app.tokens.Issue(u.ID)
	require.NoError(t, err)
	return token
}

type response struct {
	status int
	body   gjson.Result
}

func (s *testServer) call(t *testing.T, method, path, token, body string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: gjson.ParseBytes(raw)}
}

func (s *testServer) createLeague(t *testing.T, token, name string) (id, publicToken string) {
	t.Helper()
	res := s.call(t, http.MethodPost, "/api/leagues", token, `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusOK, res.status, res.body.Raw)
	return res.body.Get("league.id").String(), res.body.Get("league.publicToken").String()
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	res := s.call(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, res.status)

	resp, err := s.Client().Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestLeagues(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)

	res := s.call(t, http.MethodGet, "/api/leagues", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = s.call(t, http.MethodPost, "/api/leagues", token, `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "League name is required", res.body.Get("error").String())

	id, _ := s.createLeague(t, token, "Tuesday Floorball")

	res = s.call(t, http.MethodGet, "/api/leagues", token, "")
	require.Equal(t, http.StatusOK, res.status)
	leagues := res.body.Get("leagues").Array()
	require.Len(t, leagues, 1)
	assert.Equal(t, id, leagues[0].Get("id").String())
	assert.Equal(t, "admin", leagues[0].Get("role").String())

	other := s.signIn(t)
	res = s.call(t, http.MethodGet, "/api/leagues", other, "")
	assert.Empty(t, res.body.Get("leagues").Array())
}

func TestPublicLeague(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)
	id, publicToken := s.createLeague(t, token, "Open League")

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantError  string
	}{
		{"missing token", "", http.StatusBadRequest, "Token is required"},
		{"unknown token", "?token=nope", http.StatusNotFound, "League not found"},
		{"valid token", "?token=" + publicToken, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.call(t, http.MethodGet, "/api/public/league"+tt.query, "", "")
			assert.Equal(t, tt.wantStatus, res.status)
			assert.Equal(t, tt.wantError, res.body.Get("error").String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, id, res.body.Get("league.id").String())
				assert.Equal(t, 5.0, res.body.Get("league.winBonus").Float())
			}
		})
	}
}

func TestPlayers(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)
	id, publicToken := s.createLeague(t, token, "Players League")
	byID := "?leagueId=" + id
	byToken := "?publicToken=" + publicToken

	res := s.call(t, http.MethodGet, "/api/players", "", "")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.call(t, http.MethodGet, "/api/players"+byID, "", "")
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = s.call(t, http.MethodPost, "/api/players"+byID, token, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Name is required", res.body.Get("error").String())

	res = s.call(t, http.MethodPost, "/api/players"+byID, token, `{"name":"Anna"}`)
	require.Equal(t, http.StatusCreated, res.status)
	playerID := res.body.Get("player.id").String()

	res = s.call(t, http.MethodPost, "/api/players"+byToken, "", `{"name":"Bo"}`)
	require.Equal(t, http.StatusCreated, res.status)

	res = s.call(t, http.MethodPut, "/api/players/"+playerID+byToken, "", `{"name":"Anna K"}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.True(t, res.body.Get("ok").Bool())

	res = s.call(t, http.MethodGet, "/api/players"+byToken, "", "")
	require.Equal(t, http.StatusOK, res.status)
	names := []string{}
	for _, p := range res.body.Get("players").Array() {
		names = append(names, p.Get("name").String())
	}
	assert.ElementsMatch(t, []string{"Anna K", "Bo"}, names)

	// A token of another league cannot touch this player.
	other := s.signIn(t)
	_, otherToken := s.createLeague(t, other, "Elsewhere")
	res = s.call(t, http.MethodDelete, "/api/players/"+playerID+"?publicToken="+otherToken, "", "")
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Invalid token", res.body.Get("error").String())

	res = s.call(t, http.MethodDelete, "/api/players/"+uuid.NewString()+byID, token, "")
	assert.Equal(t, http.StatusNotFound, res.status)

	res = s.call(t, http.MethodDelete, "/api/players/"+playerID+byID, token, "")
	assert.Equal(t, http.StatusOK, res.status)
}

func TestLiveGame(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)
	_, publicToken := s.createLeague(t, token, "Live League")
	q := "?publicToken=" + publicToken

	res := s.call(t, http.MethodGet, "/api/live-game"+q, "", "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "roster", res.body.Get("state.stage").String())
	assert.Equal(t, int64(0), res.body.Get("state.lastUpdated").Int())

	res = s.call(t, http.MethodPut, "/api/live-game"+q, "", `{"state":`)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.call(t, http.MethodPut, "/api/live-game"+q, "", `{"state":{"stage":"setup","selectedPlayerIds":["p1"],"lastUpdated":1700000000000}}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "setup", res.body.Get("state.stage").String())

	res = s.call(t, http.MethodGet, "/api/live-game"+q, "", "")
	assert.Equal(t, "setup", res.body.Get("state.stage").String())
	assert.Equal(t, int64(1700000000000), res.body.Get("state.lastUpdated").Int())

	res = s.call(t, http.MethodDelete, "/api/live-game"+q, "", "")
	assert.Equal(t, http.StatusOK, res.status)

	res = s.call(t, http.MethodGet, "/api/live-game"+q, "", "")
	assert.Equal(t, "roster", res.body.Get("state.stage").String())
}

func TestSessionsAndLeaderboard(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)
	id, publicToken := s.createLeague(t, token, "Session League")
	byID := "?leagueId=" + id
	byToken := "?publicToken=" + publicToken

	anna := s.call(t, http.MethodPost, "/api/players"+byID, token, `{"name":"Anna"}`).body.Get("player.id").String()
	bo := s.call(t, http.MethodPost, "/api/players"+byID, token, `{"name":"Bo"}`).body.Get("player.id").String()
	otherID, _ := s.createLeague(t, token, "Other League")
	stranger := s.call(t, http.MethodPost, "/api/players?leagueId="+otherID, token, `{"name":"Stranger"}`).body.Get("player.id").String()

	payload := func(aScore, bScore any, winner string, players ...league.SessionPlayer) string {
		raw, err := json.Marshal(map[string]any{
			"teamAScore": aScore,
			"teamBScore": bScore,
			"winner":     winner,
			"players":    players,
			"goalEvents": []league.GoalEvent{},
		})
		require.NoError(t, err)
		return string(raw)
	}
	annaRow := league.SessionPlayer{PlayerID: anna, PlayerName: "Anna", Team: league.TeamA, Goals: 2, Attendance: true, WeekPoints: 8}
	boRow := league.SessionPlayer{PlayerID: bo, PlayerName: "Bo", Team: league.TeamB, Goals: 1, Attendance: true, WeekPoints: 2}

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"missing scores", payload("2", 1, "A", annaRow, boRow), "Scores are required"},
		{"no players", payload(2, 1, "A"), "At least one player is required"},
		{"foreign player", payload(2, 1, "A", annaRow, league.SessionPlayer{PlayerID: stranger, PlayerName: "X", Team: league.TeamB}), "Players must belong to this league"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.call(t, http.MethodPost, "/api/sessions"+byToken, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, res.status)
			assert.Equal(t, tt.wantError, res.body.Get("error").String())
		})
	}

	res := s.call(t, http.MethodPost, "/api/sessions"+byToken, "", payload(2, 1, "A", annaRow, boRow))
	require.Equal(t, http.StatusOK, res.status, res.body.Raw)
	sessionID := res.body.Get("session.id").String()

	res = s.call(t, http.MethodGet, "/api/sessions"+byID, token, "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body.Get("sessions").Array(), 1)

	res = s.call(t, http.MethodGet, "/api/leaderboard"+byToken+"&sort=goals&dir=desc", "", "")
	require.Equal(t, http.StatusOK, res.status)
	rows := res.body.Get("leaderboard").Array()
	require.Len(t, rows, 2)
	assert.Equal(t, "Anna", rows[0].Get("name").String())
	assert.Equal(t, 8.0, rows[0].Get("points").Float())

	res = s.call(t, http.MethodGet, "/api/leaderboard"+byToken+"&sort=height", "", "")
	assert.Equal(t, http.StatusBadRequest, res.status)

	// Deleting is for admins only, never for public token holders.
	res = s.call(t, http.MethodDelete, "/api/sessions/"+sessionID+byToken, "", "")
	assert.Equal(t, http.StatusForbidden, res.status)

	res = s.call(t, http.MethodDelete, "/api/sessions/"+sessionID+byID, token, "")
	assert.Equal(t, http.StatusOK, res.status)

	res = s.call(t, http.MethodDelete, "/api/sessions/"+sessionID+byID, token, "")
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestScoringConfig(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)
	id, _ := s.createLeague(t, token, "Scoring League")
	path := "/api/leagues/" + id + "/scoring"

	res := s.call(t, http.MethodGet, path, token, "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 1.0, res.body.Get("goalPoints").Float())

	res = s.call(t, http.MethodPut, path, token, `{"goalPoints":"2.5","enableAssists":true}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 2.5, res.body.Get("goalPoints").Float())
	assert.True(t, res.body.Get("enableAssists").Bool())

	res = s.call(t, http.MethodPut, path, token, `{"goalPoints":-1}`)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = s.call(t, http.MethodGet, path, s.signIn(t), "")
	assert.Equal(t, http.StatusForbidden, res.status)
}

// guestClient signs a fresh browser in through the guest login.
func (s *testServer) guestClient(t *testing.T) (*http.Client, string) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Post(s.URL+"/auth/guest", "application/json", nil)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return client, gjson.GetBytes(raw, "user.id").String()
}

func TestGuestSession(t *testing.T) {
	s := newTestServer(t)
	client, guestID := s.guestClient(t)
	require.NotEmpty(t, guestID)

	resp, err := client.Get(s.URL + "/auth/me")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, guestID, gjson.GetBytes(raw, "user.id").String())
	assert.Equal(t, users.ProviderGuest, gjson.GetBytes(raw, "user.provider").String())

	resp, err = client.Post(s.URL+"/auth/guest", "application/json", nil)
	require.NoError(t, err)
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, guestID, gjson.GetBytes(raw, "user.id").String(), "a signed in guest keeps its account")

	resp, err = client.Post(s.URL+"/auth/token", "application/json", nil)
	require.NoError(t, err)
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := gjson.GetBytes(raw, "token").String()
	userID, err := s.app.tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, guestID, userID.String())

	resp, err = client.Post(s.URL+"/logout", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(s.URL + "/auth/me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuestsDoNotShareLeagues(t *testing.T) {
	s := newTestServer(t)
	first, firstID := s.guestClient(t)
	second, secondID := s.guestClient(t)
	require.NotEqual(t, firstID, secondID)

	send := func(client *http.Client, method, path, body string) response {
		req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return response{status: resp.StatusCode, body: gjson.ParseBytes(raw)}
	}

	res := send(first, http.MethodPost, "/api/leagues", `{"name":"Guest League"}`)
	require.Equal(t, http.StatusOK, res.status, res.body.Raw)
	leagueID := res.body.Get("league.id").String()

	res = send(second, http.MethodGet, "/api/leagues", "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Empty(t, res.body.Get("leagues").Array())

	res = send(second, http.MethodPut, "/api/leagues/"+leagueID+"/scoring", `{"goalPoints":3}`)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = send(first, http.MethodGet, "/api/leagues", "")
	require.Len(t, res.body.Get("leagues").Array(), 1)
	assert.Equal(t, "admin", res.body.Get("leagues.0.role").String())
}

func TestLiveGameBroadcast(t *testing.T) {
	s := newTestServer(t)
	token := s.signIn(t)
	_, publicToken := s.createLeague(t, token, "Broadcast League")

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/live-game/ws?publicToken=" + publicToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		ac, err := s.app.accessService.Public(context.Background(), publicToken)
		return err == nil && s.app.hub.Subscribers(ac.LeagueID) == 1
	}, time.Second, 10*time.Millisecond)

	res := s.call(t, http.MethodPut, "/api/live-game?publicToken="+publicToken, "", `{"state":{"stage":"game","lastUpdated":42}}`)
	require.Equal(t, http.StatusOK, res.status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	evt, err := realtime.UnmarshalEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, realtime.EventStateUpdated, evt.Type)
	require.NotNil(t, evt.State)
	assert.Equal(t, int64(42), evt.State.LastUpdated)

	res = s.call(t, http.MethodDelete, "/api/live-game?publicToken="+publicToken, "", "")
	require.Equal(t, http.StatusOK, res.status)
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	evt, err = realtime.UnmarshalEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, realtime.EventStateDeleted, evt.Type)
}
