// Package apiclient talks to the scorekeeper HTTP API on behalf of a
// courtside device. It serves as the remote of both the live state
// synchronizer and the session recorder.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/leaderboard"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 10 * time.Second

// Auth selects how the client identifies its league: a member bearer token
// together with the league id, or a public token alone.
type Auth struct {
	BearerToken string
	LeagueID    uuid.UUID
	PublicToken string
}

func (a Auth) query() url.Values {
	q := url.Values{}
	if a.PublicToken != "" && a.BearerToken == "" {
		q.Set("publicToken", a.PublicToken)
	} else if a.LeagueID != uuid.Nil {
		q.Set("leagueId", a.LeagueID.String())
	}
	return q
}

type Client struct {
	baseURL    string
	auth       Auth
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

func New(baseURL string, auth Auth) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		now:     time.Now,
	}
}

func (c *Client) FetchLiveGame(ctx context.Context) (livegame.State, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/live-game", c.auth.query(), nil)
	if err != nil {
		return livegame.State{}, err
	}
	st, err := livegame.Decode([]byte(gjson.GetBytes(body, "state").Raw), c.now())
	if err != nil {
		return livegame.State{}, apperr.Upstream(err)
	}
	return st, nil
}

func (c *Client) PutLiveGame(ctx context.Context, state livegame.State) error {
	_, err := c.do(ctx, http.MethodPut, "/api/live-game", c.auth.query(), map[string]any{"state": state})
	return err
}

func (c *Client) ListSessions(ctx context.Context) ([]league.SavedSession, error) {
	var resp struct {
		Sessions []league.SavedSession `json:"sessions"`
	}
	if err := c.getJSON(ctx, "/api/sessions", c.auth.query(), &resp); err != nil {
		return nil, err
	}
	if resp.Sessions == nil {
		resp.Sessions = []league.SavedSession{}
	}
	return resp.Sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, payload league.SessionPayload) (league.SavedSession, error) {
	var resp struct {
		Session league.SavedSession `json:"session"`
	}
	body, err := c.do(ctx, http.MethodPost, "/api/sessions", c.auth.query(), payload)
	if err != nil {
		return league.SavedSession{}, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return league.SavedSession{}, apperr.Upstream(fmt.Errorf("decode session: %w", err))
	}
	return resp.Session, nil
}

func (c *Client) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/sessions/"+id.String(), c.auth.query(), nil)
	return err
}

func (c *Client) ListPlayers(ctx context.Context) ([]league.Player, error) {
	var resp struct {
		Players []league.Player `json:"players"`
	}
	if err := c.getJSON(ctx, "/api/players", c.auth.query(), &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

func (c *Client) AddPlayer(ctx context.Context, name string) (league.Player, error) {
	var resp struct {
		Player league.Player `json:"player"`
	}
	body, err := c.do(ctx, http.MethodPost, "/api/players", c.auth.query(), map[string]string{"name": name})
	if err != nil {
		return league.Player{}, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return league.Player{}, apperr.Upstream(fmt.Errorf("decode player: %w", err))
	}
	return resp.Player, nil
}

func (c *Client) ResolvePublicLeague(ctx context.Context, token string) (league.Summary, error) {
	var resp struct {
		League league.Summary `json:"league"`
	}
	err := c.getJSON(ctx, "/api/public/league", url.Values{"token": {token}}, &resp)
	return resp.League, err
}

func (c *Client) Leaderboard(ctx context.Context, column leaderboard.Column, dir leaderboard.Direction) ([]leaderboard.Row, error) {
	q := c.auth.query()
	q.Set("sort", string(column))
	q.Set("dir", string(dir))
	var resp struct {
		Leaderboard []leaderboard.Row `json:"leaderboard"`
	}
	if err := c.getJSON(ctx, "/api/leaderboard", q, &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

// ScoringConfig returns the scoring rules of the client's league. Members
// read them from their league list, public clients from the token lookup.
func (c *Client) ScoringConfig(ctx context.Context) (league.ScoringConfig, error) {
	if c.auth.BearerToken == "" {
		summary, err := c.ResolvePublicLeague(ctx, c.auth.PublicToken)
		return summary.ScoringConfig, err
	}

	var resp struct {
		Leagues []league.League `json:"leagues"`
	}
	if err := c.getJSON(ctx, "/api/leagues", nil, &resp); err != nil {
		return league.ScoringConfig{}, err
	}
	for _, l := range resp.Leagues {
		if l.ID == c.auth.LeagueID {
			return l.ScoringConfig, nil
		}
	}
	return league.ScoringConfig{}, apperr.NotFound("League not found")
}

// WebsocketURL is the live game subscription endpoint together with the
// headers the dial needs.
func (c *Client) WebsocketURL() (string, http.Header) {
	u := c.baseURL + "/api/live-game/ws?" + c.auth.query().Encode()
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	header := http.Header{}
	if c.auth.BearerToken != "" {
		header.Set("Authorization", "Bearer "+c.auth.BearerToken)
	}
	return u, header
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	body, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Upstream(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Network(fmt.Errorf("rate limit wait: %w", err))
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth.BearerToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("http do: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("read response: %w", err))
	}

	slog.Debug("apiclient request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, statusError(resp.StatusCode, respBody)
}

// statusError maps a failed response onto the apperr kinds, keeping the
// server's message.
func statusError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusBadRequest:
		return apperr.Validation(msg)
	case status == http.StatusUnauthorized:
		return apperr.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperr.Forbidden(msg)
	case status == http.StatusNotFound:
		return apperr.NotFound(msg)
	default:
		return &apperr.Error{Kind: apperr.ErrUpstream, Message: msg, Err: fmt.Errorf("status %d", status)}
	}
}
