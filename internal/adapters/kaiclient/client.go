// Package kaiclient is the HTTP side of partner imports: it fetches one
// resource at a time on behalf of the kai decoders, presenting the caller's
// token the way each partner expects.
package kaiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/pkg/logger"
	"github.com/okian/scoreimport/pkg/metrics"
)

// OAuth is the client registration used to refresh bearer tokens for one partner.
type OAuth struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Config controls how the client reaches partners.
type Config struct {
	HTTPClient    *http.Client
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxBodyBytes  int64
	// OAuth is keyed by partner name.
	OAuth  map[string]OAuth
	Logger logger.Logger
}

// Client implements kai.Fetcher over HTTP.
type Client struct {
	http    *http.Client
	doer    httpDoer
	limiter *rate.Limiter
	maxBody int64
	oauth   map[string]OAuth
	log     logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]session
	// renewMu serialises refreshes so a rotated refresh token is used once.
	renewMu sync.Mutex
}

// maxSessions bounds the refreshed-token cache; it is cleared when full.
const maxSessions = 4096

// sessionKey identifies the auth document a refreshed token replaces.
type sessionKey struct {
	partner string
	user    string
	token   string
}

// session is the token pair currently in use for one auth document.
type session struct {
	access  string
	refresh string
}

var _ kai.Fetcher = (*Client)(nil)

// New constructs a client from cfg.
func New(cfg Config) *Client {
	hc := resolveHTTPClient(cfg.HTTPClient, cfg.Timeout)
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http:     hc,
		doer:     hc,
		limiter:  resolveLimiter(cfg.RatePerSecond, cfg.Burst),
		maxBody:  resolveMaxBody(cfg.MaxBodyBytes),
		oauth:    cfg.OAuth,
		log:      log.Named("kaiclient"),
		now:      time.Now,
		sessions: make(map[sessionKey]session),
	}
}

// Fetch retrieves url from p. A bearer token rejected with 401 is refreshed
// once when the auth document carries a refresh token and p has an OAuth
// registration. The refreshed pair replaces the document's tokens for later
// fetches, so the pages of one import share a single refresh.
func (c *Client) Fetch(ctx context.Context, p kai.Partner, url string, auth kai.AuthDocument) ([]byte, error) {
	if auth.Token == "" {
		return nil, ErrEmptyAuthToken
	}
	key := sessionKey{partner: p.Name, user: auth.UserID, token: auth.Token}
	cur, ok := c.session(key)
	if !ok {
		cur = session{access: auth.Token, refresh: auth.RefreshToken}
	}
	body, err := c.get(ctx, p, url, cur.access)
	if err == nil || !errors.Is(err, ErrUnauthorized) || p.Auth != kai.AuthBearer || cur.refresh == "" {
		return body, err
	}

	next, rerr := c.renew(ctx, p, key, cur)
	if rerr != nil {
		if errors.Is(rerr, ErrNoRefresh) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: refresh: %w", ErrUnauthorized, rerr)
	}
	return c.get(ctx, p, url, next.access)
}

func (c *Client) session(key sessionKey) (session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	return s, ok
}

func (c *Client) storeSession(key sessionKey, s session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) >= maxSessions {
		clear(c.sessions)
	}
	c.sessions[key] = s
}

// renew refreshes stale unless a concurrent fetch already replaced it.
func (c *Client) renew(ctx context.Context, p kai.Partner, key sessionKey, stale session) (session, error) {
	c.renewMu.Lock()
	defer c.renewMu.Unlock()

	if cur, ok := c.session(key); ok && cur.access != stale.access {
		return cur, nil
	}
	tok, err := c.refresh(ctx, p, stale.refresh)
	if err != nil {
		return session{}, err
	}
	next := session{access: tok.AccessToken, refresh: tok.RefreshToken}
	if next.refresh == "" {
		next.refresh = stale.refresh
	}
	c.storeSession(key, next)
	c.log.Info(ctx, "refreshed partner token", logger.String("partner", p.Name), logger.String("user", key.user))
	return next, nil
}

func (c *Client) get(ctx context.Context, p kai.Partner, url, token string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	switch p.Auth {
	case kai.AuthAPIKey:
		if p.APIKeyHeader == "" {
			return nil, ErrMissingAPIKey
		}
		req.Header.Set(p.APIKeyHeader, token)
	default:
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	start := c.now()
	resp, err := c.doer.Do(req)
	elapsed := float64(c.now().Sub(start).Milliseconds())
	if err != nil {
		metrics.RecordPartnerFetch(p.Name, "error", elapsed)
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordPartnerFetch(p.Name, strconv.Itoa(resp.StatusCode), elapsed)
	c.log.Debug(ctx, "partner fetch",
		logger.String("partner", p.Name),
		logger.String("url", url),
		logger.Int("status", resp.StatusCode),
		logger.Float64("elapsed_ms", elapsed),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Partner: p.Name, RetryAfter: retryAfter(resp.Header.Get("Retry-After"), c.now())}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{Partner: p.Name, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, c.maxBody+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > c.maxBody {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, c.maxBody)
	}
	return buf.Bytes(), nil
}

// refresh exchanges a refresh token for a new access token at p's token endpoint.
func (c *Client) refresh(ctx context.Context, p kai.Partner, refreshToken string) (*oauth2.Token, error) {
	reg, ok := c.oauth[p.Name]
	if !ok || reg.TokenURL == "" {
		return nil, ErrNoRefresh
	}
	conf := &oauth2.Config{
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: reg.TokenURL},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}
