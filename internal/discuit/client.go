// Package discuit is a small client for the Discuit content API: session
// bootstrap, login, community search and post creation.
package discuit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"xpost/internal/coordinator"
	"xpost/internal/dispatch"
	"xpost/internal/post"
	logx "xpost/pkg/logx"
)

const csrfHeader = "X-Csrf-Token"

var (
	_ coordinator.Client = (*Client)(nil)
	_ dispatch.Creator   = (*Client)(nil)
)

var ErrNotAuthenticated = errors.New("discuit: not authenticated")

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec int
	UserAgent  string
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("discuit: HTTP %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("discuit: HTTP %d: %s", e.Status, msg)
}

// Client talks to one Discuit instance with a cookie session.
// Requests from all goroutines share one rate limiter.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	ua      string
	log     logx.Logger

	mu     sync.Mutex
	csrf   string
	authed bool
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("discuit: base url is required")
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("discuit: base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "xpost"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout, Jar: jar},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		ua:      ua,
		log:     log,
	}, nil
}

// do sends one JSON request; out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("discuit: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("discuit: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	if c.csrf != "" {
		req.Header.Set(csrfHeader, c.csrf)
	}
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discuit: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Trace("api call", logx.String("method", method), logx.String("path", path), logx.Int("status", resp.StatusCode), logx.Duration("took", time.Since(start)))

	if tok := resp.Header.Get("Csrf-Token"); tok != "" {
		c.mu.Lock()
		c.csrf = tok
		c.mu.Unlock()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(b, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		apiErr.Status = resp.StatusCode
		return resp, apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("discuit: decode %s: %w", path, err)
		}
	}
	return resp, nil
}

// Bootstrap fetches the initial payload, which sets the session cookie and
// the CSRF token every later request must carry.
func (c *Client) Bootstrap(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "_initial", nil, nil, nil)
	return err
}

// Authenticate bootstraps a session and logs in.
func (c *Client) Authenticate(ctx context.Context, userName, password string) error {
	if err := c.Bootstrap(ctx); err != nil {
		return err
	}
	creds := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{userName, password}
	if _, err := c.do(ctx, http.MethodPost, "_login", nil, creds, nil); err != nil {
		return err
	}
	c.mu.Lock()
	c.authed = true
	c.mu.Unlock()
	return nil
}

type community struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveDestinations searches communities matching query.
func (c *Client) ResolveDestinations(ctx context.Context, query string) ([]post.Destination, error) {
	var comms []community
	q := url.Values{"q": {query}, "set": {"all"}}
	if _, err := c.do(ctx, http.MethodGet, "communities", q, nil, &comms); err != nil {
		return nil, err
	}
	out := make([]post.Destination, 0, len(comms))
	for _, cm := range comms {
		if cm.Name == "" {
			continue
		}
		out = append(out, post.Destination{Name: cm.Name, Exact: cm.Name == query})
	}
	return out, nil
}

type createPost struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Community string `json:"community"`
	Body      string `json:"body,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Create creates the post described by item.
func (c *Client) Create(ctx context.Context, item post.WorkItem) error {
	c.mu.Lock()
	authed := c.authed
	c.mu.Unlock()
	if !authed {
		return ErrNotAuthenticated
	}

	req := createPost{Type: string(item.Kind()), Title: item.PostTitle(), Community: item.DestinationName()}
	switch w := item.(type) {
	case post.TextWork:
		req.Body = w.Body
	case post.LinkWork:
		req.URL = w.URL
	case post.ImageWork:
		req.URL = w.URL
	default:
		return fmt.Errorf("%w: %T", post.ErrUnsupportedKind, item)
	}
	_, err := c.do(ctx, http.MethodPost, "posts", nil, req, nil)
	return err
}
