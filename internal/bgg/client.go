package bgg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultBaseURL is the XML API v2 root.
	DefaultBaseURL = "https://boardgamegeek.com/xmlapi2"
	defaultTimeout = 30 * time.Second
	defaultRetries = 4
	maxBodyBytes   = 8 << 20
)

// errQueued marks a 202 response: the API accepted the request and will have data later.
var errQueued = errors.New("bgg: request queued")

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL string
	Token   string
	// Interval is the minimum spacing between requests; zero disables throttling.
	Interval time.Duration
	Timeout  time.Duration
	Retries  int
	// InitialBackoff is the first retry delay; it doubles on each attempt.
	InitialBackoff time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client implements Fetcher over HTTP.
type Client struct {
	baseURL  string
	token    string
	interval time.Duration
	retries  int
	backoff  time.Duration
	client   *http.Client
	logger   *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// NewClient creates a throttled, retrying API client.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		interval: opts.Interval,
		retries:  opts.Retries,
		backoff:  opts.InitialBackoff,
		client:   opts.HTTPClient,
		logger:   opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.retries <= 0 {
		c.retries = defaultRetries
	}
	if c.backoff <= 0 {
		c.backoff = 2 * time.Second
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Name identifies the client in logs.
func (c *Client) Name() string { return "bgg" }

// Fetch retrieves and parses details for id, retrying queued, throttled and
// server-error responses with exponential backoff.
func (c *Client) Fetch(ctx context.Context, id int) (*Details, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.backoff
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	var body []byte
	op := func() error {
		if err := c.wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		var err error
		body, err = c.get(ctx, id)
		return err
	}
	notify := func(err error, next time.Duration) {
		c.logger.Debug("retrying details fetch", "id", id, "err", err, "in", next)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("bgg: fetch %d: %w", id, err)
	}

	d, err := Parse(body, id)
	if err != nil {
		return nil, fmt.Errorf("bgg: fetch %d: %w", id, err)
	}
	return d, nil
}

// wait blocks until the minimum interval since the previous request has passed.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.last.IsZero() && c.interval > 0 {
		if d := time.Until(c.last.Add(c.interval)); d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	c.last = time.Now()
	return nil
}

func (c *Client) get(ctx context.Context, id int) ([]byte, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	q.Set("stats", "1")
	q.Set("versions", "1")
	endpoint := c.baseURL + "/thing?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/xml")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusAccepted:
		return nil, errQueued
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("API returned %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(ErrNotFound)
	default:
		return nil, backoff.Permanent(fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
