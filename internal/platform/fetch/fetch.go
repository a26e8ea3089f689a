// Package fetch is the outbound HTTP helper shared by all source adapters.
// It enforces a per-host minimum interval between calls, opens a per-host
// circuit after repeated failures, and optionally caches successful responses
// in Redis so repeated lookups during development do not burn paid API quota.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	platformredis "deepsearch/internal/platform/redis"
	dErrors "deepsearch/pkg/domain-errors"
	"deepsearch/pkg/platform/circuit"
)

// Response is the subset of an HTTP response adapters care about.
type Response struct {
	StatusCode int
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client issues rate-limited, optionally cached GET requests.
type Client struct {
	http   *http.Client
	cache  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rates    map[string]float64
	breakers map[string]*circuit.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables the Redis response cache. A nil client leaves caching off.
func WithCache(cache *platformredis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.ttl = ttl
	}
}

// WithHostRate sets the allowed request rate for a host, in requests per
// second. Hosts without a configured rate are not throttled.
func WithHostRate(host string, perSec float64) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.rates[host] = perSec
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a fetch client.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		rates:    make(map[string]float64),
		breakers: make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOption adjusts a single request.
type GetOption func(*getOptions)

type getOptions struct {
	headers      http.Header
	disableCache bool
}

// WithHeaders attaches request headers.
func WithHeaders(h http.Header) GetOption {
	return func(o *getOptions) { o.headers = h }
}

// NoCache bypasses the response cache for this request.
func NoCache() GetOption {
	return func(o *getOptions) { o.disableCache = true }
}

// Get issues a GET request to rawURL with the given query parameters. The
// caller's context carries the deadline; the per-host gate may block before
// the request is sent.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, opts ...GetOption) (*Response, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	key := cacheKey(u.String(), o.headers)
	if c.cache != nil && !o.disableCache {
		if resp, ok := c.cacheGet(ctx, key); ok {
			return resp, nil
		}
	}

	breaker := c.hostBreaker(u.Host)
	if breaker.IsOpen() {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "host %s is failing, circuit open", u.Host)
	}

	if err := c.waitHost(ctx, u.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range o.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		c.recordOutcome(ctx, breaker, false)
		return nil, fmt.Errorf("get %s: %w", u.Host, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", u.Host, err)
	}
	c.recordOutcome(ctx, breaker, httpResp.StatusCode < http.StatusInternalServerError)

	resp := &Response{StatusCode: httpResp.StatusCode, Body: body}
	if c.cache != nil && !o.disableCache && resp.StatusCode == http.StatusOK {
		c.cachePut(ctx, key, resp)
	}
	return resp, nil
}

// hostBreaker returns the host's circuit breaker, creating it on first use.
// Transport errors and 5xx responses count as failures; a host that keeps
// failing is skipped outright until it recovers.
func (c *Client) hostBreaker(host string) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[host]
	if !ok {
		b = circuit.New(host)
		c.breakers[host] = b
	}
	return b
}

func (c *Client) recordOutcome(ctx context.Context, b *circuit.Breaker, ok bool) {
	if ok {
		if _, change := b.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "host circuit closed", "host", b.Name())
		}
		return
	}
	if _, change := b.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "host circuit opened", "host", b.Name())
	}
}

// waitHost blocks until the host's minimum inter-call interval has elapsed.
func (c *Client) waitHost(ctx context.Context, host string) error {
	c.mu.Lock()
	limiter, ok := c.limiters[host]
	if !ok {
		perSec, configured := c.rates[host]
		if !configured {
			c.mu.Unlock()
			return nil
		}
		limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		c.limiters[host] = limiter
	}
	c.mu.Unlock()
	return limiter.Wait(ctx)
}

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

func (c *Client) cacheGet(ctx context.Context, key string) (*Response, bool) {
	raw, err := c.cache.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	return &Response{StatusCode: cached.Status, Body: cached.Body}, true
}

func (c *Client) cachePut(ctx context.Context, key string, resp *Response) {
	raw, err := json.Marshal(cachedResponse{Status: resp.StatusCode, Body: resp.Body})
	if err != nil {
		return
	}
	if err := c.cache.Client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "http cache write failed", "error", err.Error())
	}
}

func cacheKey(fullURL string, headers http.Header) string {
	var b strings.Builder
	b.WriteString("fetch:")
	b.WriteString(fullURL)
	// Header order must not change the key.
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.Join(headers[k], ","))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "deepsearch:http:" + hex.EncodeToString(sum[:])
}
