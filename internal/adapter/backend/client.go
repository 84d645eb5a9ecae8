// Package backend is the HTTP client for the remote flight and subscription API.
// It implements domain.FlightBackend with rate limiting, retries for reads and
// structured error classification.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/retry"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// Operation names used in errors, logs and metrics.
const (
	OpFetchSubscriptions = "fetch_subscriptions"
	OpFetchLinkedRoutes  = "fetch_linked_routes"
	OpSearchFlights      = "search_flights"
	OpAddPassengers      = "add_passengers"
	OpLinkRoutes         = "link_routes"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Config holds the client settings.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com/v1"
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	// Timeout bounds a single round trip
	Timeout time.Duration

	// RequestsPerSecond and Burst shape outbound traffic
	RequestsPerSecond float64
	Burst             int

	// RetryAttempts is the total number of attempts for idempotent reads
	RetryAttempts int
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		RequestsPerSecond: 10,
		Burst:             20,
		RetryAttempts:     retry.BackendReads.MaxAttempts,
	}
}

// Client talks to the flight backend over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	reads   retry.Config
	clock   timeutil.Clock
	log     zerolog.Logger
}

var _ domain.FlightBackend = (*Client)(nil)

// New creates a client. Zero-valued settings fall back to DefaultConfig.
func New(cfg Config, clock timeutil.Clock, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", cfg.BaseURL)
	}

	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if clock == nil {
		clock = timeutil.NewRealClock()
	}

	reads := retry.BackendReads
	reads.MaxAttempts = cfg.RetryAttempts
	reads.RetryIf = domain.IsRetryable

	return &Client{
		baseURL: base.String(),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		reads:   reads,
		clock:   clock,
		log:     log.With().Str("component", "backend").Logger(),
	}, nil
}

// FetchSubscriptions lists the user's subscriptions.
func (c *Client) FetchSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	subs, err := retry.Do(ctx, c.reads, func(ctx context.Context) ([]wireSubscription, error) {
		var out []wireSubscription
		err := c.do(ctx, OpFetchSubscriptions, http.MethodGet, "/subscriptions", nil, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return normalizeSubscriptions(subs, c.clock.Now()), nil
}

// FetchLinkedRoutes lists the routes a subscription may fly.
func (c *Client) FetchLinkedRoutes(ctx context.Context, subscriptionID string) ([]domain.RoutePair, error) {
	if subscriptionID == "" {
		return nil, domain.WrapInvalidRequest("subscription ID is required")
	}

	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/routes"
	routes, err := retry.Do(ctx, c.reads, func(ctx context.Context) ([]wireRoute, error) {
		var out []wireRoute
		err := c.do(ctx, OpFetchLinkedRoutes, http.MethodGet, path, nil, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return normalizeRoutes(routes), nil
}

// SearchFlights runs a search. A search is never retried here.
func (c *Client) SearchFlights(ctx context.Context, req domain.SearchRequest) (domain.SearchLegs, error) {
	var out wireSearchResponse
	if err := c.do(ctx, OpSearchFlights, http.MethodPost, "/flights/search", encodeSearchRequest(req), &out); err != nil {
		if isNoResults(err) {
			return domain.SearchLegs{}, fmt.Errorf("%w: %w", domain.ErrNoResults, err)
		}
		return domain.SearchLegs{}, err
	}

	skipped := func(id string, err error) {
		c.log.Warn().Str("flight_id", id).Err(err).Msg("Skipping malformed flight")
	}
	return domain.SearchLegs{
		Outbound: normalizeFlights(out.Outbound, skipped),
		Return:   normalizeFlights(out.Return, skipped),
	}, nil
}

// AddPassengersToSubscription commits passenger attachments.
func (c *Client) AddPassengersToSubscription(ctx context.Context, subscriptionID string, passengerIDs []string) error {
	if subscriptionID == "" || len(passengerIDs) == 0 {
		return domain.WrapInvalidRequest("subscription ID and passengers are required")
	}
	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/passengers"
	return c.do(ctx, OpAddPassengers, http.MethodPost, path, wirePassengerLink{PassengerIDs: passengerIDs}, nil)
}

// LinkRoutesToSubscription commits route attachments.
func (c *Client) LinkRoutesToSubscription(ctx context.Context, subscriptionID string, routeIDs []string) error {
	if subscriptionID == "" || len(routeIDs) == 0 {
		return domain.WrapInvalidRequest("subscription ID and routes are required")
	}
	path := "/subscriptions/" + url.PathEscape(subscriptionID) + "/routes"
	return c.do(ctx, OpLinkRoutes, http.MethodPost, path, wireRouteLink{RouteIDs: routeIDs}, nil)
}

// do performs one rate-limited round trip and decodes the data envelope into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewTransportError(op, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("op", op).Err(err).Dur("duration", time.Since(start)).Msg("Backend call failed")
		return domain.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewTransportError(op, err)
	}

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend call completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return malformed(op, resp.StatusCode, err)
	}
	if env.Error != nil {
		return decodeError(op, resp.StatusCode, data)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return malformed(op, resp.StatusCode, err)
	}
	return nil
}

func malformed(op string, status int, err error) *domain.BackendError {
	return &domain.BackendError{
		Operation:  op,
		StatusCode: status,
		Code:       codeMalformedResponse,
		Err:        fmt.Errorf("decode response: %w", err),
	}
}

// IsTimeout reports whether err is a client-side deadline or timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
