package statusproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/circuitbreaker"
	"communityhub/pkg/retry"
	"communityhub/pkg/tracing"
)

const maxBodyBytes = 1 << 20

// Client looks up game server status from an mcsrvstat.us compatible API
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	logger  *zap.SugaredLogger
}

var _ ports.StatusFetcher = (*Client)(nil)

// Options tunes the client; zero values fall back to defaults
type Options struct {
	Timeout time.Duration
	Retry   *retry.Config
	Breaker *circuitbreaker.Config
}

func NewClient(baseURL string, opts Options, logger *zap.SugaredLogger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	retryCfg := retry.Config{
		Enabled:      true,
		MaxAttempts:  2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
	if opts.Retry != nil {
		retryCfg = *opts.Retry
	}
	retryCfg.NonRetryableErrors = append(retryCfg.NonRetryableErrors, circuitbreaker.ErrOpen, context.Canceled)

	breakerCfg := circuitbreaker.DefaultConfig()
	if opts.Breaker != nil {
		breakerCfg = *opts.Breaker
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		breaker: circuitbreaker.New(breakerCfg),
		retry:   retryCfg,
		logger:  logger,
	}
	c.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("Status upstream circuit breaker changed state", "from", from.String(), "to", to.String())
	})
	return c
}

// Fetch returns the decoded status document for host:port
func (c *Client) Fetch(ctx context.Context, host, port string) (domain.ServerStatus, error) {
	target := net.JoinHostPort(host, port)
	ctx, span := tracing.TraceUpstreamCall(ctx, "status_lookup", target)
	defer span.End()

	status, err := retry.RetryWithResult(ctx, c.retry, func(ctx context.Context) (domain.ServerStatus, error) {
		return circuitbreaker.Do(ctx, c.breaker, func(ctx context.Context) (domain.ServerStatus, error) {
			return c.get(ctx, target)
		})
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return status, nil
}

// BreakerState exposes the upstream breaker state for health reporting
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}

func (c *Client) get(ctx context.Context, target string) (domain.ServerStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+target, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstream, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "communityhub-status/1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, retry.Permanent(fmt.Errorf("%w: upstream returned %d", domain.ErrUpstream, resp.StatusCode))
	}

	var status domain.ServerStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&status); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: invalid status document: %v", domain.ErrUpstream, err))
	}
	if status == nil {
		return nil, retry.Permanent(fmt.Errorf("%w: empty status document", domain.ErrUpstream))
	}
	return status, nil
}
