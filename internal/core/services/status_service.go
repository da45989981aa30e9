package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/cache"
	"communityhub/pkg/validation"
)

// StatusService looks up game server status through the upstream fetcher,
// caching each host:port for a short time
type StatusService struct {
	fetcher     ports.StatusFetcher
	cache       *cache.Cache[domain.ServerStatus]
	defaultHost string
	defaultPort string
	logger      *zap.SugaredLogger
}

func NewStatusService(
	fetcher ports.StatusFetcher,
	defaultHost string,
	defaultPort string,
	ttl time.Duration,
	logger *zap.SugaredLogger,
) *StatusService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatusService{
		fetcher:     fetcher,
		cache:       cache.New[domain.ServerStatus](ttl),
		defaultHost: defaultHost,
		defaultPort: defaultPort,
		logger:      logger,
	}
}

// Lookup returns the status document for host:port with "tps" set to null.
// Empty host or port fall back to the configured server.
func (s *StatusService) Lookup(ctx context.Context, host, port string) (domain.ServerStatus, error) {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	if host == "" {
		host = s.defaultHost
	}
	if port == "" {
		port = s.defaultPort
	}
	if err := validation.ValidateHost(host); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validation.ValidatePort(port); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	key := "status:" + net.JoinHostPort(host, port)
	cached, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (domain.ServerStatus, error) {
		return s.fetcher.Fetch(ctx, host, port)
	})
	if err != nil {
		s.logger.Warnw("Server status lookup failed", "host", host, "port", port, "error", err)
		if errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	status := make(domain.ServerStatus, len(cached)+1)
	for k, v := range cached {
		status[k] = v
	}
	status["tps"] = nil
	return status, nil
}

// Stop stops the cache cleanup
func (s *StatusService) Stop() {
	s.cache.Stop()
}
