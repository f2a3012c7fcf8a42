package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/xmtea/whatsapp-bot/internal/logging"
)

// maxMenuBytes caps the menu document size
const maxMenuBytes = 4 << 20

type HTTPSourceConfig struct {
	URL              string
	Timeout          time.Duration
	BreakerFailures  uint32        // consecutive failures that open the breaker
	BreakerOpenDelay time.Duration // how long the breaker stays open
}

// HTTPSource downloads the menu JSON. Calls go through a circuit breaker so a
// dead menu host is not hit on every cache miss.
type HTTPSource struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Menu]
	log     *slog.Logger
}

func NewHTTPSource(cfg HTTPSourceConfig, client *http.Client) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpenDelay <= 0 {
		cfg.BreakerOpenDelay = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	log := logging.New("catalog_http")
	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[*Menu](gobreaker.Settings{
		Name:        "menu-source",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &HTTPSource{url: cfg.URL, client: client, breaker: breaker, log: log}
}

// Fetch returns ErrUpstreamUnavailable for transport failures, bad statuses,
// undecodable documents and an open breaker.
func (s *HTTPSource) Fetch(ctx context.Context) (*Menu, error) {
	m, err := s.breaker.Execute(func() (*Menu, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return nil, err
	}
	return m, nil
}

func (s *HTTPSource) fetch(ctx context.Context) (*Menu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMenuBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	m, err := ParseMenu(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	s.log.Debug("menu downloaded", "bytes", len(body))
	return m, nil
}
