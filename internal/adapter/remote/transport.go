package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

const (
	directName = "direct"

	breakerMaxFailures = 5
	breakerOpenTimeout = 60 * time.Second
	breakerInterval    = 2 * time.Minute
)

// Client is a resty-backed transport for one rule or the direct fallback
type Client struct {
	name    string
	choice  domain.TransportChoice
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logger  *zap.Logger
}

// Ensure Client implements port.Transport
var _ port.Transport = (*Client)(nil)

// NewDirect creates the fallback transport: default settings, no proxy,
// no extra headers and no timeout.
func NewDirect(logger *zap.Logger) *Client {
	r := resty.New()
	r.SetLogger(logger.Sugar())

	return &Client{
		name:    directName,
		choice:  domain.TransportDirect,
		resty:   r,
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logger,
	}
}

// NewClient creates the transport for a rule
func NewClient(rule Rule, logger *zap.Logger) (*Client, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	r := resty.New()
	r.SetLogger(logger.Sugar())

	if rule.Timeout > 0 {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		// Response header timeout (not total download timeout)
		tr.ResponseHeaderTimeout = rule.Timeout
		r.SetTransport(tr)
	}

	choice := domain.TransportDirect
	if rule.Proxy != "" {
		r.SetProxy(rule.Proxy)
		choice = domain.TransportProxied
	}
	for k, v := range rule.Headers {
		r.SetHeader(k, v)
	}

	c := &Client{
		name:    rule.Name,
		choice:  choice,
		resty:   r,
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logger,
	}

	if rule.RateLimit > 0 {
		burst := int(rule.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rule.RateLimit), burst)
	}

	if rule.Breaker {
		c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
			Name:        "fetch:" + rule.Name,
			MaxRequests: 1,
			Interval:    breakerInterval,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerMaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return c, nil
}

// Name returns the rule name
func (c *Client) Name() string {
	return c.name
}

// Choice returns the transport kind
func (c *Client) Choice() domain.TransportChoice {
	return c.choice
}

// Fetch issues a streaming GET. The body is only handed back for 2xx
// responses; everything else is a NetworkError.
func (c *Client) Fetch(ctx context.Context, url string) (*port.RemoteContent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.NewNetworkError(domain.OpFetchToFile, url, fmt.Errorf("rate limit wait: %w", err))
	}

	var resp *resty.Response
	var err error
	if c.breaker != nil {
		resp, err = c.breaker.Execute(func() (*resty.Response, error) {
			return c.get(ctx, url)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s", domain.ErrCircuitOpen, c.name)
		}
	} else {
		resp, err = c.get(ctx, url)
	}
	if err != nil {
		return nil, domain.NewNetworkError(domain.OpFetchToFile, url, err)
	}

	c.logger.Debug("remote response",
		zap.String("url", url),
		zap.String("transport", c.name),
		zap.Int("status", resp.StatusCode()),
		zap.Int64("content_length", resp.RawResponse.ContentLength))

	return &port.RemoteContent{
		Body:          resp.RawBody(),
		ContentLength: resp.RawResponse.ContentLength,
		ContentType:   resp.Header().Get("Content-Type"),
	}, nil
}

func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, err
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		resp.RawBody().Close()
		return nil, fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode())
	}
	return resp, nil
}
