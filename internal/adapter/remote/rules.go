package remote

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// Rule maps matching source URLs to transport settings.
// Every non-empty matcher must match; a rule without matchers never does.
type Rule struct {
	Name     string
	Contains string // substring of the full URL
	Host     string // doublestar glob over the URL host, e.g. "*.javbus.com"

	Proxy     string
	Headers   map[string]string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
	Breaker   bool
}

// Validate checks the rule can be turned into a transport
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.Contains == "" && r.Host == "" {
		return fmt.Errorf("rule %q: contains or host is required", r.Name)
	}
	if r.Host != "" && !doublestar.ValidatePattern(r.Host) {
		return fmt.Errorf("rule %q: invalid host pattern %q", r.Name, r.Host)
	}
	if r.Proxy != "" {
		u, err := url.Parse(r.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("rule %q: invalid proxy url %q", r.Name, r.Proxy)
		}
	}
	if r.Timeout < 0 {
		return fmt.Errorf("rule %q: timeout must not be negative", r.Name)
	}
	if r.RateLimit < 0 {
		return fmt.Errorf("rule %q: rate limit must not be negative", r.Name)
	}
	return nil
}

// Matches reports whether rawURL is handled by this rule
func (r Rule) Matches(rawURL string) bool {
	if r.Contains == "" && r.Host == "" {
		return false
	}
	if r.Contains != "" && !strings.Contains(rawURL, r.Contains) {
		return false
	}
	if r.Host != "" {
		u, err := url.Parse(rawURL)
		if err != nil || u.Hostname() == "" {
			return false
		}
		ok, err := doublestar.Match(strings.ToLower(r.Host), strings.ToLower(u.Hostname()))
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Selector picks a transport per source URL: the first matching rule wins,
// anything else goes direct.
type Selector struct {
	rules  []Rule
	routes []*Client
	direct *Client
	logger *zap.Logger
}

// Ensure Selector implements port.TransportSelector
var _ port.TransportSelector = (*Selector)(nil)

// NewSelector builds one transport per rule plus the direct fallback
func NewSelector(rules []Rule, logger *zap.Logger) (*Selector, error) {
	s := &Selector{
		direct: NewDirect(logger),
		logger: logger,
	}

	for _, rule := range rules {
		client, err := NewClient(rule, logger)
		if err != nil {
			return nil, err
		}
		s.rules = append(s.rules, rule)
		s.routes = append(s.routes, client)
	}

	return s, nil
}

// Select returns the transport for rawURL
func (s *Selector) Select(rawURL string) port.Transport {
	for i, rule := range s.rules {
		if rule.Matches(rawURL) {
			return s.routes[i]
		}
	}
	return s.direct
}

// Rules returns the configured rule names in match order
func (s *Selector) Rules() []string {
	names := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		names = append(names, r.Name)
	}
	return names
}
