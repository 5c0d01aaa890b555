// Package probe provides HTTP adapters that implement health.Probe and
// health.GaugeSource against endpoints returning the fixed probe payload:
//
//	{"responseTime": 42, "uptime": 99.97, "details": "...", "metrics": {"cpu": 31}}
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/selection"
)

// MaxPayloadBytes bounds the response body read from a probe endpoint.
const MaxPayloadBytes = 1 << 20

// DefaultSelectionParam is the query parameter carrying the selection.
const DefaultSelectionParam = "servers"

// Doer sends HTTP requests. *http.Client and *resilience.Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Payload is the wire shape returned by probe endpoints.
type Payload struct {
	ResponseTime *float64           `json:"responseTime"`
	Uptime       *float64           `json:"uptime"`
	Details      string             `json:"details"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Timestamp    *time.Time         `json:"timestamp,omitempty"`
}

// HTTP probes one component over HTTP.
type HTTP struct {
	name   string
	url    *url.URL
	client Doer
	param  string
	now    func() time.Time
}

// Option configures an HTTP probe.
type Option func(*HTTP)

// WithSelectionParam forwards the selection as a comma-separated query
// parameter. Only the External Services probe uses it.
func WithSelectionParam(param string) Option {
	return func(p *HTTP) {
		if param == "" {
			param = DefaultSelectionParam
		}
		p.param = param
	}
}

// NewHTTP creates a probe named name that GETs rawURL through client.
func NewHTTP(name, rawURL string, client Doer, opts ...Option) (*HTTP, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	p := &HTTP{name: name, url: u, client: client, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the component name.
func (p *HTTP) Name() string {
	return p.name
}

// Probe fetches and decodes one reading. A missing responseTime is replaced
// by the measured round trip; a missing uptime is an error.
func (p *HTTP) Probe(ctx context.Context, sel selection.Selection) (health.ComponentReading, error) {
	start := p.now()

	var payload Payload
	if err := getJSON(ctx, p.client, p.target(sel), &payload); err != nil {
		return health.ComponentReading{}, err
	}
	elapsed := p.now().Sub(start)

	if payload.Uptime == nil {
		return health.ComponentReading{}, fmt.Errorf("%w: uptime", ErrMissingField)
	}

	reading := health.ComponentReading{
		Name:          p.name,
		UptimePercent: *payload.Uptime,
		Details:       payload.Details,
		Metrics:       payload.Metrics,
		Timestamp:     start,
	}
	if payload.ResponseTime != nil {
		reading.ResponseTimeMs = *payload.ResponseTime
	} else {
		reading.ResponseTimeMs = float64(elapsed) / float64(time.Millisecond)
	}
	if payload.Timestamp != nil {
		reading.Timestamp = *payload.Timestamp
	}
	return reading, nil
}

func (p *HTTP) target(sel selection.Selection) string {
	if p.param == "" || sel.IsAll() {
		return p.url.String()
	}
	u := *p.url
	q := u.Query()
	q.Set(p.param, strings.Join(sel.IDs(), ","))
	u.RawQuery = q.Encode()
	return u.String()
}

func getJSON(ctx context.Context, client Doer, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, MaxPayloadBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}

var _ health.Probe = (*HTTP)(nil)
