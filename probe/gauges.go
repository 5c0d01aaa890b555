package probe

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jonwraymond/healthops/health"
)

// HTTPGauges reads system gauges from an endpoint returning a flat JSON
// object such as {"cpu": 41.2, "memory": 63.0, "disk": 70.1, "network": 12.5}.
type HTTPGauges struct {
	url    string
	client Doer
}

// NewHTTPGauges creates a gauge source reading rawURL through client.
func NewHTTPGauges(rawURL string, client Doer) (*HTTPGauges, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if client == nil {
		return nil, ErrNilClient
	}
	return &HTTPGauges{url: u.String(), client: client}, nil
}

// Gauges fetches the gauges. Keys other than cpu, memory, disk and network
// are dropped.
func (g *HTTPGauges) Gauges(ctx context.Context) (map[string]float64, error) {
	var raw map[string]float64
	if err := getJSON(ctx, g.client, g.url, &raw); err != nil {
		return nil, err
	}

	out := make(map[string]float64, 4)
	for _, key := range []string{health.GaugeCPU, health.GaugeMemory, health.GaugeDisk, health.GaugeNetwork} {
		if v, ok := raw[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

var _ health.GaugeSource = (*HTTPGauges)(nil)
