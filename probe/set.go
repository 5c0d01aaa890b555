package probe

import (
	"github.com/jonwraymond/healthops/health"
)

// Endpoints holds one URL per known component plus the gauge endpoint.
// An empty URL leaves that component without a probe.
type Endpoints struct {
	Database         string `yaml:"database" env:"HEALTHOPS_PROBE_DATABASE"`
	APIServer        string `yaml:"api_server" env:"HEALTHOPS_PROBE_API_SERVER"`
	ExternalServices string `yaml:"external_services" env:"HEALTHOPS_PROBE_EXTERNAL_SERVICES"`
	MessageQueue     string `yaml:"message_queue" env:"HEALTHOPS_PROBE_MESSAGE_QUEUE"`
	Gauges           string `yaml:"gauges" env:"HEALTHOPS_PROBE_GAUGES"`
}

// ClientFactory returns the HTTP client used for the named upstream.
type ClientFactory func(name string) Doer

// Build creates the HTTP probes and gauge source for ep. The gauge source is
// nil when ep.Gauges is empty.
func Build(ep Endpoints, clients ClientFactory) ([]health.Probe, health.GaugeSource, error) {
	targets := []struct {
		name string
		url  string
		opts []Option
	}{
		{health.ComponentDatabase, ep.Database, nil},
		{health.ComponentAPIServer, ep.APIServer, nil},
		{health.ComponentExternalServices, ep.ExternalServices, []Option{WithSelectionParam(DefaultSelectionParam)}},
		{health.ComponentMessageQueue, ep.MessageQueue, nil},
	}

	probes := make([]health.Probe, 0, len(targets))
	for _, t := range targets {
		if t.url == "" {
			continue
		}
		p, err := NewHTTP(t.name, t.url, clients(t.name), t.opts...)
		if err != nil {
			return nil, nil, err
		}
		probes = append(probes, p)
	}

	if ep.Gauges == "" {
		return probes, nil, nil
	}
	gauges, err := NewHTTPGauges(ep.Gauges, clients("gauges"))
	if err != nil {
		return nil, nil, err
	}
	return probes, gauges, nil
}
