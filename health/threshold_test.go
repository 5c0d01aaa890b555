package health

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		metric MetricType
		value  float64
		want   Status
	}{
		{MetricResponseTime, 0, StatusHealthy},
		{MetricResponseTime, 100, StatusHealthy},
		{MetricResponseTime, 100.01, StatusWarning},
		{MetricResponseTime, 200, StatusWarning},
		{MetricResponseTime, 200.01, StatusCritical},

		{MetricUptime, 100, StatusHealthy},
		{MetricUptime, 99.0, StatusHealthy},
		{MetricUptime, 98.99, StatusWarning},
		{MetricUptime, 98.0, StatusWarning},
		{MetricUptime, 97.99, StatusCritical},

		{MetricCPU, 70, StatusHealthy},
		{MetricCPU, 70.5, StatusWarning},
		{MetricCPU, 85, StatusWarning},
		{MetricCPU, 85.1, StatusCritical},

		{MetricMemory, 75, StatusHealthy},
		{MetricMemory, 76, StatusWarning},
		{MetricMemory, 90, StatusWarning},
		{MetricMemory, 90.1, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.metric, tt.value), "value %v", tt.value)
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	reg := DefaultRegistry()

	for _, band := range reg.Bands() {
		t.Run(string(band.Metric), func(t *testing.T) {
			prev := reg.Classify(band.Metric, 0)
			if band.Direction == AtLeast {
				prev = reg.Classify(band.Metric, 100)
			}
			for step := 1; step <= 4000; step++ {
				v := float64(step) * 0.1
				if band.Direction == AtLeast {
					v = 100 - float64(step)*0.025
				}
				cur := reg.Classify(band.Metric, v)
				require.GreaterOrEqual(t, cur, prev, "status improved at %v", v)
				prev = cur
			}
			assert.Equal(t, StatusCritical, prev)
		})
	}
}

func TestClassify_Totality(t *testing.T) {
	assert.Equal(t, StatusCritical, Classify(MetricResponseTime, math.NaN()))
	assert.Equal(t, StatusCritical, Classify(MetricUptime, math.NaN()))
	assert.Equal(t, StatusCritical, Classify(MetricResponseTime, math.Inf(1)))
	assert.Equal(t, StatusCritical, Classify(MetricUptime, math.Inf(-1)))
	assert.Equal(t, StatusHealthy, Classify(MetricResponseTime, math.Inf(-1)))

	assert.Equal(t, StatusHealthy, Classify("queueDepth", 1e9), "unknown metrics have no opinion")
	assert.Equal(t, StatusCritical, Classify("queueDepth", math.NaN()))
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		bands   []Band
		wantErr error
	}{
		{
			name:    "empty metric",
			bands:   []Band{{Direction: AtMost, Healthy: 1, Warning: 2}},
			wantErr: ErrInvalidBand,
		},
		{
			name:    "unknown direction",
			bands:   []Band{{Metric: "x", Healthy: 1, Warning: 2}},
			wantErr: ErrInvalidBand,
		},
		{
			name:    "at most inverted",
			bands:   []Band{{Metric: "x", Direction: AtMost, Healthy: 10, Warning: 5}},
			wantErr: ErrInvalidBand,
		},
		{
			name:    "at least inverted",
			bands:   []Band{{Metric: "x", Direction: AtLeast, Healthy: 90, Warning: 95}},
			wantErr: ErrInvalidBand,
		},
		{
			name:    "nan bound",
			bands:   []Band{{Metric: "x", Direction: AtMost, Healthy: math.NaN(), Warning: 5}},
			wantErr: ErrInvalidBand,
		},
		{
			name: "duplicate",
			bands: []Band{
				{Metric: "x", Direction: AtMost, Healthy: 1, Warning: 2},
				{Metric: "x", Direction: AtMost, Healthy: 3, Warning: 4},
			},
			wantErr: ErrDuplicateBand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.bands...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_CustomBands(t *testing.T) {
	reg, err := NewRegistry(Band{Metric: MetricResponseTime, Direction: AtMost, Healthy: 10, Warning: 10})
	require.NoError(t, err)

	assert.Equal(t, StatusHealthy, reg.Classify(MetricResponseTime, 10))
	assert.Equal(t, StatusCritical, reg.Classify(MetricResponseTime, 10.5))
	assert.Equal(t, StatusHealthy, reg.Classify(MetricUptime, 0), "no uptime band")
}

func TestRegistry_BandsIsCopy(t *testing.T) {
	reg := DefaultRegistry()
	bands := reg.Bands()
	require.Len(t, bands, 4)

	bands[0].Healthy = 1_000_000
	assert.Equal(t, StatusWarning, reg.Classify(MetricResponseTime, 150))

	band, ok := reg.Band(MetricUptime)
	require.True(t, ok)
	assert.Equal(t, AtLeast, band.Direction)

	_, ok = reg.Band("disk")
	assert.False(t, ok)

	assert.Equal(t, []MetricType{MetricResponseTime, MetricUptime, MetricCPU, MetricMemory}, reg.Metrics())
}

func TestRegistry_ClassifyGauges(t *testing.T) {
	got := DefaultRegistry().ClassifyGauges(map[string]float64{
		GaugeCPU:     80,
		GaugeMemory:  95,
		GaugeDisk:    99,
		GaugeNetwork: 10,
	})

	assert.Equal(t, map[string]Status{
		GaugeCPU:    StatusWarning,
		GaugeMemory: StatusCritical,
	}, got)
}

func TestRegistry_ClassifyReading(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		reading ComponentReading
		want    Status
	}{
		{
			name:    "all healthy",
			reading: ComponentReading{ResponseTimeMs: 40, UptimePercent: 99.9},
			want:    StatusHealthy,
		},
		{
			name:    "slow response",
			reading: ComponentReading{ResponseTimeMs: 150, UptimePercent: 99.9},
			want:    StatusWarning,
		},
		{
			name:    "low uptime dominates",
			reading: ComponentReading{ResponseTimeMs: 150, UptimePercent: 90},
			want:    StatusCritical,
		},
		{
			name: "cpu metric counts",
			reading: ComponentReading{ResponseTimeMs: 40, UptimePercent: 99.9,
				Metrics: map[string]float64{"cpu": 88}},
			want: StatusCritical,
		},
		{
			name: "other metrics ignored",
			reading: ComponentReading{ResponseTimeMs: 40, UptimePercent: 99.9,
				Metrics: map[string]float64{"connections": 10_000}},
			want: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.classifyReading(tt.reading))
		})
	}
}

func TestDirection_MarshalText(t *testing.T) {
	text, err := AtLeast.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "atLeast", string(text))

	_, err = Direction(0).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidBand)
}
