package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestSeverity_DriverByDisasterType(t *testing.T) {
	cases := []struct {
		name string
		in   SimulationInput
		want float64
	}{
		{"flood", SimulationInput{DisasterType: DisasterFlood, Duration: 12, RainfallIntensity: ptr(35.0)}, 420},
		{"hurricane", SimulationInput{DisasterType: DisasterHurricane, Duration: 6, WindSpeed: ptr(60.0)}, 360},
		{"typhoon alias", SimulationInput{DisasterType: "Typhoon", Duration: 2, WindSpeed: ptr(100.0)}, 200},
		{"earthquake", SimulationInput{DisasterType: DisasterEarthquake, Duration: 12, Magnitude: ptr(5.6)}, 672},
		{"wildfire", SimulationInput{DisasterType: DisasterWildfire, Duration: 10, FireSpreadRate: ptr(2.1)}, 21},
		{"unknown uses rainfall", SimulationInput{DisasterType: "volcano", Duration: 3, RainfallIntensity: ptr(10.0)}, 30},
		{"zero duration", SimulationInput{DisasterType: DisasterFlood, Duration: 0, RainfallIntensity: ptr(35.0)}, 0},
		{"negative rainfall clamps", SimulationInput{DisasterType: DisasterFlood, Duration: 12, RainfallIntensity: ptr(-5.0)}, 0},
		{"negative duration clamps", SimulationInput{DisasterType: DisasterFlood, Duration: -4, RainfallIntensity: ptr(5.0)}, 0},
		{"missing driver", SimulationInput{DisasterType: DisasterHurricane, Duration: 12}, 0},
		{"NaN driver", SimulationInput{DisasterType: DisasterFlood, Duration: 12, RainfallIntensity: ptr(math.NaN())}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Severity(tc.in), 1e-9)
		})
	}
}

func TestFallbackKPIs(t *testing.T) {
	assert.Equal(t, KPIs{HouseholdsAffected: 1880, RoadBlockages: 68, SheltersNeeded: 2820}, FallbackKPIs(420))
	assert.Equal(t, KPIs{HouseholdsAffected: 200, RoadBlockages: 5, SheltersNeeded: 300}, FallbackKPIs(0))
}

func TestFallbackKPIs_FloorsHold(t *testing.T) {
	// Severity is never negative in practice; floors still guard the formulas.
	k := FallbackKPIs(-1000)
	assert.Equal(t, 50, k.HouseholdsAffected)
	assert.Equal(t, 1, k.RoadBlockages)
	assert.Equal(t, 100, k.SheltersNeeded)
}

func TestSeverity_CappedForExtremeInput(t *testing.T) {
	huge := SimulationInput{DisasterType: DisasterFlood, Duration: 1e200, RainfallIntensity: ptr(1e200)}
	assert.InDelta(t, MaxSeverity, Severity(huge), 0)
	assert.Equal(t, RiskExtreme, RiskForSeverity(Severity(huge)))
}

func TestFallbackKPIs_ExtremeSeverityDoesNotOverflow(t *testing.T) {
	for _, s := range []float64{1e12, math.Inf(1), math.MaxFloat64} {
		k := FallbackKPIs(s)
		assert.Equal(t, FallbackKPIs(MaxSeverity), k)
		assert.Greater(t, k.HouseholdsAffected, 1_000_000_000)
		assert.Greater(t, k.SheltersNeeded, k.HouseholdsAffected)
	}
	assert.Equal(t, FallbackKPIs(0), FallbackKPIs(math.NaN()))
	assert.Equal(t, 50, FallbackKPIs(math.Inf(-1)).HouseholdsAffected)
}

func TestFallbackHalfSize_Clamped(t *testing.T) {
	assert.InDelta(t, 0.01, FallbackHalfSize(0), 1e-12)
	assert.InDelta(t, 0.021, FallbackHalfSize(420), 1e-12)
	assert.InDelta(t, 0.05, FallbackHalfSize(5000), 1e-12)
}

func TestRiskForSeverity(t *testing.T) {
	assert.Equal(t, RiskLow, RiskForSeverity(0))
	assert.Equal(t, RiskMedium, RiskForSeverity(100))
	assert.Equal(t, RiskHigh, RiskForSeverity(420))
	assert.Equal(t, RiskExtreme, RiskForSeverity(672))
}
