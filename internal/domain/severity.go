package domain

import (
	"math"
	"strings"
)

// DisasterType is the simulated hazard.
type DisasterType string

const (
	DisasterFlood      DisasterType = "flood"
	DisasterEarthquake DisasterType = "earthquake"
	DisasterHurricane  DisasterType = "hurricane"
	DisasterWildfire   DisasterType = "wildfire"
)

// magnitudeMultiplier turns a Richter magnitude into a severity driver.
const magnitudeMultiplier = 10

// ParseDisasterType normalizes case and common aliases. Unknown types are
// returned as-is (lowercased) and are treated like floods by Severity.
func ParseDisasterType(s string) DisasterType {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "storm", "typhoon", "cyclone", "tropical storm":
		return DisasterHurricane
	case "seismic", "quake":
		return DisasterEarthquake
	case "fire", "bushfire", "forest fire":
		return DisasterWildfire
	default:
		return DisasterType(v)
	}
}

// MaxSeverity caps the severity score so derived counts stay within int range.
const MaxSeverity = 1e9

// Severity computes driver * duration. Negative and missing values clamp to
// zero and the product is capped at MaxSeverity.
func Severity(in SimulationInput) float64 {
	duration := nonNegative(in.Duration)
	var driver float64
	switch ParseDisasterType(string(in.DisasterType)) {
	case DisasterHurricane:
		driver = valueOrZero(in.WindSpeed)
	case DisasterEarthquake:
		driver = valueOrZero(in.Magnitude) * magnitudeMultiplier
	case DisasterWildfire:
		driver = valueOrZero(in.FireSpreadRate)
	default:
		driver = valueOrZero(in.RainfallIntensity)
	}
	return capSeverity(driver * duration)
}

func capSeverity(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return math.Min(s, MaxSeverity)
}

// FallbackKPIs derives floor-clamped KPI counts from a severity score.
func FallbackKPIs(severity float64) KPIs {
	if math.IsNaN(severity) {
		severity = 0
	}
	severity = math.Max(-MaxSeverity, math.Min(severity, MaxSeverity))
	return KPIs{
		HouseholdsAffected: max(50, int(math.Round(200+severity*4))),
		RoadBlockages:      max(1, int(math.Round(5+severity*0.15))),
		SheltersNeeded:     max(100, int(math.Round(300+severity*6))),
	}
}

// FallbackHalfSize is the half-size in degrees of the fallback impact square.
func FallbackHalfSize(severity float64) float64 {
	return math.Min(0.05, math.Max(0.01, severity/20000))
}

// RiskForSeverity buckets a severity score onto the risk scale.
func RiskForSeverity(severity float64) RiskLevel {
	switch {
	case severity >= 600:
		return RiskExtreme
	case severity >= 300:
		return RiskHigh
	case severity >= 100:
		return RiskMedium
	default:
		return RiskLow
	}
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return nonNegative(*p)
}

func nonNegative(f float64) float64 {
	if !isFinite(f) || f < 0 {
		return 0
	}
	return f
}
