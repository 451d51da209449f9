package domain

import (
	"math"
	"regexp"
)

// resourceBase is the per-risk-level base factor. Unknown levels use LOW.
var resourceBase = map[RiskLevel]float64{
	RiskExtreme: 5,
	RiskHigh:    3,
	RiskMedium:  2,
	RiskLow:     1,
}

// categoryFactors multiply the base when any disaster label matches.
// Patterns cover English and Vietnamese labels. The storm pattern uses a word
// boundary so "thunderstorm" only counts as a thunderstorm.
var categoryFactors = []struct {
	name    string
	pattern *regexp.Regexp
	factor  float64
}{
	{"flood", regexp.MustCompile(`(?i)flood|lũ|ngập`), 1.3},
	{"storm", regexp.MustCompile(`(?i)\bstorm|typhoon|hurricane|cyclone|bão`), 1.4},
	{"thunderstorm", regexp.MustCompile(`(?i)thunder|dông|giông`), 1.2},
	{"landslide", regexp.MustCompile(`(?i)landslide|mudslide|sạt lở`), 1.3},
	{"air_quality", regexp.MustCompile(`(?i)air quality|pollution|smog|ô nhiễm`), 1.1},
}

// Per-category constants and minimums for the resource estimate.
const (
	sheltersPerFactor    = 2
	medicalKitsPerFactor = 50
	waterLitersPerFactor = 2000
	trucksPerFactor      = 2
	volunteersPerFactor  = 20

	minShelters    = 1
	minMedicalKits = 10
	minWaterLiters = 500
	minTrucks      = 1
	minVolunteers  = 5
)

// ResourceEstimate holds relief-resource counts.
type ResourceEstimate struct {
	Shelters    int      `json:"shelters"`
	MedicalKits int      `json:"medicalKits"`
	WaterLiters int      `json:"waterLiters"`
	Trucks      int      `json:"trucks"`
	Volunteers  int      `json:"volunteers"`
	Factor      float64  `json:"factor"`
	Categories  []string `json:"categories,omitempty"`
}

// EstimateResources maps a risk level and disaster labels to resource counts.
// It is pure and never fails.
func EstimateResources(level RiskLevel, disasterLabels []string) ResourceEstimate {
	base, ok := resourceBase[level]
	if !ok {
		base = resourceBase[RiskLow]
	}

	multiplier := 1.0
	var matched []string
	for _, c := range categoryFactors {
		if anyMatch(c.pattern, disasterLabels) {
			multiplier *= c.factor
			matched = append(matched, c.name)
		}
	}
	factor := base * multiplier

	return ResourceEstimate{
		Shelters:    scaled(sheltersPerFactor, factor, minShelters),
		MedicalKits: scaled(medicalKitsPerFactor, factor, minMedicalKits),
		WaterLiters: scaled(waterLitersPerFactor, factor, minWaterLiters),
		Trucks:      scaled(trucksPerFactor, factor, minTrucks),
		Volunteers:  scaled(volunteersPerFactor, factor, minVolunteers),
		Factor:      factor,
		Categories:  matched,
	}
}

func anyMatch(re *regexp.Regexp, labels []string) bool {
	for _, l := range labels {
		if re.MatchString(l) {
			return true
		}
	}
	return false
}

func scaled(constant, factor float64, floor int) int {
	return max(floor, int(math.Round(constant*factor)))
}
