package domain

import "strings"

// RiskLevel is the four-level ordered risk scale.
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

// RiskLevels lists every level in ascending order.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskExtreme}

// ParseRiskLevel normalizes case and whitespace. The second return is false
// for anything outside the four known levels.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch l := RiskLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case RiskLow, RiskMedium, RiskHigh, RiskExtreme:
		return l, true
	default:
		return "", false
	}
}

// Rank orders levels LOW=0 < MEDIUM=1 < HIGH=2 < EXTREME=3. Unknown values rank as LOW.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskExtreme:
		return 3
	default:
		return 0
	}
}

// ImpactLevel is the three-level scale used for map zones and action priority.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "LOW"
	ImpactMedium ImpactLevel = "MEDIUM"
	ImpactHigh   ImpactLevel = "HIGH"
)

// ParseImpactLevel normalizes case; unknown values report false.
func ParseImpactLevel(s string) (ImpactLevel, bool) {
	switch l := ImpactLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return l, true
	default:
		return "", false
	}
}

// ImpactFor collapses a risk level onto the impact scale.
func ImpactFor(r RiskLevel) ImpactLevel {
	switch r {
	case RiskExtreme, RiskHigh:
		return ImpactHigh
	case RiskMedium:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// AssessmentKind tags which contract an Assessment carries.
type AssessmentKind string

const (
	KindSimple AssessmentKind = "simple"
	KindFull   AssessmentKind = "full"
)

// SimpleAssessment is the lightweight risk contract.
type SimpleAssessment struct {
	RiskLevel          RiskLevel `json:"riskLevel"`
	PossibleDisasters  []string  `json:"possibleDisasters"`
	Explanation        string    `json:"explanation"`
	RecommendedActions []string  `json:"recommendedActions"`
}

// LatLng is the map-center shape expected by the front end.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LegendEntry labels one impact level on the map.
type LegendEntry struct {
	Level ImpactLevel `json:"level"`
	Label string      `json:"label"`
}

// DefaultLegend is the fixed HIGH/MEDIUM/LOW legend.
func DefaultLegend() []LegendEntry {
	return []LegendEntry{
		{Level: ImpactHigh, Label: "High Impact"},
		{Level: ImpactMedium, Label: "Medium Impact"},
		{Level: ImpactLow, Label: "Low Impact"},
	}
}

// MapView is the map block of a full simulation.
type MapView struct {
	Center      LatLng        `json:"center"`
	Zoom        int           `json:"zoom"`
	Legend      []LegendEntry `json:"legend,omitempty"`
	ImpactZones []ImpactZone  `json:"impactZones"`
}

// KPIs are the headline impact counts.
type KPIs struct {
	HouseholdsAffected int `json:"householdsAffected"`
	RoadBlockages      int `json:"roadBlockages"`
	SheltersNeeded     int `json:"sheltersNeeded"`
}

// TopAction is one of exactly three ranked recommendations.
type TopAction struct {
	Rank        int         `json:"rank"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Priority    ImpactLevel `json:"priority"`
}

// FullSimulation is the rich simulation contract.
type FullSimulation struct {
	RiskLevel         RiskLevel    `json:"riskLevel"`
	PossibleDisasters []string     `json:"possibleDisasters"`
	Prediction        string       `json:"floodPrediction,omitempty"` // model narrative, not validated
	Map               MapView      `json:"map"`
	KPIs              KPIs         `json:"kpis"`
	TopActions        []TopAction  `json:"topActions"`
	Plan              ResponsePlan `json:"plan"`
}

// Assessment is a tagged union of the two inference contracts. Exactly one
// of Simple and Full is set, matching Kind. Fallback reports whether the
// deterministic path produced it.
type Assessment struct {
	Kind     AssessmentKind    `json:"kind"`
	Simple   *SimpleAssessment `json:"simple,omitempty"`
	Full     *FullSimulation   `json:"full,omitempty"`
	Fallback bool              `json:"fallback"`
}

// Level returns the assessment's risk level, LOW when unset.
func (a Assessment) Level() RiskLevel {
	var l RiskLevel
	switch {
	case a.Kind == KindFull && a.Full != nil:
		l = a.Full.RiskLevel
	case a.Simple != nil:
		l = a.Simple.RiskLevel
	}
	if l == "" {
		return RiskLow
	}
	return l
}

// Disasters returns the possible-disaster labels.
func (a Assessment) Disasters() []string {
	switch {
	case a.Kind == KindFull && a.Full != nil:
		return a.Full.PossibleDisasters
	case a.Simple != nil:
		return a.Simple.PossibleDisasters
	}
	return nil
}

// Zones returns model- or fallback-supplied zones; nil for the simple contract.
func (a Assessment) Zones() []ImpactZone {
	if a.Kind == KindFull && a.Full != nil {
		return a.Full.Map.ImpactZones
	}
	return nil
}

// Actions flattens the recommendations into plain sentences.
func (a Assessment) Actions() []string {
	switch {
	case a.Kind == KindFull && a.Full != nil:
		out := make([]string, 0, len(a.Full.TopActions))
		for _, act := range a.Full.TopActions {
			out = append(out, act.Title)
		}
		return out
	case a.Simple != nil:
		return a.Simple.RecommendedActions
	}
	return nil
}
