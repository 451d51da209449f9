package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScenarioState tracks where a scenario is in its lifecycle.
type ScenarioState string

const (
	StateCreated   ScenarioState = "CREATED"
	StateSimulated ScenarioState = "SIMULATED"
)

// Knobs are the what-if modifiers applied by a re-simulation.
type Knobs struct {
	RainMultiplier *float64 `json:"rainMultiplier,omitempty"`
	WindMultiplier *float64 `json:"windMultiplier,omitempty"`
	DurationHours  *int     `json:"durationHours,omitempty"`
}

// Validate rejects negative or non-finite multipliers and negative durations.
func (k Knobs) Validate() error {
	for name, m := range map[string]*float64{"rainMultiplier": k.RainMultiplier, "windMultiplier": k.WindMultiplier} {
		if m != nil && (!isFinite(*m) || *m < 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidInput, name)
		}
	}
	if k.DurationHours != nil && *k.DurationHours < 0 {
		return fmt.Errorf("%w: durationHours must be non-negative", ErrInvalidInput)
	}
	return nil
}

// SimulationInput is the structured request behind a full simulation.
type SimulationInput struct {
	DisasterType      DisasterType `json:"disasterType"`
	Location          Coordinates  `json:"location"`
	LocationName      string       `json:"locationName,omitempty"`
	Duration          float64      `json:"duration"` // hours
	RainfallIntensity *float64     `json:"rainfallIntensity"`
	WindSpeed         *float64     `json:"windSpeed"`
	Magnitude         *float64     `json:"magnitude"`
	FireSpreadRate    *float64     `json:"fireSpreadRate"`
	Languages         []string     `json:"languages,omitempty"`
}

// Validate checks the fields the pipeline cannot work without.
func (in SimulationInput) Validate() error {
	if strings.TrimSpace(string(in.DisasterType)) == "" {
		return fmt.Errorf("%w: disasterType is required", ErrInvalidInput)
	}
	return in.Location.Validate()
}

// ApplyKnobs returns a copy of the input with rainfall and wind drivers
// scaled and the duration replaced. Missing drivers stay missing.
func (in SimulationInput) ApplyKnobs(k Knobs) SimulationInput {
	out := in
	out.Languages = append([]string(nil), in.Languages...)
	out.RainfallIntensity = scaleFloat(in.RainfallIntensity, k.RainMultiplier)
	out.WindSpeed = scaleFloat(in.WindSpeed, k.WindMultiplier)
	out.Magnitude = copyFloat(in.Magnitude)
	out.FireSpreadRate = copyFloat(in.FireSpreadRate)
	if k.DurationHours != nil {
		out.Duration = float64(*k.DurationHours)
	}
	return out
}

func scaleFloat(v, m *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	if m != nil {
		out *= *m
	}
	return &out
}

// PrimaryLanguage is the first requested language, "en" when none is given.
func (in SimulationInput) PrimaryLanguage() string {
	return PrimaryLanguage(in.Languages)
}

// PrimaryLanguage returns the first non-blank language, defaulting to "en".
func PrimaryLanguage(langs []string) string {
	for _, l := range langs {
		if l = strings.TrimSpace(l); l != "" {
			return strings.ToLower(l)
		}
	}
	return "en"
}

// ResponsePlanLink points the front end at the full plan.
type ResponsePlanLink struct {
	URL        string `json:"url"`
	ScenarioID string `json:"scenarioId"`
}

// SimulationResult is what runSimulation returns and stores as a summary.
type SimulationResult struct {
	SimulationID string           `json:"simulationId"`
	Input        SimulationInput  `json:"input"`
	Languages    []string         `json:"languages"`
	RiskLevel    RiskLevel        `json:"riskLevel"`
	Map          MapView          `json:"map"`
	KPIs         KPIs             `json:"kpis"`
	TopActions   []TopAction      `json:"topActions"`
	Resources    ResourceEstimate `json:"resources"`
	ResponsePlan ResponsePlanLink `json:"responsePlan"`
	Fallback     bool             `json:"fallback"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

// Scenario is the persisted aggregate.
type Scenario struct {
	ID           string            `json:"scenarioId"`
	OwnerID      *string           `json:"ownerId"`
	Location     string            `json:"location"`
	LocationName string            `json:"locationName"`
	Lang         string            `json:"lang"`
	Note         string            `json:"note,omitempty"`
	State        ScenarioState     `json:"state"`
	Input        *SimulationInput  `json:"input,omitempty"`
	Weather      *WeatherSnapshot  `json:"weather,omitempty"`
	Assessment   *Assessment       `json:"assessment,omitempty"`
	Zones        []ImpactZone      `json:"zones"`
	Resources    *ResourceEstimate `json:"resources,omitempty"`
	Plan         *ResponsePlan     `json:"plan,omitempty"`
	Summary      *SimulationResult `json:"summary,omitempty"`
	Knobs        *Knobs            `json:"knobs,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// AccessibleBy reports whether caller may mutate the scenario. Scenarios
// without a recorded owner accept any caller.
func (s Scenario) AccessibleBy(caller string) bool {
	return s.OwnerID == nil || *s.OwnerID == caller
}

// Anchor returns the coordinate zones are centered on: the assessment's map
// center for full simulations, otherwise the weather coordinate.
func (s Scenario) Anchor() *Coordinates {
	if s.Assessment != nil && s.Assessment.Kind == KindFull && s.Assessment.Full != nil {
		c := s.Assessment.Full.Map.Center
		return &Coordinates{Lat: c.Lat, Lon: c.Lng}
	}
	if s.Input != nil {
		c := s.Input.Location
		return &c
	}
	if s.Weather != nil {
		c := s.Weather.Coordinates
		return &c
	}
	return nil
}

// Scenario lifecycle event types.
const (
	EventScenarioCreated   = "scenario.created"
	EventScenarioSimulated = "scenario.simulated"
	EventScenarioDeleted   = "scenario.deleted"
)

// ScenarioEvent announces a scenario mutation to downstream consumers.
type ScenarioEvent struct {
	Type       string    `json:"type"`
	ScenarioID string    `json:"scenario_id"`
	OwnerID    *string   `json:"owner_id,omitempty"`
	RiskLevel  RiskLevel `json:"risk_level,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewScenarioEvent builds an event stamped with the package clock.
func NewScenarioEvent(eventType string, s Scenario) ScenarioEvent {
	ev := ScenarioEvent{
		Type:       eventType,
		ScenarioID: s.ID,
		OwnerID:    s.OwnerID,
		OccurredAt: Now(),
	}
	if s.Assessment != nil {
		ev.RiskLevel = s.Assessment.Level()
	}
	return ev
}
