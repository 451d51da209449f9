// Package scenario coordinates weather lookup, risk inference, zone
// synthesis and resource estimation into persisted scenarios.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/inference"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// ListLimit caps the number of scenarios returned by List.
const ListLimit = 50

// defaultHorizonHours is the planning horizon when no duration knob is set.
const defaultHorizonHours = 24

// Store persists scenarios. Save is an upsert keyed by ID; Get and Delete
// return domain.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, s domain.Scenario) error
	Get(ctx context.Context, id string) (domain.Scenario, error)
	List(ctx context.Context, owner *string, limit int) ([]domain.Scenario, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Publisher announces scenario mutations.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ScenarioEvent) error
}

// WeatherResolver is the weather gateway as seen by the orchestrator.
type WeatherResolver interface {
	Resolve(ctx context.Context, q domain.LocationQuery, lang, units string) (domain.WeatherSnapshot, error)
}

// Inferer produces an assessment. It never fails.
type Inferer interface {
	Infer(ctx context.Context, req inference.Request) domain.Assessment
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Location domain.LocationQuery
	Lang     string
	Note     string
	Owner    *string
}

// FullPlan is the detail view behind a simulation's response-plan link.
type FullPlan struct {
	ScenarioID string                   `json:"scenarioId"`
	Input      *domain.SimulationInput  `json:"input"`
	Summary    *domain.SimulationResult `json:"resultSummary"`
	Plan       *domain.ResponsePlan     `json:"plan"`
	Weather    *domain.WeatherSnapshot  `json:"weather,omitempty"`
}

// Service implements the scenario operations. Writes are last-writer-wins
// per scenario id.
type Service struct {
	store     Store
	weather   WeatherResolver
	engine    Inferer
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService wires a Service. A nil publisher drops events.
func NewService(store Store, weather WeatherResolver, engine Inferer, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{
		store:     store,
		weather:   weather,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the record store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("scenario store: %w", err)
	}
	return nil
}

// Create resolves weather for the location, assesses it and persists the
// result in state CREATED.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Scenario, error) {
	sc, err := s.create(ctx, req)
	s.observe("create", err)
	return sc, err
}

func (s *Service) create(ctx context.Context, req CreateRequest) (domain.Scenario, error) {
	q := req.Location
	if err := q.Validate(); err != nil {
		return domain.Scenario{}, err
	}
	q.Text = strings.TrimSpace(q.Text)
	lang := strings.ToLower(strings.TrimSpace(req.Lang))
	if lang == "" {
		lang = "en"
	}

	snap, err := s.weather.Resolve(ctx, q, lang, "")
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("resolve weather: %w", err)
	}

	now := domain.Now()
	sc := domain.Scenario{
		ID:           uuid.NewString(),
		OwnerID:      req.Owner,
		Location:     q.String(),
		LocationName: displayName(snap.DisplayName, q.String()),
		Lang:         lang,
		Note:         strings.TrimSpace(req.Note),
		State:        domain.StateCreated,
		Weather:      &snap,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.analyze(ctx, &sc, nil, &snap, defaultHorizonHours)

	if err := s.store.Save(ctx, sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("save scenario: %w", err)
	}
	s.publish(ctx, domain.EventScenarioCreated, sc)
	return sc, nil
}

// Get returns a scenario by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Scenario, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Scenario{}, fmt.Errorf("%w: scenario id is required", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// List returns the newest scenarios first, filtered by owner when one is
// given.
func (s *Service) List(ctx context.Context, owner *string) ([]domain.Scenario, error) {
	return s.store.List(ctx, owner, ListLimit)
}

// Delete removes a scenario. A scenario with a recorded owner can only be
// deleted by that owner.
func (s *Service) Delete(ctx context.Context, id, caller string) error {
	err := s.delete(ctx, id, caller)
	s.observe("delete", err)
	return err
}

func (s *Service) delete(ctx context.Context, id, caller string) error {
	sc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !sc.AccessibleBy(caller) {
		return fmt.Errorf("%w: scenario %s", domain.ErrForbidden, id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	s.publish(ctx, domain.EventScenarioDeleted, sc)
	return nil
}

// Simulate re-runs the analysis with what-if knobs applied to the stored
// weather and input. The weather provider is never queried again. Knobs are
// applied to the original observation, so repeated calls do not compound.
func (s *Service) Simulate(ctx context.Context, id, caller string, knobs domain.Knobs) (domain.Scenario, error) {
	sc, err := s.simulate(ctx, id, caller, knobs)
	s.observe("simulate", err)
	return sc, err
}

func (s *Service) simulate(ctx context.Context, id, caller string, knobs domain.Knobs) (domain.Scenario, error) {
	if err := knobs.Validate(); err != nil {
		return domain.Scenario{}, err
	}
	sc, err := s.Get(ctx, id)
	if err != nil {
		return domain.Scenario{}, err
	}
	if !sc.AccessibleBy(caller) {
		return domain.Scenario{}, fmt.Errorf("%w: scenario %s", domain.ErrForbidden, id)
	}

	var weather *domain.WeatherSnapshot
	if sc.Weather != nil {
		w := sc.Weather.ApplyKnobs(knobs)
		weather = &w
	}
	var input *domain.SimulationInput
	horizon := defaultHorizonHours
	if sc.Input != nil {
		in := sc.Input.ApplyKnobs(knobs)
		input = &in
	}
	if knobs.DurationHours != nil {
		horizon = *knobs.DurationHours
	}

	s.analyze(ctx, &sc, input, weather, horizon)
	k := knobs
	sc.Knobs = &k
	sc.State = domain.StateSimulated
	sc.UpdatedAt = domain.Now()

	if err := s.store.Save(ctx, sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("save scenario: %w", err)
	}
	s.publish(ctx, domain.EventScenarioSimulated, sc)
	return sc, nil
}

// RunSimulation runs a full-contract simulation for structured input and
// persists it as an ownerless scenario. A weather failure degrades to
// inference without weather.
func (s *Service) RunSimulation(ctx context.Context, in domain.SimulationInput) (domain.SimulationResult, error) {
	res, err := s.runSimulation(ctx, in)
	s.observe("run", err)
	return res, err
}

func (s *Service) runSimulation(ctx context.Context, in domain.SimulationInput) (domain.SimulationResult, error) {
	if err := in.Validate(); err != nil {
		return domain.SimulationResult{}, err
	}
	in.DisasterType = domain.ParseDisasterType(string(in.DisasterType))
	lang := in.PrimaryLanguage()

	var weather *domain.WeatherSnapshot
	snap, err := s.weather.Resolve(ctx, domain.QueryAt(in.Location.Lat, in.Location.Lon), lang, "")
	if err != nil {
		s.logger.Warn("simulation weather unavailable", "location", in.Location.String(), "error", err)
	} else {
		weather = &snap
	}

	now := domain.Now()
	sc := domain.Scenario{
		ID:           uuid.NewString(),
		Location:     in.Location.String(),
		LocationName: in.LocationName,
		Lang:         lang,
		Note:         "Simulation run: " + string(in.DisasterType),
		State:        domain.StateCreated,
		Input:        &in,
		Weather:      weather,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if sc.LocationName == "" && weather != nil {
		sc.LocationName = weather.DisplayName
	}
	s.analyze(ctx, &sc, &in, weather, horizonFor(in))

	if err := s.store.Save(ctx, sc); err != nil {
		return domain.SimulationResult{}, fmt.Errorf("save simulation: %w", err)
	}
	s.publish(ctx, domain.EventScenarioCreated, sc)
	return *sc.Summary, nil
}

// Plan returns the response plan detail for a scenario.
func (s *Service) Plan(ctx context.Context, id string) (FullPlan, error) {
	sc, err := s.Get(ctx, id)
	if err != nil {
		return FullPlan{}, err
	}
	return FullPlan{
		ScenarioID: sc.ID,
		Input:      sc.Input,
		Summary:    sc.Summary,
		Plan:       sc.Plan,
		Weather:    sc.Weather,
	}, nil
}

// analyze runs inference and derives zones, resources and plan onto sc.
// A non-nil input selects the full contract.
func (s *Service) analyze(ctx context.Context, sc *domain.Scenario, input *domain.SimulationInput, weather *domain.WeatherSnapshot, horizon int) {
	req := inference.Request{
		Contract:     inference.ContractSimple,
		LocationName: sc.LocationName,
		Weather:      weather,
		Languages:    []string{sc.Lang},
		HorizonHours: horizon,
	}
	if input != nil {
		req.Contract = inference.ContractFull
		req.Input = input
		if len(input.Languages) > 0 {
			req.Languages = input.Languages
		}
		horizon = horizonFor(*input)
		req.HorizonHours = horizon
	}

	a := s.engine.Infer(ctx, req)
	sc.Assessment = &a
	level := a.Level()

	zones := a.Zones()
	if len(zones) == 0 {
		zones = domain.SynthesizeZones(sc.Anchor(), level)
	}
	sc.Zones = zones

	res := domain.EstimateResources(level, a.Disasters())
	sc.Resources = &res

	var plan domain.ResponsePlan
	if a.Kind == domain.KindFull && a.Full != nil {
		plan = a.Full.Plan
	} else {
		plan = domain.BuildResponsePlan(level, horizon, a.Actions(), res)
	}
	sc.Plan = &plan

	if input != nil && a.Full != nil {
		sc.Summary = summarize(sc.ID, *input, a, zones, res)
	}
}

func summarize(id string, in domain.SimulationInput, a domain.Assessment, zones []domain.ImpactZone, res domain.ResourceEstimate) *domain.SimulationResult {
	m := a.Full.Map
	m.Legend = domain.DefaultLegend()
	m.ImpactZones = zones
	langs := in.Languages
	if len(langs) == 0 {
		langs = []string{in.PrimaryLanguage()}
	}
	return &domain.SimulationResult{
		SimulationID: id,
		Input:        in,
		Languages:    langs,
		RiskLevel:    a.Full.RiskLevel,
		Map:          m,
		KPIs:         a.Full.KPIs,
		TopActions:   a.Full.TopActions,
		Resources:    res,
		ResponsePlan: domain.ResponsePlanLink{
			URL:        "/api/simulations/" + id + "/plan",
			ScenarioID: id,
		},
		Fallback:    a.Fallback,
		GeneratedAt: domain.Now(),
	}
}

// publish sends an event. Failures are logged and never returned.
func (s *Service) publish(ctx context.Context, eventType string, sc domain.Scenario) {
	ev := domain.NewScenarioEvent(eventType, sc)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish scenario event failed", "type", eventType, "scenario_id", sc.ID, "error", err)
	}
}

func (s *Service) observe(op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	s.metrics.ScenarioOperations.WithLabelValues(op, outcome).Inc()
}

func horizonFor(in domain.SimulationInput) int {
	if in.Duration <= 0 || math.IsNaN(in.Duration) {
		return defaultHorizonHours
	}
	return int(math.Ceil(in.Duration))
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, domain.ScenarioEvent) error { return nil }
