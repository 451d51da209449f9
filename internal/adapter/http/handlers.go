package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/disaster-scenario-service/internal/chat"
	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/scenario"
)

// OwnerHeader carries the caller's opaque identity.
const OwnerHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// ScenarioService is the scenario orchestrator as seen by the API.
type ScenarioService interface {
	Create(ctx context.Context, req scenario.CreateRequest) (domain.Scenario, error)
	Get(ctx context.Context, id string) (domain.Scenario, error)
	List(ctx context.Context, owner *string) ([]domain.Scenario, error)
	Delete(ctx context.Context, id, caller string) error
	Simulate(ctx context.Context, id, caller string, knobs domain.Knobs) (domain.Scenario, error)
	RunSimulation(ctx context.Context, in domain.SimulationInput) (domain.SimulationResult, error)
	Plan(ctx context.Context, id string) (scenario.FullPlan, error)
}

// ChatService answers chat turns.
type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (chat.Response, error)
}

// WeatherService resolves current weather.
type WeatherService interface {
	Resolve(ctx context.Context, q domain.LocationQuery, lang, units string) (domain.WeatherSnapshot, error)
}

// Services groups the application services behind the API.
type Services struct {
	Scenarios ScenarioService
	Chat      ChatService
	Weather   WeatherService
}

type api struct {
	svc    Services
	logger *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

type createScenarioBody struct {
	Location     json.RawMessage `json:"location"`
	LocationName string          `json:"locationName"`
	Lang         string          `json:"lang"`
	Note         string          `json:"note"`
}

// query reads location as a string ("lat,lon" or free text) or as a
// {"lat","lon"} object. locationName is used when location is absent or blank.
func (b createScenarioBody) query() (domain.LocationQuery, error) {
	raw := bytes.TrimSpace(b.Location)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.ParseLocationQuery(b.LocationName)
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.LocationQuery{}, fmt.Errorf("%w: invalid location: %w", domain.ErrInvalidInput, err)
		}
		if strings.TrimSpace(s) == "" {
			return domain.ParseLocationQuery(b.LocationName)
		}
		return domain.ParseLocationQuery(s)
	case '{':
		var c struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return domain.LocationQuery{}, fmt.Errorf("%w: invalid location: %w", domain.ErrInvalidInput, err)
		}
		if c.Lat == nil || c.Lon == nil {
			return domain.LocationQuery{}, fmt.Errorf("%w: location object needs lat and lon", domain.ErrInvalidInput)
		}
		q := domain.QueryAt(*c.Lat, *c.Lon)
		return q, q.Validate()
	}
	return domain.LocationQuery{}, fmt.Errorf("%w: location must be a string or a lat/lon object", domain.ErrInvalidInput)
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scenarios", a.createScenario)
	mux.HandleFunc("GET /api/scenarios", a.listScenarios)
	mux.HandleFunc("GET /api/scenarios/{id}", a.getScenario)
	mux.HandleFunc("DELETE /api/scenarios/{id}", a.deleteScenario)
	mux.HandleFunc("POST /api/scenarios/{id}/simulate", a.simulateScenario)
	mux.HandleFunc("GET /api/scenarios/{id}/zones", a.scenarioZones)
	mux.HandleFunc("GET /api/scenarios/{id}/resources", a.scenarioResources)
	mux.HandleFunc("GET /api/scenarios/{id}/plan", a.scenarioPlan)
	mux.HandleFunc("POST /api/simulations/run", a.runSimulation)
	mux.HandleFunc("GET /api/simulations/{id}/plan", a.simulationPlan)
	mux.HandleFunc("POST /api/chat", a.chat)
	mux.HandleFunc("GET /api/weather", a.weather)
	return mux
}

func (a *api) createScenario(w http.ResponseWriter, r *http.Request) {
	var body createScenarioBody
	if !a.decode(w, r, &body) {
		return
	}
	q, err := body.query()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sc, err := a.svc.Scenarios.Create(r.Context(), scenario.CreateRequest{
		Location: q,
		Lang:     body.Lang,
		Note:     body.Note,
		Owner:    owner(r),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (a *api) listScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Scenarios.List(r.Context(), owner(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) getScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := a.svc.Scenarios.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (a *api) deleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Scenarios.Delete(r.Context(), r.PathValue("id"), r.Header.Get(OwnerHeader)); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *api) simulateScenario(w http.ResponseWriter, r *http.Request) {
	var knobs domain.Knobs
	if !a.decodeOptional(w, r, &knobs) {
		return
	}
	sc, err := a.svc.Scenarios.Simulate(r.Context(), r.PathValue("id"), r.Header.Get(OwnerHeader), knobs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (a *api) scenarioZones(w http.ResponseWriter, r *http.Request) {
	sc, err := a.svc.Scenarios.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, featureCollection(sc.Zones))
}

func (a *api) scenarioResources(w http.ResponseWriter, r *http.Request) {
	sc, err := a.svc.Scenarios.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if sc.Resources == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, sc.Resources)
}

func (a *api) scenarioPlan(w http.ResponseWriter, r *http.Request) {
	sc, err := a.svc.Scenarios.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if sc.Plan == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, sc.Plan)
}

func (a *api) runSimulation(w http.ResponseWriter, r *http.Request) {
	var in domain.SimulationInput
	if !a.decode(w, r, &in) {
		return
	}
	res, err := a.svc.Scenarios.RunSimulation(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) simulationPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := a.svc.Scenarios.Plan(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (a *api) chat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Chat.Chat(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) weather(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := domain.ParseLocationQuery(params.Get("q"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	snap, err := a.svc.Weather.Resolve(r.Context(), q, params.Get("lang"), params.Get("units"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return a.decodeBody(w, r, v, false)
}

// decodeOptional treats an empty body as the zero value.
func (a *api) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	return a.decodeBody(w, r, v, true)
}

func (a *api) decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	a.writeError(w, r, fmt.Errorf("%w: invalid JSON body: %w", domain.ErrInvalidInput, err))
	return false
}

// writeError maps domain sentinels to status codes. Forbidden is reported
// as not found so callers cannot probe for other owners' scenarios.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, msg = http.StatusNotFound, "scenario not found"
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status, msg = http.StatusBadGateway, "upstream provider unavailable"
	case errors.Is(err, domain.ErrMisconfigured):
		msg = "service misconfigured"
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		a.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func owner(r *http.Request) *string {
	if id := strings.TrimSpace(r.Header.Get(OwnerHeader)); id != "" {
		return &id
	}
	return nil
}

type feature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   domain.Polygon    `json:"geometry"`
}

type collection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

func featureCollection(zones []domain.ImpactZone) collection {
	out := collection{Type: "FeatureCollection", Features: make([]feature, 0, len(zones))}
	for _, z := range zones {
		out.Features = append(out.Features, feature{
			Type:       "Feature",
			Properties: map[string]string{"level": string(z.Level)},
			Geometry:   z.Geometry,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
