// Package chat answers free-text questions, calling the weather gateway as
// a tool when the model asks for it.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/inference"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// ToolGetWeather is the only tool the router supports.
const ToolGetWeather = "get_weather"

// DefaultLocation is used when the model's routing decision is unusable.
const DefaultLocation = "Ho Chi Minh City"

// WeatherResolver is the weather gateway as seen by the router.
type WeatherResolver interface {
	Resolve(ctx context.Context, q domain.LocationQuery, lang, units string) (domain.WeatherSnapshot, error)
}

// ScenarioReader loads a stored scenario for context.
type ScenarioReader interface {
	Get(ctx context.Context, id string) (domain.Scenario, error)
}

// Request is one chat turn. ScenarioID and LocationName are optional
// context; ScenarioID wins when both are set.
type Request struct {
	Message      string `json:"message"`
	Lang         string `json:"lang,omitempty"`
	ScenarioID   string `json:"scenarioId,omitempty"`
	LocationName string `json:"locationName,omitempty"`
}

// Response is the router's answer.
type Response struct {
	Answer            string   `json:"answer"`
	SuggestedActions  []string `json:"suggestedActions"`
	RelatedScenarioID *string  `json:"relatedScenarioId"`
	LocationName      string   `json:"locationName,omitempty"`
	Lang              string   `json:"lang"`
	ToolUsed          bool     `json:"toolUsed"`
}

type decision struct {
	Action           string   `json:"action"`
	Answer           string   `json:"answer"`
	SuggestedActions []string `json:"suggestedActions"`
	Tool             string   `json:"tool"`
	Location         string   `json:"location"`
}

type answer struct {
	Answer           string   `json:"answer"`
	SuggestedActions []string `json:"suggestedActions"`
}

// Router runs the two-step chat protocol.
type Router struct {
	model           inference.Model
	weather         WeatherResolver
	scenarios       ScenarioReader
	defaultLocation string
	timeout         time.Duration
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewRouter wires a router. A nil model answers every turn with the
// localized fallback text after the weather lookup.
func NewRouter(model inference.Model, weather WeatherResolver, scenarios ScenarioReader, defaultLocation string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Router {
	if strings.TrimSpace(defaultLocation) == "" {
		defaultLocation = DefaultLocation
	}
	if timeout <= 0 {
		timeout = inference.DefaultTimeout
	}
	return &Router{
		model:           model,
		weather:         weather,
		scenarios:       scenarios,
		defaultLocation: defaultLocation,
		timeout:         timeout,
		logger:          logger,
		metrics:         metrics,
	}
}

// Chat answers one turn. Only invalid input and an unknown scenario id are
// returned as errors; weather and model failures degrade into the answer.
func (r *Router) Chat(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	lang := strings.ToLower(strings.TrimSpace(req.Lang))
	if lang == "" {
		lang = "en"
	}

	var (
		resp Response
		err  error
	)
	switch {
	case strings.TrimSpace(req.ScenarioID) != "":
		resp, err = r.withScenario(ctx, message, lang, strings.TrimSpace(req.ScenarioID))
	case strings.TrimSpace(req.LocationName) != "":
		resp = r.withWeather(ctx, message, lang, strings.TrimSpace(req.LocationName))
	default:
		resp = r.route(ctx, message, lang)
	}
	if err != nil {
		return Response{}, err
	}

	resp.Lang = lang
	if resp.SuggestedActions == nil {
		resp.SuggestedActions = []string{}
	}
	r.metrics.ChatTurns.WithLabelValues(strconv.FormatBool(resp.ToolUsed)).Inc()
	return resp, nil
}

// route asks the model whether the turn needs the weather tool.
func (r *Router) route(ctx context.Context, message, lang string) Response {
	raw, err := r.generate(ctx, routePrompt(message, lang))
	if err == nil {
		var d decision
		if obj, jerr := inference.ExtractJSON(raw); jerr == nil && json.Unmarshal([]byte(obj), &d) == nil {
			switch {
			case strings.EqualFold(d.Action, "final") && strings.TrimSpace(d.Answer) != "":
				return Response{Answer: strings.TrimSpace(d.Answer), SuggestedActions: clean(d.SuggestedActions)}
			case strings.EqualFold(d.Action, "tool") && d.Tool == ToolGetWeather && strings.TrimSpace(d.Location) != "":
				return r.withWeather(ctx, message, lang, strings.TrimSpace(d.Location))
			}
		}
		err = fmt.Errorf("unusable routing decision %q", truncate(raw, 200))
	}
	r.logger.Warn("chat routing fallback", "default_location", r.defaultLocation, "error", err)
	return r.withWeather(ctx, message, lang, r.defaultLocation)
}

// withWeather runs the weather tool for location and answers from it. A
// lookup failure produces a clarification request.
func (r *Router) withWeather(ctx context.Context, message, lang, location string) Response {
	resp := Response{LocationName: location, ToolUsed: true}

	q, err := domain.ParseLocationQuery(location)
	var snap domain.WeatherSnapshot
	if err == nil {
		snap, err = r.weather.Resolve(ctx, q, lang, "")
	}
	if err != nil {
		r.logger.Warn("chat weather tool failed", "location", location, "error", err)
		a := r.answer(ctx, clarifyPrompt(message, location, lang), clarification(lang, location))
		resp.Answer, resp.SuggestedActions = a.Answer, a.SuggestedActions
		return resp
	}

	if snap.DisplayName != "" {
		resp.LocationName = snap.DisplayName
	}
	snap.Raw = nil
	facts := map[string]any{
		"scenarioId":   nil,
		"locationName": resp.LocationName,
		"lang":         lang,
		"weather":      snap,
	}
	a := r.answer(ctx, answerPrompt(message, lang, facts), fallbackAnswer(lang))
	resp.Answer, resp.SuggestedActions = a.Answer, a.SuggestedActions
	return resp
}

// withScenario answers from a stored scenario without calling the weather tool.
func (r *Router) withScenario(ctx context.Context, message, lang, id string) (Response, error) {
	sc, err := r.scenarios.Get(ctx, id)
	if err != nil {
		return Response{}, err
	}
	weather := sc.Weather
	if weather != nil {
		w := weather.Clone()
		w.Raw = nil
		weather = &w
	}
	facts := map[string]any{
		"scenarioId":   sc.ID,
		"locationName": sc.LocationName,
		"lang":         sc.Lang,
		"weather":      weather,
		"analysis":     sc.Assessment,
		"resources":    sc.Resources,
		"plan":         sc.Plan,
		"simulation":   sc.Summary,
	}
	a := r.answer(ctx, answerPrompt(message, lang, facts), fallbackAnswer(lang))
	return Response{
		Answer:            a.Answer,
		SuggestedActions:  a.SuggestedActions,
		RelatedScenarioID: &sc.ID,
		LocationName:      sc.LocationName,
	}, nil
}

// answer calls the model for a final answer. Unparseable output is used as
// plain text; a failed call returns fallback.
func (r *Router) answer(ctx context.Context, prompt string, fallback answer) answer {
	raw, err := r.generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("chat answer fallback", "error", err)
		return fallback
	}
	if obj, err := inference.ExtractJSON(raw); err == nil {
		var a answer
		if json.Unmarshal([]byte(obj), &a) == nil && strings.TrimSpace(a.Answer) != "" {
			return answer{Answer: strings.TrimSpace(a.Answer), SuggestedActions: clean(a.SuggestedActions)}
		}
	}
	if text := strings.TrimSpace(raw); text != "" {
		return answer{Answer: text}
	}
	return fallback
}

func (r *Router) generate(ctx context.Context, prompt string) (raw string, err error) {
	if r.model == nil {
		return "", fmt.Errorf("%w: no model configured", domain.ErrMisconfigured)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("model panic: %v", rec)
		}
	}()
	return r.model.Generate(ctx, prompt)
}

func fallbackAnswer(lang string) answer {
	fb := inference.FallbackSimple(lang)
	return answer{Answer: fb.Explanation, SuggestedActions: fb.RecommendedActions}
}

func clarification(lang, location string) answer {
	if lang == "vi" {
		return answer{Answer: fmt.Sprintf("Không tìm thấy thời tiết cho %q. Bạn có thể cho biết rõ tên thành phố và quốc gia không?", location)}
	}
	return answer{Answer: fmt.Sprintf("I couldn't find weather for %q. Could you tell me the city and country?", location)}
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
