// Package inference turns weather and scenario input into a risk assessment
// through a generative model, with a deterministic fallback when the model
// is unavailable or its output does not validate.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
)

// Contract selects the output shape requested from the model.
type Contract = domain.AssessmentKind

const (
	ContractSimple = domain.KindSimple
	ContractFull   = domain.KindFull
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

// errNoModel is the fallback reason when no model is configured.
var errNoModel = errors.New("no model configured")

// Model is a single-turn text completion.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is the input to one inference. ContractFull requires Input;
// without it the simple contract is used.
type Request struct {
	Contract     Contract
	LocationName string
	Input        *domain.SimulationInput
	Weather      *domain.WeatherSnapshot
	Languages    []string
	HorizonHours int
}

// Engine runs inferences against a Model.
type Engine struct {
	model   Model
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an engine. A nil model always takes the fallback path.
func NewEngine(model Model, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{model: model, timeout: timeout, logger: logger, metrics: metrics}
}

// Infer always returns a complete assessment. Model errors, timeouts and
// invalid output are logged and replaced by the deterministic fallback.
func (e *Engine) Infer(ctx context.Context, req Request) domain.Assessment {
	if req.Contract == ContractFull && req.Input == nil {
		req.Contract = ContractSimple
	}
	if req.Contract != ContractFull {
		req.Contract = ContractSimple
	}
	if req.Input != nil && len(req.Languages) == 0 {
		req.Languages = req.Input.Languages
	}

	start := time.Now()
	a, err := e.fromModel(ctx, req)
	if e.model != nil {
		e.metrics.InferenceDuration.WithLabelValues(string(req.Contract)).Observe(time.Since(start).Seconds())
	}
	if err == nil {
		e.metrics.InferenceRequests.WithLabelValues(string(req.Contract), "model").Inc()
		return a
	}

	e.logger.Warn("inference fallback", "contract", req.Contract, "location", req.LocationName, "error", err)
	e.metrics.InferenceRequests.WithLabelValues(string(req.Contract), "fallback").Inc()
	return fallback(req)
}

func (e *Engine) fromModel(ctx context.Context, req Request) (domain.Assessment, error) {
	raw, err := e.generate(ctx, buildPrompt(req))
	if err != nil {
		return domain.Assessment{}, err
	}

	if req.Contract == ContractFull {
		full, err := parseFull(raw, req.Input.Location)
		if err != nil {
			return domain.Assessment{}, err
		}
		return domain.Assessment{Kind: domain.KindFull, Full: full}, nil
	}

	simple, err := parseSimple(raw)
	if err != nil {
		return domain.Assessment{}, err
	}
	return domain.Assessment{Kind: domain.KindSimple, Simple: simple}, nil
}

// generate calls the model under the engine timeout. A panicking adapter is
// reported as an error.
func (e *Engine) generate(ctx context.Context, prompt string) (raw string, err error) {
	if e.model == nil {
		return "", errNoModel
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panic: %v", r)
		}
	}()
	raw, err = e.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return raw, nil
}

func fallback(req Request) domain.Assessment {
	if req.Contract == ContractFull {
		return domain.Assessment{Kind: domain.KindFull, Full: FallbackFull(*req.Input), Fallback: true}
	}
	return domain.Assessment{
		Kind:     domain.KindSimple,
		Simple:   FallbackSimple(domain.PrimaryLanguage(req.Languages)),
		Fallback: true,
	}
}
