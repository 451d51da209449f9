package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// ErrInvalidOutput marks model output that parsed but does not satisfy the
// requested contract.
var ErrInvalidOutput = errors.New("invalid model output")

// placeholderDisaster stands in when the model names no disaster.
const placeholderDisaster = "Demo disaster"

const (
	defaultZoom = 12
	defaultIcon = "INFO"
)

type simpleOutput struct {
	RiskLevel          *string  `json:"riskLevel"`
	PossibleDisasters  []string `json:"possibleDisasters"`
	Explanation        string   `json:"explanation"`
	RecommendedActions []string `json:"recommendedActions"`
}

type fullOutput struct {
	RiskLevel         *string  `json:"riskLevel"`
	PossibleDisasters []string `json:"possibleDisasters"`
	FloodPrediction   string   `json:"floodPrediction"`
	Map               *struct {
		Center      *domain.LatLng `json:"center"`
		Zoom        *float64       `json:"zoom"`
		ImpactZones []zoneOutput   `json:"impactZones"`
	} `json:"map"`
	KPIs *struct {
		HouseholdsAffected *float64 `json:"householdsAffected"`
		RoadBlockages      *float64 `json:"roadBlockages"`
		SheltersNeeded     *float64 `json:"sheltersNeeded"`
	} `json:"kpis"`
	TopActions []actionOutput `json:"topActions"`
	Plan       *struct {
		Phases []domain.PlanPhase `json:"phases"`
	} `json:"plan"`
}

type zoneOutput struct {
	Level    string `json:"level"`
	Geometry struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

type actionOutput struct {
	Rank        float64 `json:"rank"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Priority    string  `json:"priority"`
}

// parseSimple validates raw model output against the simple contract.
func parseSimple(raw string) (*domain.SimpleAssessment, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var out simpleOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if out.RiskLevel == nil && out.PossibleDisasters == nil {
		return nil, fmt.Errorf("%w: missing riskLevel and possibleDisasters", ErrInvalidOutput)
	}

	level, disasters, err := riskAndDisasters(out.RiskLevel, out.PossibleDisasters)
	if err != nil {
		return nil, err
	}
	return &domain.SimpleAssessment{
		RiskLevel:          level,
		PossibleDisasters:  disasters,
		Explanation:        strings.TrimSpace(out.Explanation),
		RecommendedActions: cleanStrings(out.RecommendedActions),
	}, nil
}

// parseFull validates raw model output against the full contract. anchor
// replaces a missing or invalid map center.
func parseFull(raw string, anchor domain.Coordinates) (*domain.FullSimulation, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var out fullOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	if out.Map == nil || (out.Map.Center == nil && len(out.Map.ImpactZones) == 0) {
		return nil, fmt.Errorf("%w: missing map", ErrInvalidOutput)
	}
	if out.KPIs == nil || out.KPIs.HouseholdsAffected == nil || out.KPIs.RoadBlockages == nil || out.KPIs.SheltersNeeded == nil {
		return nil, fmt.Errorf("%w: missing kpis", ErrInvalidOutput)
	}

	level, disasters, err := riskAndDisasters(out.RiskLevel, out.PossibleDisasters)
	if err != nil {
		return nil, err
	}
	actions, err := normalizeActions(out.TopActions)
	if err != nil {
		return nil, err
	}

	households, err := count("householdsAffected", *out.KPIs.HouseholdsAffected)
	if err != nil {
		return nil, err
	}
	roads, err := count("roadBlockages", *out.KPIs.RoadBlockages)
	if err != nil {
		return nil, err
	}
	shelters, err := count("sheltersNeeded", *out.KPIs.SheltersNeeded)
	if err != nil {
		return nil, err
	}

	center := domain.LatLng{Lat: anchor.Lat, Lng: anchor.Lon}
	if c := out.Map.Center; c != nil && (domain.Coordinates{Lat: c.Lat, Lon: c.Lng}).Validate() == nil {
		center = *c
	}
	zoom := defaultZoom
	if z := out.Map.Zoom; z != nil && *z >= 1 && *z <= 20 {
		zoom = int(math.Round(*z))
	}

	plan := domain.GenericResponsePlan()
	if out.Plan != nil {
		if phases := cleanPhases(out.Plan.Phases); len(phases) > 0 {
			plan.Phases = phases
		}
	}
	plan.RiskLevel = level

	return &domain.FullSimulation{
		RiskLevel:         level,
		PossibleDisasters: disasters,
		Prediction:        strings.TrimSpace(out.FloodPrediction),
		Map: domain.MapView{
			Center:      center,
			Zoom:        zoom,
			Legend:      domain.DefaultLegend(),
			ImpactZones: normalizeZones(out.Map.ImpactZones, level),
		},
		KPIs: domain.KPIs{
			HouseholdsAffected: households,
			RoadBlockages:      roads,
			SheltersNeeded:     shelters,
		},
		TopActions: actions,
		Plan:       plan,
	}, nil
}

// riskAndDisasters applies the shared degrade rules: an empty disaster list
// becomes the placeholder and an absent level becomes LOW. A level outside
// the scale is rejected.
func riskAndDisasters(rawLevel *string, rawDisasters []string) (domain.RiskLevel, []string, error) {
	level := domain.RiskLow
	if rawLevel != nil {
		l, ok := domain.ParseRiskLevel(*rawLevel)
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown riskLevel %q", ErrInvalidOutput, *rawLevel)
		}
		level = l
	}
	disasters := cleanStrings(rawDisasters)
	if len(disasters) == 0 {
		disasters = []string{placeholderDisaster}
	}
	return level, disasters, nil
}

// normalizeActions keeps the three best-ranked actions with a title and
// renumbers them 1..3.
func normalizeActions(in []actionOutput) ([]domain.TopAction, error) {
	valid := make([]actionOutput, 0, len(in))
	for _, a := range in {
		if strings.TrimSpace(a.Title) != "" {
			valid = append(valid, a)
		}
	}
	if len(valid) < 3 {
		return nil, fmt.Errorf("%w: need 3 topActions, got %d", ErrInvalidOutput, len(valid))
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return rankKey(valid[i].Rank) < rankKey(valid[j].Rank)
	})

	out := make([]domain.TopAction, 3)
	for i, a := range valid[:3] {
		priority, ok := domain.ParseImpactLevel(a.Priority)
		if !ok {
			priority = domain.ImpactMedium
		}
		icon := strings.ToUpper(strings.TrimSpace(a.Icon))
		if icon == "" {
			icon = defaultIcon
		}
		out[i] = domain.TopAction{
			Rank:        i + 1,
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			Icon:        icon,
			Priority:    priority,
		}
	}
	return out, nil
}

// rankKey sorts unranked actions after ranked ones.
func rankKey(r float64) float64 {
	if r <= 0 || math.IsNaN(r) {
		return math.Inf(1)
	}
	return r
}

// normalizeZones drops zones whose geometry is unusable, closes open rings
// and defaults unknown levels from the overall risk.
func normalizeZones(in []zoneOutput, level domain.RiskLevel) []domain.ImpactZone {
	out := make([]domain.ImpactZone, 0, len(in))
	for _, z := range in {
		if z.Geometry.Type != "" && !strings.EqualFold(z.Geometry.Type, "Polygon") {
			continue
		}
		poly, ok := toPolygon(z.Geometry.Coordinates)
		if !ok {
			continue
		}
		zl, ok := domain.ParseImpactLevel(z.Level)
		if !ok {
			zl = domain.ImpactFor(level)
		}
		out = append(out, domain.ImpactZone{Level: zl, Geometry: poly})
	}
	return out
}

func toPolygon(rings [][][]float64) (domain.Polygon, bool) {
	if len(rings) == 0 {
		return domain.Polygon{}, false
	}
	poly := domain.Polygon{Type: "Polygon"}
	for _, ring := range rings {
		r := make([][2]float64, 0, len(ring)+1)
		for _, pt := range ring {
			if len(pt) < 2 || (domain.Coordinates{Lat: pt[1], Lon: pt[0]}).Validate() != nil {
				return domain.Polygon{}, false
			}
			r = append(r, [2]float64{pt[0], pt[1]})
		}
		poly.Coordinates = append(poly.Coordinates, r)
	}
	poly = poly.CloseRings()
	return poly, poly.RingClosed()
}

func cleanPhases(in []domain.PlanPhase) []domain.PlanPhase {
	out := make([]domain.PlanPhase, 0, len(in))
	for _, p := range in {
		tasks := cleanStrings(p.Tasks)
		if len(tasks) == 0 {
			continue
		}
		out = append(out, domain.PlanPhase{
			Phase:  strings.ToUpper(strings.TrimSpace(p.Phase)),
			Window: strings.TrimSpace(p.Window),
			Tasks:  tasks,
		})
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// maxCount bounds model KPI values; anything larger is not a plausible count.
const maxCount = math.MaxInt32

// count rounds a KPI value. Negative values clamp to zero; non-finite or
// implausibly large values are rejected.
func count(field string, f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > maxCount {
		return 0, fmt.Errorf("%w: kpis.%s out of range", ErrInvalidOutput, field)
	}
	if f < 0 {
		return 0, nil
	}
	return int(math.Round(f)), nil
}
