package inference

import (
	"strings"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// fallbackZoom is the map zoom used for deterministic results.
const fallbackZoom = 12

var disasterLabels = map[domain.DisasterType]string{
	domain.DisasterFlood:      "Flooding",
	domain.DisasterHurricane:  "Tropical storm / typhoon / hurricane",
	domain.DisasterEarthquake: "Earthquake",
	domain.DisasterWildfire:   "Wildfire",
}

var topActionTables = map[domain.DisasterType][]domain.TopAction{
	domain.DisasterFlood: {
		{Rank: 1, Title: "Deploy Emergency Services", Description: "Prioritize dispatch to high-impact zones", Icon: "SIREN", Priority: domain.ImpactHigh},
		{Rank: 2, Title: "Establish Shelters", Description: "Activate designated public buildings", Icon: "HOME", Priority: domain.ImpactMedium},
		{Rank: 3, Title: "Communicate Public Alerts", Description: "Issue targeted alerts and evacuation guidance", Icon: "RADIO", Priority: domain.ImpactMedium},
	},
	domain.DisasterHurricane: {
		{Rank: 1, Title: "Issue Evacuation Notices", Description: "Warn coastal and low-lying areas", Icon: "RADIO", Priority: domain.ImpactHigh},
		{Rank: 2, Title: "Pre-position Supplies", Description: "Stage food, water, medical kits", Icon: "BOX", Priority: domain.ImpactMedium},
		{Rank: 3, Title: "Secure Infrastructure", Description: "Protect power and critical facilities", Icon: "SHIELD", Priority: domain.ImpactMedium},
	},
	domain.DisasterEarthquake: {
		{Rank: 1, Title: "Search & Rescue", Description: "Deploy SAR teams to affected areas", Icon: "SIREN", Priority: domain.ImpactHigh},
		{Rank: 2, Title: "Medical Triage", Description: "Set up emergency triage points", Icon: "PLUS", Priority: domain.ImpactHigh},
		{Rank: 3, Title: "Damage Assessment", Description: "Inspect bridges, roads, buildings", Icon: "CLIPBOARD", Priority: domain.ImpactMedium},
	},
	domain.DisasterWildfire: {
		{Rank: 1, Title: "Contain Fire Lines", Description: "Deploy crews for containment", Icon: "FIRE", Priority: domain.ImpactHigh},
		{Rank: 2, Title: "Evacuate At-risk Areas", Description: "Evacuate based on spread direction", Icon: "TRUCK", Priority: domain.ImpactHigh},
		{Rank: 3, Title: "Air Quality Alerts", Description: "Notify vulnerable groups and schools", Icon: "WIND", Priority: domain.ImpactMedium},
	},
}

type localizedText struct {
	explanation string
	actions     []string
}

var simpleFallbackText = map[string]localizedText{
	"en": {
		explanation: "This is a demo simulation. The model response could not be used, so a default mild risk is shown.",
		actions:     []string{"Monitor local weather updates and take care of your health in hot and humid conditions."},
	},
	"vi": {
		explanation: "Đây là mô phỏng demo. Phản hồi của mô hình không thể sử dụng được nên hệ thống hiển thị mức rủi ro mặc định.",
		actions:     []string{"Theo dõi thêm thông tin thời tiết và chăm sóc sức khỏe khi trời oi bức."},
	},
}

// FallbackSimple is the deterministic simple-contract assessment.
func FallbackSimple(lang string) *domain.SimpleAssessment {
	text, ok := simpleFallbackText[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		text = simpleFallbackText["en"]
	}
	return &domain.SimpleAssessment{
		RiskLevel:          domain.RiskLow,
		PossibleDisasters:  []string{placeholderDisaster},
		Explanation:        text.explanation,
		RecommendedActions: append([]string(nil), text.actions...),
	}
}

// FallbackFull computes the full contract from the structured input alone.
// Identical inputs produce identical results.
func FallbackFull(in domain.SimulationInput) *domain.FullSimulation {
	kind := domain.ParseDisasterType(string(in.DisasterType))
	severity := domain.Severity(in)
	level := domain.RiskForSeverity(severity)

	label, ok := disasterLabels[kind]
	if !ok {
		label = placeholderDisaster
	}

	return &domain.FullSimulation{
		RiskLevel:         level,
		PossibleDisasters: []string{label},
		Map: domain.MapView{
			Center: domain.LatLng{Lat: in.Location.Lat, Lng: in.Location.Lon},
			Zoom:   fallbackZoom,
			Legend: domain.DefaultLegend(),
			ImpactZones: []domain.ImpactZone{
				domain.SquareZone(in.Location, domain.FallbackHalfSize(severity), domain.ImpactHigh),
			},
		},
		KPIs:       domain.FallbackKPIs(severity),
		TopActions: TopActionsFor(kind),
		Plan:       domain.GenericResponsePlan(),
	}
}

// TopActionsFor returns a copy of the fixed action table for a disaster
// type. Unknown types get the flood table.
func TopActionsFor(kind domain.DisasterType) []domain.TopAction {
	table, ok := topActionTables[kind]
	if !ok {
		table = topActionTables[domain.DisasterFlood]
	}
	return append([]domain.TopAction(nil), table...)
}
