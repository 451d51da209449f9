package domain

import "fmt"

// Plan phases in execution order.
const (
	PhaseImmediate = "IMMEDIATE"
	PhaseShortTerm = "SHORT_TERM"
	PhaseRecovery  = "RECOVERY"
)

// PlanPhase is one time-boxed block of the response plan.
type PlanPhase struct {
	Phase  string   `json:"phase"`
	Window string   `json:"window"`
	Tasks  []string `json:"tasks"`
}

// ResponsePlan is the phased response for a scenario.
type ResponsePlan struct {
	RiskLevel RiskLevel   `json:"riskLevel,omitempty"`
	Phases    []PlanPhase `json:"phases"`
}

// GenericResponsePlan is the fixed three-step plan used when the model
// cannot supply one.
func GenericResponsePlan() ResponsePlan {
	return ResponsePlan{
		Phases: []PlanPhase{
			{Phase: PhaseImmediate, Window: "0-6h", Tasks: []string{"Activate the emergency operations center and issue public alerts"}},
			{Phase: PhaseShortTerm, Window: "6-24h", Tasks: []string{"Open shelters and dispatch relief supplies to high-impact zones"}},
			{Phase: PhaseRecovery, Window: "24-72h", Tasks: []string{"Assess damage, restore access routes and support returning residents"}},
		},
	}
}

// BuildResponsePlan phases the recommended actions by risk level. The
// short-term window stretches to cover durationHours when that exceeds a day.
func BuildResponsePlan(level RiskLevel, durationHours int, actions []string, res ResourceEstimate) ResponsePlan {
	shortEnd := max(24, durationHours)

	immediate := []string{"Monitor official weather bulletins and warnings"}
	if level.Rank() >= RiskHigh.Rank() {
		immediate = append(immediate, "Issue evacuation guidance for low-lying and exposed areas")
	}
	immediate = append(immediate, actions...)

	shortTerm := []string{
		fmt.Sprintf("Open %d shelter(s) and stage %d medical kits", res.Shelters, res.MedicalKits),
		fmt.Sprintf("Dispatch %d truck(s) with %d liters of drinking water", res.Trucks, res.WaterLiters),
		fmt.Sprintf("Coordinate %d volunteers across affected wards", res.Volunteers),
	}

	recovery := []string{"Inspect roads, bridges and public buildings"}
	if level.Rank() >= RiskMedium.Rank() {
		recovery = append(recovery, "Register affected households for relief support")
	}

	return ResponsePlan{
		RiskLevel: level,
		Phases: []PlanPhase{
			{Phase: PhaseImmediate, Window: "0-6h", Tasks: immediate},
			{Phase: PhaseShortTerm, Window: fmt.Sprintf("6-%dh", shortEnd), Tasks: shortTerm},
			{Phase: PhaseRecovery, Window: fmt.Sprintf("%d-%dh", shortEnd, shortEnd+48), Tasks: recovery},
		},
	}
}
