package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResponsePlan_PhasesAndWindows(t *testing.T) {
	res := EstimateResources(RiskHigh, []string{"Flooding"})
	plan := BuildResponsePlan(RiskHigh, 36, []string{"Move vehicles to higher ground"}, res)

	require.Len(t, plan.Phases, 3)
	assert.Equal(t, RiskHigh, plan.RiskLevel)
	assert.Equal(t, PhaseImmediate, plan.Phases[0].Phase)
	assert.Equal(t, "6-36h", plan.Phases[1].Window)
	assert.Equal(t, "36-84h", plan.Phases[2].Window)
	assert.Contains(t, plan.Phases[0].Tasks, "Issue evacuation guidance for low-lying and exposed areas")
	assert.Contains(t, plan.Phases[0].Tasks, "Move vehicles to higher ground")
	assert.Contains(t, plan.Phases[2].Tasks, "Register affected households for relief support")
}

func TestBuildResponsePlan_LowRiskIsLean(t *testing.T) {
	plan := BuildResponsePlan(RiskLow, 0, nil, EstimateResources(RiskLow, nil))

	assert.Equal(t, "6-24h", plan.Phases[1].Window)
	assert.Len(t, plan.Phases[0].Tasks, 1)
	assert.Len(t, plan.Phases[2].Tasks, 1)
	assert.Equal(t, "Open 2 shelter(s) and stage 50 medical kits", plan.Phases[1].Tasks[0])
}

func TestGenericResponsePlan(t *testing.T) {
	plan := GenericResponsePlan()
	require.Len(t, plan.Phases, 3)
	assert.Equal(t, []string{"0-6h", "6-24h", "24-72h"},
		[]string{plan.Phases[0].Window, plan.Phases[1].Window, plan.Phases[2].Window})
}
