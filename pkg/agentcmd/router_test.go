package agentcmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compass/pkg/journey"
)

func testStage() journey.Stage {
	return journey.Stage{
		Number:    1,
		Name:      "Financial Readiness",
		Objective: "Confirm the buyer can transact at their target price point.",
	}
}

func TestBuildCommandInterpolates(t *testing.T) {
	router, err := NewRouter()
	require.NoError(t, err)

	cmd, err := router.BuildCommand(TriggerGenerateNextSteps, testStage(), "Sarah Chen")
	require.NoError(t, err)
	assert.Contains(t, cmd, "Sarah Chen")
	assert.Contains(t, cmd, "Stage 1 (Financial Readiness)")
	assert.Contains(t, cmd, "Confirm the buyer can transact")
	assert.False(t, strings.HasSuffix(cmd, "\n"), "commands are single trimmed strings")
}

func TestBuildCommandOmitsEmptyObjective(t *testing.T) {
	router, err := NewRouter()
	require.NoError(t, err)

	stage := journey.Stage{Number: 3, Name: "Property Tours"}
	cmd, err := router.BuildCommand(TriggerGenerateNextSteps, stage, "Sarah Chen")
	require.NoError(t, err)
	assert.NotContains(t, cmd, "objective of this stage is:")
}

func TestBuildCommandUnknownTrigger(t *testing.T) {
	router, err := NewRouter()
	require.NoError(t, err)

	_, err = router.BuildCommand(Trigger("launch-rocket"), testStage(), "Sarah Chen")
	assert.Error(t, err)
}

func TestAllTriggersRender(t *testing.T) {
	router, err := NewRouter()
	require.NoError(t, err)

	for _, trigger := range router.Triggers() {
		cmd, err := router.BuildCommand(trigger, testStage(), "Sarah Chen")
		require.NoError(t, err, "trigger %s", trigger)
		assert.NotEmpty(t, cmd)
	}
}

func TestStageJourneyClickDualBehavior(t *testing.T) {
	router, err := NewRouter()
	require.NoError(t, err)

	current := testStage()

	// Clicking the current stage generates a strategy command.
	cmd, navigate, err := router.StageJourneyClick(current, current, "Sarah Chen")
	require.NoError(t, err)
	assert.False(t, navigate)
	assert.Contains(t, cmd, "strategy")
	assert.Contains(t, cmd, "Financial Readiness")

	// Clicking a different stage is a navigation, not a command.
	other := journey.Stage{Number: 4, Name: "Offer Strategy"}
	cmd, navigate, err = router.StageJourneyClick(other, current, "Sarah Chen")
	require.NoError(t, err)
	assert.True(t, navigate)
	assert.Empty(t, cmd)
}
