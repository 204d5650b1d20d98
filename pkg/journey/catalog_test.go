package journey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStages() []Stage {
	return []Stage{
		{Number: 2, Name: "Home Search", CompletionCriteria: []string{"Finalize search criteria"}},
		{Number: 0, Name: "Initial Consultation"},
		{Number: 1, Name: "Financial Readiness", CompletionCriteria: []string{"Confirm pre-approval", "Set budget"}},
	}
}

func TestNewCatalogSortsByNumber(t *testing.T) {
	catalog, err := NewCatalog(testStages())
	require.NoError(t, err)

	stages := catalog.ListStages()
	require.Len(t, stages, 3)
	for i, s := range stages {
		assert.Equal(t, i, s.Number, "stages must be ordered by number ascending")
	}
	assert.Equal(t, 2, catalog.MaxStageNumber())
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Stage{
		{Number: 0, Name: "A"},
		{Number: 0, Name: "B"},
	})
	assert.Error(t, err)

	_, err = NewCatalog([]Stage{
		{Number: 0, Name: "Same"},
		{Number: 1, Name: "Same"},
	})
	assert.Error(t, err)
}

func TestGetStageNotConfigured(t *testing.T) {
	catalog, err := NewCatalog(testStages())
	require.NoError(t, err)

	_, err = catalog.GetStage(7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStageNotConfigured))

	// In-bounds lookups resolve normally.
	stage, err := catalog.GetStage(1)
	require.NoError(t, err)
	assert.Equal(t, "Financial Readiness", stage.Name)
	assert.Equal(t, 2, stage.CriteriaCount())
}

func TestCatalogWithNumberingGap(t *testing.T) {
	catalog, err := NewCatalog([]Stage{
		{Number: 0, Name: "Start"},
		{Number: 2, Name: "End"},
	})
	require.NoError(t, err)

	// Stage 1 is in bounds but unconfigured: a configuration gap, not a crash.
	assert.True(t, catalog.InBounds(1))
	_, err = catalog.GetStage(1)
	assert.True(t, errors.Is(err, ErrStageNotConfigured))
}

func TestStageCriterionStaleIndex(t *testing.T) {
	stage := Stage{Number: 1, Name: "Financial Readiness", CompletionCriteria: []string{"Confirm pre-approval"}}

	assert.Equal(t, "Confirm pre-approval", stage.Criterion(0))
	assert.Equal(t, "", stage.Criterion(5), "stale index returns empty label, not a panic")
	assert.Equal(t, "", stage.Criterion(-1))
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	assert.Equal(t, 9, catalog.MaxStageNumber())
	stages := catalog.ListStages()
	require.Len(t, stages, 10)

	stage, err := catalog.GetStage(1)
	require.NoError(t, err)
	assert.Equal(t, "Financial Readiness", stage.Name)
	assert.Equal(t, []string{"Confirm pre-approval", "Set budget"}, stage.CompletionCriteria)
}

func TestParseCatalogYAML(t *testing.T) {
	seed := []byte(`
stages:
  - number: 0
    name: "Kickoff"
    criteria: ["Meet the agent"]
  - number: 1
    name: "Search"
`)
	catalog, err := ParseCatalogYAML(seed)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.MaxStageNumber())

	_, err = ParseCatalogYAML([]byte("stages: [}"))
	assert.Error(t, err)
}
