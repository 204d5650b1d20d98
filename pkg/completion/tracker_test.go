package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compass/pkg/journey"
)

// memStore is an in-memory completion store for tests.
type memStore struct {
	records  map[string]map[int]bool // "buyer/stage" -> index -> completed
	saves    int
	failSave error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]map[int]bool)}
}

func (m *memStore) key(buyerID string, stageNumber int) string {
	return fmt.Sprintf("%s/%d", buyerID, stageNumber)
}

func (m *memStore) LoadCompletionRecords(_ context.Context, buyerID string, stageNumber int) (map[int]bool, error) {
	out := make(map[int]bool)
	for idx, v := range m.records[m.key(buyerID, stageNumber)] {
		out[idx] = v
	}
	return out, nil
}

func (m *memStore) SaveCompletionRecord(_ context.Context, buyerID string, stageNumber, criterionIndex int, completed bool) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	key := m.key(buyerID, stageNumber)
	if m.records[key] == nil {
		m.records[key] = make(map[int]bool)
	}
	m.records[key][criterionIndex] = completed
	return nil
}

func TestMissingRecordDefaultsFalse(t *testing.T) {
	tracker := NewTracker(newMemStore())

	done, err := tracker.IsCriterionCompleted(context.Background(), "buyer-1", 1, 0)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestToggleIsIdempotent(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()

	require.NoError(t, tracker.ToggleCriterion(ctx, "buyer-1", 1, 0, true))
	require.NoError(t, tracker.ToggleCriterion(ctx, "buyer-1", 1, 0, true))

	done, err := tracker.IsCriterionCompleted(ctx, "buyer-1", 1, 0)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, store.saves, "second identical toggle must be a no-op")
}

func TestToggleRejectsNegativeIndex(t *testing.T) {
	tracker := NewTracker(newMemStore())
	err := tracker.ToggleCriterion(context.Background(), "buyer-1", 1, -1, true)
	assert.Error(t, err)
}

func TestFailedSaveDoesNotUpdateCache(t *testing.T) {
	store := newMemStore()
	store.failSave = errors.New("disk full")
	tracker := NewTracker(store)
	ctx := context.Background()

	err := tracker.ToggleCriterion(ctx, "buyer-1", 2, 0, true)
	require.Error(t, err)

	done, err := tracker.IsCriterionCompleted(ctx, "buyer-1", 2, 0)
	require.NoError(t, err)
	assert.False(t, done, "unconfirmed write must not show as checked")
}

func TestAllCriteriaCompleted(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()

	// Zero criteria is vacuously complete.
	done, err := tracker.AllCriteriaCompleted(ctx, "buyer-1", 0, 0)
	require.NoError(t, err)
	assert.True(t, done)

	// Three criteria: incomplete at 0, 1, and 2 checked.
	for checked := 0; checked < 3; checked++ {
		done, err = tracker.AllCriteriaCompleted(ctx, "buyer-1", 3, 3)
		require.NoError(t, err)
		assert.False(t, done, "expected incomplete with %d of 3 checked", checked)
		require.NoError(t, tracker.ToggleCriterion(ctx, "buyer-1", 3, checked, true))
	}

	done, err = tracker.AllCriteriaCompleted(ctx, "buyer-1", 3, 3)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestStageProgressNamesRemaining(t *testing.T) {
	tracker := NewTracker(newMemStore())
	ctx := context.Background()
	stage := journey.Stage{
		Number:             1,
		Name:               "Financial Readiness",
		CompletionCriteria: []string{"Confirm pre-approval", "Set budget"},
	}

	progress, err := tracker.StageProgress(ctx, "buyer-1", stage)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Done)
	assert.Equal(t, 2, progress.Total)
	assert.False(t, progress.Complete())
	assert.Equal(t, []string{"Confirm pre-approval", "Set budget"}, progress.Remaining)

	require.NoError(t, tracker.ToggleCriterion(ctx, "buyer-1", 1, 0, true))

	progress, err = tracker.StageProgress(ctx, "buyer-1", stage)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Done)
	assert.Equal(t, []string{"Set budget"}, progress.Remaining)
}

func TestRecordsPersistAcrossStageMoves(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()

	require.NoError(t, tracker.ToggleCriterion(ctx, "buyer-1", 2, 0, true))

	// A fresh tracker over the same store still sees stage 2 records,
	// enabling back-navigation review after the buyer has moved on.
	fresh := NewTracker(store)
	done, err := fresh.IsCriterionCompleted(ctx, "buyer-1", 2, 0)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestInvalidateForcesReload(t *testing.T) {
	store := newMemStore()
	tracker := NewTracker(store)
	ctx := context.Background()

	_, err := tracker.IsCriterionCompleted(ctx, "buyer-1", 0, 0)
	require.NoError(t, err)

	// Mutate behind the tracker's back, then invalidate.
	require.NoError(t, store.SaveCompletionRecord(ctx, "buyer-1", 0, 0, true))
	tracker.Invalidate("buyer-1", 0)

	done, err := tracker.IsCriterionCompleted(ctx, "buyer-1", 0, 0)
	require.NoError(t, err)
	assert.True(t, done)
}
