// Package completion tracks per-buyer, per-stage checklist state: which
// completion criteria (by index) a buyer has checked off. Records persist
// across stage moves so earlier stages stay reviewable after advancement.
package completion

import (
	"context"
	"fmt"
	"sync"

	"compass/pkg/journey"
	"compass/pkg/logx"
)

// Store is the persistence collaborator for completion records. Writes are
// durable and strongly consistent per key; transient failures are returned
// to the caller for retry.
type Store interface {
	// LoadCompletionRecords returns the checked criterion indices for a
	// buyer and stage. Missing rows simply don't appear in the map.
	LoadCompletionRecords(ctx context.Context, buyerID string, stageNumber int) (map[int]bool, error)
	// SaveCompletionRecord persists one criterion cell, last write wins.
	SaveCompletionRecord(ctx context.Context, buyerID string, stageNumber int, criterionIndex int, completed bool) error
}

// Progress summarizes checklist state for one buyer and stage, including
// the labels still outstanding so blocked transitions can say why.
type Progress struct {
	Done      int      `json:"done"`
	Total     int      `json:"total"`
	Remaining []string `json:"remaining,omitempty"`
}

// Complete reports whether every criterion is checked. A stage with zero
// criteria is vacuously complete.
func (p Progress) Complete() bool {
	return p.Done >= p.Total
}

// Tracker caches completion cells per (buyer, stage) on top of the store.
// Each cell is its own unit of mutation: cells may be toggled from
// different UI elements without coordination, last write wins.
type Tracker struct {
	store  Store
	logger *logx.Logger

	mu    sync.Mutex
	cache map[cellKey]map[int]bool // (buyer, stage) -> index -> completed
}

type cellKey struct {
	buyerID     string
	stageNumber int
}

// NewTracker creates a completion tracker backed by the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store:  store,
		logger: logx.NewLogger("completion"),
		cache:  make(map[cellKey]map[int]bool),
	}
}

// records returns the cached cell map for a buyer and stage, loading it
// from the store on first access. Caller holds t.mu.
func (t *Tracker) records(ctx context.Context, buyerID string, stageNumber int) (map[int]bool, error) {
	key := cellKey{buyerID: buyerID, stageNumber: stageNumber}
	if cells, ok := t.cache[key]; ok {
		return cells, nil
	}

	cells, err := t.store.LoadCompletionRecords(ctx, buyerID, stageNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load completion records for buyer %s stage %d: %w", buyerID, stageNumber, err)
	}
	if cells == nil {
		cells = make(map[int]bool)
	}
	t.cache[key] = cells
	return cells, nil
}

// IsCriterionCompleted reports whether a criterion cell is checked.
// A missing record defaults to false.
func (t *Tracker) IsCriterionCompleted(ctx context.Context, buyerID string, stageNumber, criterionIndex int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cells, err := t.records(ctx, buyerID, stageNumber)
	if err != nil {
		return false, err
	}
	return cells[criterionIndex], nil
}

// ToggleCriterion sets a criterion cell to the given value. Setting the
// same value twice is a no-op with success. The store write is confirmed
// before the cache is updated, so a failed write never shows as checked.
func (t *Tracker) ToggleCriterion(ctx context.Context, buyerID string, stageNumber, criterionIndex int, completed bool) error {
	if criterionIndex < 0 {
		return fmt.Errorf("criterion index must be non-negative, got %d", criterionIndex)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cells, err := t.records(ctx, buyerID, stageNumber)
	if err != nil {
		return err
	}

	if cells[criterionIndex] == completed {
		return nil
	}

	if err := t.store.SaveCompletionRecord(ctx, buyerID, stageNumber, criterionIndex, completed); err != nil {
		return fmt.Errorf("failed to save completion record for buyer %s stage %d criterion %d: %w",
			buyerID, stageNumber, criterionIndex, err)
	}

	cells[criterionIndex] = completed
	t.logger.Debug("Criterion toggled: buyer=%s stage=%d index=%d completed=%v",
		buyerID, stageNumber, criterionIndex, completed)
	return nil
}

// AllCriteriaCompleted reports whether every index in [0, totalCriteria)
// is checked for the buyer and stage. Zero criteria is vacuously true.
// Stale records beyond totalCriteria are orphaned and ignored.
func (t *Tracker) AllCriteriaCompleted(ctx context.Context, buyerID string, stageNumber, totalCriteria int) (bool, error) {
	if totalCriteria <= 0 {
		return true, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cells, err := t.records(ctx, buyerID, stageNumber)
	if err != nil {
		return false, err
	}

	for i := 0; i < totalCriteria; i++ {
		if !cells[i] {
			return false, nil
		}
	}
	return true, nil
}

// StageProgress computes checklist progress for one stage, naming the
// criteria still outstanding.
func (t *Tracker) StageProgress(ctx context.Context, buyerID string, stage journey.Stage) (Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cells, err := t.records(ctx, buyerID, stage.Number)
	if err != nil {
		return Progress{}, err
	}

	progress := Progress{Total: stage.CriteriaCount()}
	for i, label := range stage.CompletionCriteria {
		if cells[i] {
			progress.Done++
		} else {
			progress.Remaining = append(progress.Remaining, label)
		}
	}
	return progress, nil
}

// Invalidate drops the cached cells for a buyer and stage, forcing a
// reload from the store on next access. Used when records are mutated
// outside this tracker.
func (t *Tracker) Invalidate(buyerID string, stageNumber int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cache, cellKey{buyerID: buyerID, stageNumber: stageNumber})
}
