package journey

import (
	"errors"
	"fmt"
	"sort"
)

// ErrStageNotConfigured indicates a stage number has no catalog entry.
// Callers must treat this as a configuration gap and surface a user-facing
// message, not crash.
var ErrStageNotConfigured = errors.New("stage not yet configured")

// Catalog is the authoritative, immutable stage lookup. There is exactly
// one numbering scheme: the 0-based catalog order. Parallel hardcoded
// name-to-number maps elsewhere are a drift hazard and must not exist.
type Catalog struct {
	stages   []Stage       // Sorted by Number ascending
	byNumber map[int]Stage // Number -> Stage
	maxStage int
}

// NewCatalog builds a catalog from the given stages. Stages are sorted by
// number; duplicate numbers or names are rejected.
func NewCatalog(stages []Stage) (*Catalog, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("catalog requires at least one stage")
	}

	sorted := append([]Stage(nil), stages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	byNumber := make(map[int]Stage, len(sorted))
	names := make(map[string]bool, len(sorted))
	maxStage := 0
	for i := range sorted {
		s := sorted[i]
		if s.Number < 0 {
			return nil, fmt.Errorf("stage %q has negative number %d", s.Name, s.Number)
		}
		if _, dup := byNumber[s.Number]; dup {
			return nil, fmt.Errorf("duplicate stage number %d", s.Number)
		}
		if s.Name == "" {
			return nil, fmt.Errorf("stage %d has empty name", s.Number)
		}
		if names[s.Name] {
			return nil, fmt.Errorf("duplicate stage name %q", s.Name)
		}
		byNumber[s.Number] = s
		names[s.Name] = true
		if s.Number > maxStage {
			maxStage = s.Number
		}
	}

	return &Catalog{stages: sorted, byNumber: byNumber, maxStage: maxStage}, nil
}

// GetStage returns the stage with the given number. A missing entry
// returns ErrStageNotConfigured, never a panic: gaps in the configured
// numbering are a recoverable condition.
func (c *Catalog) GetStage(number int) (Stage, error) {
	s, ok := c.byNumber[number]
	if !ok {
		return Stage{}, fmt.Errorf("stage %d: %w", number, ErrStageNotConfigured)
	}
	return s, nil
}

// ListStages returns all stages ordered by stage number ascending.
// The returned slice is a copy; the catalog itself never mutates.
func (c *Catalog) ListStages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// MaxStageNumber returns the highest configured stage number.
func (c *Catalog) MaxStageNumber() int {
	return c.maxStage
}

// InBounds reports whether a stage number is within [0, MaxStageNumber()].
// A number can be in bounds and still unconfigured when the catalog has
// numbering gaps; use GetStage to resolve the entry.
func (c *Catalog) InBounds(number int) bool {
	return number >= 0 && number <= c.maxStage
}
