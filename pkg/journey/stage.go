// Package journey defines the buyer journey stage catalog: the ordered,
// immutable set of stages a buyer moves through and the checklist of
// completion criteria attached to each stage.
package journey

// Stage is one ordered phase of a buyer's transaction journey.
// Catalog entries are seeded once by an administrator and read-only at
// runtime; stage numbers define the total order and are the sole source
// of truth for "forward" vs "backward".
type Stage struct {
	// Number is the 0-based stage number, unique within the catalog.
	Number int `json:"stage_number" yaml:"number"`
	// Name is the display name, unique within the catalog.
	Name string `json:"name" yaml:"name"`
	// Objective is optional free text describing the stage's goal.
	Objective string `json:"objective,omitempty" yaml:"objective,omitempty"`
	// CompletionCriteria is the ordered checklist for this stage.
	// May be empty, in which case the stage is always advance-eligible.
	CompletionCriteria []string `json:"completion_criteria" yaml:"criteria"`
	// Icon is a display glyph, cosmetic only.
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// CriteriaCount returns the number of checklist items for the stage.
func (s *Stage) CriteriaCount() int {
	return len(s.CompletionCriteria)
}

// Criterion returns the checklist label at index, or "" when the index is
// stale (criteria list shrank after records were written). Stale indices
// are tolerated, never a crash.
func (s *Stage) Criterion(index int) string {
	if index < 0 || index >= len(s.CompletionCriteria) {
		return ""
	}
	return s.CompletionCriteria[index]
}
