package artifacts

// DefaultWindowSize is the trailing number of stages, below the current
// one, whose artifacts stay visible by default.
const DefaultWindowSize = 2

// VisibleArtifacts projects the artifacts the journey view should show.
// With showAll false, an artifact is visible when its stage falls within
// [max(0, currentStage-windowSize), currentStage]; artifacts with no
// stage at all are always visible, never hidden by windowing. With
// showAll true the filter is bypassed entirely.
//
// The projection is pure: the input slice is never mutated, and ordering
// of the result follows the input (display ordering is the caller's
// concern). It is safe to recompute on every stage change.
func VisibleArtifacts(all []Artifact, currentStage, windowSize int, showAll bool) []Artifact {
	if showAll {
		return append([]Artifact(nil), all...)
	}

	if windowSize < 0 {
		windowSize = DefaultWindowSize
	}
	minStage := currentStage - windowSize
	if minStage < 0 {
		minStage = 0
	}

	visible := make([]Artifact, 0, len(all))
	for i := range all {
		a := all[i]
		if a.StageNumber == nil {
			visible = append(visible, a)
			continue
		}
		if *a.StageNumber >= minStage && *a.StageNumber <= currentStage {
			visible = append(visible, a)
		}
	}
	return visible
}
