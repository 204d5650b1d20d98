package progression

import "errors"

// Error kinds for blocked transitions. All are recoverable: the caller
// renders them as user feedback and retries or cancels. Callers branch
// with errors.Is; stage-not-configured failures surface
// journey.ErrStageNotConfigured.
var (
	// ErrCriteriaNotMet indicates an advance was blocked because the
	// current stage's checklist is incomplete. Recoverable by completing
	// criteria or using the explicit jump override.
	ErrCriteriaNotMet = errors.New("completion criteria not met")

	// ErrOutOfRange indicates the target stage is below 0, beyond the
	// catalog's highest stage, or equal to the current stage.
	ErrOutOfRange = errors.New("target stage out of range")

	// ErrJumpNotFound indicates a confirm or cancel referenced a jump
	// request that was never raised, already resolved, or went stale.
	ErrJumpNotFound = errors.New("no pending jump request")

	// ErrPersistence indicates the external save failed or timed out.
	// The buyer's in-memory stage is never updated ahead of a confirmed
	// write, so the transition simply did not happen.
	ErrPersistence = errors.New("persistence failure")
)
