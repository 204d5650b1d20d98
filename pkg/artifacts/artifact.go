// Package artifacts models buyer artifacts (generated documents and saved
// outputs) and the stage-scoped projection that decides which of them the
// journey view shows by default.
package artifacts

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can see an artifact.
type Visibility string

const (
	// VisibilityInternal restricts an artifact to the agent side.
	VisibilityInternal Visibility = "internal"
	// VisibilityShared exposes an artifact to the buyer.
	VisibilityShared Visibility = "shared"
)

// Artifact is a saved output associated with a buyer and, optionally, the
// stage that was active when it was created. Artifacts with no stage are
// unscoped and always visible regardless of windowing.
type Artifact struct {
	ID          string     `json:"id"`
	BuyerID     string     `json:"buyer_id"`
	Title       string     `json:"title"`
	StageNumber *int       `json:"stage_number,omitempty"`
	Visibility  Visibility `json:"visibility"`
	Blocks      []Block    `json:"blocks,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewID generates an artifact ID.
func NewID() string {
	return uuid.New().String()
}
