package progression

import (
	"time"
)

// JumpNotice is the direction metadata carried by a pending jump request,
// used by the UI to phrase the confirmation dialog.
type JumpNotice string

const (
	// NoticeBackwardWarning flags a jump to an earlier stage.
	NoticeBackwardWarning JumpNotice = "backward-warning"
	// NoticeSkipAhead flags a jump past the next stage in order.
	NoticeSkipAhead JumpNotice = "skip-ahead-notice"
)

// JumpRequest is the ephemeral first phase of a two-phase jump. It exists
// only while a user confirmation is pending and is discarded after
// confirm or cancel; raising one mutates nothing.
type JumpRequest struct {
	ID        string     `json:"id"`
	BuyerID   string     `json:"buyer_id"`
	BuyerName string     `json:"buyer_name"`
	FromStage int        `json:"from_stage"`
	ToStage   int        `json:"to_stage"`
	Notice    JumpNotice `json:"notice"`
	CreatedAt time.Time  `json:"created_at"`
}
