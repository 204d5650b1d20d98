// Package progression implements the buyer stage progression engine: a
// per-buyer state machine over the stage catalog that validates advance,
// retreat, and confirmation-gated jump transitions, and persists the
// resulting stage pointer through an external store.
package progression

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"compass/pkg/completion"
	"compass/pkg/journey"
	"compass/pkg/logx"
)

// maxHistory caps the per-buyer transition log.
const maxHistory = 100

// Direction labels a transition relative to catalog order.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionJump     Direction = "jump"
)

// Buyer is the engine's view of the external buyer entity. CurrentStage
// is mutated only by engine transitions.
type Buyer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrentStage int    `json:"current_stage"`
}

// Store is the persistence collaborator for buyer stage pointers.
// Writes are durable and may fail transiently; the engine reports such
// failures as ErrPersistence and leaves the buyer unchanged.
type Store interface {
	LoadBuyer(ctx context.Context, buyerID string) (Buyer, error)
	SaveBuyerStage(ctx context.Context, buyerID string, stageNumber int) error
}

// CriteriaChecker is the completion gate consulted before an advance.
type CriteriaChecker interface {
	AllCriteriaCompleted(ctx context.Context, buyerID string, stageNumber, totalCriteria int) (bool, error)
	StageProgress(ctx context.Context, buyerID string, stage journey.Stage) (completion.Progress, error)
}

// Recorder receives transition observations for metrics. Implementations
// must not block.
type Recorder interface {
	ObserveTransition(direction, status string, elapsed time.Duration)
}

// Summary describes a committed transition for notification purposes.
// Text is a pure function of the two stage records and the buyer name.
type Summary struct {
	BuyerID   string        `json:"buyer_id"`
	BuyerName string        `json:"buyer_name"`
	FromStage journey.Stage `json:"from_stage"`
	ToStage   journey.Stage `json:"to_stage"`
	Direction Direction     `json:"direction"`
	Text      string        `json:"text"`
}

// Transition is one committed stage change in a buyer's history.
type Transition struct {
	BuyerID   string    `json:"buyer_id"`
	FromStage int       `json:"from_stage"`
	ToStage   int       `json:"to_stage"`
	Direction Direction `json:"direction"`
	RequestID string    `json:"request_id,omitempty"` // Set for jumps
	Timestamp time.Time `json:"timestamp"`
}

// StageChangeNotification is emitted on the optional notification channel
// after each committed transition.
type StageChangeNotification struct {
	BuyerID   string    `json:"buyer_id"`
	BuyerName string    `json:"buyer_name"`
	FromStage int       `json:"from_stage"`
	ToStage   int       `json:"to_stage"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine is the stage progression state machine. One engine serves all
// buyers; the internal mutex serializes mutations, which covers the
// per-buyer ordering requirement. Callers must still apply single-flight
// discipline in the UI: a second transition for the same buyer must not
// be issued while a prior one is awaiting its persistence result.
type Engine struct {
	catalog *journey.Catalog
	tracker CriteriaChecker
	store   Store
	logger  *logx.Logger
	metrics Recorder // Optional

	mu      sync.Mutex
	pending map[string]*JumpRequest // Request ID -> pending jump
	history map[string][]Transition // Buyer ID -> committed transitions

	notifCh chan<- *StageChangeNotification
}

// NewEngine creates a progression engine over the given catalog, criteria
// gate, and buyer store.
func NewEngine(catalog *journey.Catalog, tracker CriteriaChecker, store Store) *Engine {
	return &Engine{
		catalog: catalog,
		tracker: tracker,
		store:   store,
		logger:  logx.NewLogger("progression"),
		pending: make(map[string]*JumpRequest),
		history: make(map[string][]Transition),
	}
}

// SetRecorder attaches a metrics recorder. Nil disables recording.
func (e *Engine) SetRecorder(rec Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = rec
}

// SetNotificationChannel sets the channel for stage change notifications.
// Sends are non-blocking; notifications are dropped with a warning when
// the channel is full.
func (e *Engine) SetNotificationChannel(ch chan<- *StageChangeNotification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifCh = ch
}

// Advance moves the buyer to the next stage. It refuses the write with
// ErrCriteriaNotMet when the current stage's checklist is incomplete; the
// error text names the outstanding criteria.
func (e *Engine) Advance(ctx context.Context, buyerID string) (*Summary, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	buyer, err := e.loadBuyer(ctx, buyerID)
	if err != nil {
		return nil, e.observe(DirectionForward, start, err)
	}

	from, err := e.catalog.GetStage(buyer.CurrentStage)
	if err != nil {
		return nil, e.observe(DirectionForward, start, err)
	}

	target := buyer.CurrentStage + 1
	if target > e.catalog.MaxStageNumber() {
		return nil, e.observe(DirectionForward, start,
			fmt.Errorf("%w: %s is already at the final stage %d (%s)", ErrOutOfRange, buyer.Name, from.Number, from.Name))
	}

	to, err := e.catalog.GetStage(target)
	if err != nil {
		return nil, e.observe(DirectionForward, start, err)
	}

	complete, err := e.tracker.AllCriteriaCompleted(ctx, buyerID, from.Number, from.CriteriaCount())
	if err != nil {
		return nil, e.observe(DirectionForward, start, fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	if !complete {
		return nil, e.observe(DirectionForward, start, e.criteriaNotMet(ctx, buyer, from))
	}

	summary, err := e.commit(ctx, buyer, from, to, DirectionForward, "")
	return summary, e.observe(DirectionForward, start, err)
}

// Retreat moves the buyer back one stage. No completion check applies:
// buyers may be walked back for correction at any time.
func (e *Engine) Retreat(ctx context.Context, buyerID string) (*Summary, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	buyer, err := e.loadBuyer(ctx, buyerID)
	if err != nil {
		return nil, e.observe(DirectionBackward, start, err)
	}

	if buyer.CurrentStage <= 0 {
		return nil, e.observe(DirectionBackward, start,
			fmt.Errorf("%w: %s is already at the first stage", ErrOutOfRange, buyer.Name))
	}

	from, err := e.catalog.GetStage(buyer.CurrentStage)
	if err != nil {
		return nil, e.observe(DirectionBackward, start, err)
	}
	to, err := e.catalog.GetStage(buyer.CurrentStage - 1)
	if err != nil {
		return nil, e.observe(DirectionBackward, start, err)
	}

	summary, err := e.commit(ctx, buyer, from, to, DirectionBackward, "")
	return summary, e.observe(DirectionBackward, start, err)
}

// RequestJump raises phase one of a jump to an arbitrary stage. Nothing
// is mutated; the returned request carries direction metadata for the
// confirmation dialog and must be confirmed or cancelled. A new request
// for the same buyer replaces any prior pending one.
func (e *Engine) RequestJump(ctx context.Context, buyerID string, target int) (*JumpRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buyer, err := e.loadBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	if target == buyer.CurrentStage {
		return nil, fmt.Errorf("%w: %s is already at stage %d", ErrOutOfRange, buyer.Name, target)
	}
	if target < 0 || target > e.catalog.MaxStageNumber() {
		return nil, fmt.Errorf("%w: stage %d is outside 0..%d", ErrOutOfRange, target, e.catalog.MaxStageNumber())
	}
	if _, err := e.catalog.GetStage(target); err != nil {
		return nil, err
	}

	notice := NoticeSkipAhead
	if target < buyer.CurrentStage {
		notice = NoticeBackwardWarning
	}

	// Drop any stale pending request for this buyer before raising a new
	// one; discarding a phase-one request has no side effects.
	for id, req := range e.pending {
		if req.BuyerID == buyerID {
			delete(e.pending, id)
		}
	}

	req := &JumpRequest{
		ID:        uuid.New().String(),
		BuyerID:   buyerID,
		BuyerName: buyer.Name,
		FromStage: buyer.CurrentStage,
		ToStage:   target,
		Notice:    notice,
		CreatedAt: time.Now().UTC(),
	}
	e.pending[req.ID] = req

	e.logger.Debug("Jump requested: buyer=%s %d -> %d (%s)", buyerID, req.FromStage, req.ToStage, notice)
	return req, nil
}

// ConfirmJump commits phase two of a pending jump. Jumps bypass the
// completion gate entirely; they are an explicit agent override. A
// request whose buyer has moved since phase one is stale and fails with
// ErrJumpNotFound.
func (e *Engine) ConfirmJump(ctx context.Context, requestID string) (*Summary, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.pending[requestID]
	if !ok {
		return nil, e.observe(DirectionJump, start, fmt.Errorf("%w: request %s", ErrJumpNotFound, requestID))
	}

	buyer, err := e.loadBuyer(ctx, req.BuyerID)
	if err != nil {
		return nil, e.observe(DirectionJump, start, err)
	}
	if buyer.CurrentStage != req.FromStage {
		delete(e.pending, requestID)
		return nil, e.observe(DirectionJump, start,
			fmt.Errorf("%w: request %s is stale, buyer moved from stage %d to %d",
				ErrJumpNotFound, requestID, req.FromStage, buyer.CurrentStage))
	}

	from, err := e.catalog.GetStage(req.FromStage)
	if err != nil {
		return nil, e.observe(DirectionJump, start, err)
	}
	to, err := e.catalog.GetStage(req.ToStage)
	if err != nil {
		return nil, e.observe(DirectionJump, start, err)
	}

	summary, err := e.commit(ctx, buyer, from, to, DirectionJump, requestID)
	if err != nil {
		// The request stays pending so the caller can retry the commit
		// after a transient persistence failure.
		return nil, e.observe(DirectionJump, start, err)
	}

	delete(e.pending, requestID)
	return summary, e.observe(DirectionJump, start, nil)
}

// CancelJump discards a pending jump request. Phase one mutated nothing,
// so cancellation needs no compensating action.
func (e *Engine) CancelJump(requestID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.pending[requestID]; !ok {
		return fmt.Errorf("%w: request %s", ErrJumpNotFound, requestID)
	}
	delete(e.pending, requestID)
	e.logger.Debug("Jump cancelled: request=%s", requestID)
	return nil
}

// PendingJump returns the pending jump request with the given ID.
func (e *Engine) PendingJump(requestID string) (*JumpRequest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.pending[requestID]
	if !ok {
		return nil, false
	}
	cp := *req
	return &cp, true
}

// History returns a copy of the buyer's committed transitions, oldest
// first.
func (e *Engine) History(buyerID string) []Transition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Transition(nil), e.history[buyerID]...)
}

// loadBuyer fetches the buyer, wrapping store failures as ErrPersistence.
// Caller holds e.mu.
func (e *Engine) loadBuyer(ctx context.Context, buyerID string) (Buyer, error) {
	buyer, err := e.store.LoadBuyer(ctx, buyerID)
	if err != nil {
		return Buyer{}, fmt.Errorf("%w: load buyer %s: %v", ErrPersistence, buyerID, err)
	}
	return buyer, nil
}

// criteriaNotMet builds the ErrCriteriaNotMet error, naming the remaining
// checklist items so the block is never silent.
func (e *Engine) criteriaNotMet(ctx context.Context, buyer Buyer, stage journey.Stage) error {
	progress, err := e.tracker.StageProgress(ctx, buyer.ID, stage)
	if err != nil {
		return fmt.Errorf("%w: stage %d (%s) checklist incomplete", ErrCriteriaNotMet, stage.Number, stage.Name)
	}
	return fmt.Errorf("%w: stage %d (%s) has %d of %d criteria done, remaining: %s",
		ErrCriteriaNotMet, stage.Number, stage.Name, progress.Done, progress.Total,
		strings.Join(progress.Remaining, "; "))
}

// commit persists the new stage pointer, then records history and emits
// the notification. The write is confirmed before any in-memory state
// changes; there is no optimistic update to roll back. Caller holds e.mu.
func (e *Engine) commit(ctx context.Context, buyer Buyer, from, to journey.Stage, direction Direction, requestID string) (*Summary, error) {
	if err := e.store.SaveBuyerStage(ctx, buyer.ID, to.Number); err != nil {
		return nil, fmt.Errorf("%w: save stage %d for buyer %s: %v", ErrPersistence, to.Number, buyer.ID, err)
	}

	now := time.Now().UTC()
	transition := Transition{
		BuyerID:   buyer.ID,
		FromStage: from.Number,
		ToStage:   to.Number,
		Direction: direction,
		RequestID: requestID,
		Timestamp: now,
	}
	log := append(e.history[buyer.ID], transition)
	if len(log) > maxHistory {
		log = log[len(log)-maxHistory:]
	}
	e.history[buyer.ID] = log

	e.logger.Info("🔄 Stage transition: buyer=%s %s → %s (%s)", buyer.ID, from.Name, to.Name, direction)
	e.logger.DebugState(string(direction), to.Name, fmt.Sprintf("buyer %s, history depth %d", buyer.ID, len(log)))

	if e.notifCh != nil {
		notification := &StageChangeNotification{
			BuyerID:   buyer.ID,
			BuyerName: buyer.Name,
			FromStage: from.Number,
			ToStage:   to.Number,
			Direction: direction,
			Timestamp: now,
		}
		select {
		case e.notifCh <- notification:
		default:
			e.logger.Warn("Stage notification channel full, dropping notification for %s: %d->%d",
				buyer.ID, from.Number, to.Number)
		}
	}

	return NewSummary(buyer, from, to, direction), nil
}

// NewSummary builds the human-readable transition summary. It is a pure
// function of the buyer and the two stage records.
func NewSummary(buyer Buyer, from, to journey.Stage, direction Direction) *Summary {
	return &Summary{
		BuyerID:   buyer.ID,
		BuyerName: buyer.Name,
		FromStage: from,
		ToStage:   to,
		Direction: direction,
		Text: fmt.Sprintf("%s moved from Stage %d (%s) to Stage %d (%s)",
			buyer.Name, from.Number, from.Name, to.Number, to.Name),
	}
}

// observe records the transition outcome and passes the error through.
// Caller holds e.mu.
func (e *Engine) observe(direction Direction, start time.Time, err error) error {
	if e.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.ObserveTransition(string(direction), status, time.Since(start))
	return err
}
