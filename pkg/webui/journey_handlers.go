package webui

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"compass/pkg/completion"
	"compass/pkg/journey"
	"compass/pkg/progression"
)

// BuyerView is the buyer detail response: the buyer plus its current
// stage record and criteria progress.
type BuyerView struct {
	Buyer    progression.Buyer   `json:"buyer"`
	Stage    journey.Stage       `json:"stage"`
	Progress completion.Progress `json:"progress"`
}

// handleStages implements GET /api/stages.
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stages := s.catalog.ListStages()
	s.writeJSON(w, http.StatusOK, stages)

	s.logger.Debug("Served stage catalog: %d stages", len(stages))
}

// handleBuyers implements GET /api/buyers (list) and POST /api/buyers
// (create or update).
func (s *Server) handleBuyers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		buyers, err := s.store.ListBuyers(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, buyers)

	case http.MethodPost:
		var buyer progression.Buyer
		if err := json.NewDecoder(r.Body).Decode(&buyer); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if buyer.ID == "" || buyer.Name == "" {
			http.Error(w, "Buyer id and name are required", http.StatusBadRequest)
			return
		}
		if !s.catalog.InBounds(buyer.CurrentStage) {
			http.Error(w, "Buyer stage out of catalog bounds", http.StatusBadRequest)
			return
		}
		if err := s.store.UpsertBuyer(r.Context(), buyer); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, buyer)
		s.logger.Info("Upserted buyer %s at stage %d", buyer.ID, buyer.CurrentStage)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleBuyer routes /api/buyers/:id and its sub-resources.
func (s *Server) handleBuyer(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/buyers/")
	if path == "" {
		http.Error(w, "Buyer ID required", http.StatusBadRequest)
		return
	}

	parts := strings.Split(path, "/")
	buyerID := parts[0]
	rest := strings.Join(parts[1:], "/")

	switch rest {
	case "":
		s.handleBuyerDetail(w, r, buyerID)
	case "advance":
		s.handleAdvance(w, r, buyerID)
	case "retreat":
		s.handleRetreat(w, r, buyerID)
	case "jump":
		s.handleJumpRequest(w, r, buyerID)
	case "jump/confirm":
		s.handleJumpConfirm(w, r)
	case "jump/cancel":
		s.handleJumpCancel(w, r)
	case "criteria":
		s.handleCriteria(w, r, buyerID)
	case "history":
		s.handleHistory(w, r, buyerID)
	case "artifacts":
		s.handleArtifacts(w, r, buyerID)
	default:
		http.NotFound(w, r)
	}
}

// handleBuyerDetail implements GET /api/buyers/:id.
func (s *Server) handleBuyerDetail(w http.ResponseWriter, r *http.Request, buyerID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	buyer, err := s.store.LoadBuyer(r.Context(), buyerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	stage, err := s.catalog.GetStage(buyer.CurrentStage)
	if err != nil {
		s.writeError(w, err)
		return
	}

	progress, err := s.tracker.StageProgress(r.Context(), buyerID, stage)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, BuyerView{Buyer: buyer, Stage: stage, Progress: progress})
}

// handleAdvance implements POST /api/buyers/:id/advance.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, buyerID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := s.engine.Advance(r.Context(), buyerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// handleRetreat implements POST /api/buyers/:id/retreat.
func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request, buyerID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := s.engine.Retreat(r.Context(), buyerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// handleJumpRequest implements POST /api/buyers/:id/jump. The response
// carries the pending request; nothing changes until it is confirmed.
func (s *Server) handleJumpRequest(w http.ResponseWriter, r *http.Request, buyerID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ToStage int `json:"to_stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := s.engine.RequestJump(r.Context(), buyerID, body.ToStage)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, request)
}

// handleJumpConfirm implements POST /api/buyers/:id/jump/confirm.
func (s *Server) handleJumpConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestID == "" {
		http.Error(w, "request_id is required", http.StatusBadRequest)
		return
	}

	summary, err := s.engine.ConfirmJump(r.Context(), body.RequestID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// handleJumpCancel implements POST /api/buyers/:id/jump/cancel.
func (s *Server) handleJumpCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestID == "" {
		http.Error(w, "request_id is required", http.StatusBadRequest)
		return
	}

	if err := s.engine.CancelJump(body.RequestID); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleCriteria implements GET /api/buyers/:id/criteria?stage=N for
// progress and PUT for toggling a criterion.
func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request, buyerID string) {
	switch r.Method {
	case http.MethodGet:
		stageNumber, err := strconv.Atoi(r.URL.Query().Get("stage"))
		if err != nil {
			http.Error(w, "stage query parameter required", http.StatusBadRequest)
			return
		}

		stage, err := s.catalog.GetStage(stageNumber)
		if err != nil {
			s.writeError(w, err)
			return
		}

		progress, err := s.tracker.StageProgress(r.Context(), buyerID, stage)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, progress)

	case http.MethodPut:
		var body struct {
			Stage     int  `json:"stage"`
			Index     int  `json:"index"`
			Completed bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		// Validate the index against the configured criteria list.
		// Stale indices from an outdated client are rejected here, not
		// silently recorded.
		stage, err := s.catalog.GetStage(body.Stage)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if body.Index < 0 || body.Index >= stage.CriteriaCount() {
			http.Error(w, "Criterion index out of range", http.StatusBadRequest)
			return
		}

		if err := s.tracker.ToggleCriterion(r.Context(), buyerID, body.Stage, body.Index, body.Completed); err != nil {
			s.writeError(w, err)
			return
		}
		if s.recorder != nil {
			s.recorder.ObserveToggle(body.Completed)
		}

		progress, err := s.tracker.StageProgress(r.Context(), buyerID, stage)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, progress)
		s.logger.Debug("Toggled criterion %d of stage %d for %s -> %v", body.Index, body.Stage, buyerID, body.Completed)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHistory implements GET /api/buyers/:id/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, buyerID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.engine.History(buyerID))
}
