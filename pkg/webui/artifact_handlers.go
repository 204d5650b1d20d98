package webui

import (
	"encoding/json"
	"net/http"
	"time"

	"compass/pkg/agentcmd"
	"compass/pkg/artifacts"
	"compass/pkg/config"
)

// handleArtifacts implements GET /api/buyers/:id/artifacts (stage-scoped
// unless show_all=true) and POST (save).
func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request, buyerID string) {
	switch r.Method {
	case http.MethodGet:
		buyer, err := s.store.LoadBuyer(r.Context(), buyerID)
		if err != nil {
			s.writeError(w, err)
			return
		}

		all, err := s.store.ListArtifacts(r.Context(), buyerID)
		if err != nil {
			s.writeError(w, err)
			return
		}

		showAll := r.URL.Query().Get("show_all") == "true"
		windowSize := artifacts.DefaultWindowSize
		if cfg, cfgErr := config.GetConfig(); cfgErr == nil {
			windowSize = cfg.Journey.ArtifactWindowSize
		}

		visible := artifacts.VisibleArtifacts(all, buyer.CurrentStage, windowSize, showAll)
		s.writeJSON(w, http.StatusOK, visible)

		s.logger.Debug("Served %d/%d artifacts for %s (show_all=%v)", len(visible), len(all), buyerID, showAll)

	case http.MethodPost:
		var artifact artifacts.Artifact
		if err := json.NewDecoder(r.Body).Decode(&artifact); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if artifact.ID == "" {
			artifact.ID = artifacts.NewID()
		}
		artifact.BuyerID = buyerID
		if artifact.Visibility == "" {
			artifact.Visibility = artifacts.VisibilityInternal
		}
		if artifact.CreatedAt.IsZero() {
			artifact.CreatedAt = time.Now().UTC()
		}
		if artifact.StageNumber != nil && !s.catalog.InBounds(*artifact.StageNumber) {
			http.Error(w, "Artifact stage out of catalog bounds", http.StatusBadRequest)
			return
		}

		if err := s.store.SaveArtifact(r.Context(), artifact); err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusCreated, artifact)
		s.logger.Info("Saved artifact %s for buyer %s", artifact.ID, buyerID)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// AgentCommandRequest asks for an agent command string. ClickedStage is
// only consulted for the stage-clicked-current trigger; other triggers
// use the buyer's current stage.
type AgentCommandRequest struct {
	BuyerID      string `json:"buyer_id"`
	Trigger      string `json:"trigger"`
	ClickedStage *int   `json:"clicked_stage,omitempty"`
}

// AgentCommandResponse carries the rendered command, or a navigation
// directive when a journey click targets a non-current stage.
type AgentCommandResponse struct {
	Command  string `json:"command,omitempty"`
	Navigate bool   `json:"navigate"`
	Stage    int    `json:"stage"`
}

// handleAgentCommand implements POST /api/agent/command.
func (s *Server) handleAgentCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AgentCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BuyerID == "" || req.Trigger == "" {
		http.Error(w, "buyer_id and trigger are required", http.StatusBadRequest)
		return
	}

	buyer, err := s.store.LoadBuyer(r.Context(), req.BuyerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	current, err := s.catalog.GetStage(buyer.CurrentStage)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Journey clicks branch on whether the clicked stage is the current
	// one: current stage yields a strategy command, any other stage is a
	// pure navigation.
	if req.ClickedStage != nil {
		clicked, stageErr := s.catalog.GetStage(*req.ClickedStage)
		if stageErr != nil {
			s.writeError(w, stageErr)
			return
		}

		command, navigate, clickErr := s.router.StageJourneyClick(clicked, current, buyer.Name)
		if clickErr != nil {
			s.writeError(w, clickErr)
			return
		}

		s.writeJSON(w, http.StatusOK, AgentCommandResponse{
			Command:  command,
			Navigate: navigate,
			Stage:    clicked.Number,
		})
		return
	}

	command, err := s.router.BuildCommand(agentcmd.Trigger(req.Trigger), current, buyer.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, AgentCommandResponse{
		Command: command,
		Stage:   current.Number,
	})
}
