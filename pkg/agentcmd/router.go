// Package agentcmd translates UI actions into pre-filled natural-language
// commands for the conversational assistant. The router is pure string
// template selection: no network calls, no persistence, no effect on the
// progression engine. The returned command is handed to the chat
// subsystem by the caller.
package agentcmd

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"compass/pkg/journey"
)

//go:embed *.tpl.md
var templateFS embed.FS

// Trigger identifies the UI action that requested a command.
type Trigger string

const (
	// TriggerGenerateNextSteps asks for next-step guidance in the
	// buyer's current stage.
	TriggerGenerateNextSteps Trigger = "generate-next-steps"
	// TriggerStageClickedCurrent is a journey click on the stage the
	// buyer already occupies: a strategy request, not a navigation.
	TriggerStageClickedCurrent Trigger = "stage-clicked-current"
	// TriggerActivityFollowup asks for a follow-up on recent activity.
	TriggerActivityFollowup Trigger = "activity-followup"
	// TriggerDraftOffer asks for help drafting an offer in the current
	// stage context.
	TriggerDraftOffer Trigger = "draft-offer"
	// TriggerStageRecap asks for a recap of what a stage accomplished.
	TriggerStageRecap Trigger = "stage-recap"
)

// templateFiles maps each trigger to its template file.
var templateFiles = map[Trigger]string{
	TriggerGenerateNextSteps:   "generate_next_steps.tpl.md",
	TriggerStageClickedCurrent: "stage_strategy.tpl.md",
	TriggerActivityFollowup:    "activity_followup.tpl.md",
	TriggerDraftOffer:          "draft_offer.tpl.md",
	TriggerStageRecap:          "stage_recap.tpl.md",
}

// CommandData holds the interpolation values for command templates.
type CommandData struct {
	BuyerName   string
	StageName   string
	StageNumber int
	Objective   string
}

// Router renders pre-filled assistant commands from embedded templates.
type Router struct {
	templates map[Trigger]*template.Template
}

// NewRouter loads and parses all command templates.
func NewRouter() (*Router, error) {
	r := &Router{templates: make(map[Trigger]*template.Template)}

	for trigger, file := range templateFiles {
		content, err := templateFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read command template %s: %w", file, err)
		}
		tmpl, err := template.New(file).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse command template %s: %w", file, err)
		}
		r.templates[trigger] = tmpl
	}
	return r, nil
}

// BuildCommand renders the command string for a trigger, interpolating
// the stage and buyer name.
func (r *Router) BuildCommand(trigger Trigger, stage journey.Stage, buyerName string) (string, error) {
	tmpl, ok := r.templates[trigger]
	if !ok {
		return "", fmt.Errorf("unknown command trigger %q", trigger)
	}

	data := CommandData{
		BuyerName:   buyerName,
		StageName:   stage.Name,
		StageNumber: stage.Number,
		Objective:   stage.Objective,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render command for trigger %q: %w", trigger, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// StageJourneyClick resolves the dual behavior of clicking a stage in the
// journey view. Clicking the buyer's current stage produces a
// strategy-generation command; clicking any other stage is a navigation,
// which the caller routes to the progression engine's jump flow instead.
func (r *Router) StageJourneyClick(clicked, current journey.Stage, buyerName string) (command string, navigate bool, err error) {
	if clicked.Number != current.Number {
		return "", true, nil
	}
	command, err = r.BuildCommand(TriggerStageClickedCurrent, clicked, buyerName)
	return command, false, err
}

// Triggers returns all known command triggers.
func (r *Router) Triggers() []Trigger {
	triggers := make([]Trigger, 0, len(r.templates))
	for trigger := range r.templates {
		triggers = append(triggers, trigger)
	}
	return triggers
}
