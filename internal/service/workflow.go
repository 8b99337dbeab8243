package service

import (
	"fmt"
	"sync"

	app_errors "superchat/client/internal/errors"
	"superchat/client/internal/model"
)

// Workflow describes one specialized backend behavior the user can select
// for a conversation: its display metadata, the model it runs best on, and
// its attachment constraints.
type Workflow struct {
	Kind             model.QueryKind
	Label            string
	Description      string
	RecommendedModel string
	// AttachmentLimit caps how many files can be attached per question.
	// Zero means unlimited.
	AttachmentLimit   int
	AllowedExtensions []string
}

var documentExtensions = []string{".pdf", ".docx", ".txt", ".md", ".pptx"}
var tableExtensions = []string{".xlsx", ".csv"}
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif"}

var workflows = []Workflow{
	{
		Kind:              model.QueryGeneric,
		Label:             "General Chat",
		Description:       "Ask anything, optionally grounded on attached documents.",
		RecommendedModel:  "Qwen3-8B-int4-ov",
		AttachmentLimit:   3,
		AllowedExtensions: documentExtensions,
	},
	{
		Kind:             model.QuerySuperAgent,
		Label:            "Super Agent",
		Description:      "Multi-step agent that can route through configured MCP tools.",
		RecommendedModel: "Qwen3-8B-int4-ov",
		AttachmentLimit:  3,
	},
	{
		Kind:              model.QuerySummarize,
		Label:             "Summarize",
		Description:       "Condense the attached documents into a summary.",
		RecommendedModel:  "Qwen3-8B-int4-ov",
		AttachmentLimit:   3,
		AllowedExtensions: documentExtensions,
	},
	{
		Kind:              model.QueryTables,
		Label:             "Query Tables",
		Description:       "Answer questions against one attached spreadsheet.",
		RecommendedModel:  "Qwen3-8B-int4-ov",
		AttachmentLimit:   1,
		AllowedExtensions: tableExtensions,
	},
	{
		Kind:              model.QueryImages,
		Label:             "Query Images",
		Description:       "Answer questions about attached images.",
		RecommendedModel:  "MiniCPM-V-2_6-int4-ov",
		AttachmentLimit:   3,
		AllowedExtensions: imageExtensions,
	},
	{
		Kind:              model.QueryScoreResumes,
		Label:             "Score Resumes",
		Description:       "Score attached resumes against a criteria document.",
		RecommendedModel:  "Qwen3-8B-int4-ov",
		AttachmentLimit:   0,
		AllowedExtensions: documentExtensions,
	},
	{
		Kind:              model.QueryScoreDocuments,
		Label:             "Score Documents",
		Description:       "Score attached documents against a criteria document, with optional reasoning.",
		RecommendedModel:  "Qwen3-8B-int4-ov",
		AttachmentLimit:   0,
		AllowedExtensions: documentExtensions,
	},
}

// Workflows lists the available workflows in presentation order.
func Workflows() []Workflow {
	out := make([]Workflow, len(workflows))
	copy(out, workflows)
	return out
}

// WorkflowFor resolves a workflow by query kind.
func WorkflowFor(kind model.QueryKind) (Workflow, error) {
	for _, w := range workflows {
		if w.Kind == kind {
			return w, nil
		}
	}
	return Workflow{}, fmt.Errorf("%w: unknown workflow %q", app_errors.ErrNotFound, kind)
}

// WorkflowSelector tracks which workflow is active and whether switching
// to it requires a different model. A required model switch suspends
// readiness until the switch is confirmed.
type WorkflowSelector struct {
	mu sync.Mutex

	ready        *Readiness
	active       Workflow
	currentModel string
}

func NewWorkflowSelector(ready *Readiness, currentModel string) *WorkflowSelector {
	return &WorkflowSelector{
		ready:        ready,
		active:       workflows[0],
		currentModel: currentModel,
	}
}

// Active returns the currently selected workflow.
func (s *WorkflowSelector) Active() Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Select switches the active workflow. If the workflow recommends a model
// other than the loaded one, the pending-model-switch readiness flag is
// raised until ConfirmModelSwitch is called.
func (s *WorkflowSelector) Select(kind model.QueryKind, opts model.QueryType) (Workflow, error) {
	if !opts.IsZero() {
		if err := opts.Validate(); err != nil {
			return Workflow{}, err
		}
	}
	w, err := WorkflowFor(kind)
	if err != nil {
		return Workflow{}, err
	}

	s.mu.Lock()
	s.active = w
	switchNeeded := w.RecommendedModel != "" && w.RecommendedModel != s.currentModel
	s.mu.Unlock()

	if switchNeeded {
		s.ready.SetModelSwitchPending(true)
	}
	return w, nil
}

// ConfirmModelSwitch records that the recommended model finished loading
// and re-enables readiness.
func (s *WorkflowSelector) ConfirmModelSwitch() {
	s.mu.Lock()
	s.currentModel = s.active.RecommendedModel
	s.mu.Unlock()
	s.ready.SetModelSwitchPending(false)
}
