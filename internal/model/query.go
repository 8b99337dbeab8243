package model

import (
	"fmt"

	app_errors "superchat/client/internal/errors"
)

// QueryKind selects which specialized backend workflow a message belongs
// to. The set is closed: anything else is rejected at the backend boundary
// instead of being passed through as an opaque blob.
type QueryKind string

const (
	QueryGeneric        QueryKind = "Generic"
	QuerySuperAgent     QueryKind = "SuperAgent"
	QuerySummarize      QueryKind = "Summarize"
	QueryTables         QueryKind = "QueryTables"
	QueryImages         QueryKind = "QueryImages"
	QueryScoreResumes   QueryKind = "ScoreResumes"
	QueryScoreDocuments QueryKind = "ScoreDocuments"
)

// QueryType is the tagged payload describing a workflow query. The zero
// value (empty Name) means a plain chat message with no workflow attached.
// The optional fields only apply to the scoring workflows.
type QueryType struct {
	Name              QueryKind `json:"name"`
	IsScoringCriteria bool      `json:"is_scoring_criteria,omitempty"`
	IncludeReasoning  bool      `json:"include_reasoning,omitempty"`
}

// IsZero reports whether no workflow is attached.
func (q QueryType) IsZero() bool {
	return q.Name == ""
}

// Validate rejects query kinds outside the closed set. An empty kind is
// valid and means generic chat.
func (q QueryType) Validate() error {
	switch q.Name {
	case "", QueryGeneric, QuerySuperAgent, QuerySummarize, QueryTables,
		QueryImages, QueryScoreResumes, QueryScoreDocuments:
		return nil
	}
	return fmt.Errorf("%w: unknown query kind %q", app_errors.ErrValidation, q.Name)
}

// ScoreResumesPrompt carries the resume-scoring workflow options.
type ScoreResumesPrompt struct {
	IsScoringCriteria bool `json:"is_scoring_criteria"`
}

// ScoreDocumentsPrompt carries the document-scoring workflow options.
type ScoreDocumentsPrompt struct {
	IsScoringCriteria bool `json:"is_scoring_criteria"`
	IncludeReasoning  bool `json:"include_reasoning"`
}

// PromptPayload is the wire shape the backend expects for workflow prompt
// options: exactly one of the variant fields is set.
type PromptPayload struct {
	Generic        *struct{}             `json:"GenericPrompt,omitempty"`
	SuperAgent     *struct{}             `json:"SuperAgentPrompt,omitempty"`
	Summarize      *struct{}             `json:"SummarizePrompt,omitempty"`
	QueryTables    *struct{}             `json:"QueryTablesPrompt,omitempty"`
	QueryImages    *struct{}             `json:"QueryImagesPrompt,omitempty"`
	ScoreResumes   *ScoreResumesPrompt   `json:"ScoreResumesPrompt,omitempty"`
	ScoreDocuments *ScoreDocumentsPrompt `json:"ScoreDocumentsPrompt,omitempty"`
}

// PromptOptions wraps a PromptPayload under the key the backend reads.
type PromptOptions struct {
	PromptType PromptPayload `json:"PromptType"`
}

// PromptOptions builds the workflow-specific options payload sent with
// call_chat. Unknown or empty kinds fall back to a generic prompt.
func (q QueryType) PromptOptions() PromptOptions {
	var p PromptPayload
	switch q.Name {
	case QueryScoreResumes:
		p.ScoreResumes = &ScoreResumesPrompt{IsScoringCriteria: q.IsScoringCriteria}
	case QueryScoreDocuments:
		p.ScoreDocuments = &ScoreDocumentsPrompt{
			IsScoringCriteria: q.IsScoringCriteria,
			IncludeReasoning:  q.IncludeReasoning,
		}
	case QuerySummarize:
		p.Summarize = &struct{}{}
	case QueryTables:
		p.QueryTables = &struct{}{}
	case QueryImages:
		p.QueryImages = &struct{}{}
	case QuerySuperAgent:
		p.SuperAgent = &struct{}{}
	default:
		p.Generic = &struct{}{}
	}
	return PromptOptions{PromptType: p}
}
