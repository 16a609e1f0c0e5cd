package models

import "encoding/json"

// GradingRequest is the payload submitted to the grading model for one
// document. Field names follow the grading endpoint contract. The value is
// immutable once constructed.
type GradingRequest struct {
	DocumentText     string `json:"assignmentText" validate:"required"`
	DocumentID       string `json:"assignmentId" validate:"required,number"`
	AnalyticsBatchID int64  `json:"analyticsId" validate:"required"`
}

// AIAnalytics describes the AI-usage findings for a graded document.
type AIAnalytics struct {
	IsAIUsed               bool     `json:"isAIUsed"`
	PercentageOfAIUsed     float64  `json:"percentageOfAIUsed"`
	HighlightedAreaOfAIUse []string `json:"highlightedAreaOfAIUse"`
}

// PlagiarismAnalytics describes the plagiarism findings for a graded
// document. The wire spelling of the field names is part of the contract and
// is kept as-is.
type PlagiarismAnalytics struct {
	IsPlagiarised         bool     `json:"isPlagarised"`
	PlagiarisedPercentage float64  `json:"plagarisedPercentage"`
	PlagiarisedFrom       []string `json:"plagarisedFrom"`
}

// GradingResult is the canonical decoded shape returned by the grading model.
type GradingResult struct {
	AnalyticsID          int64               `json:"analyticsId"`
	AssignmentID         int64               `json:"assignmentId"`
	GradeReceived        float64             `json:"gradeReceived"`
	AIGeneratedAnalytics AIAnalytics         `json:"aiGeneratedAnalytics"`
	PlagiarismAnalytics  PlagiarismAnalytics `json:"plagarismAnalytics"`
	GradeReasoning       string              `json:"gradeReasoning"`
	Remarks              string              `json:"remarks"`
}

// ResultFromDocument binds a plain decoded result document to the typed
// canonical shape.
func ResultFromDocument(doc map[string]any) (GradingResult, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return GradingResult{}, err
	}

	var result GradingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return GradingResult{}, err
	}

	return result, nil
}
