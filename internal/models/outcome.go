package models

// OutcomeStatus labels the terminal state of one batch item.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the document was graded and persisted.
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	// OutcomeFailed indicates the item failed at some stage; the batch
	// continues regardless.
	OutcomeFailed OutcomeStatus = "FAILED"
)

// BatchItemOutcome records the result of processing a single document.
// Outcomes are appended to the batch report and never mutated afterwards.
type BatchItemOutcome struct {
	DocumentID string        `json:"document_id"`
	Status     OutcomeStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
}
