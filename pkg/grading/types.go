// Package grading submits sanitized assignment text to a grading model and
// reconciles the heterogeneous response shapes the model is known to return
// into one canonical decoded document.
package grading

import (
	"context"

	"github.com/noah-isme/gema-grader/internal/models"
)

// Grader submits one grading request and returns the decoded result document
// in its plain (non typed-attribute) form.
type Grader interface {
	Grade(ctx context.Context, request models.GradingRequest) (map[string]any, error)
}
