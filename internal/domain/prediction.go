package domain

import (
	"strings"
	"time"
)

// PredictionStatus is the lifecycle state of a prediction
type PredictionStatus string

const (
	StatusStarting   PredictionStatus = "starting"
	StatusProcessing PredictionStatus = "processing"
	StatusSucceeded  PredictionStatus = "succeeded"
	StatusFailed     PredictionStatus = "failed"
	StatusCanceled   PredictionStatus = "canceled"
)

// IsTerminal reports whether no further status change can happen.
func (s PredictionStatus) IsTerminal() bool {
	switch PredictionStatus(strings.ToLower(string(s))) {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// PredictionResult describes the outcome of one generation request
type PredictionResult struct {
	ID          string           `json:"id"`
	Status      PredictionStatus `json:"status"`
	Output      []ImagePayload   `json:"output,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// FirstOutput returns the first generated image, if any.
func (p *PredictionResult) FirstOutput() (ImagePayload, bool) {
	if p == nil || len(p.Output) == 0 {
		return "", false
	}
	return p.Output[0], true
}
