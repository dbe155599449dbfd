package domain

import "time"

// Outcome labels for a finished submission.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// SubmissionOutcome describes one finished submission for downstream
// consumers. It carries no user identity.
type SubmissionOutcome struct {
	SessionID      string         `json:"session_id"`
	Outcome        string         `json:"outcome"`
	Request        EventRequest   `json:"request"`
	Classification Classification `json:"classification,omitempty"`
	Error          string         `json:"error,omitempty"`
	Duration       time.Duration  `json:"duration_ns"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// NewSucceededOutcome stamps a successful submission with the current time.
func NewSucceededOutcome(sessionID string, req EventRequest, result ForecastResult, d time.Duration) SubmissionOutcome {
	return SubmissionOutcome{
		SessionID:      sessionID,
		Outcome:        OutcomeSucceeded,
		Request:        req,
		Classification: result.Classification,
		Duration:       d,
		CompletedAt:    clock.Now().UTC(),
	}
}

// NewFailedOutcome stamps a failed submission with the current time.
func NewFailedOutcome(sessionID string, req EventRequest, message string, d time.Duration) SubmissionOutcome {
	return SubmissionOutcome{
		SessionID:   sessionID,
		Outcome:     OutcomeFailed,
		Request:     req,
		Error:       message,
		Duration:    d,
		CompletedAt: clock.Now().UTC(),
	}
}
