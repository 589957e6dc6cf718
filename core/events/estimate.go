package events

import (
	"time"

	"github.com/kilianp07/evrange/core/model"
)

// Outcome labels the result of an estimate request.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeInvalid Outcome = "invalid"
	OutcomeError   Outcome = "error"
)

// EstimateEvent is published for every estimate request handled by the service.
// Estimate is the zero value unless Outcome is OutcomeOK. RequestID is the
// caller-supplied correlation id, if any.
type EstimateEvent struct {
	ID        string
	RequestID string
	Model     string
	Source    string
	Outcome   Outcome
	Estimate  model.Estimate
	Err       error
	Latency   time.Duration
	Time      time.Time
}
