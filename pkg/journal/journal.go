package journal

import (
	"context"
	"time"
)

// Outcome is the final status of one submission.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Entry records one submission attempt.
type Entry struct {
	SentAt  time.Time
	Payload string
	Outcome Outcome
	Error   string
}

// Recorder persists submission outcomes.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// Discard is a Recorder that keeps nothing.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, Entry) error { return nil }
func (discard) Close() error                        { return nil }
