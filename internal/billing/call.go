package billing

import (
	"context"
	"time"
)

// Call is a finished call as reported by the switching layer.
type Call struct {
	CallID string `json:"callId"`

	From string `json:"from"`
	To   string `json:"to"`

	Status CallStatus `json:"status"`

	// DurationSeconds is the connected duration.
	DurationSeconds int       `json:"durationSeconds"`
	StartedAt       time.Time `json:"startedAt"`
}

type CallStatus string

const (
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
	CallStatusNoAnswer  CallStatus = "no_answer"
	CallStatusBusy      CallStatus = "busy"
	CallStatusCanceled  CallStatus = "canceled"
)

func (c Call) Answered() bool {
	return c.Status == CallStatusCompleted && c.DurationSeconds > 0
}

// CallRecord is a rated call. Snapshot is embedded by value.
type CallRecord struct {
	Call
	Snapshot
	Charge Charge `json:"charge"`
}

// RateCall snapshots the pricing for c.To under tariffGid and prices the call.
// Unanswered calls are rated at zero but still carry the snapshot.
func (s *Snapshotter) RateCall(ctx context.Context, tariffGid string, c Call) (CallRecord, error) {
	snap, err := s.Capture(ctx, tariffGid, c.To)
	if err != nil {
		return CallRecord{}, err
	}
	duration := 0
	if c.Answered() {
		duration = c.DurationSeconds
	}
	return CallRecord{Call: c, Snapshot: snap, Charge: snap.Cost(duration)}, nil
}
