package audit

import (
	"context"

	"telecom-rating/internal/rating"
)

// RatingRecorder bridges rating's change hook to the shared audit.Service so
// the rating package does not depend on audit persistence.
type RatingRecorder struct {
	Audit *Service
}

func (a RatingRecorder) RecordChange(ctx context.Context, c rating.Change) error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.Append(ctx, Event{
		Type:        EventTypeDictionaryChange,
		Action:      c.Action,
		ActorUserID: c.Actor.UserID,
		ActorRoles:  c.Actor.Roles,
		EntityType:  c.EntityType,
		EntityRef:   c.EntityRef,
		Message:     c.Message,
	})
}
