package audit

import "time"

// Event is an immutable, append-only audit log record of a dictionary change.
//
// Invariants:
// - Events are never updated or deleted.
// - actor capture is best-effort; do not block mutations on audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	Type   EventType `json:"type" db:"type"`
	Action string    `json:"action" db:"action"`

	ActorUserID string   `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRoles  []string `json:"actor_roles,omitempty" db:"actor_roles"`

	// EntityType is "tariff", "rate" or "destination_group"; EntityRef is its gid or id.
	EntityType string `json:"entity_type" db:"entity_type"`
	EntityRef  string `json:"entity_ref" db:"entity_ref"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeDictionaryChange EventType = "rating_dictionary_change"
)
