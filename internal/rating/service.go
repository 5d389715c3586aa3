package rating

import (
	"context"
	"log/slog"
	"time"

	"telecom-rating/internal/auth"
)

// Change describes one committed mutation, handed to the ChangeRecorder.
type Change struct {
	Action     string // "create", "update", "delete"
	EntityType string // "tariff", "rate", "destination_group"
	EntityRef  string
	Actor      auth.Info
	Message    string
}

// ChangeRecorder receives mutations after they commit. Recording is
// best-effort: failures are logged and never undo the mutation.
type ChangeRecorder interface {
	RecordChange(ctx context.Context, c Change) error
}

// LookupObserver is notified of every FindRate outcome.
type LookupObserver interface {
	ObserveLookup(outcome string, elapsed time.Duration)
}

// Lookup outcomes reported to LookupObserver.
const (
	OutcomeMatched        = "matched"
	OutcomeNoRate         = "no_rate"
	OutcomeTariffNotFound = "tariff_not_found"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

// Options are shared by the services in this package. Zero values are usable.
type Options struct {
	Changes  ChangeRecorder
	Logger   *slog.Logger
	Limits   PageLimits
	Clock    func() time.Time
	Observer LookupObserver
}

type base struct {
	changes  ChangeRecorder
	log      *slog.Logger
	limits   PageLimits
	clock    func() time.Time
	observer LookupObserver
}

func newBase(opts Options) base {
	b := base{
		changes:  opts.Changes,
		log:      opts.Logger,
		limits:   opts.Limits,
		clock:    opts.Clock,
		observer: opts.Observer,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	if b.limits.DefaultPageSize <= 0 || b.limits.MaxPageSize <= 0 {
		b.limits = defaultPageLimits
	}
	return b
}

func (b base) now() time.Time { return b.clock().UTC() }

func (b base) record(ctx context.Context, c Change) {
	b.log.Info("rating change",
		slog.String("action", c.Action),
		slog.String("entity_type", c.EntityType),
		slog.String("entity_ref", c.EntityRef),
		slog.String("actor", c.Actor.UserID),
	)
	if b.changes == nil {
		return
	}
	if err := b.changes.RecordChange(ctx, c); err != nil {
		b.log.Warn("rating change not recorded",
			slog.String("entity_type", c.EntityType),
			slog.String("entity_ref", c.EntityRef),
			slog.Any("err", err),
		)
	}
}
