package rating

import (
	"context"
	"errors"
	"time"
)

// Storage-level signals. Repositories report invariant violations with these
// so that the database constraint, not the pre-check, is authoritative.
var (
	ErrNotFound        = errors.New("rating: not found")
	ErrDuplicateName   = errors.New("rating: duplicate name")
	ErrDuplicatePrefix = errors.New("rating: duplicate prefix within tariff")
	ErrDefaultTariff   = errors.New("rating: default tariff cannot be deleted")
)

// TariffRepository persists tariffs.
//
// InsertTariff and UpdateTariff must clear IsDefault on every other
// non-deleted tariff in the same atomic unit as the write whenever the written
// tariff is default.
type TariffRepository interface {
	InsertTariff(ctx context.Context, t *Tariff) error
	UpdateTariff(ctx context.Context, t *Tariff) error
	// SoftDeleteTariff marks the tariff and its rates deleted. It refuses with
	// ErrDefaultTariff if the tariff is default at the time of the write.
	SoftDeleteTariff(ctx context.Context, id int64, at time.Time, by string) error

	GetTariffByGid(ctx context.Context, gid string) (Tariff, bool, error)
	GetTariffByName(ctx context.Context, name string) (Tariff, bool, error)
	GetDefaultTariff(ctx context.Context) (Tariff, bool, error)
	ListTariffs(ctx context.Context, f TariffFilter) ([]Tariff, int, error)
}

// RateRepository persists rates. Rates returned carry TariffGid.
type RateRepository interface {
	InsertRate(ctx context.Context, r *Rate) error
	UpdateRate(ctx context.Context, r *Rate) error
	SoftDeleteRate(ctx context.Context, id int64, at time.Time, by string) error

	GetRateByGid(ctx context.Context, gid string) (Rate, bool, error)
	GetRateByPrefix(ctx context.Context, tariffID int64, prefix string) (Rate, bool, error)
	ListRates(ctx context.Context, f RateFilter) ([]Rate, int, error)
	ListRatesByTariff(ctx context.Context, tariffID int64) ([]Rate, error)
	// ListCandidateRates returns the non-deleted, active rates of a tariff
	// whose effective window contains at.
	ListCandidateRates(ctx context.Context, tariffID int64, at time.Time) ([]Rate, error)
}

// DestinationGroupRepository persists destination groups. DeleteGroup clears
// the group reference on rates.
type DestinationGroupRepository interface {
	InsertGroup(ctx context.Context, g *DestinationGroup) error
	UpdateGroup(ctx context.Context, g *DestinationGroup) error
	DeleteGroup(ctx context.Context, id int64) error

	GetGroup(ctx context.Context, id int64) (DestinationGroup, bool, error)
	GetGroupByName(ctx context.Context, name string) (DestinationGroup, bool, error)
	ListGroups(ctx context.Context, activeOnly bool) ([]DestinationGroup, error)
}

type Repository interface {
	TariffRepository
	RateRepository
	DestinationGroupRepository
}
