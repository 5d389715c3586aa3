package rating

import (
	"context"
	"errors"
	"fmt"

	"telecom-rating/internal/apperr"
	"telecom-rating/internal/auth"

	"github.com/google/uuid"
)

// TariffService manages tariffs. At most one non-deleted tariff is default at
// any time; setting IsDefault on one tariff clears it on all others.
type TariffService struct {
	base
	repo Repository
}

func NewTariffService(repo Repository, opts Options) *TariffService {
	return &TariffService{base: newBase(opts), repo: repo}
}

var (
	errTariffNotFound  = apperr.NotFound("tariff_not_found", "tariff not found")
	errTariffNameTaken = apperr.BusinessLogic("name_exists", "a tariff with this name already exists")
	errDeleteDefault   = apperr.BusinessLogic("cannot_delete_default", "the default tariff cannot be deleted")
)

func (s *TariffService) Create(ctx context.Context, actor auth.Info, req TariffRequest) (Tariff, error) {
	req = normalizeTariffRequest(req)
	if err := validateTariffRequest(req); err != nil {
		return Tariff{}, err
	}
	now := s.now()
	validFrom := now
	if req.ValidFrom != nil {
		validFrom = req.ValidFrom.UTC()
	}
	if err := checkWindow("valid_to", validFrom, req.ValidTo); err != nil {
		return Tariff{}, err
	}

	if _, ok, err := s.repo.GetTariffByName(ctx, req.Name); err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("lookup tariff name: %w", err))
	} else if ok {
		return Tariff{}, errTariffNameTaken
	}

	t := Tariff{
		Gid:       uuid.NewString(),
		ValidFrom: validFrom,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor.UserID,
		UpdatedBy: actor.UserID,
	}
	applyTariffRequest(&t, req)

	if err := s.repo.InsertTariff(ctx, &t); err != nil {
		return Tariff{}, tariffStoreError("insert tariff", err)
	}
	s.record(ctx, Change{Action: "create", EntityType: "tariff", EntityRef: t.Gid, Actor: actor, Message: t.Name})
	return t, nil
}

func (s *TariffService) Update(ctx context.Context, actor auth.Info, gid string, req TariffRequest) (Tariff, error) {
	t, ok, err := s.repo.GetTariffByGid(ctx, gid)
	if err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("get tariff: %w", err))
	}
	if !ok {
		return Tariff{}, errTariffNotFound
	}

	req = normalizeTariffRequest(req)
	if err := validateTariffRequest(req); err != nil {
		return Tariff{}, err
	}
	validFrom := t.ValidFrom
	if req.ValidFrom != nil {
		validFrom = req.ValidFrom.UTC()
	}
	if err := checkWindow("valid_to", validFrom, req.ValidTo); err != nil {
		return Tariff{}, err
	}

	other, ok, err := s.repo.GetTariffByName(ctx, req.Name)
	if err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("lookup tariff name: %w", err))
	}
	if ok && other.ID != t.ID {
		return Tariff{}, errTariffNameTaken
	}

	applyTariffRequest(&t, req)
	t.ValidFrom = validFrom
	t.UpdatedAt = s.now()
	t.UpdatedBy = actor.UserID
	t.Rates = nil

	if err := s.repo.UpdateTariff(ctx, &t); err != nil {
		return Tariff{}, tariffStoreError("update tariff", err)
	}
	s.record(ctx, Change{Action: "update", EntityType: "tariff", EntityRef: t.Gid, Actor: actor, Message: t.Name})
	return t, nil
}

// Delete soft-deletes a non-default tariff together with its rates.
func (s *TariffService) Delete(ctx context.Context, actor auth.Info, gid string) error {
	t, ok, err := s.repo.GetTariffByGid(ctx, gid)
	if err != nil {
		return apperr.Internal(fmt.Errorf("get tariff: %w", err))
	}
	if !ok {
		return errTariffNotFound
	}
	if t.IsDefault {
		return errDeleteDefault
	}
	if err := s.repo.SoftDeleteTariff(ctx, t.ID, s.now(), actor.UserID); err != nil {
		return tariffStoreError("delete tariff", err)
	}
	s.record(ctx, Change{Action: "delete", EntityType: "tariff", EntityRef: t.Gid, Actor: actor, Message: t.Name})
	return nil
}

// List returns non-deleted tariffs, default first then newest first.
func (s *TariffService) List(ctx context.Context, f TariffFilter) (Page[Tariff], error) {
	f.PageRequest = f.PageRequest.normalize(s.limits)
	items, total, err := s.repo.ListTariffs(ctx, f)
	if err != nil {
		return Page[Tariff]{}, apperr.Internal(fmt.Errorf("list tariffs: %w", err))
	}
	if items == nil {
		items = []Tariff{}
	}
	return Page[Tariff]{Items: items, TotalCount: total, PageNumber: f.PageNumber, PageSize: f.PageSize}, nil
}

func (s *TariffService) GetByGid(ctx context.Context, gid string, includeRates bool) (Tariff, error) {
	t, ok, err := s.repo.GetTariffByGid(ctx, gid)
	if err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("get tariff: %w", err))
	}
	if !ok {
		return Tariff{}, errTariffNotFound
	}
	if includeRates {
		rates, err := s.repo.ListRatesByTariff(ctx, t.ID)
		if err != nil {
			return Tariff{}, apperr.Internal(fmt.Errorf("list tariff rates: %w", err))
		}
		t.Rates = rates
	}
	return t, nil
}

func (s *TariffService) GetDefault(ctx context.Context) (Tariff, error) {
	t, ok, err := s.repo.GetDefaultTariff(ctx)
	if err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("get default tariff: %w", err))
	}
	if !ok {
		return Tariff{}, apperr.NotFound("tariff_not_found", "no default tariff is configured")
	}
	return t, nil
}

func applyTariffRequest(t *Tariff, req TariffRequest) {
	t.Name = req.Name
	t.Description = req.Description
	t.CurrencyCode = req.CurrencyCode
	t.IsDefault = req.IsDefault
	t.IsActive = req.IsActive
	t.ValidTo = nil
	if req.ValidTo != nil {
		v := req.ValidTo.UTC()
		t.ValidTo = &v
	}
	t.BillingIncrement = req.BillingIncrement
	t.MinimumDuration = req.MinimumDuration
	t.ConnectionFee = req.ConnectionFee
}

func tariffStoreError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return errTariffNotFound
	case errors.Is(err, ErrDuplicateName):
		return errTariffNameTaken
	case errors.Is(err, ErrDefaultTariff):
		return errDeleteDefault
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}
