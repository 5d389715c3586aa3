package rating

import (
	"context"
	"errors"
	"fmt"

	"telecom-rating/internal/apperr"
	"telecom-rating/internal/auth"

	"github.com/google/uuid"
)

// RateService manages the per-prefix rates of tariffs.
type RateService struct {
	base
	repo Repository
}

func NewRateService(repo Repository, opts Options) *RateService {
	return &RateService{base: newBase(opts), repo: repo}
}

var (
	errRateNotFound      = apperr.NotFound("rate_not_found", "rate not found")
	errPrefixExists      = apperr.BusinessLogic("prefix_exists", "a rate with this prefix already exists in the tariff")
	errRateTariffMissing = apperr.Validation("tariff_not_found", "tariffGid does not reference an existing tariff")
	errRateGroupMissing  = apperr.Validation("destination_group_not_found", "destinationGroupId does not reference an existing destination group")
)

func (s *RateService) Create(ctx context.Context, actor auth.Info, req RateRequest) (Rate, error) {
	req = normalizeRateRequest(req)
	if err := validateRateRequest(req); err != nil {
		return Rate{}, err
	}
	now := s.now()
	effectiveFrom := now
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}
	if err := checkWindow("effective_to", effectiveFrom, req.EffectiveTo); err != nil {
		return Rate{}, err
	}

	t, err := s.resolveReferences(ctx, req)
	if err != nil {
		return Rate{}, err
	}
	if _, ok, err := s.repo.GetRateByPrefix(ctx, t.ID, req.Prefix); err != nil {
		return Rate{}, apperr.Internal(fmt.Errorf("lookup rate prefix: %w", err))
	} else if ok {
		return Rate{}, errPrefixExists
	}

	r := Rate{
		Gid:           uuid.NewString(),
		TariffID:      t.ID,
		TariffGid:     t.Gid,
		EffectiveFrom: effectiveFrom,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     actor.UserID,
		UpdatedBy:     actor.UserID,
	}
	applyRateRequest(&r, req)

	if err := s.repo.InsertRate(ctx, &r); err != nil {
		return Rate{}, rateStoreError("insert rate", err)
	}
	s.record(ctx, Change{Action: "create", EntityType: "rate", EntityRef: r.Gid, Actor: actor, Message: r.TariffGid + " " + r.Prefix})
	return r, nil
}

// Update overwrites every field of the rate, including moving it to another
// tariff. Prefix uniqueness is checked against the target tariff.
func (s *RateService) Update(ctx context.Context, actor auth.Info, gid string, req RateRequest) (Rate, error) {
	r, ok, err := s.repo.GetRateByGid(ctx, gid)
	if err != nil {
		return Rate{}, apperr.Internal(fmt.Errorf("get rate: %w", err))
	}
	if !ok {
		return Rate{}, errRateNotFound
	}

	req = normalizeRateRequest(req)
	if err := validateRateRequest(req); err != nil {
		return Rate{}, err
	}
	effectiveFrom := r.EffectiveFrom
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}
	if err := checkWindow("effective_to", effectiveFrom, req.EffectiveTo); err != nil {
		return Rate{}, err
	}

	t, err := s.resolveReferences(ctx, req)
	if err != nil {
		return Rate{}, err
	}
	other, ok, err := s.repo.GetRateByPrefix(ctx, t.ID, req.Prefix)
	if err != nil {
		return Rate{}, apperr.Internal(fmt.Errorf("lookup rate prefix: %w", err))
	}
	if ok && other.ID != r.ID {
		return Rate{}, errPrefixExists
	}

	applyRateRequest(&r, req)
	r.TariffID = t.ID
	r.TariffGid = t.Gid
	r.EffectiveFrom = effectiveFrom
	r.UpdatedAt = s.now()
	r.UpdatedBy = actor.UserID

	if err := s.repo.UpdateRate(ctx, &r); err != nil {
		return Rate{}, rateStoreError("update rate", err)
	}
	s.record(ctx, Change{Action: "update", EntityType: "rate", EntityRef: r.Gid, Actor: actor, Message: r.TariffGid + " " + r.Prefix})
	return r, nil
}

func (s *RateService) Delete(ctx context.Context, actor auth.Info, gid string) error {
	r, ok, err := s.repo.GetRateByGid(ctx, gid)
	if err != nil {
		return apperr.Internal(fmt.Errorf("get rate: %w", err))
	}
	if !ok {
		return errRateNotFound
	}
	if err := s.repo.SoftDeleteRate(ctx, r.ID, s.now(), actor.UserID); err != nil {
		return rateStoreError("delete rate", err)
	}
	s.record(ctx, Change{Action: "delete", EntityType: "rate", EntityRef: r.Gid, Actor: actor, Message: r.TariffGid + " " + r.Prefix})
	return nil
}

// List returns non-deleted rates ordered by prefix.
func (s *RateService) List(ctx context.Context, f RateFilter) (Page[Rate], error) {
	f.PageRequest = f.PageRequest.normalize(s.limits)
	f.Prefix = NormalizeNumber(f.Prefix)
	items, total, err := s.repo.ListRates(ctx, f)
	if err != nil {
		return Page[Rate]{}, apperr.Internal(fmt.Errorf("list rates: %w", err))
	}
	if items == nil {
		items = []Rate{}
	}
	return Page[Rate]{Items: items, TotalCount: total, PageNumber: f.PageNumber, PageSize: f.PageSize}, nil
}

func (s *RateService) GetByGid(ctx context.Context, gid string) (Rate, error) {
	r, ok, err := s.repo.GetRateByGid(ctx, gid)
	if err != nil {
		return Rate{}, apperr.Internal(fmt.Errorf("get rate: %w", err))
	}
	if !ok {
		return Rate{}, errRateNotFound
	}
	return r, nil
}

func (s *RateService) resolveReferences(ctx context.Context, req RateRequest) (Tariff, error) {
	t, ok, err := s.repo.GetTariffByGid(ctx, req.TariffGid)
	if err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("get tariff: %w", err))
	}
	if !ok {
		return Tariff{}, errRateTariffMissing
	}
	if req.DestinationGroupID != nil {
		_, ok, err := s.repo.GetGroup(ctx, *req.DestinationGroupID)
		if err != nil {
			return Tariff{}, apperr.Internal(fmt.Errorf("get destination group: %w", err))
		}
		if !ok {
			return Tariff{}, errRateGroupMissing
		}
	}
	return t, nil
}

func applyRateRequest(r *Rate, req RateRequest) {
	r.Prefix = req.Prefix
	r.DestinationName = req.DestinationName
	r.RatePerMinute = req.RatePerMinute
	r.ConnectionFee = req.ConnectionFee
	r.BillingIncrement = req.BillingIncrement
	r.MinimumDuration = req.MinimumDuration
	r.EffectiveTo = nil
	if req.EffectiveTo != nil {
		v := req.EffectiveTo.UTC()
		r.EffectiveTo = &v
	}
	r.IsActive = req.IsActive
	r.DestinationGroupID = req.DestinationGroupID
}

func rateStoreError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return errRateNotFound
	case errors.Is(err, ErrDuplicatePrefix):
		return errPrefixExists
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}
