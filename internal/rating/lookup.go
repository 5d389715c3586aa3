package rating

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telecom-rating/internal/apperr"
)

// NormalizeNumber strips spaces and hyphens. No other canonicalization is
// applied: tabs and other whitespace are kept, and "+48..." and "0048..."
// are different numbers.
func NormalizeNumber(s string) string {
	if !strings.ContainsAny(s, " -") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != ' ' && c != '-' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsEffective reports whether r is active and at falls within
// [EffectiveFrom, EffectiveTo). A nil EffectiveTo is open-ended.
func (r Rate) IsEffective(at time.Time) bool {
	if !r.IsActive || r.IsDeleted {
		return false
	}
	if at.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || at.Before(*r.EffectiveTo)
}

// MatchLongestPrefix returns the effective candidate whose prefix is the
// longest literal prefix of number. Ties cannot occur among unique prefixes;
// the first one seen wins otherwise.
func MatchLongestPrefix(candidates []Rate, number string, at time.Time) (Rate, bool) {
	var (
		best  Rate
		found bool
	)
	for _, r := range candidates {
		if r.Prefix == "" || !r.IsEffective(at) {
			continue
		}
		if !strings.HasPrefix(number, r.Prefix) {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}

// LookupService resolves the rate applying to a dialed number. It reads
// storage on every call and keeps no cache, so rate edits are visible to the
// next lookup.
type LookupService struct {
	base
	repo Repository
}

func NewLookupService(repo Repository, opts Options) *LookupService {
	return &LookupService{base: newBase(opts), repo: repo}
}

// FindRate matches phoneNumber against the rates of the tariff identified by
// tariffGid. An empty tariffGid selects the default tariff.
func (s *LookupService) FindRate(ctx context.Context, tariffGid, phoneNumber string) (m Match, err error) {
	start := s.clock()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveLookup(lookupOutcome(err), s.clock().Sub(start))
		}
	}()

	number := NormalizeNumber(phoneNumber)
	if number == "" {
		return Match{}, apperr.Validation("phone_number_required", "phoneNumber is required")
	}

	t, err := s.resolveTariff(ctx, strings.TrimSpace(tariffGid))
	if err != nil {
		return Match{}, err
	}

	at := s.now()
	candidates, err := s.repo.ListCandidateRates(ctx, t.ID, at)
	if err != nil {
		return Match{}, apperr.Internal(fmt.Errorf("list candidate rates: %w", err))
	}
	r, ok := MatchLongestPrefix(candidates, number, at)
	if !ok {
		return Match{}, apperr.NotFound("no_rate_for_number", "no rate matches "+number)
	}
	return newMatch(t, r, number), nil
}

// GetTariff returns a tariff summary without its rates.
func (s *LookupService) GetTariff(ctx context.Context, tariffGid string) (Tariff, error) {
	return s.resolveTariff(ctx, strings.TrimSpace(tariffGid))
}

func (s *LookupService) resolveTariff(ctx context.Context, gid string) (Tariff, error) {
	var (
		t   Tariff
		ok  bool
		err error
	)
	if gid == "" {
		t, ok, err = s.repo.GetDefaultTariff(ctx)
	} else {
		t, ok, err = s.repo.GetTariffByGid(ctx, gid)
	}
	if err != nil {
		return Tariff{}, apperr.Internal(fmt.Errorf("get tariff: %w", err))
	}
	if !ok {
		return Tariff{}, errTariffNotFound
	}
	return t, nil
}

func lookupOutcome(err error) string {
	if err == nil {
		return OutcomeMatched
	}
	switch {
	case apperr.HasCode(err, "no_rate_for_number"):
		return OutcomeNoRate
	case apperr.HasCode(err, "tariff_not_found"):
		return OutcomeTariffNotFound
	case apperr.KindOf(err) == apperr.KindValidation:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
