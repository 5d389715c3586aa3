package rating

import (
	"context"
	"sync"
	"testing"
	"time"

	"telecom-rating/internal/auth"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	admin = auth.Info{UserID: "admin-1", Roles: []string{"rating_admin"}}
	t0    = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) RecordChange(ctx context.Context, c Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

type fixture struct {
	repo    *MemoryRepo
	clock   *fakeClock
	changes *recorder
	tariffs *TariffService
	rates   *RateService
	groups  *GroupService
	lookup  *LookupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, NewMemoryRepo())
}

func newFixtureWithRepo(t *testing.T, repo Repository) *fixture {
	t.Helper()
	f := &fixture{clock: &fakeClock{now: t0}, changes: &recorder{}}
	if m, ok := repo.(*MemoryRepo); ok {
		f.repo = m
	}
	opts := Options{Changes: f.changes, Clock: f.clock.Now}
	f.tariffs = NewTariffService(repo, opts)
	f.rates = NewRateService(repo, opts)
	f.groups = NewGroupService(repo, opts)
	f.lookup = NewLookupService(repo, opts)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tariffReq(name string, isDefault bool) TariffRequest {
	return TariffRequest{
		Name:             name,
		CurrencyCode:     "PLN",
		IsDefault:        isDefault,
		IsActive:         true,
		BillingIncrement: 60,
	}
}

func rateReq(tariffGid, prefix, price string) RateRequest {
	return RateRequest{
		TariffGid:       tariffGid,
		Prefix:          prefix,
		DestinationName: "dest " + prefix,
		RatePerMinute:   dec(price),
		IsActive:        true,
	}
}

func (f *fixture) mustTariff(t *testing.T, req TariffRequest) Tariff {
	t.Helper()
	tr, err := f.tariffs.Create(context.Background(), admin, req)
	require.NoError(t, err)
	return tr
}

func (f *fixture) mustRate(t *testing.T, req RateRequest) Rate {
	t.Helper()
	r, err := f.rates.Create(context.Background(), admin, req)
	require.NoError(t, err)
	return r
}

func ptr[T any](v T) *T { return &v }
