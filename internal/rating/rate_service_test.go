package rating

import (
	"context"
	"sync"
	"testing"
	"time"

	"telecom-rating/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateCreate_KeepsSixDecimalPlaces(t *testing.T) {
	f := newFixture(t)
	tr := f.mustTariff(t, tariffReq("Std", false))

	r := f.mustRate(t, rateReq(tr.Gid, "+48", "0.123456"))
	assert.True(t, dec("0.123456").Equal(r.RatePerMinute))

	r = f.mustRate(t, rateReq(tr.Gid, "+49", "0.1000000"))
	assert.True(t, dec("0.1").Equal(r.RatePerMinute))
}

func TestRateCreate(t *testing.T) {
	f := newFixture(t)
	tr := f.mustTariff(t, tariffReq("Std", false))

	r := f.mustRate(t, rateReq(tr.Gid, "+48 50-1", "0.15"))
	assert.Equal(t, "+48501", r.Prefix, "prefix is normalized like numbers")
	assert.Equal(t, tr.Gid, r.TariffGid)
	assert.True(t, r.EffectiveFrom.Equal(t0))
	assert.NotEmpty(t, r.Gid)
}

func TestRateCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.mustTariff(t, tariffReq("Std", false))

	cases := []struct {
		name string
		mut  func(*RateRequest)
		kind apperr.Kind
		code string
	}{
		{"no prefix", func(r *RateRequest) { r.Prefix = "" }, apperr.KindValidation, "prefix_required"},
		{"long prefix", func(r *RateRequest) { r.Prefix = "123456789012345678901234567890123" }, apperr.KindValidation, "prefix_max"},
		{"no destination", func(r *RateRequest) { r.DestinationName = "" }, apperr.KindValidation, "destination_name_required"},
		{"negative rate", func(r *RateRequest) { r.RatePerMinute = dec("-1") }, apperr.KindValidation, "rate_per_minute_gte"},
		{"negative fee", func(r *RateRequest) { r.ConnectionFee = ptr(dec("-1")) }, apperr.KindValidation, "connection_fee_gte"},
		{"zero increment", func(r *RateRequest) { r.BillingIncrement = ptr(0) }, apperr.KindValidation, "billing_increment_gt"},
		{"negative minimum", func(r *RateRequest) { r.MinimumDuration = ptr(-5) }, apperr.KindValidation, "minimum_duration_gte"},
		{"rate too precise", func(r *RateRequest) { r.RatePerMinute = dec("0.1234567") }, apperr.KindValidation, "rate_per_minute_scale"},
		{"rate too large", func(r *RateRequest) { r.RatePerMinute = dec("1e20") }, apperr.KindValidation, "rate_per_minute_lte"},
		{"fee too precise", func(r *RateRequest) { r.ConnectionFee = ptr(dec("0.0000001")) }, apperr.KindValidation, "connection_fee_scale"},
		{"increment beyond int32", func(r *RateRequest) { r.BillingIncrement = ptr(3000000000) }, apperr.KindValidation, "billing_increment_lte"},
		{"minimum beyond int32", func(r *RateRequest) { r.MinimumDuration = ptr(3000000000) }, apperr.KindValidation, "minimum_duration_lte"},
		{"window", func(r *RateRequest) { r.EffectiveTo = ptr(t0.Add(-time.Hour)) }, apperr.KindValidation, "effective_to_after_start"},
		{"unknown tariff", func(r *RateRequest) { r.TariffGid = "nope" }, apperr.KindValidation, "tariff_not_found"},
		{"unknown group", func(r *RateRequest) { r.DestinationGroupID = ptr(int64(404)) }, apperr.KindValidation, "destination_group_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := rateReq(tr.Gid, "+48", "0.1")
			tc.mut(&req)
			_, err := f.rates.Create(ctx, admin, req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.code, apperr.As(err).Code)
		})
	}
}

func TestRatePrefixUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustTariff(t, tariffReq("A", false))
	b := f.mustTariff(t, tariffReq("B", false))

	r48 := f.mustRate(t, rateReq(a.Gid, "+48", "0.1"))
	r49 := f.mustRate(t, rateReq(a.Gid, "+49", "0.2"))
	f.mustRate(t, rateReq(b.Gid, "+48", "0.3"))

	_, err := f.rates.Create(ctx, admin, rateReq(a.Gid, "+48", "0.5"))
	assert.True(t, apperr.HasCode(err, "prefix_exists"))
	assert.Equal(t, apperr.KindBusinessLogic, apperr.KindOf(err))

	_, err = f.rates.Update(ctx, admin, r49.Gid, rateReq(a.Gid, "+48", "0.2"))
	assert.True(t, apperr.HasCode(err, "prefix_exists"), "update onto another rate's prefix")

	_, err = f.rates.Update(ctx, admin, r48.Gid, rateReq(a.Gid, "+48", "0.11"))
	assert.NoError(t, err, "update keeping own prefix")

	_, err = f.rates.Update(ctx, admin, r48.Gid, rateReq(b.Gid, "+48", "0.11"))
	assert.True(t, apperr.HasCode(err, "prefix_exists"), "moving into a tariff that has the prefix")

	require.NoError(t, f.rates.Delete(ctx, admin, r49.Gid))
	f.mustRate(t, rateReq(a.Gid, "+49", "0.2"))
}

func TestRatePrefixUniqueness_ConcurrentCreates(t *testing.T) {
	f := newFixture(t)
	tr := f.mustTariff(t, tariffReq("Std", false))

	const writers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		dupes   int
		unknown []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.rates.Create(context.Background(), admin, rateReq(tr.Gid, "+48", "0.1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.HasCode(err, "prefix_exists"):
				dupes++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()
	assert.Empty(t, unknown)
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, dupes)
}

func TestRateUpdate_FullOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.mustTariff(t, tariffReq("Std", false))
	g, err := f.groups.Create(ctx, admin, DestinationGroupRequest{Name: "EU", IsActive: true})
	require.NoError(t, err)

	req := rateReq(tr.Gid, "+48", "0.1")
	req.ConnectionFee = ptr(dec("0.02"))
	req.DestinationGroupID = &g.ID
	r := f.mustRate(t, req)

	_, err = f.rates.Update(ctx, admin, "missing", req)
	assert.True(t, apperr.HasCode(err, "rate_not_found"))

	f.clock.Advance(time.Minute)
	got, err := f.rates.Update(ctx, admin, r.Gid, rateReq(tr.Gid, "+48", "0.2"))
	require.NoError(t, err)
	assert.Nil(t, got.ConnectionFee, "omitted override is cleared")
	assert.Nil(t, got.DestinationGroupID)
	assert.True(t, got.EffectiveFrom.Equal(r.EffectiveFrom))
	assert.True(t, got.UpdatedAt.After(r.UpdatedAt))

	stored, err := f.rates.GetByGid(ctx, r.Gid)
	require.NoError(t, err)
	assert.True(t, dec("0.2").Equal(stored.RatePerMinute))
}

func TestRateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.mustTariff(t, tariffReq("Std", false))
	r := f.mustRate(t, rateReq(tr.Gid, "+48", "0.1"))

	require.NoError(t, f.rates.Delete(ctx, admin, r.Gid))
	assert.True(t, apperr.HasCode(f.rates.Delete(ctx, admin, r.Gid), "rate_not_found"))
	_, err := f.rates.GetByGid(ctx, r.Gid)
	assert.True(t, apperr.HasCode(err, "rate_not_found"))

	_, err = f.lookup.FindRate(ctx, tr.Gid, "+48")
	assert.True(t, apperr.HasCode(err, "no_rate_for_number"))
}

func TestRateList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustTariff(t, tariffReq("A", false))
	b := f.mustTariff(t, tariffReq("B", false))
	g, err := f.groups.Create(ctx, admin, DestinationGroupRequest{Name: "Mobile", IsActive: true})
	require.NoError(t, err)

	for _, p := range []string{"+49", "+48", "+4850", "+1"} {
		req := rateReq(a.Gid, p, "0.1")
		if p == "+4850" {
			req.DestinationGroupID = &g.ID
			req.DestinationName = "Poland mobile"
		}
		f.mustRate(t, req)
	}
	inactive := rateReq(b.Gid, "+48", "0.1")
	inactive.IsActive = false
	f.mustRate(t, inactive)

	page, err := f.rates.List(ctx, RateFilter{TariffGid: a.Gid})
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount)
	var prefixes []string
	for _, r := range page.Items {
		prefixes = append(prefixes, r.Prefix)
	}
	assert.Equal(t, []string{"+1", "+48", "+4850", "+49"}, prefixes)

	page, err = f.rates.List(ctx, RateFilter{Prefix: "+48"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount, "starts-with across tariffs")

	page, err = f.rates.List(ctx, RateFilter{Search: "mobile"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)

	page, err = f.rates.List(ctx, RateFilter{DestinationGroupID: &g.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)

	page, err = f.rates.List(ctx, RateFilter{IsActive: ptr(false)})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, b.Gid, page.Items[0].TariffGid)

	page, err = f.rates.List(ctx, RateFilter{PageRequest: PageRequest{PageNumber: 3, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Len(t, page.Items, 1)
}
