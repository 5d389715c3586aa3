package rating

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"telecom-rating/internal/apperr"
	"telecom-rating/internal/migration"
	"telecom-rating/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPostgresFixture runs against a disposable database named by
// RATING_TEST_DSN. Tables are truncated before each test.
func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv("RATING_TEST_DSN")
	if dsn == "" {
		t.Skip("RATING_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := utils.OpenPostgres(ctx, dsn, utils.PostgresPoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migration.RunMigrations(db))
	_, err = db.ExecContext(ctx, `TRUNCATE rates, tariffs, destination_groups RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return newFixtureWithRepo(t, NewPostgresRepo(db))
}

func TestPostgres_ScenarioAndInvariants(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	f.clock.now = time.Now().UTC().Truncate(time.Microsecond).Add(-time.Minute)

	std := f.mustTariff(t, tariffReq("Standard", true))
	f.mustRate(t, rateReq(std.Gid, "+48", "0.15"))
	f.mustRate(t, rateReq(std.Gid, "+49", "0.25"))
	f.mustRate(t, rateReq(std.Gid, "+1", "0.10"))
	f.clock.Advance(time.Second)

	m, err := f.lookup.FindRate(ctx, std.Gid, "+48 501 111 111")
	require.NoError(t, err)
	assert.Equal(t, "+48", m.MatchedPrefix)
	assert.True(t, dec("0.15").Equal(m.RatePerMinute))

	_, err = f.lookup.FindRate(ctx, std.Gid, "+33123456789")
	assert.True(t, apperr.HasCode(err, "no_rate_for_number"))

	_, err = f.rates.Create(ctx, admin, rateReq(std.Gid, "+48", "0.5"))
	assert.True(t, apperr.HasCode(err, "prefix_exists"))

	assert.True(t, apperr.HasCode(f.tariffs.Delete(ctx, admin, std.Gid), "cannot_delete_default"))

	other := f.mustTariff(t, tariffReq("Other", true))
	def, err := f.tariffs.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, other.Gid, def.Gid)
	require.NoError(t, f.tariffs.Delete(ctx, admin, std.Gid))

	page, err := f.rates.List(ctx, RateFilter{TariffGid: std.Gid})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount, "rates cascaded")
}

func TestPostgres_ConcurrentDefaultAndPrefixWriters(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tariffs.Create(ctx, admin, tariffReq(fmt.Sprintf("T%d-%s", i, uuid.NewString()[:8]), true))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page, err := f.tariffs.List(ctx, TariffFilter{PageRequest: PageRequest{PageSize: 100}})
	require.NoError(t, err)
	defaults := 0
	for _, tr := range page.Items {
		if tr.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	tr := page.Items[0]
	var (
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.rates.Create(ctx, admin, rateReq(tr.Gid, "+44", "0.1"))
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.True(t, apperr.HasCode(err, "prefix_exists"), "unexpected error: %v", err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestPostgres_Groups(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	g, err := f.groups.Create(ctx, admin, DestinationGroupRequest{Name: "EU", Names: map[string]string{"pl": "Europa"}, IsActive: true})
	require.NoError(t, err)
	_, err = f.groups.Create(ctx, admin, DestinationGroupRequest{Name: "EU"})
	assert.True(t, apperr.HasCode(err, "name_exists"))

	tr := f.mustTariff(t, tariffReq("Std", false))
	req := rateReq(tr.Gid, "+48", "0.1")
	req.DestinationGroupID = &g.ID
	r := f.mustRate(t, req)

	got, err := f.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europa", got.Names["pl"])

	require.NoError(t, f.groups.Delete(ctx, admin, g.ID))
	rate, err := f.rates.GetByGid(ctx, r.Gid)
	require.NoError(t, err)
	assert.Nil(t, rate.DestinationGroupID)
}
