package rating

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"telecom-rating/pkg/utils"

	"github.com/shopspring/decimal"
)

// defaultTariffLockKey serializes default swaps across connections.
const defaultTariffLockKey int64 = 0x7261_7469_6e67 // "rating"

// Constraint names from the migrations, used to translate unique violations.
const (
	constraintTariffName   = "tariffs_name_active_key"
	constraintTariffSingle = "tariffs_single_default_key"
	constraintRatePrefix   = "rates_tariff_prefix_active_key"
	constraintGroupName    = "destination_groups_name_key"
)

// PostgresRepo implements Repository on database/sql with the pgx driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- tariffs ---

const tariffColumns = `id, gid, name, description, currency_code, is_default, is_active,
	valid_from, valid_to, billing_increment, minimum_duration, connection_fee,
	created_at, updated_at, created_by, updated_by, is_deleted, deleted_at`

func scanTariff(row rowScanner) (Tariff, error) {
	var (
		t         Tariff
		validTo   sql.NullTime
		deletedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Gid, &t.Name, &t.Description, &t.CurrencyCode, &t.IsDefault, &t.IsActive,
		&t.ValidFrom, &validTo, &t.BillingIncrement, &t.MinimumDuration, &t.ConnectionFee,
		&t.CreatedAt, &t.UpdatedAt, &t.CreatedBy, &t.UpdatedBy, &t.IsDeleted, &deletedAt)
	if err != nil {
		return Tariff{}, err
	}
	t.ValidTo = timePtr(validTo)
	t.DeletedAt = timePtr(deletedAt)
	return t, nil
}

func (r *PostgresRepo) InsertTariff(ctx context.Context, t *Tariff) error {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if t.IsDefault {
			if err := clearDefaults(ctx, tx, 0); err != nil {
				return err
			}
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO tariffs (gid, name, description, currency_code, is_default, is_active,
				valid_from, valid_to, billing_increment, minimum_duration, connection_fee,
				created_at, updated_at, created_by, updated_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			RETURNING id`,
			t.Gid, t.Name, t.Description, t.CurrencyCode, t.IsDefault, t.IsActive,
			t.ValidFrom, t.ValidTo, t.BillingIncrement, t.MinimumDuration, t.ConnectionFee,
			t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy,
		).Scan(&t.ID)
	})
	return translate(err)
}

func (r *PostgresRepo) UpdateTariff(ctx context.Context, t *Tariff) error {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if t.IsDefault {
			if err := clearDefaults(ctx, tx, t.ID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE tariffs SET name=$2, description=$3, currency_code=$4, is_default=$5, is_active=$6,
				valid_from=$7, valid_to=$8, billing_increment=$9, minimum_duration=$10, connection_fee=$11,
				updated_at=$12, updated_by=$13
			WHERE id=$1 AND NOT is_deleted`,
			t.ID, t.Name, t.Description, t.CurrencyCode, t.IsDefault, t.IsActive,
			t.ValidFrom, t.ValidTo, t.BillingIncrement, t.MinimumDuration, t.ConnectionFee,
			t.UpdatedAt, t.UpdatedBy,
		)
		if err != nil {
			return err
		}
		return expectOne(res)
	})
	return translate(err)
}

// clearDefaults takes the default-swap lock and unsets every other default
// within tx.
func clearDefaults(ctx context.Context, tx *sql.Tx, exceptID int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, defaultTariffLockKey); err != nil {
		return fmt.Errorf("default tariff lock: %w", err)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE tariffs SET is_default = false WHERE is_default AND NOT is_deleted AND id <> $1`, exceptID)
	return err
}

func (r *PostgresRepo) SoftDeleteTariff(ctx context.Context, id int64, at time.Time, by string) error {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tariffs SET is_deleted = true, deleted_at = $2, updated_at = $2, updated_by = $3
			WHERE id = $1 AND NOT is_deleted AND NOT is_default`, id, at, by)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var isDefault bool
			err := tx.QueryRowContext(ctx,
				`SELECT is_default FROM tariffs WHERE id = $1 AND NOT is_deleted`, id).Scan(&isDefault)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			return ErrDefaultTariff
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE rates SET is_deleted = true, deleted_at = $2, updated_at = $2, updated_by = $3
			WHERE tariff_id = $1 AND NOT is_deleted`, id, at, by)
		return err
	})
	return translate(err)
}

func (r *PostgresRepo) GetTariffByGid(ctx context.Context, gid string) (Tariff, bool, error) {
	return r.findTariff(ctx, `WHERE gid::text = $1 AND NOT is_deleted`, gid)
}

func (r *PostgresRepo) GetTariffByName(ctx context.Context, name string) (Tariff, bool, error) {
	return r.findTariff(ctx, `WHERE name = $1 AND NOT is_deleted`, name)
}

func (r *PostgresRepo) GetDefaultTariff(ctx context.Context) (Tariff, bool, error) {
	return r.findTariff(ctx, `WHERE is_default AND NOT is_deleted`)
}

func (r *PostgresRepo) findTariff(ctx context.Context, where string, args ...any) (Tariff, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tariffColumns+` FROM tariffs `+where+` LIMIT 1`, args...)
	t, err := scanTariff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Tariff{}, false, nil
	}
	if err != nil {
		return Tariff{}, false, err
	}
	return t, true, nil
}

func (r *PostgresRepo) ListTariffs(ctx context.Context, f TariffFilter) ([]Tariff, int, error) {
	w := newWhere(`NOT is_deleted`)
	if s := strings.TrimSpace(f.Search); s != "" {
		n := w.arg(likePattern(s))
		w.add(fmt.Sprintf(`(name ILIKE %s OR description ILIKE %s)`, n, n))
	}
	if f.IsActive != nil {
		w.add(`is_active = ` + w.arg(*f.IsActive))
	}
	if f.CurrencyCode != "" {
		w.add(`currency_code = ` + w.arg(strings.ToUpper(f.CurrencyCode)))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM tariffs `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := w.arg(f.PageSize), w.arg(f.Offset())
	rows, err := r.db.QueryContext(ctx, `SELECT `+tariffColumns+` FROM tariffs `+w.String()+
		` ORDER BY is_default DESC, created_at DESC, id DESC LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Tariff{}
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// --- rates ---

const rateColumns = `r.id, r.gid, r.tariff_id, t.gid, r.prefix, r.destination_name, r.rate_per_minute,
	r.connection_fee, r.billing_increment, r.minimum_duration, r.effective_from, r.effective_to,
	r.is_active, r.destination_group_id, r.created_at, r.updated_at, r.created_by, r.updated_by,
	r.is_deleted, r.deleted_at`

const rateFrom = ` FROM rates r JOIN tariffs t ON t.id = r.tariff_id `

func scanRate(row rowScanner) (Rate, error) {
	var (
		rt          Rate
		fee         decimal.NullDecimal
		increment   sql.NullInt64
		minimum     sql.NullInt64
		effectiveTo sql.NullTime
		groupID     sql.NullInt64
		deletedAt   sql.NullTime
	)
	err := row.Scan(&rt.ID, &rt.Gid, &rt.TariffID, &rt.TariffGid, &rt.Prefix, &rt.DestinationName, &rt.RatePerMinute,
		&fee, &increment, &minimum, &rt.EffectiveFrom, &effectiveTo,
		&rt.IsActive, &groupID, &rt.CreatedAt, &rt.UpdatedAt, &rt.CreatedBy, &rt.UpdatedBy,
		&rt.IsDeleted, &deletedAt)
	if err != nil {
		return Rate{}, err
	}
	if fee.Valid {
		rt.ConnectionFee = &fee.Decimal
	}
	rt.BillingIncrement = intPtr(increment)
	rt.MinimumDuration = intPtr(minimum)
	rt.EffectiveTo = timePtr(effectiveTo)
	if groupID.Valid {
		rt.DestinationGroupID = &groupID.Int64
	}
	rt.DeletedAt = timePtr(deletedAt)
	return rt, nil
}

func (r *PostgresRepo) InsertRate(ctx context.Context, rt *Rate) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO rates (gid, tariff_id, prefix, destination_name, rate_per_minute,
			connection_fee, billing_increment, minimum_duration, effective_from, effective_to,
			is_active, destination_group_id, created_at, updated_at, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		rt.Gid, rt.TariffID, rt.Prefix, rt.DestinationName, rt.RatePerMinute,
		nullDecimal(rt.ConnectionFee), rt.BillingIncrement, rt.MinimumDuration, rt.EffectiveFrom, rt.EffectiveTo,
		rt.IsActive, rt.DestinationGroupID, rt.CreatedAt, rt.UpdatedAt, rt.CreatedBy, rt.UpdatedBy,
	).Scan(&rt.ID)
	return translate(err)
}

func (r *PostgresRepo) UpdateRate(ctx context.Context, rt *Rate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rates SET tariff_id=$2, prefix=$3, destination_name=$4, rate_per_minute=$5,
			connection_fee=$6, billing_increment=$7, minimum_duration=$8, effective_from=$9, effective_to=$10,
			is_active=$11, destination_group_id=$12, updated_at=$13, updated_by=$14
		WHERE id=$1 AND NOT is_deleted`,
		rt.ID, rt.TariffID, rt.Prefix, rt.DestinationName, rt.RatePerMinute,
		nullDecimal(rt.ConnectionFee), rt.BillingIncrement, rt.MinimumDuration, rt.EffectiveFrom, rt.EffectiveTo,
		rt.IsActive, rt.DestinationGroupID, rt.UpdatedAt, rt.UpdatedBy,
	)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

func (r *PostgresRepo) SoftDeleteRate(ctx context.Context, id int64, at time.Time, by string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rates SET is_deleted = true, deleted_at = $2, updated_at = $2, updated_by = $3
		WHERE id = $1 AND NOT is_deleted`, id, at, by)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *PostgresRepo) GetRateByGid(ctx context.Context, gid string) (Rate, bool, error) {
	return r.findRate(ctx, `WHERE r.gid::text = $1 AND NOT r.is_deleted`, gid)
}

func (r *PostgresRepo) GetRateByPrefix(ctx context.Context, tariffID int64, prefix string) (Rate, bool, error) {
	return r.findRate(ctx, `WHERE r.tariff_id = $1 AND r.prefix = $2 AND NOT r.is_deleted`, tariffID, prefix)
}

func (r *PostgresRepo) findRate(ctx context.Context, where string, args ...any) (Rate, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rateColumns+rateFrom+where+` LIMIT 1`, args...)
	rt, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Rate{}, false, nil
	}
	if err != nil {
		return Rate{}, false, err
	}
	return rt, true, nil
}

func (r *PostgresRepo) ListRates(ctx context.Context, f RateFilter) ([]Rate, int, error) {
	w := newWhere(`NOT r.is_deleted`)
	if s := strings.TrimSpace(f.Search); s != "" {
		n := w.arg(likePattern(s))
		w.add(fmt.Sprintf(`(r.prefix ILIKE %s OR r.destination_name ILIKE %s)`, n, n))
	}
	if f.TariffGid != "" {
		w.add(`t.gid::text = ` + w.arg(f.TariffGid))
	}
	if f.Prefix != "" {
		w.add(`r.prefix LIKE ` + w.arg(escapeLike(f.Prefix)+"%"))
	}
	if f.DestinationGroupID != nil {
		w.add(`r.destination_group_id = ` + w.arg(*f.DestinationGroupID))
	}
	if f.IsActive != nil {
		w.add(`r.is_active = ` + w.arg(*f.IsActive))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*)`+rateFrom+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := w.arg(f.PageSize), w.arg(f.Offset())
	out, err := r.queryRates(ctx, `SELECT `+rateColumns+rateFrom+w.String()+
		` ORDER BY r.prefix, r.id LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresRepo) ListRatesByTariff(ctx context.Context, tariffID int64) ([]Rate, error) {
	return r.queryRates(ctx, `SELECT `+rateColumns+rateFrom+
		`WHERE r.tariff_id = $1 AND NOT r.is_deleted ORDER BY r.prefix, r.id`, tariffID)
}

func (r *PostgresRepo) ListCandidateRates(ctx context.Context, tariffID int64, at time.Time) ([]Rate, error) {
	return r.queryRates(ctx, `SELECT `+rateColumns+rateFrom+`
		WHERE r.tariff_id = $1 AND NOT r.is_deleted AND r.is_active
			AND r.effective_from <= $2 AND (r.effective_to IS NULL OR r.effective_to > $2)`, tariffID, at)
}

func (r *PostgresRepo) queryRates(ctx context.Context, query string, args ...any) ([]Rate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Rate{}
	for rows.Next() {
		rt, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// --- destination groups ---

const groupColumns = `id, name, names, is_active, created_at, updated_at`

func scanGroup(row rowScanner) (DestinationGroup, error) {
	var (
		g   DestinationGroup
		raw []byte
	)
	if err := row.Scan(&g.ID, &g.Name, &raw, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return DestinationGroup{}, err
	}
	g.Names = map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &g.Names); err != nil {
			return DestinationGroup{}, fmt.Errorf("decode group names: %w", err)
		}
	}
	return g, nil
}

func (r *PostgresRepo) InsertGroup(ctx context.Context, g *DestinationGroup) error {
	names, err := json.Marshal(copyNames(g.Names))
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO destination_groups (name, names, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		g.Name, string(names), g.IsActive, g.CreatedAt, g.UpdatedAt,
	).Scan(&g.ID)
	return translate(err)
}

func (r *PostgresRepo) UpdateGroup(ctx context.Context, g *DestinationGroup) error {
	names, err := json.Marshal(copyNames(g.Names))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE destination_groups SET name = $2, names = $3, is_active = $4, updated_at = $5
		WHERE id = $1`, g.ID, g.Name, string(names), g.IsActive, g.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// DeleteGroup relies on ON DELETE SET NULL to untag rates.
func (r *PostgresRepo) DeleteGroup(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM destination_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *PostgresRepo) GetGroup(ctx context.Context, id int64) (DestinationGroup, bool, error) {
	return r.findGroup(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepo) GetGroupByName(ctx context.Context, name string) (DestinationGroup, bool, error) {
	return r.findGroup(ctx, `WHERE name = $1`, name)
}

func (r *PostgresRepo) findGroup(ctx context.Context, where string, args ...any) (DestinationGroup, bool, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM destination_groups `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return DestinationGroup{}, false, nil
	}
	if err != nil {
		return DestinationGroup{}, false, err
	}
	return g, true, nil
}

func (r *PostgresRepo) ListGroups(ctx context.Context, activeOnly bool) ([]DestinationGroup, error) {
	q := `SELECT ` + groupColumns + ` FROM destination_groups`
	if activeOnly {
		q += ` WHERE is_active`
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DestinationGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// --- helpers ---

type whereBuilder struct {
	conds []string
	args  []any
}

func newWhere(conds ...string) *whereBuilder { return &whereBuilder{conds: conds} }

func (w *whereBuilder) add(cond string) { w.conds = append(w.conds, cond) }

// arg appends a bind value and returns its placeholder.
func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func likePattern(s string) string { return "%" + escapeLike(s) + "%" }

// translate maps constraint violations onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDefaultTariff) {
		return err
	}
	if constraint, ok := utils.UniqueViolation(err); ok {
		switch constraint {
		case constraintTariffName, constraintGroupName:
			return fmt.Errorf("%w: %v", ErrDuplicateName, err)
		case constraintRatePrefix:
			return fmt.Errorf("%w: %v", ErrDuplicatePrefix, err)
		case constraintTariffSingle:
			// The advisory lock makes this unreachable unless a writer bypasses it.
			return fmt.Errorf("concurrent default tariff write: %w", err)
		}
	}
	if utils.ForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
