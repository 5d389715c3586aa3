package rating

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs. A single
// mutex serializes writes, which makes the default swap and the delete guard
// atomic in the same way the Postgres transaction does.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64

	tariffs map[int64]Tariff
	rates   map[int64]Rate
	groups  map[int64]DestinationGroup
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tariffs: make(map[int64]Tariff),
		rates:   make(map[int64]Rate),
		groups:  make(map[int64]DestinationGroup),
	}
}

func (r *MemoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

// --- tariffs ---

func (r *MemoryRepo) InsertTariff(ctx context.Context, t *Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tariffNameTaken(t.Name, 0) {
		return ErrDuplicateName
	}
	t.ID = r.id()
	if t.IsDefault {
		r.clearDefaults(t.ID)
	}
	r.tariffs[t.ID] = cloneTariff(*t)
	return nil
}

func (r *MemoryRepo) UpdateTariff(ctx context.Context, t *Tariff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tariffs[t.ID]
	if !ok || cur.IsDeleted {
		return ErrNotFound
	}
	if r.tariffNameTaken(t.Name, t.ID) {
		return ErrDuplicateName
	}
	if t.IsDefault {
		r.clearDefaults(t.ID)
	}
	r.tariffs[t.ID] = cloneTariff(*t)
	return nil
}

func (r *MemoryRepo) SoftDeleteTariff(ctx context.Context, id int64, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tariffs[id]
	if !ok || t.IsDeleted {
		return ErrNotFound
	}
	if t.IsDefault {
		return ErrDefaultTariff
	}
	t.IsDeleted = true
	t.DeletedAt = &at
	t.UpdatedAt = at
	t.UpdatedBy = by
	r.tariffs[id] = t
	for rid, rate := range r.rates {
		if rate.TariffID != id || rate.IsDeleted {
			continue
		}
		rate.IsDeleted = true
		rate.DeletedAt = &at
		rate.UpdatedAt = at
		rate.UpdatedBy = by
		r.rates[rid] = rate
	}
	return nil
}

func (r *MemoryRepo) GetTariffByGid(ctx context.Context, gid string) (Tariff, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tariffs {
		if t.Gid == gid && !t.IsDeleted {
			return cloneTariff(t), true, nil
		}
	}
	return Tariff{}, false, nil
}

func (r *MemoryRepo) GetTariffByName(ctx context.Context, name string) (Tariff, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tariffs {
		if t.Name == name && !t.IsDeleted {
			return cloneTariff(t), true, nil
		}
	}
	return Tariff{}, false, nil
}

func (r *MemoryRepo) GetDefaultTariff(ctx context.Context) (Tariff, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tariffs {
		if t.IsDefault && !t.IsDeleted {
			return cloneTariff(t), true, nil
		}
	}
	return Tariff{}, false, nil
}

func (r *MemoryRepo) ListTariffs(ctx context.Context, f TariffFilter) ([]Tariff, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []Tariff
	for _, t := range r.tariffs {
		if t.IsDeleted {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if f.IsActive != nil && t.IsActive != *f.IsActive {
			continue
		}
		if f.CurrencyCode != "" && !strings.EqualFold(t.CurrencyCode, f.CurrencyCode) {
			continue
		}
		out = append(out, cloneTariff(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, f.PageRequest), len(out), nil
}

func (r *MemoryRepo) tariffNameTaken(name string, exceptID int64) bool {
	for id, t := range r.tariffs {
		if id != exceptID && !t.IsDeleted && t.Name == name {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) clearDefaults(exceptID int64) {
	for id, t := range r.tariffs {
		if id != exceptID && t.IsDefault && !t.IsDeleted {
			t.IsDefault = false
			r.tariffs[id] = t
		}
	}
}

// --- rates ---

func (r *MemoryRepo) InsertRate(ctx context.Context, rate *Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkRateRefs(rate); err != nil {
		return err
	}
	if r.prefixTaken(rate.TariffID, rate.Prefix, 0) {
		return ErrDuplicatePrefix
	}
	rate.ID = r.id()
	r.rates[rate.ID] = cloneRate(*rate)
	return nil
}

func (r *MemoryRepo) UpdateRate(ctx context.Context, rate *Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rates[rate.ID]
	if !ok || cur.IsDeleted {
		return ErrNotFound
	}
	if err := r.checkRateRefs(rate); err != nil {
		return err
	}
	if r.prefixTaken(rate.TariffID, rate.Prefix, rate.ID) {
		return ErrDuplicatePrefix
	}
	r.rates[rate.ID] = cloneRate(*rate)
	return nil
}

func (r *MemoryRepo) SoftDeleteRate(ctx context.Context, id int64, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate, ok := r.rates[id]
	if !ok || rate.IsDeleted {
		return ErrNotFound
	}
	rate.IsDeleted = true
	rate.DeletedAt = &at
	rate.UpdatedAt = at
	rate.UpdatedBy = by
	r.rates[id] = rate
	return nil
}

func (r *MemoryRepo) GetRateByGid(ctx context.Context, gid string) (Rate, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rate := range r.rates {
		if rate.Gid == gid && !rate.IsDeleted {
			return r.withTariffGid(rate), true, nil
		}
	}
	return Rate{}, false, nil
}

func (r *MemoryRepo) GetRateByPrefix(ctx context.Context, tariffID int64, prefix string) (Rate, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rate := range r.rates {
		if rate.TariffID == tariffID && rate.Prefix == prefix && !rate.IsDeleted {
			return r.withTariffGid(rate), true, nil
		}
	}
	return Rate{}, false, nil
}

func (r *MemoryRepo) ListRates(ctx context.Context, f RateFilter) ([]Rate, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []Rate
	for _, rate := range r.rates {
		if rate.IsDeleted {
			continue
		}
		rate = r.withTariffGid(rate)
		if f.TariffGid != "" && rate.TariffGid != f.TariffGid {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rate.Prefix), search) &&
			!strings.Contains(strings.ToLower(rate.DestinationName), search) {
			continue
		}
		if f.Prefix != "" && !strings.HasPrefix(rate.Prefix, f.Prefix) {
			continue
		}
		if f.DestinationGroupID != nil && (rate.DestinationGroupID == nil || *rate.DestinationGroupID != *f.DestinationGroupID) {
			continue
		}
		if f.IsActive != nil && rate.IsActive != *f.IsActive {
			continue
		}
		out = append(out, rate)
	}
	sortRates(out)
	return paginate(out, f.PageRequest), len(out), nil
}

func (r *MemoryRepo) ListRatesByTariff(ctx context.Context, tariffID int64) ([]Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Rate{}
	for _, rate := range r.rates {
		if rate.TariffID == tariffID && !rate.IsDeleted {
			out = append(out, r.withTariffGid(rate))
		}
	}
	sortRates(out)
	return out, nil
}

func (r *MemoryRepo) ListCandidateRates(ctx context.Context, tariffID int64, at time.Time) ([]Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Rate
	for _, rate := range r.rates {
		if rate.TariffID == tariffID && rate.IsEffective(at) {
			out = append(out, r.withTariffGid(rate))
		}
	}
	return out, nil
}

func (r *MemoryRepo) checkRateRefs(rate *Rate) error {
	if t, ok := r.tariffs[rate.TariffID]; !ok || t.IsDeleted {
		return ErrNotFound
	}
	if rate.DestinationGroupID != nil {
		if _, ok := r.groups[*rate.DestinationGroupID]; !ok {
			return ErrNotFound
		}
	}
	return nil
}

func (r *MemoryRepo) prefixTaken(tariffID int64, prefix string, exceptID int64) bool {
	for id, rate := range r.rates {
		if id != exceptID && !rate.IsDeleted && rate.TariffID == tariffID && rate.Prefix == prefix {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) withTariffGid(rate Rate) Rate {
	rate = cloneRate(rate)
	if t, ok := r.tariffs[rate.TariffID]; ok {
		rate.TariffGid = t.Gid
	}
	return rate
}

func sortRates(rates []Rate) {
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].Prefix != rates[j].Prefix {
			return rates[i].Prefix < rates[j].Prefix
		}
		return rates[i].ID < rates[j].ID
	})
}

// --- destination groups ---

func (r *MemoryRepo) InsertGroup(ctx context.Context, g *DestinationGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groupNameTaken(g.Name, 0) {
		return ErrDuplicateName
	}
	g.ID = r.id()
	r.groups[g.ID] = cloneGroup(*g)
	return nil
}

func (r *MemoryRepo) UpdateGroup(ctx context.Context, g *DestinationGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.ID]; !ok {
		return ErrNotFound
	}
	if r.groupNameTaken(g.Name, g.ID) {
		return ErrDuplicateName
	}
	r.groups[g.ID] = cloneGroup(*g)
	return nil
}

func (r *MemoryRepo) DeleteGroup(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return ErrNotFound
	}
	delete(r.groups, id)
	for rid, rate := range r.rates {
		if rate.DestinationGroupID != nil && *rate.DestinationGroupID == id {
			rate.DestinationGroupID = nil
			r.rates[rid] = rate
		}
	}
	return nil
}

func (r *MemoryRepo) GetGroup(ctx context.Context, id int64) (DestinationGroup, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return DestinationGroup{}, false, nil
	}
	return cloneGroup(g), true, nil
}

func (r *MemoryRepo) GetGroupByName(ctx context.Context, name string) (DestinationGroup, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.groups {
		if g.Name == name {
			return cloneGroup(g), true, nil
		}
	}
	return DestinationGroup{}, false, nil
}

func (r *MemoryRepo) ListGroups(ctx context.Context, activeOnly bool) ([]DestinationGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []DestinationGroup{}
	for _, g := range r.groups {
		if activeOnly && !g.IsActive {
			continue
		}
		out = append(out, cloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) groupNameTaken(name string, exceptID int64) bool {
	for id, g := range r.groups {
		if id != exceptID && g.Name == name {
			return true
		}
	}
	return false
}

// --- helpers ---

func paginate[T any](items []T, p PageRequest) []T {
	off := p.Offset()
	if off < 0 || off >= len(items) {
		return []T{}
	}
	end := off + p.PageSize
	if p.PageSize <= 0 || end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func cloneTariff(t Tariff) Tariff {
	if t.ValidTo != nil {
		v := *t.ValidTo
		t.ValidTo = &v
	}
	if t.DeletedAt != nil {
		v := *t.DeletedAt
		t.DeletedAt = &v
	}
	t.Rates = nil
	return t
}

func cloneRate(r Rate) Rate {
	if r.ConnectionFee != nil {
		v := *r.ConnectionFee
		r.ConnectionFee = &v
	}
	if r.BillingIncrement != nil {
		v := *r.BillingIncrement
		r.BillingIncrement = &v
	}
	if r.MinimumDuration != nil {
		v := *r.MinimumDuration
		r.MinimumDuration = &v
	}
	if r.EffectiveTo != nil {
		v := *r.EffectiveTo
		r.EffectiveTo = &v
	}
	if r.DestinationGroupID != nil {
		v := *r.DestinationGroupID
		r.DestinationGroupID = &v
	}
	if r.DeletedAt != nil {
		v := *r.DeletedAt
		r.DeletedAt = &v
	}
	return r
}

func cloneGroup(g DestinationGroup) DestinationGroup {
	g.Names = copyNames(g.Names)
	return g
}
