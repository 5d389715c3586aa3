package rating

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Tariff is a named pricing plan owning a set of rates.
//
// Invariant: at most one non-deleted tariff has IsDefault set.
// Tariffs are never hard-deleted; call records hold copied values, not references.
type Tariff struct {
	ID  int64  `json:"-"`
	Gid string `json:"gid"`

	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CurrencyCode string `json:"currencyCode"`

	IsDefault bool `json:"isDefault"`
	IsActive  bool `json:"isActive"`

	ValidFrom time.Time  `json:"validFrom"`
	ValidTo   *time.Time `json:"validTo,omitempty"`

	// BillingIncrement and MinimumDuration are in seconds.
	BillingIncrement int             `json:"billingIncrement"`
	MinimumDuration  int             `json:"minimumDuration"`
	ConnectionFee    decimal.Decimal `json:"connectionFee"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`

	IsDeleted bool       `json:"-"`
	DeletedAt *time.Time `json:"-"`

	// Rates is only populated when explicitly requested.
	Rates []Rate `json:"rates,omitempty"`
}

// Rate is a per-prefix price entry belonging to exactly one tariff.
//
// Invariant: (TariffID, Prefix) is unique among non-deleted rates.
type Rate struct {
	ID        int64  `json:"-"`
	Gid       string `json:"gid"`
	TariffID  int64  `json:"-"`
	TariffGid string `json:"tariffGid"`

	Prefix          string          `json:"prefix"`
	DestinationName string          `json:"destinationName"`
	RatePerMinute   decimal.Decimal `json:"ratePerMinute"`

	// Optional overrides of the owning tariff's defaults.
	ConnectionFee    *decimal.Decimal `json:"connectionFee,omitempty"`
	BillingIncrement *int             `json:"billingIncrement,omitempty"`
	MinimumDuration  *int             `json:"minimumDuration,omitempty"`

	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
	IsActive      bool       `json:"isActive"`

	DestinationGroupID *int64 `json:"destinationGroupId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`

	IsDeleted bool       `json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// DestinationGroup tags rates for reporting. Pure lookup dictionary.
type DestinationGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Names holds localized display names keyed by language tag ("en", "pl").
	Names    map[string]string `json:"names"`
	IsActive bool              `json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TariffRequest is the full payload for tariff create and update.
type TariffRequest struct {
	Name             string          `json:"name" validate:"required,max=100"`
	Description      string          `json:"description" validate:"max=500"`
	CurrencyCode     string          `json:"currencyCode" validate:"required,iso4217"`
	IsDefault        bool            `json:"isDefault"`
	IsActive         bool            `json:"isActive"`
	ValidFrom        *time.Time      `json:"validFrom"`
	ValidTo          *time.Time      `json:"validTo"`
	BillingIncrement int             `json:"billingIncrement" validate:"gt=0,lte=2147483647"`
	MinimumDuration  int             `json:"minimumDuration" validate:"gte=0,lte=2147483647"`
	ConnectionFee    decimal.Decimal `json:"connectionFee"`
}

// RateRequest is the full payload for rate create and update. Update has no
// partial-patch semantics: every field overwrites the stored value.
type RateRequest struct {
	TariffGid          string           `json:"tariffGid" validate:"required"`
	Prefix             string           `json:"prefix" validate:"required,max=32"`
	DestinationName    string           `json:"destinationName" validate:"required,max=200"`
	RatePerMinute      decimal.Decimal  `json:"ratePerMinute"`
	ConnectionFee      *decimal.Decimal `json:"connectionFee"`
	BillingIncrement   *int             `json:"billingIncrement"`
	MinimumDuration    *int             `json:"minimumDuration"`
	EffectiveFrom      *time.Time       `json:"effectiveFrom"`
	EffectiveTo        *time.Time       `json:"effectiveTo"`
	IsActive           bool             `json:"isActive"`
	DestinationGroupID *int64           `json:"destinationGroupId"`
}

type DestinationGroupRequest struct {
	Name     string            `json:"name" validate:"required,max=100"`
	Names    map[string]string `json:"names" validate:"omitempty,dive,keys,min=2,max=10,endkeys,required,max=200"`
	IsActive bool              `json:"isActive"`
}

// PageRequest is 1-based.
type PageRequest struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

type PageLimits struct {
	DefaultPageSize int
	MaxPageSize     int
}

var defaultPageLimits = PageLimits{DefaultPageSize: 20, MaxPageSize: 100}

func (p PageRequest) normalize(l PageLimits) PageRequest {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = defaultPageLimits.DefaultPageSize
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = defaultPageLimits.MaxPageSize
	}
	out := p
	if out.PageNumber < 1 {
		out.PageNumber = 1
	}
	if out.PageSize <= 0 {
		out.PageSize = l.DefaultPageSize
	}
	if out.PageSize > l.MaxPageSize {
		out.PageSize = l.MaxPageSize
	}
	// Offset must fit a Postgres OFFSET and never wrap negative.
	if maxPage := math.MaxInt32/out.PageSize + 1; out.PageNumber > maxPage {
		out.PageNumber = maxPage
	}
	return out
}

func (p PageRequest) Offset() int {
	if p.PageNumber < 1 {
		return 0
	}
	return (p.PageNumber - 1) * p.PageSize
}

type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

type TariffFilter struct {
	// Search matches name or description, case-insensitive substring.
	Search       string `json:"search"`
	IsActive     *bool  `json:"isActive"`
	CurrencyCode string `json:"currencyCode"`
	PageRequest
}

type RateFilter struct {
	// Search matches prefix or destination name, case-insensitive substring.
	Search             string `json:"search"`
	TariffGid          string `json:"tariffGid"`
	Prefix             string `json:"prefix"` // starts-with
	DestinationGroupID *int64 `json:"destinationGroupId"`
	IsActive           *bool  `json:"isActive"`
	PageRequest
}

// Match is the result of a prefix lookup: the matched rate plus the pricing
// that applies after falling back to the owning tariff's defaults.
type Match struct {
	Rate Rate `json:"rate"`

	TariffGid    string `json:"tariffGid"`
	TariffName   string `json:"tariffName"`
	CurrencyCode string `json:"currencyCode"`

	NormalizedNumber string `json:"normalizedNumber"`
	MatchedPrefix    string `json:"matchedPrefix"`
	DestinationName  string `json:"destinationName"`

	RatePerMinute    decimal.Decimal `json:"ratePerMinute"`
	ConnectionFee    decimal.Decimal `json:"connectionFee"`
	BillingIncrement int             `json:"billingIncrement"`
	MinimumDuration  int             `json:"minimumDuration"`
}

func newMatch(t Tariff, r Rate, normalized string) Match {
	m := Match{
		Rate:             r,
		TariffGid:        t.Gid,
		TariffName:       t.Name,
		CurrencyCode:     t.CurrencyCode,
		NormalizedNumber: normalized,
		MatchedPrefix:    r.Prefix,
		DestinationName:  r.DestinationName,
		RatePerMinute:    r.RatePerMinute,
		ConnectionFee:    t.ConnectionFee,
		BillingIncrement: t.BillingIncrement,
		MinimumDuration:  t.MinimumDuration,
	}
	if r.ConnectionFee != nil {
		m.ConnectionFee = *r.ConnectionFee
	}
	if r.BillingIncrement != nil {
		m.BillingIncrement = *r.BillingIncrement
	}
	if r.MinimumDuration != nil {
		m.MinimumDuration = *r.MinimumDuration
	}
	return m
}
