// Package billing is the caller-side client of the rating engine. A CDR
// processor links it to freeze the matched pricing onto each call and price
// the call from that copy alone; the API server does not serve it.
package billing

import (
	"context"
	"time"

	"telecom-rating/internal/rating"

	"github.com/shopspring/decimal"
)

// Snapshot is the pricing copied onto a call at rating time. It holds values
// only, never a reference to the rate, so later edits or deletes of the rate
// cannot change an already rated call.
type Snapshot struct {
	TariffGid        string          `json:"tariffGid"`
	TariffName       string          `json:"tariffName"`
	CurrencyCode     string          `json:"currencyCode"`
	DestinationName  string          `json:"destinationName"`
	MatchedPrefix    string          `json:"matchedPrefix"`
	RatePerMinute    decimal.Decimal `json:"ratePerMinute"`
	ConnectionFee    decimal.Decimal `json:"connectionFee"`
	BillingIncrement int             `json:"billingIncrement"`
	MinimumDuration  int             `json:"minimumDuration"`
	RatedAt          time.Time       `json:"ratedAt"`
}

// RateFinder is satisfied by *rating.LookupService.
type RateFinder interface {
	FindRate(ctx context.Context, tariffGid, phoneNumber string) (rating.Match, error)
}

type Snapshotter struct {
	finder RateFinder
	clock  func() time.Time
}

func NewSnapshotter(finder RateFinder) *Snapshotter {
	return &Snapshotter{finder: finder, clock: time.Now}
}

// Capture resolves the rate for number and copies its effective pricing.
// Lookup errors are returned unchanged.
func (s *Snapshotter) Capture(ctx context.Context, tariffGid, number string) (Snapshot, error) {
	m, err := s.finder.FindRate(ctx, tariffGid, number)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		TariffGid:        m.TariffGid,
		TariffName:       m.TariffName,
		CurrencyCode:     m.CurrencyCode,
		DestinationName:  m.DestinationName,
		MatchedPrefix:    m.MatchedPrefix,
		RatePerMinute:    m.RatePerMinute,
		ConnectionFee:    m.ConnectionFee,
		BillingIncrement: m.BillingIncrement,
		MinimumDuration:  m.MinimumDuration,
		RatedAt:          s.clock().UTC(),
	}, nil
}
