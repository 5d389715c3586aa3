package billing

import (
	"github.com/shopspring/decimal"
)

// amountScale matches NUMERIC(18, 6) used for money columns.
const amountScale = 6

// Charge is the result of pricing a call duration against a snapshot.
type Charge struct {
	CurrencyCode    string          `json:"currencyCode"`
	BillableSeconds int             `json:"billableSeconds"`
	UsageAmount     decimal.Decimal `json:"usageAmount"`
	ConnectionFee   decimal.Decimal `json:"connectionFee"`
	Total           decimal.Decimal `json:"total"`
}

// Cost prices an answered call of durationSeconds. The duration is raised to
// the minimum, rounded up to the billing increment, and charged as a per-second
// share of the per-minute price. Unanswered calls (duration <= 0) cost nothing,
// including the connection fee.
func (s Snapshot) Cost(durationSeconds int) Charge {
	c := Charge{
		CurrencyCode:  s.CurrencyCode,
		UsageAmount:   decimal.Zero,
		ConnectionFee: decimal.Zero,
		Total:         decimal.Zero,
	}
	if durationSeconds <= 0 {
		return c
	}

	c.BillableSeconds = billableSeconds(durationSeconds, s.MinimumDuration, s.BillingIncrement)
	c.UsageAmount = s.RatePerMinute.
		Mul(decimal.NewFromInt(int64(c.BillableSeconds))).
		DivRound(decimal.NewFromInt(60), amountScale)
	c.ConnectionFee = s.ConnectionFee
	c.Total = c.UsageAmount.Add(c.ConnectionFee)
	return c
}

func billableSeconds(actualSec int, minSec int, incrementSec int) int {
	if actualSec < 0 {
		return 0
	}
	if minSec <= 0 {
		minSec = 0
	}
	if incrementSec <= 0 {
		incrementSec = 60
	}

	sec := actualSec
	if sec < minSec {
		sec = minSec
	}

	// round up to nearest increment
	q := sec / incrementSec
	if sec%incrementSec != 0 {
		q++
	}
	return q * incrementSec
}
