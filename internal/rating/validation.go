package rating

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode"

	"telecom-rating/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs tag validation and reports the first failure as a
// validation error with code "<field>_<rule>", e.g. "billing_increment_gt".
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		field := snakeCase(fe.Field())
		msg := fmt.Sprintf("%s failed rule %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed rule %q (%s)", fe.Field(), fe.Tag(), fe.Param())
		}
		return apperr.Validation(field+"_"+fe.Tag(), msg)
	}
	return apperr.Validation("invalid_request", err.Error())
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Amounts are stored as NUMERIC(18,6) and durations as INTEGER.
const (
	moneyScale   = 6
	maxStoredInt = math.MaxInt32
)

var moneyLimit = decimal.New(1, 18-moneyScale)

// checkMoney rejects negative amounts and amounts the store would round or
// refuse.
func checkMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperr.Validation(field+"_gte", field+" must be >= 0")
	}
	if !d.Equal(d.Truncate(moneyScale)) {
		return apperr.Validation(field+"_scale", fmt.Sprintf("%s allows at most %d decimal places", field, moneyScale))
	}
	if d.GreaterThanOrEqual(moneyLimit) {
		return apperr.Validation(field+"_lte", field+" is too large")
	}
	return nil
}

// checkSeconds validates an optional duration override. Increments must be
// positive, minimum durations may be zero.
func checkSeconds(field string, v int, positive bool) error {
	if positive && v <= 0 {
		return apperr.Validation(field+"_gt", field+" must be > 0")
	}
	if v < 0 {
		return apperr.Validation(field+"_gte", field+" must be >= 0")
	}
	if v > maxStoredInt {
		return apperr.Validation(field+"_lte", fmt.Sprintf("%s must be <= %d", field, maxStoredInt))
	}
	return nil
}

func checkWindow(field string, from time.Time, to *time.Time) error {
	if to != nil && !to.After(from) {
		return apperr.Validation(field+"_after_start", field+" must be after the start of the window")
	}
	return nil
}

func validateTariffRequest(req TariffRequest) error {
	if err := checkStruct(req); err != nil {
		return err
	}
	return checkMoney("connection_fee", req.ConnectionFee)
}

func validateRateRequest(req RateRequest) error {
	if err := checkStruct(req); err != nil {
		return err
	}
	if err := checkMoney("rate_per_minute", req.RatePerMinute); err != nil {
		return err
	}
	if req.ConnectionFee != nil {
		if err := checkMoney("connection_fee", *req.ConnectionFee); err != nil {
			return err
		}
	}
	if req.BillingIncrement != nil {
		if err := checkSeconds("billing_increment", *req.BillingIncrement, true); err != nil {
			return err
		}
	}
	if req.MinimumDuration != nil {
		if err := checkSeconds("minimum_duration", *req.MinimumDuration, false); err != nil {
			return err
		}
	}
	return nil
}

func validateGroupRequest(req DestinationGroupRequest) error {
	return checkStruct(req)
}

func normalizeTariffRequest(req TariffRequest) TariffRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.CurrencyCode = strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	return req
}

func normalizeRateRequest(req RateRequest) RateRequest {
	req.TariffGid = strings.TrimSpace(req.TariffGid)
	req.Prefix = NormalizeNumber(req.Prefix)
	req.DestinationName = strings.TrimSpace(req.DestinationName)
	return req
}

func normalizeGroupRequest(req DestinationGroupRequest) DestinationGroupRequest {
	req.Name = strings.TrimSpace(req.Name)
	return req
}
