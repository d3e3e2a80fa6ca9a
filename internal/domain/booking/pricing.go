package booking

import (
	"math"
	"time"
)

// billingDaysPerMonth is the divisor used to turn a monthly rate into a daily one.
const billingDaysPerMonth = 30

// PricingStrategy defines the interface for estimating booking prices.
type PricingStrategy interface {
	// Estimate returns the estimated amount for the given parameters.
	Estimate(params PricingParams) float64
}

// PricingParams holds the inputs for price estimation.
type PricingParams struct {
	MonthlyRate float64
	StartDate   time.Time
	EndDate     *time.Time
	OpenEnded   bool
}

// MonthlyProrationStrategy prorates a monthly rate over the booked days.
type MonthlyProrationStrategy struct{}

// NewMonthlyProrationStrategy creates a new MonthlyProrationStrategy.
func NewMonthlyProrationStrategy() *MonthlyProrationStrategy {
	return &MonthlyProrationStrategy{}
}

// Estimate computes the booking amount.
//
// Open-ended bookings return the monthly rate unchanged; callers read it as a
// per-month charge. Fixed ranges are billed at rate/30 per day over
// max(1, ceil(days)) days, rounded to a whole amount. An end date before the
// start date is not rejected here and yields the one-day minimum.
func (s *MonthlyProrationStrategy) Estimate(params PricingParams) float64 {
	if params.OpenEnded || params.EndDate == nil {
		return params.MonthlyRate
	}

	days := math.Ceil(params.EndDate.Sub(params.StartDate).Hours() / 24)
	if days < 1 {
		days = 1
	}

	perDay := params.MonthlyRate / billingDaysPerMonth
	return math.Round(perDay * days)
}
