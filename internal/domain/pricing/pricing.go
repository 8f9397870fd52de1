package pricing

import (
	"errors"

	"hotelier/internal/domain/shared/money"
)

var (
	ErrNightsNotPositive       = errors.New("pricing: nights must be positive")
	ErrParticipantsNotPositive = errors.New("pricing: participants must be positive")
	ErrCurrencyUnset           = errors.New("pricing: currency must be defined")
)

// Breakdown is the computed price of a reservation. Discount is carried in the
// total formula but no caller populates it yet; it never feeds back into the
// paid threshold.
type Breakdown struct {
	Rate          money.Money `bson:"rate" json:"rate"`
	Nights        int         `bson:"nights,omitempty" json:"nights,omitempty"`
	Participants  int         `bson:"participants,omitempty" json:"participants,omitempty"`
	Subtotal      money.Money `bson:"subtotal" json:"subtotal"`
	Taxes         money.Money `bson:"taxes" json:"taxes"`
	ServiceCharge money.Money `bson:"service_charge" json:"service_charge"`
	Discount      money.Money `bson:"discount" json:"discount"`
	Total         money.Money `bson:"total" json:"total"`
}

// Quoter prices reservations. Rates are in basis points so 16% tax is 1600.
type Quoter struct {
	TaxRateBps     int64
	ServiceRateBps int64
	Currency       string
}

// QuoteRoom prices a room stay: subtotal = rate * nights, taxes and service
// charge applied on the subtotal with half-up rounding.
func (q Quoter) QuoteRoom(rateCents int64, nights int) (Breakdown, error) {
	if q.Currency == "" {
		return Breakdown{}, ErrCurrencyUnset
	}
	if nights <= 0 {
		return Breakdown{}, ErrNightsNotPositive
	}
	rate := money.Must(rateCents, q.Currency)
	subtotal := rate.Multiply(int64(nights))
	taxes := subtotal.PercentBps(q.TaxRateBps)
	service := subtotal.PercentBps(q.ServiceRateBps)
	b := Breakdown{
		Rate:          rate,
		Nights:        nights,
		Subtotal:      subtotal,
		Taxes:         taxes,
		ServiceCharge: service,
		Discount:      money.Must(0, q.Currency),
	}
	b.Total = recalcTotal(b)
	return b, nil
}

// QuotePool prices an activity booking per participant against the flat
// activity rate. Bare facility access (no activity attached) prices at zero.
func (q Quoter) QuotePool(activityRateCents int64, participants int, hasActivity bool) (Breakdown, error) {
	if q.Currency == "" {
		return Breakdown{}, ErrCurrencyUnset
	}
	if participants <= 0 {
		return Breakdown{}, ErrParticipantsNotPositive
	}
	rate := money.Must(0, q.Currency)
	if hasActivity {
		rate = money.Must(activityRateCents, q.Currency)
	}
	subtotal := rate.Multiply(int64(participants))
	b := Breakdown{
		Rate:          rate,
		Participants:  participants,
		Subtotal:      subtotal,
		Taxes:         money.Must(0, q.Currency),
		ServiceCharge: money.Must(0, q.Currency),
		Discount:      money.Must(0, q.Currency),
	}
	b.Total = recalcTotal(b)
	return b, nil
}

func recalcTotal(b Breakdown) money.Money {
	total := b.Subtotal
	total, _ = total.Add(b.Taxes)
	total, _ = total.Add(b.ServiceCharge)
	total, _ = total.Sub(b.Discount)
	if total.Amount < 0 {
		total.Amount = 0
	}
	return total
}
