package money

import (
	"errors"
	"fmt"
)

var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an amount in minor units (cents) of a single currency. Arithmetic
// never mixes currencies.
type Money struct {
	Amount   int64  `bson:"amount" json:"amount"`
	Currency string `bson:"currency" json:"currency"`
}

func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("money: currency must be a 3-letter code, got %q", currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Must is New for statically known currencies.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

func (m Money) Multiply(factor int64) Money {
	return Money{Amount: m.Amount * factor, Currency: m.Currency}
}

// PercentBps applies a rate in basis points with half-up rounding, so 16% of
// 333 cents is 53, not 53.28 truncated down blindly.
func (m Money) PercentBps(bps int64) Money {
	return Money{Amount: (m.Amount*bps + 5000) / 10000, Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
