package reservation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelier/internal/domain/shared/money"
)

var (
	ErrAmountNotPositive = errors.New("reservation: payment amount must be positive")
	ErrUnknownMethod     = errors.New("reservation: unknown payment method")
	ErrUnknownEntryState = errors.New("reservation: unknown payment entry status")
)

type PaymentMethod string

const (
	MethodCard        PaymentMethod = "card"
	MethodCash        PaymentMethod = "cash"
	MethodMobileMoney PaymentMethod = "mobile_money"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodCard, MethodCash, MethodMobileMoney:
		return m, true
	}
	return "", false
}

// DefaultEntryStatus is the per-method default: cash stays pending until staff
// countersign on property, card and mobile money confirm synchronously.
func (m PaymentMethod) DefaultEntryStatus() EntryStatus {
	if m == MethodCash {
		return EntryPending
	}
	return EntryCompleted
}

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
	EntryRefunded  EntryStatus = "refunded"
)

func ParseEntryStatus(raw string) (EntryStatus, bool) {
	s := EntryStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case EntryPending, EntryCompleted, EntryFailed, EntryRefunded:
		return s, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// PaymentEntry is immutable once appended. Only completed entries count toward
// the paid total.
type PaymentEntry struct {
	ID            string        `bson:"id" json:"id"`
	Amount        money.Money   `bson:"amount" json:"amount"`
	Method        PaymentMethod `bson:"method" json:"method"`
	TransactionID string        `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status        EntryStatus   `bson:"status" json:"status"`
	// RecordedBy is the staff id, or "guest-self-service" for guest-initiated
	// payments.
	RecordedBy string    `bson:"recorded_by" json:"recorded_by"`
	At         time.Time `bson:"at" json:"at"`
}

// GuestSelfService marks ledger entries recorded by the owning guest rather
// than a staff member.
const GuestSelfService = "guest-self-service"

// AddPayment validates and appends a ledger entry, then reconciles the
// aggregate payment status.
func (r *Reservation) AddPayment(entry PaymentEntry) error {
	if entry.Amount.Amount <= 0 {
		return ErrAmountNotPositive
	}
	if _, ok := ParsePaymentMethod(string(entry.Method)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, entry.Method)
	}
	if entry.Status == "" {
		entry.Status = entry.Method.DefaultEntryStatus()
	}
	if _, ok := ParseEntryStatus(string(entry.Status)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntryState, entry.Status)
	}
	r.appendEntry(entry)
	r.Record(PaymentRecorded{
		ReservationID: r.ID,
		EntryID:       entry.ID,
		Amount:        entry.Amount,
		Method:        entry.Method,
		EntryStatus:   entry.Status,
		PaymentStatus: r.PaymentStatus,
		At:            entry.At,
	})
	return nil
}

func (r *Reservation) appendEntry(entry PaymentEntry) {
	r.Payments = append(r.Payments, entry)
	r.PaymentStatus = Reconcile(r.Payments, r.Price.Total)
	r.UpdatedAt = entry.At.UTC()
}

// TotalPaid sums completed entries.
func (r *Reservation) TotalPaid() money.Money {
	return totalCompleted(r.Payments, r.Price.Total.Currency)
}

// Reconcile derives the aggregate payment status from the entry list alone.
// It is a pure function of the entry multiset: replaying the same entries any
// number of times, in any order, yields the same answer.
func Reconcile(entries []PaymentEntry, total money.Money) PaymentStatus {
	paid := totalCompleted(entries, total.Currency)
	switch {
	case len(entries) > 0 && paid.Amount >= total.Amount:
		return PaymentPaid
	case paid.Amount > 0:
		return PaymentPartial
	case anyWithStatus(entries, EntryRefunded):
		return PaymentRefunded
	case len(entries) > 0 && allWithStatus(entries, EntryFailed):
		return PaymentFailed
	default:
		return PaymentPending
	}
}

func totalCompleted(entries []PaymentEntry, currency string) money.Money {
	sum := money.Money{Amount: 0, Currency: currency}
	for _, e := range entries {
		if e.Status != EntryCompleted {
			continue
		}
		sum.Amount += e.Amount.Amount
	}
	return sum
}

func anyWithStatus(entries []PaymentEntry, status EntryStatus) bool {
	for _, e := range entries {
		if e.Status == status {
			return true
		}
	}
	return false
}

func allWithStatus(entries []PaymentEntry, status EntryStatus) bool {
	for _, e := range entries {
		if e.Status != status {
			return false
		}
	}
	return true
}

func methodOfFirstCompleted(entries []PaymentEntry) PaymentMethod {
	for _, e := range entries {
		if e.Status == EntryCompleted {
			return e.Method
		}
	}
	return MethodCash
}
