package reservation

import (
	"time"

	"hotelier/internal/domain/shared/daterange"
	"hotelier/internal/domain/shared/money"
)

type Created struct {
	ReservationID string
	Reference     string
	ResourceID    string
	GuestID       string
	Range         daterange.Range
	Total         money.Money
	At            time.Time
}

func (e Created) EventName() string     { return "reservation.created" }
func (e Created) AggregateID() string   { return e.ReservationID }
func (e Created) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	ReservationID string
	ResourceID    string
	Range         daterange.Range
	At            time.Time
}

func (e Confirmed) EventName() string     { return "reservation.confirmed" }
func (e Confirmed) AggregateID() string   { return e.ReservationID }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type CheckedIn struct {
	ReservationID string
	ResourceID    string
	ActorID       string
	At            time.Time
}

func (e CheckedIn) EventName() string     { return "reservation.checked_in" }
func (e CheckedIn) AggregateID() string   { return e.ReservationID }
func (e CheckedIn) OccurredAt() time.Time { return e.At }

type CheckedOut struct {
	ReservationID string
	ResourceID    string
	ActorID       string
	At            time.Time
}

func (e CheckedOut) EventName() string     { return "reservation.checked_out" }
func (e CheckedOut) AggregateID() string   { return e.ReservationID }
func (e CheckedOut) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	ReservationID string
	ResourceID    string
	Reason        string
	Refund        money.Money
	Fee           money.Money
	At            time.Time
}

func (e Cancelled) EventName() string     { return "reservation.cancelled" }
func (e Cancelled) AggregateID() string   { return e.ReservationID }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type NoShowRecorded struct {
	ReservationID string
	ResourceID    string
	ActorID       string
	At            time.Time
}

func (e NoShowRecorded) EventName() string     { return "reservation.no_show" }
func (e NoShowRecorded) AggregateID() string   { return e.ReservationID }
func (e NoShowRecorded) OccurredAt() time.Time { return e.At }

type Completed struct {
	ReservationID string
	ResourceID    string
	At            time.Time
}

func (e Completed) EventName() string     { return "reservation.completed" }
func (e Completed) AggregateID() string   { return e.ReservationID }
func (e Completed) OccurredAt() time.Time { return e.At }

type PaymentRecorded struct {
	ReservationID string
	EntryID       string
	Amount        money.Money
	Method        PaymentMethod
	EntryStatus   EntryStatus
	PaymentStatus PaymentStatus
	At            time.Time
}

func (e PaymentRecorded) EventName() string     { return "reservation.payment_recorded" }
func (e PaymentRecorded) AggregateID() string   { return e.ReservationID }
func (e PaymentRecorded) OccurredAt() time.Time { return e.At }
