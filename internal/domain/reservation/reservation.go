package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"hotelier/internal/domain/pricing"
	"hotelier/internal/domain/resource"
	"hotelier/internal/domain/shared/daterange"
	"hotelier/internal/domain/shared/events"
	"hotelier/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("reservation: not found")
	ErrInvalidTransition = errors.New("reservation: invalid state transition")
	ErrGuestRequired     = errors.New("reservation: guest id required")
	ErrInvalidOccupants  = errors.New("reservation: occupant count must be positive")
	ErrCapacityExceeded  = errors.New("reservation: occupant count exceeds resource capacity")
	ErrNotOwner          = errors.New("reservation: guests may only access their own reservations")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
	StatusCompleted  Status = "completed"
)

// Terminal reports whether no transition may leave the state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCheckedOut, StatusNoShow, StatusCompleted:
		return true
	}
	return false
}

// BlocksAvailability reports whether a reservation in this state counts
// against the interval-overlap admission test.
func (s Status) BlocksAvailability() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut,
		StatusCancelled, StatusNoShow, StatusCompleted:
		return s, true
	}
	return "", false
}

// Action names a lifecycle transition request.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
	ActionCancel   Action = "cancel"
	ActionNoShow   Action = "no_show"
	ActionComplete Action = "complete"
)

func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch a {
	case ActionConfirm, ActionCheckIn, ActionCheckOut, ActionCancel, ActionNoShow, ActionComplete:
		return a, true
	}
	return "", false
}

// Reservation is a claim on a resource for a half-open time range. Rooms and
// pool facilities share one lifecycle; they differ only in pricing and in
// whether check-out or completion ends the stay.
type Reservation struct {
	ID           string        `bson:"_id" json:"id"`
	Reference    string        `bson:"reference" json:"reference"`
	GuestID      string        `bson:"guest_id" json:"guest_id"`
	GuestName    string        `bson:"guest_name,omitempty" json:"guest_name,omitempty"`
	GuestPhone   string        `bson:"guest_phone,omitempty" json:"guest_phone,omitempty"`
	ResourceID   string        `bson:"resource_id" json:"resource_id"`
	ResourceKind resource.Kind `bson:"resource_kind" json:"resource_kind"`

	Range     daterange.Range `bson:"range" json:"range"`
	Occupants int             `bson:"occupants" json:"occupants"`

	Status Status            `bson:"status" json:"status"`
	Price  pricing.Breakdown `bson:"price" json:"price"`

	Payments      []PaymentEntry `bson:"payments" json:"payments"`
	PaymentStatus PaymentStatus  `bson:"payment_status" json:"payment_status"`

	CancelReason string      `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CancelFee    money.Money `bson:"cancel_fee,omitempty" json:"cancel_fee,omitempty"`
	Refund       money.Money `bson:"refund,omitempty" json:"refund,omitempty"`

	CheckInAt  *time.Time `bson:"check_in_at,omitempty" json:"check_in_at,omitempty"`
	CheckOutAt *time.Time `bson:"check_out_at,omitempty" json:"check_out_at,omitempty"`
	ActorID    string     `bson:"actor_id,omitempty" json:"actor_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Version   int64     `bson:"version" json:"-"`

	events.EventRecorder `bson:"-" json:"-"`
}

// Filter narrows List queries.
type Filter struct {
	GuestID    string
	ResourceID string
	Status     Status
	Page       int
	PerPage    int
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Reservation, error)
	Save(ctx context.Context, rsv *Reservation) error
	List(ctx context.Context, filter Filter) ([]*Reservation, error)
	// ActiveByResource returns reservations on the resource whose status
	// blocks availability, in no particular order.
	ActiveByResource(ctx context.Context, resourceID string) ([]*Reservation, error)
	// DueForRelease returns confirmed or checked-in reservations whose range
	// ended at or before the given instant.
	DueForRelease(ctx context.Context, before time.Time) ([]*Reservation, error)
}

type CreateParams struct {
	ID           string
	Reference    string
	GuestID      string
	GuestName    string
	GuestPhone   string
	ResourceID   string
	ResourceKind resource.Kind
	Range        daterange.Range
	Occupants    int
	Price        pricing.Breakdown
	Now          time.Time
}

func New(params CreateParams) (*Reservation, error) {
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if params.Occupants <= 0 {
		return nil, ErrInvalidOccupants
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	r := &Reservation{
		ID:            params.ID,
		Reference:     params.Reference,
		GuestID:       params.GuestID,
		GuestName:     params.GuestName,
		GuestPhone:    params.GuestPhone,
		ResourceID:    params.ResourceID,
		ResourceKind:  params.ResourceKind,
		Range:         params.Range,
		Occupants:     params.Occupants,
		Status:        StatusPending,
		Price:         params.Price,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Record(Created{ReservationID: r.ID, Reference: r.Reference, ResourceID: r.ResourceID, GuestID: r.GuestID, Range: r.Range, Total: r.Price.Total, At: now})
	return r, nil
}

func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidTransition
	}
	r.Status = StatusConfirmed
	r.UpdatedAt = now.UTC()
	r.Record(Confirmed{ReservationID: r.ID, ResourceID: r.ResourceID, Range: r.Range, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) CheckIn(actorID string, now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	at := now.UTC()
	r.Status = StatusCheckedIn
	r.CheckInAt = &at
	r.ActorID = actorID
	r.UpdatedAt = at
	r.Record(CheckedIn{ReservationID: r.ID, ResourceID: r.ResourceID, ActorID: actorID, At: at})
	return nil
}

func (r *Reservation) CheckOut(actorID string, now time.Time) error {
	if r.Status != StatusCheckedIn {
		return ErrInvalidTransition
	}
	at := now.UTC()
	r.Status = StatusCheckedOut
	r.CheckOutAt = &at
	r.ActorID = actorID
	r.UpdatedAt = at
	r.Record(CheckedOut{ReservationID: r.ID, ResourceID: r.ResourceID, ActorID: actorID, At: at})
	return nil
}

// Cancel escapes the lifecycle from any pre-checkout active state. The fee and
// refund are recorded as stated by staff; a positive refund against received
// payments also appends a refunded ledger entry.
func (r *Reservation) Cancel(reason string, refund, fee money.Money, actorID string, now time.Time) error {
	switch r.Status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
	default:
		return ErrInvalidTransition
	}
	at := now.UTC()
	r.Status = StatusCancelled
	r.CancelReason = reason
	r.CancelFee = fee
	r.Refund = refund
	r.ActorID = actorID
	r.UpdatedAt = at
	if refund.IsPositive() && r.TotalPaid().IsPositive() {
		r.appendEntry(PaymentEntry{
			Amount:     refund,
			Method:     methodOfFirstCompleted(r.Payments),
			Status:     EntryRefunded,
			RecordedBy: actorID,
			At:         at,
		})
	}
	r.Record(Cancelled{ReservationID: r.ID, ResourceID: r.ResourceID, Reason: reason, Refund: refund, Fee: fee, At: at})
	return nil
}

func (r *Reservation) MarkNoShow(actorID string, now time.Time) error {
	if r.Status.Terminal() {
		return ErrInvalidTransition
	}
	at := now.UTC()
	r.Status = StatusNoShow
	r.ActorID = actorID
	r.UpdatedAt = at
	r.Record(NoShowRecorded{ReservationID: r.ID, ResourceID: r.ResourceID, ActorID: actorID, At: at})
	return nil
}

// Complete ends the stay without a distinct check-out step: the sweep path for
// elapsed room bookings, and the normal end state for pool bookings.
func (r *Reservation) Complete(now time.Time) error {
	if r.Status != StatusConfirmed && r.Status != StatusCheckedIn {
		return ErrInvalidTransition
	}
	at := now.UTC()
	r.Status = StatusCompleted
	r.UpdatedAt = at
	r.Record(Completed{ReservationID: r.ID, ResourceID: r.ResourceID, At: at})
	return nil
}
