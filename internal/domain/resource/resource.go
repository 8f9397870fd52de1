package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("resource: not found")
	ErrInvalidStatus = errors.New("resource: status not valid for this resource kind")
	ErrInvalidKind   = errors.New("resource: unknown kind")
	ErrNameRequired  = errors.New("resource: name required")
	ErrBadCapacity   = errors.New("resource: capacity must be positive")
)

type Kind string

const (
	KindRoom Kind = "room"
	KindPool Kind = "pool"
)

type Status string

// Room occupancy statuses.
const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
	StatusCleaning    Status = "cleaning"
	StatusOutOfOrder  Status = "out_of_order"
)

// Pool facility statuses. Maintenance is shared with rooms.
const (
	StatusOpen         Status = "open"
	StatusClosed       Status = "closed"
	StatusPrivateEvent Status = "private-event"
)

var statusesByKind = map[Kind][]Status{
	KindRoom: {StatusAvailable, StatusOccupied, StatusMaintenance, StatusCleaning, StatusOutOfOrder},
	KindPool: {StatusOpen, StatusClosed, StatusMaintenance, StatusPrivateEvent},
}

// Resource is a bookable unit: a room or a pool facility. Its Status and
// CurrentBookingID describe point-in-time occupancy; admission of future
// reservations is decided by interval overlap, not by Status.
type Resource struct {
	ID       string `bson:"_id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Kind     Kind   `bson:"kind" json:"kind"`
	Capacity int    `bson:"capacity" json:"capacity"`

	// RateCents is the nightly rate for rooms, or the per-participant rate of
	// the attached activity for pools. A pool with no ActivityName is bare
	// facility access and is priced at zero.
	RateCents    int64  `bson:"rate_cents" json:"rate_cents"`
	ActivityName string `bson:"activity_name,omitempty" json:"activity_name,omitempty"`

	Status Status `bson:"status" json:"status"`
	// Ready is the housekeeping flag, rooms only. Cleared on release, set
	// again by staff once the room has been turned over.
	Ready bool `bson:"ready" json:"ready"`

	CurrentBookingID string `bson:"current_booking_id,omitempty" json:"current_booking_id,omitempty"`
	LastBookingID    string `bson:"last_booking_id,omitempty" json:"last_booking_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Version   int64     `bson:"version" json:"-"`
}

type Repository interface {
	ByID(ctx context.Context, id string) (*Resource, error)
	Save(ctx context.Context, res *Resource) error
	List(ctx context.Context) ([]*Resource, error)
}

type CreateParams struct {
	ID           string
	Name         string
	Kind         Kind
	Capacity     int
	RateCents    int64
	ActivityName string
	Now          time.Time
}

func New(params CreateParams) (*Resource, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	if _, ok := statusesByKind[params.Kind]; !ok {
		return nil, ErrInvalidKind
	}
	if params.Capacity <= 0 {
		return nil, ErrBadCapacity
	}
	now := params.Now.UTC()
	r := &Resource{
		ID:           params.ID,
		Name:         strings.TrimSpace(params.Name),
		Kind:         params.Kind,
		Capacity:     params.Capacity,
		RateCents:    params.RateCents,
		ActivityName: strings.TrimSpace(params.ActivityName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch params.Kind {
	case KindRoom:
		r.Status = StatusAvailable
		r.Ready = true
	case KindPool:
		r.Status = StatusOpen
	}
	return r, nil
}

func (r *Resource) ValidStatus(s Status) bool {
	for _, candidate := range statusesByKind[r.Kind] {
		if candidate == s {
			return true
		}
	}
	return false
}

func (r *Resource) SetStatus(s Status, now time.Time) error {
	if !r.ValidStatus(s) {
		return fmt.Errorf("%w: %q for kind %q", ErrInvalidStatus, s, r.Kind)
	}
	r.Status = s
	r.UpdatedAt = now.UTC()
	return nil
}

// MarkReady flips the housekeeping flag once staff have turned the room over.
func (r *Resource) MarkReady(now time.Time) {
	r.Ready = true
	r.UpdatedAt = now.UTC()
}

// AcceptsOccupants checks the occupant count against room capacity. Pools are
// capacity-checked per activity session by the caller, not per facility.
func (r *Resource) AcceptsOccupants(n int) bool {
	if r.Kind != KindRoom {
		return true
	}
	return n <= r.Capacity
}

// Occupy points the resource at the reservation currently holding it. Rooms
// flip to occupied; a pool keeps its open/closed status, only the pointer
// moves.
func (r *Resource) Occupy(bookingID string, now time.Time) {
	r.CurrentBookingID = bookingID
	if r.Kind == KindRoom {
		r.Status = StatusOccupied
	}
	r.UpdatedAt = now.UTC()
}

// Release frees the resource if the given reservation is the one occupying it.
// Returns true when the pointer was actually cleared, so callers can tell a
// no-op release from a real one.
func (r *Resource) Release(bookingID string, now time.Time) bool {
	if r.CurrentBookingID != bookingID {
		return false
	}
	r.CurrentBookingID = ""
	r.LastBookingID = bookingID
	r.UpdatedAt = now.UTC()
	switch r.Kind {
	case KindRoom:
		r.Status = StatusAvailable
		r.Ready = false
	case KindPool:
		if r.Status == StatusPrivateEvent {
			r.Status = StatusOpen
		}
	}
	return true
}
