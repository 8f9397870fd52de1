package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"hotelier/internal/domain/reservation"
	"hotelier/internal/domain/resource"
	"hotelier/internal/domain/shared/events"
)

// ErrConcurrentUpdate mirrors the mongo repository's optimistic version check
// so the memory implementations exercise the same save contract.
var ErrConcurrentUpdate = errors.New("memory: concurrent update detected")

// ReservationRepository stores reservations in memory. Reads hand out copies;
// mutations only land through Save, which enforces the version check.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[string]*reservation.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[string]*reservation.Reservation)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rsv, ok := r.items[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return cloneReservation(rsv), nil
}

func (r *ReservationRepository) Save(ctx context.Context, rsv *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[rsv.ID]; ok && existing.Version != rsv.Version {
		return ErrConcurrentUpdate
	}
	stored := cloneReservation(rsv)
	stored.Version++
	r.items[rsv.ID] = stored
	rsv.Version = stored.Version
	return nil
}

func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*reservation.Reservation, 0)
	for _, rsv := range r.items {
		if filter.GuestID != "" && rsv.GuestID != filter.GuestID {
			continue
		}
		if filter.ResourceID != "" && rsv.ResourceID != filter.ResourceID {
			continue
		}
		if filter.Status != "" && rsv.Status != filter.Status {
			continue
		}
		matches = append(matches, cloneReservation(rsv))
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if filter.PerPage <= 0 {
		return matches, nil
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * filter.PerPage
	if start > len(matches) {
		start = len(matches)
	}
	end := start + filter.PerPage
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], nil
}

func (r *ReservationRepository) ActiveByResource(ctx context.Context, resourceID string) ([]*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*reservation.Reservation, 0)
	for _, rsv := range r.items {
		if rsv.ResourceID == resourceID && rsv.Status.BlocksAvailability() {
			matches = append(matches, cloneReservation(rsv))
		}
	}
	return matches, nil
}

func (r *ReservationRepository) DueForRelease(ctx context.Context, before time.Time) ([]*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*reservation.Reservation, 0)
	for _, rsv := range r.items {
		if rsv.Status != reservation.StatusConfirmed && rsv.Status != reservation.StatusCheckedIn {
			continue
		}
		if rsv.Range.End.After(before) {
			continue
		}
		matches = append(matches, cloneReservation(rsv))
	}
	return matches, nil
}

func cloneReservation(rsv *reservation.Reservation) *reservation.Reservation {
	clone := *rsv
	clone.Payments = append([]reservation.PaymentEntry(nil), rsv.Payments...)
	if rsv.CheckInAt != nil {
		at := *rsv.CheckInAt
		clone.CheckInAt = &at
	}
	if rsv.CheckOutAt != nil {
		at := *rsv.CheckOutAt
		clone.CheckOutAt = &at
	}
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

// ResourceRepository keeps bookable units in memory.
type ResourceRepository struct {
	mu    sync.RWMutex
	items map[string]*resource.Resource
}

func NewResourceRepository() *ResourceRepository {
	return &ResourceRepository{items: make(map[string]*resource.Resource)}
}

func (r *ResourceRepository) ByID(ctx context.Context, id string) (*resource.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	clone := *res
	return &clone, nil
}

func (r *ResourceRepository) Save(ctx context.Context, res *resource.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[res.ID]; ok && existing.Version != res.Version {
		return ErrConcurrentUpdate
	}
	stored := *res
	stored.Version++
	r.items[res.ID] = &stored
	res.Version = stored.Version
	return nil
}

func (r *ResourceRepository) List(ctx context.Context) ([]*resource.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*resource.Resource, 0, len(r.items))
	for _, res := range r.items {
		clone := *res
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
