package reservations

import (
	"context"
	"time"

	"hotelier/internal/domain/reservation"
	"hotelier/internal/domain/resource"
	"hotelier/internal/domain/shared/daterange"
)

// ResourceAvailability summarizes one resource over a requested window.
type ResourceAvailability struct {
	Resource      *resource.Resource             `json:"resource"`
	Available     bool                           `json:"available"`
	BlockedRanges []reservation.ConflictingRange `json:"blocked_ranges"`
}

// Availability reports, per resource, whether the window is free and which
// reservation ranges block it. Resources held out of service (maintenance,
// out of order, closed) are reported unavailable regardless of bookings.
func (s *Service) Availability(ctx context.Context, from, to time.Time) ([]ResourceAvailability, error) {
	window, err := daterange.New(from, to)
	if err != nil {
		return nil, err
	}

	all, err := s.resources.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ResourceAvailability, 0, len(all))
	for _, res := range all {
		active, err := s.reservations.ActiveByResource(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		var blocked []reservation.ConflictingRange
		for _, rsv := range active {
			clamped, ok := rsv.Range.Clamp(window)
			if !ok {
				continue
			}
			blocked = append(blocked, reservation.ConflictingRange{
				ReservationID: rsv.ID,
				Reference:     rsv.Reference,
				Range:         clamped,
			})
		}
		out = append(out, ResourceAvailability{
			Resource:      res,
			Available:     len(blocked) == 0 && inService(res),
			BlockedRanges: blocked,
		})
	}
	return out, nil
}

func inService(res *resource.Resource) bool {
	switch res.Status {
	case resource.StatusMaintenance, resource.StatusOutOfOrder, resource.StatusClosed:
		return false
	}
	return true
}
