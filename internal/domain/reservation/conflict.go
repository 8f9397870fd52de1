package reservation

import (
	"fmt"
	"strings"

	"hotelier/internal/domain/shared/daterange"
)

// ConflictingRange identifies an existing reservation that blocks a requested
// range.
type ConflictingRange struct {
	ReservationID string          `json:"reservation_id"`
	Reference     string          `json:"reference"`
	Range         daterange.Range `json:"range"`
}

// ConflictError is returned when a requested range overlaps reservations in
// availability-blocking states on the same resource. Callers surface the
// colliding ranges so alternatives can be offered; nothing is auto-rescheduled.
type ConflictError struct {
	ResourceID string
	Conflicts  []ConflictingRange
}

func (e *ConflictError) Error() string {
	refs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		refs = append(refs, c.Reference)
	}
	return fmt.Sprintf("reservation: resource %s unavailable, conflicts with %s", e.ResourceID, strings.Join(refs, ", "))
}
