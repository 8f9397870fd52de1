package daterange

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidRange = errors.New("daterange: end must be after start")

// Range represents a half-open interval [Start, End).
type Range struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

func New(start, end time.Time) (Range, error) {
	r := Range{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if !r.End.After(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether two half-open ranges intersect. Ranges that merely
// touch (one ends exactly when the other starts) do not overlap, so a checkout
// and a same-day check-in are both admissible.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r Range) Adjacent(other Range) bool {
	return r.End.Equal(other.Start) || r.Start.Equal(other.End)
}

func (r Range) ContainsTime(t time.Time) bool {
	t = t.UTC()
	return !t.Before(r.Start) && t.Before(r.End)
}

// Nights counts billable nights, rounding partial days up.
func (r Range) Nights() int {
	return int(math.Ceil(r.End.Sub(r.Start).Hours() / 24))
}

// Clamp trims the range to the given window. The second return is false when
// the two do not intersect at all.
func (r Range) Clamp(window Range) (Range, bool) {
	if !r.Overlaps(window) {
		return Range{}, false
	}
	out := r
	if window.Start.After(out.Start) {
		out.Start = window.Start
	}
	if window.End.Before(out.End) {
		out.End = window.End
	}
	return out, true
}
