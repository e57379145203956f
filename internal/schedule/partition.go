package schedule

import (
	"fmt"
	"time"
)

// Priority is the urgency tier attached to a booking request. The numeric
// order doubles as the band ring order used by the fallback in Pick.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority maps the wire representation to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// bandBounds splits n slots into the high/medium/low band sizes. The low
// band absorbs the rounding remainder so the three sizes always sum to n.
func bandBounds(n int) (sizes [3]int, starts [3]int) {
	high := n / 5
	medium := 3 * n / 5
	low := n - high - medium

	sizes = [3]int{high, medium, low}
	starts = [3]int{0, high, high + medium}
	return sizes, starts
}

// Pick selects the earliest slot of the requested priority band from an
// ascending free-slot sequence. High maps to the earliest fifth of the
// sequence, Medium to the middle three fifths, Low to the remainder.
//
// When the requested band is empty the other bands are probed around the
// High -> Medium -> Low ring, starting one step from the requested band, and
// the earliest slot of the first non-empty band wins. ok is false only when
// the sequence itself is empty.
func Pick(slots []time.Time, p Priority) (slot time.Time, ok bool) {
	if len(slots) == 0 {
		return time.Time{}, false
	}

	sizes, starts := bandBounds(len(slots))
	for step := 0; step < 3; step++ {
		band := (int(p) + step) % 3
		if sizes[band] > 0 {
			return slots[starts[band]], true
		}
	}

	// Unreachable: the band sizes sum to len(slots) > 0.
	return time.Time{}, false
}
