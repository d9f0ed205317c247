package rotation

import (
	"errors"
	"time"
)

// CycleType identifies the recurrence granularity of a rotation.
type CycleType int

const (
	// CycleUnspecified indicates the cycle type is not set.
	CycleUnspecified CycleType = iota
	// CycleDaily advances the rotation once per calendar day.
	CycleDaily
	// CycleWeekly advances the rotation once per week, anchored to the
	// weekday of the start date.
	CycleWeekly
	// CycleMonthly advances the rotation once per calendar month; the
	// day-of-month is ignored, only month/year rolls count.
	CycleMonthly
	// CycleYearly advances the rotation once per calendar year.
	CycleYearly
)

// String returns the wire name of the cycle type.
func (c CycleType) String() string {
	switch c {
	case CycleDaily:
		return "daily"
	case CycleWeekly:
		return "weekly"
	case CycleMonthly:
		return "monthly"
	case CycleYearly:
		return "yearly"
	default:
		return "unspecified"
	}
}

// ParseCycleType maps a wire name to a CycleType.
func ParseCycleType(value string) (CycleType, error) {
	switch value {
	case "daily":
		return CycleDaily, nil
	case "weekly":
		return CycleWeekly, nil
	case "monthly":
		return CycleMonthly, nil
	case "yearly":
		return CycleYearly, nil
	default:
		return CycleUnspecified, ErrInvalidCycle
	}
}

// SlotPolicy controls how inactive members in a rotation sequence are handled.
type SlotPolicy int

const (
	// SlotConsume keeps the full sequence for position arithmetic: an
	// inactive member still consumes a turn and coverage falls to the next
	// active member for that turn.
	SlotConsume SlotPolicy = iota
	// SlotReassign renumbers the cycle over active members only, so
	// inactive members do not consume turns.
	SlotReassign
)

// String returns the wire name of the slot policy.
func (p SlotPolicy) String() string {
	if p == SlotReassign {
		return "reassign"
	}
	return "consume"
}

// ParseSlotPolicy maps a wire name to a SlotPolicy. An empty value selects
// the default consume policy.
func ParseSlotPolicy(value string) (SlotPolicy, error) {
	switch value {
	case "", "consume":
		return SlotConsume, nil
	case "reassign":
		return SlotReassign, nil
	default:
		return SlotConsume, ErrInvalidSlotPolicy
	}
}

// Member is one slot in a rotation sequence.
type Member struct {
	UserID string
	Active bool
}

// Rotation is the input to position arithmetic. StartDate carries no
// meaningful time-of-day component; only its calendar date in the
// calculator's location matters.
type Rotation struct {
	ID        string
	Cycle     CycleType
	StartDate time.Time
	Sequence  []Member
}

var (
	// ErrInvalidCycle indicates the cycle type is not one of the supported values.
	ErrInvalidCycle = errors.New("rotation: invalid cycle type")
	// ErrInvalidSlotPolicy indicates the slot policy name is not recognized.
	ErrInvalidSlotPolicy = errors.New("rotation: invalid slot policy")
	// ErrEmptySequence indicates a rotation has no members to cycle through.
	ErrEmptySequence = errors.New("rotation: sequence is empty")
	// ErrNoActiveMembers indicates every member of the sequence is inactive.
	ErrNoActiveMembers = errors.New("rotation: no active members")
)

// Calculator computes rotation positions as a pure function of the rotation
// definition and an instant. No cursor state is stored anywhere: the position
// is always recomputed from the elapsed cycle count since the start date.
type Calculator struct {
	location *time.Location
	policy   SlotPolicy
}

// NewCalculator constructs a Calculator that derives calendar dates in the
// provided location. If loc is nil, UTC is used.
func NewCalculator(loc *time.Location, policy SlotPolicy) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{location: loc, policy: policy}
}

// UserAt returns the user id on duty for the rotation at the given instant.
//
// The elapsed cycle count uses floored arithmetic throughout, so instants
// before the start date resolve to the tail of the sequence rather than
// producing an error. An empty sequence or an exhausted (all-inactive)
// sequence is reported explicitly; the caller decides whether that is fatal.
func (c *Calculator) UserAt(rot Rotation, at time.Time) (string, error) {
	if len(rot.Sequence) == 0 {
		return "", ErrEmptySequence
	}

	elapsed, err := c.elapsedCycles(rot, at)
	if err != nil {
		return "", err
	}

	switch c.policy {
	case SlotReassign:
		active := make([]Member, 0, len(rot.Sequence))
		for _, member := range rot.Sequence {
			if member.Active {
				active = append(active, member)
			}
		}
		if len(active) == 0 {
			return "", ErrNoActiveMembers
		}
		return active[floorMod(elapsed, len(active))].UserID, nil
	default:
		idx := floorMod(elapsed, len(rot.Sequence))
		for offset := 0; offset < len(rot.Sequence); offset++ {
			member := rot.Sequence[(idx+offset)%len(rot.Sequence)]
			if member.Active {
				return member.UserID, nil
			}
		}
		return "", ErrNoActiveMembers
	}
}

func (c *Calculator) elapsedCycles(rot Rotation, at time.Time) (int, error) {
	startY, startM, startD := rot.StartDate.In(c.location).Date()
	atY, atM, atD := at.In(c.location).Date()

	switch rot.Cycle {
	case CycleDaily:
		return dayDelta(startY, startM, startD, atY, atM, atD), nil
	case CycleWeekly:
		return floorDiv(dayDelta(startY, startM, startD, atY, atM, atD), 7), nil
	case CycleMonthly:
		return (atY-startY)*12 + int(atM) - int(startM), nil
	case CycleYearly:
		return atY - startY, nil
	case CycleUnspecified:
		fallthrough
	default:
		return 0, ErrInvalidCycle
	}
}

// dayDelta counts whole calendar days between two dates. Both dates are
// re-anchored to UTC midnights so daylight-saving shifts cannot skew the count.
func dayDelta(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) int {
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
