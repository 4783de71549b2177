package league

import (
	"fmt"
	"strings"
)

// Status is a player's availability for one timeslot.
type Status int

const (
	Available Status = iota
	AvailableLowPref
	Unavailable
	Unknown
)

func (s Status) String() string {
	switch s {
	case Available:
		return "available"
	case AvailableLowPref:
		return "low_pref"
	case Unavailable:
		return "unavailable"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus converts a config string into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available", "yes":
		return Available, nil
	case "low_pref", "available_low_pref", "maybe":
		return AvailableLowPref, nil
	case "unavailable", "no":
		return Unavailable, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("unknown availability status %q", s)
	}
}

// Effective resolves Unknown according to the assume_busy rule.
func Effective(s Status, assumeBusy bool) Status {
	if s == Unknown && assumeBusy {
		return Unavailable
	}
	return s
}

// Weight is the availability score contribution of a status.
func Weight(s Status, assumeBusy bool) float64 {
	switch Effective(s, assumeBusy) {
	case Available, Unknown:
		return 1.0
	case AvailableLowPref:
		return 0.5
	default:
		return 0
	}
}

// Rules are the league's quota and fairness limits. A zero max means no limit.
type Rules struct {
	MinGamesTotal      int
	MaxGamesTotal      int
	MinGamesDay        int
	MaxGamesDay        int
	MinGamesWeek       int
	MaxGamesWeek       int
	MaxDoubleHeaders   int
	MaxConcurrentGames int
	MinCaptained       int
	MaxCaptained       int
	MaxWeekGap         int
	PlayersPerMatch    int
	MinimumSubsPerGame int
	AssumeBusy         bool
}

// Overrides replace individual rules for one player. Nil fields keep the league value.
type Overrides struct {
	MinGamesTotal *int
	MaxGamesTotal *int
	MinGamesDay   *int
	MaxGamesDay   *int
	MinGamesWeek  *int
	MaxGamesWeek  *int
	MinCaptained  *int
	MaxCaptained  *int
	MaxWeekGap    *int
}

// Apply returns a copy of r with the overrides resolved.
func (o Overrides) Apply(r Rules) Rules {
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&r.MinGamesTotal, o.MinGamesTotal)
	set(&r.MaxGamesTotal, o.MaxGamesTotal)
	set(&r.MinGamesDay, o.MinGamesDay)
	set(&r.MaxGamesDay, o.MaxGamesDay)
	set(&r.MinGamesWeek, o.MinGamesWeek)
	set(&r.MaxGamesWeek, o.MaxGamesWeek)
	set(&r.MinCaptained, o.MinCaptained)
	set(&r.MaxCaptained, o.MaxCaptained)
	set(&r.MaxWeekGap, o.MaxWeekGap)
	return r
}

// Within reports whether n does not exceed limit, treating limit <= 0 as unlimited.
func Within(n, limit int) bool {
	return limit <= 0 || n <= limit
}
