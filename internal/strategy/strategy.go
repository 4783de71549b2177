package strategy

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/derekprior/flightsched/internal/league"
)

// Ordering reorders a flight's slots before the greedy fill. Different
// orderings give different timeslots first pick of the candidate games,
// which is how restarts explore different schedules.
type Ordering interface {
	Name() string
	Order(slots []*league.GameSlot, rng *rand.Rand) []*league.GameSlot
}

// Names accepted by Get.
const (
	Auto       = "auto"
	ScoreShift = "score_shift"
	Interlace  = "interlace"
	Shuffle    = "shuffle"
)

// Get returns an Ordering by name. "auto" (or empty) picks by mutation number.
func Get(name string, mutate, distinct int) (Ordering, error) {
	switch name {
	case "", Auto:
		return ForMutation(mutate, distinct), nil
	case ScoreShift:
		return &ScoreShiftOrdering{Mutate: mutate}, nil
	case Interlace:
		return &InterlaceOrdering{Mutate: mutate}, nil
	case Shuffle:
		return &ShuffleOrdering{}, nil
	default:
		return nil, fmt.Errorf("unknown ordering: %q", name)
	}
}

// ForMutation selects the ordering for a restart. distinct is the number
// of distinct timeslots in the flight.
func ForMutation(mutate, distinct int) Ordering {
	switch {
	case mutate > 2*distinct:
		return &ShuffleOrdering{}
	case mutate > distinct:
		return &InterlaceOrdering{Mutate: mutate}
	default:
		return &ScoreShiftOrdering{Mutate: mutate}
	}
}

// ScoreShiftOrdering groups slots by availability score (scarcest first)
// and reverses the order of the first Mutate mod groups groups.
type ScoreShiftOrdering struct {
	Mutate int
}

func (o *ScoreShiftOrdering) Name() string { return ScoreShift }

func (o *ScoreShiftOrdering) Order(slots []*league.GameSlot, _ *rand.Rand) []*league.GameSlot {
	sorted := append([]*league.GameSlot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AvailabilityScore < sorted[j].AvailabilityScore
	})

	var groups [][]*league.GameSlot
	for i, s := range sorted {
		if i == 0 || s.AvailabilityScore != sorted[i-1].AvailabilityScore {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], s)
	}
	if len(groups) == 0 {
		return sorted
	}

	k := mod(o.Mutate, len(groups))
	for i, j := 0, k-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}

	out := make([]*league.GameSlot, 0, len(sorted))
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// InterlaceOrdering zips the first half of the slots with the reversed
// second half, then rotates the result left by Mutate.
type InterlaceOrdering struct {
	Mutate int
}

func (o *InterlaceOrdering) Name() string { return Interlace }

func (o *InterlaceOrdering) Order(slots []*league.GameSlot, _ *rand.Rand) []*league.GameSlot {
	n := len(slots)
	if n == 0 {
		return nil
	}
	first := slots[:n/2]
	second := make([]*league.GameSlot, 0, n-n/2)
	for i := n - 1; i >= n/2; i-- {
		second = append(second, slots[i])
	}

	zipped := make([]*league.GameSlot, 0, n)
	for i := 0; i < len(second); i++ {
		if i < len(first) {
			zipped = append(zipped, first[i])
		}
		zipped = append(zipped, second[i])
	}

	r := mod(o.Mutate, n)
	return append(zipped[r:], zipped[:r]...)
}

// ShuffleOrdering is a full random permutation drawn from the run's generator.
type ShuffleOrdering struct{}

func (o *ShuffleOrdering) Name() string { return Shuffle }

func (o *ShuffleOrdering) Order(slots []*league.GameSlot, rng *rand.Rand) []*league.GameSlot {
	out := append([]*league.GameSlot(nil), slots...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// TimeslotOrder returns the distinct timeslot ids in order of first appearance.
func TimeslotOrder(slots []*league.GameSlot) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range slots {
		if !seen[s.TimeslotID] {
			seen[s.TimeslotID] = true
			ids = append(ids, s.TimeslotID)
		}
	}
	return ids
}

func mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
