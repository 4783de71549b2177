package schedule

import (
	"github.com/derekprior/flightsched/internal/league"
)

// assignCaptains gives every full slot one captain, retrying with a fresh
// shuffle until every player's captaincy count is within their bounds. If
// no attempt succeeds the last one stands; captaincy is a soft rule.
func (s *scheduler) assignCaptains() bool {
	for attempt := 1; attempt <= maxCaptainAttempts; attempt++ {
		for _, id := range s.flight.SlotOrder {
			s.flight.Slots[id].Captain = ""
		}
		s.flight.Recalculate()

		full := s.flight.FullSlots()
		s.rng.Shuffle(len(full), func(i, j int) {
			full[i], full[j] = full[j], full[i]
		})

		captained := make(map[string]bool)
		for _, slot := range full {
			if slot.Captain != "" {
				continue
			}
			c := s.pickCaptain(slot, captained)
			slot.Captain = c.ID
			c.CaptainCount++
			captained[c.ID] = true
		}

		if s.captainsBalanced() {
			return true
		}
	}
	return false
}

// pickCaptain prefers, in order: a player who has not captained yet this
// attempt and is short of their minimum; one who stays below their maximum;
// anyone. Within a tier the fewest captaincies win and remaining ties are
// drawn from the run's generator.
func (s *scheduler) pickCaptain(slot *league.GameSlot, captained map[string]bool) *league.Player {
	tiers := []func(p *league.Player) bool{
		func(p *league.Player) bool {
			return !captained[p.ID] && p.CaptainCount < p.Rules.MinCaptained
		},
		func(p *league.Player) bool {
			return p.Rules.MaxCaptained == 0 || p.CaptainCount+1 < p.Rules.MaxCaptained
		},
		func(p *league.Player) bool { return true },
	}

	for _, eligible := range tiers {
		var best []*league.Player
		for _, id := range slot.Players {
			p := s.flight.Players[id]
			if !eligible(p) {
				continue
			}
			switch {
			case len(best) == 0 || p.CaptainCount < best[0].CaptainCount:
				best = []*league.Player{p}
			case p.CaptainCount == best[0].CaptainCount:
				best = append(best, p)
			}
		}
		if len(best) > 0 {
			return best[s.rng.Intn(len(best))]
		}
	}
	return nil
}

// captainsBalanced reports whether every full slot has a captain who plays
// in it and every player's count lies in [min, max).
func (s *scheduler) captainsBalanced() bool {
	for _, slot := range s.flight.FullSlots() {
		if slot.Captain == "" || !slot.Has(slot.Captain) {
			return false
		}
	}
	for _, p := range s.flight.OrderedPlayers() {
		if !p.CaptaincyWithin() {
			return false
		}
	}
	return true
}
