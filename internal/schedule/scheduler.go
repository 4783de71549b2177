package schedule

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/derekprior/flightsched/internal/league"
	"github.com/derekprior/flightsched/internal/strategy"
)

const (
	// maxEmptyPasses bounds the constructive fill once passes stop adding games.
	maxEmptyPasses = 10
	// maxSwapAttempts bounds repeated repairs for a single player.
	maxSwapAttempts = 25
	// maxRepairRounds bounds the open-slot filling pass.
	maxRepairRounds = 200
	// maxCaptainAttempts bounds captain assignment retries.
	maxCaptainAttempts = 50
)

// timeslotPool is a timeslot's candidate games plus the games committed to
// it during the fill that still need concrete facility slots.
type timeslotPool struct {
	league.Pool
	scheduled [][]string
}

// scheduler runs one candidate: fill, repair and captain assignment over
// its own copy of the flight.
type scheduler struct {
	flight   *league.Flight
	rng      *rand.Rand
	ordering strategy.Ordering
	log      zerolog.Logger

	timeslots []league.Timeslot
	pools     map[string]*timeslotPool
}

func newScheduler(f *league.Flight, rng *rand.Rand, ordering strategy.Ordering, log zerolog.Logger) *scheduler {
	return &scheduler{
		flight:   f,
		rng:      rng,
		ordering: ordering,
		log:      log,
		pools:    make(map[string]*timeslotPool),
	}
}

// run builds one complete candidate schedule in place.
func (s *scheduler) run() {
	s.initOrder()
	committed := s.fill()
	s.forceAssign()
	s.flight.Recalculate()

	balanced := s.balanceUnscheduled()
	filled := s.fixUnscheduled()
	undoubled := s.fixDoubles()
	lowPref := 0
	if s.needsLowPrefFix() {
		lowPref = s.fixLowPref()
	}
	captained := s.assignCaptains()

	s.log.Debug().
		Str("ordering", s.ordering.Name()).
		Int("committed", committed).
		Int("balanced", balanced).
		Int("filled", filled).
		Int("undoubled", undoubled).
		Int("low_pref_moves", lowPref).
		Bool("captains_balanced", captained).
		Msg("candidate built")
}

// initOrder applies the candidate's ordering to the slots and derives the
// order in which timeslots get first pick during the fill.
func (s *scheduler) initOrder() {
	ordered := s.ordering.Order(s.flight.OrderedSlots(), s.rng)
	for _, id := range strategy.TimeslotOrder(ordered) {
		ts, _ := s.flight.Timeslot(id)
		s.timeslots = append(s.timeslots, ts)
		s.pools[id] = &timeslotPool{Pool: s.flight.TimeslotPool(ts)}
	}
}

// fill greedily commits candidate games, at most one per timeslot per pass.
// Passes first refuse any game that would push a member past their maximum;
// once such a pass adds nothing, only games whose members are all at their
// maximum are refused.
func (s *scheduler) fill() int {
	total := 0
	strict := true
	for empty := 0; empty < maxEmptyPasses; {
		if added := s.fillPass(strict); added > 0 {
			total += added
			empty = 0
			continue
		}
		empty++
		if !strict {
			break
		}
		strict = false
	}
	return total
}

func (s *scheduler) fillPass(strict bool) int {
	added := 0
	for _, ts := range s.timeslots {
		pool := s.pools[ts.ID]
		if pool.AvailableSlots <= 0 {
			continue
		}
		avg := league.AverageGames(s.flight.OrderedPlayers())
		if game := s.pickGame(pool, avg, strict); game != nil {
			s.commit(pool, game)
			added++
		}
	}
	return added
}

// pickGame returns the feasible candidate that minimizes repeat pairings,
// trying games with a below-average player first. Ties go to the earliest
// candidate in enumeration order.
func (s *scheduler) pickGame(pool *timeslotPool, avg float64, strict bool) []string {
	busy := make(map[string]bool)
	for _, g := range pool.scheduled {
		for _, id := range g {
			busy[id] = true
		}
	}

	var best []string
	bestNeedy, bestHistory := false, 0
	for _, game := range pool.Games {
		if !s.canCommit(pool, game, busy, strict) {
			continue
		}
		needy := false
		for _, id := range game {
			if float64(s.flight.Players[id].GameCount) < avg {
				needy = true
				break
			}
		}
		history := s.historySum(game)
		switch {
		case best == nil,
			needy && !bestNeedy,
			needy == bestNeedy && history < bestHistory:
			best, bestNeedy, bestHistory = game, needy, history
		}
	}
	return best
}

func (s *scheduler) canCommit(pool *timeslotPool, game []string, busy map[string]bool, strict bool) bool {
	if pool.AvailableSlots <= 0 {
		return false
	}
	if len(game) != s.flight.Rules.PlayersPerMatch {
		return false
	}
	ts := pool.Timeslot
	allAtMax := true
	for _, id := range game {
		if busy[id] {
			return false
		}
		p := s.flight.Players[id]
		day := p.Days[ts.Day]
		if !league.Within(day+1, p.Rules.MaxGamesDay) || !league.Within(p.Weeks[ts.Week]+1, p.Rules.MaxGamesWeek) {
			return false
		}
		if day == 1 && p.Rules.MaxDoubleHeaders > 0 && p.DoubleHeaders() >= p.Rules.MaxDoubleHeaders {
			return false
		}
		atMax := p.AtMax()
		if strict && atMax {
			return false
		}
		allAtMax = allAtMax && atMax
	}
	return !allAtMax
}

func (s *scheduler) historySum(game []string) int {
	sum := 0
	for i := 0; i < len(game); i++ {
		p := s.flight.Players[game[i]]
		for j := i + 1; j < len(game); j++ {
			sum += p.History[game[j]]
		}
	}
	return sum
}

// commit records a game against its timeslot and updates the members'
// counters incrementally. Recalculate later replaces these with the
// canonical values.
func (s *scheduler) commit(pool *timeslotPool, game []string) {
	pool.AvailableSlots--
	pool.scheduled = append(pool.scheduled, game)
	ts := pool.Timeslot
	for _, id := range game {
		p := s.flight.Players[id]
		p.GameCount++
		p.Days[ts.Day]++
		p.Weeks[ts.Week]++
		for _, other := range game {
			if other != id {
				p.History[other]++
			}
		}
	}
}

// forceAssign moves committed games onto the timeslots' facility slots in
// facility order, bypassing the fill's feasibility checks.
func (s *scheduler) forceAssign() {
	for _, ts := range s.flight.Timeslots {
		pool, ok := s.pools[ts.ID]
		if !ok {
			continue
		}
		slots := s.flight.SlotsAt(ts.ID)
		next := 0
		for _, game := range pool.scheduled {
			for next < len(slots) && len(slots[next].Players) > 0 {
				next++
			}
			if next == len(slots) {
				s.log.Warn().Str("timeslot", ts.ID).Msg("more games committed than facilities")
				break
			}
			for _, id := range game {
				s.flight.ForceAdd(slots[next].ID, id)
			}
		}
		pool.scheduled = nil
	}
}
