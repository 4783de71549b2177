package schedule

import (
	"sort"

	"github.com/derekprior/flightsched/internal/league"
)

// Repair passes run after the fill. Each one recalculates before and after,
// bounds its own iterations and leaves whatever it cannot fix for the
// violation report.
//
// Tie-break policy, shared by every pass:
//   - players: fewest games, then lowest availability score, then flight order
//   - slots: lowest conflict (same-day plus same-week games), then slot order
//   - incumbents: strictly over their maximum first, then most games, then
//     position in the slot

// underPlayers returns the players below their minimum, neediest first.
func (s *scheduler) underPlayers() []*league.Player {
	var out []*league.Player
	for _, p := range s.flight.OrderedPlayers() {
		if p.Under() {
			out = append(out, p)
		}
	}
	sortNeediest(out)
	return out
}

func sortNeediest(players []*league.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].GameCount != players[j].GameCount {
			return players[i].GameCount < players[j].GameCount
		}
		return players[i].AvailabilityScore < players[j].AvailabilityScore
	})
}

// conflicts scores how crowded a slot's day and week already are for a player.
func conflicts(p *league.Player, slot *league.GameSlot) int {
	return p.Days[slot.Day] + p.Weeks[slot.Week]
}

// fits reports whether p could play in target without breaking availability,
// the one-game-per-timeslot rule or their day, week and double-header caps.
// leaving is a slot p would vacate at the same time, or nil.
func (s *scheduler) fits(p *league.Player, target, leaving *league.GameSlot) bool {
	if target.Has(p.ID) || !p.CanPlay(target.TimeslotID) {
		return false
	}
	if s.flight.PlayingAt(p.ID, target.TimeslotID) && (leaving == nil || leaving.TimeslotID != target.TimeslotID) {
		return false
	}

	days := make(map[int]int, len(p.Days)+1)
	for d, c := range p.Days {
		days[d] = c
	}
	week := p.Weeks[target.Week]
	if leaving != nil {
		days[leaving.Day]--
		if leaving.Week == target.Week {
			week--
		}
	}
	days[target.Day]++

	if !league.Within(days[target.Day], p.Rules.MaxGamesDay) || !league.Within(week+1, p.Rules.MaxGamesWeek) {
		return false
	}
	if p.Rules.MaxDoubleHeaders > 0 && days[target.Day] > 1 {
		doubles := 0
		for _, c := range days {
			if c > 1 {
				doubles++
			}
		}
		if doubles > p.Rules.MaxDoubleHeaders {
			return false
		}
	}
	return true
}

// slotsByConflict returns the full slots p fits into, least conflicting first.
func (s *scheduler) slotsByConflict(p *league.Player, leaving *league.GameSlot, keep func(*league.GameSlot) bool) []*league.GameSlot {
	var out []*league.GameSlot
	for _, slot := range s.flight.FullSlots() {
		if slot == leaving || (keep != nil && !keep(slot)) {
			continue
		}
		if s.fits(p, slot, leaving) {
			out = append(out, slot)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return conflicts(p, out[i]) < conflicts(p, out[j])
	})
	return out
}

// swap exchanges a in slot sa with b in slot sb.
func (s *scheduler) swap(sa *league.GameSlot, a string, sb *league.GameSlot, b string) {
	s.flight.Replace(sa.ID, a, b)
	s.flight.Replace(sb.ID, b, a)
	s.flight.Recalculate()
}

// balanceUnscheduled swaps needy players into full slots in place of
// incumbents who are at or over their maximum.
func (s *scheduler) balanceUnscheduled() int {
	s.flight.Recalculate()
	under := s.underPlayers()
	if len(under) == 0 {
		return 0
	}
	avg := league.AverageGames(under)

	moved := 0
	for _, p := range under {
		// At-or-below so a uniform deficit is still worked on.
		if float64(p.GameCount) > avg {
			continue
		}
		for attempt := 0; p.Under() && attempt < maxSwapAttempts; attempt++ {
			if !s.balanceOne(p) {
				break
			}
			moved++
		}
	}
	s.flight.Recalculate()
	return moved
}

func (s *scheduler) balanceOne(p *league.Player) bool {
	for _, slot := range s.slotsByConflict(p, nil, nil) {
		if inc := s.surplusIncumbent(slot, p.ID); inc != nil {
			s.flight.Replace(slot.ID, inc.ID, p.ID)
			s.flight.Recalculate()
			return true
		}
	}
	return false
}

// surplusIncumbent picks the occupant of slot who can best spare a game:
// someone at or over their maximum who stays at or above their minimum.
func (s *scheduler) surplusIncumbent(slot *league.GameSlot, exclude string) *league.Player {
	var best *league.Player
	for _, id := range slot.Players {
		if id == exclude {
			continue
		}
		q := s.flight.Players[id]
		if q.GameCount-1 < q.Rules.MinGamesTotal {
			continue
		}
		over := q.Rules.MaxGamesTotal > 0 && q.GameCount > q.Rules.MaxGamesTotal
		atOrOver := q.AtMax() || (q.Rules.MaxGamesTotal == 0 && q.GameCount > q.Rules.MinGamesTotal)
		if !atOrOver {
			continue
		}
		if best == nil {
			best = q
			continue
		}
		bestOver := best.Rules.MaxGamesTotal > 0 && best.GameCount > best.Rules.MaxGamesTotal
		if (over && !bestOver) || (over == bestOver && q.GameCount > best.GameCount) {
			best = q
		}
	}
	return best
}

// fixUnscheduled fills empty slots with groups of under-scheduled players
// who share the timeslot, topping up from players with room to spare when
// no group fills a match on its own.
func (s *scheduler) fixUnscheduled() int {
	filled := 0
	for round := 0; round < maxRepairRounds; round++ {
		s.flight.Recalculate()
		under := s.underPlayers()
		if len(under) == 0 || !s.fillOpenSlot(under) {
			break
		}
		filled++
	}
	s.flight.Recalculate()
	return filled
}

type openSlotOption struct {
	slot    *league.GameSlot
	players []*league.Player
	needy   int
	cost    int
}

func (o *openSlotOption) better(than *openSlotOption) bool {
	if than == nil {
		return true
	}
	if o.needy != than.needy {
		return o.needy > than.needy
	}
	return o.cost < than.cost
}

func (s *scheduler) fillOpenSlot(under []*league.Player) bool {
	ppm := s.flight.Rules.PlayersPerMatch
	var group, fallback *openSlotOption

	for _, ts := range s.flight.Timeslots {
		if s.flight.FullCount(ts.ID) >= s.flight.Capacity(ts) {
			continue
		}
		var open *league.GameSlot
		for _, slot := range s.flight.SlotsAt(ts.ID) {
			if len(slot.Players) == 0 {
				open = slot
				break
			}
		}
		if open == nil {
			continue
		}

		var needy []*league.Player
		for _, p := range under {
			if s.fits(p, open, nil) {
				needy = append(needy, p)
			}
		}
		if len(needy) == 0 {
			continue
		}

		if len(needy) >= ppm {
			opt := &openSlotOption{slot: open, players: needy[:ppm], needy: ppm}
			for _, p := range opt.players {
				opt.cost += conflicts(p, open)
			}
			if opt.cost < costOf(group) {
				group = opt
			}
			continue
		}

		var extras []*league.Player
		for _, p := range s.flight.OrderedPlayers() {
			if !p.Under() && !p.AtMax() && s.fits(p, open, nil) {
				extras = append(extras, p)
			}
		}
		if len(needy)+len(extras) < ppm {
			continue
		}
		sortNeediest(extras)
		opt := &openSlotOption{slot: open, needy: len(needy)}
		opt.players = append(append(opt.players, needy...), extras[:ppm-len(needy)]...)
		for _, p := range opt.players {
			opt.cost += conflicts(p, open)
		}
		if opt.better(fallback) {
			fallback = opt
		}
	}

	pick := group
	if pick == nil {
		pick = fallback
	}
	if pick == nil {
		return false
	}
	for _, p := range pick.players {
		s.flight.ForceAdd(pick.slot.ID, p.ID)
	}
	return true
}

func costOf(o *openSlotOption) int {
	if o == nil {
		return int(^uint(0) >> 1)
	}
	return o.cost
}

// doubledDays returns the days on which p plays more than allowed, either
// over the per-day cap or as a double header beyond their allowance.
func doubledDays(p *league.Player) []int {
	tooMany := p.Rules.MaxDoubleHeaders > 0 && p.DoubleHeaders() > p.Rules.MaxDoubleHeaders
	var days []int
	for d, c := range p.Days {
		if c > 1 && (!league.Within(c, p.Rules.MaxGamesDay) || tooMany) {
			days = append(days, d)
		}
	}
	sort.Ints(days)
	return days
}

// fixDoubles moves double-booked players out of one of their games on the
// crowded day by swapping with an occupant of another full slot.
func (s *scheduler) fixDoubles() int {
	s.flight.Recalculate()
	fixed := 0
	for _, p := range s.flight.OrderedPlayers() {
		for attempt := 0; len(doubledDays(p)) > 0 && attempt < maxSwapAttempts; attempt++ {
			if !s.undoubleOne(p) {
				break
			}
			fixed++
		}
	}
	s.flight.Recalculate()
	return fixed
}

func (s *scheduler) undoubleOne(p *league.Player) bool {
	for _, day := range doubledDays(p) {
		for _, src := range s.flight.SlotsOf(p.ID) {
			if src.Day != day {
				continue
			}
			targets := s.slotsByConflict(p, src, func(t *league.GameSlot) bool { return t.Day != day })
			for _, t := range targets {
				for _, q := range s.occupantsFor(t, src) {
					if len(doubledDays(q)) > 0 {
						continue
					}
					s.swap(src, p.ID, t, q.ID)
					return true
				}
			}
		}
	}
	return false
}

// occupantsFor returns the players of t who could take their place in src
// while moving out of t, least conflicting first.
func (s *scheduler) occupantsFor(t, src *league.GameSlot) []*league.Player {
	var out []*league.Player
	for _, id := range t.Players {
		q := s.flight.Players[id]
		if src.Has(id) || !s.fits(q, src, t) {
			continue
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return conflicts(out[i], src) < conflicts(out[j], src)
	})
	return out
}

// lowPrefGames counts a player's full slots in timeslots they marked low preference.
func (s *scheduler) lowPrefGames(p *league.Player) int {
	n := 0
	for _, slot := range s.flight.SlotsOf(p.ID) {
		if p.StatusAt(slot.TimeslotID) == league.AvailableLowPref {
			n++
		}
	}
	return n
}

func (s *scheduler) needsLowPrefFix() bool {
	for _, p := range s.flight.OrderedPlayers() {
		if p.GameCount > 0 && s.lowPrefGames(p)*2 > p.GameCount {
			return true
		}
	}
	return false
}

func preferred(st league.Status) bool {
	return st == league.Available || st == league.Unknown
}

// fixLowPref swaps players whose games are at least half low preference
// into fully available slots, picking the swap that disturbs days and
// weeks the least.
func (s *scheduler) fixLowPref() int {
	s.flight.Recalculate()
	moved := 0
	for _, p := range s.flight.OrderedPlayers() {
		for attempt := 0; attempt < maxSwapAttempts; attempt++ {
			if p.GameCount == 0 || s.lowPrefGames(p)*2 < p.GameCount {
				break
			}
			if !s.lowPrefOne(p) {
				break
			}
			moved++
		}
	}
	s.flight.Recalculate()
	return moved
}

func (s *scheduler) lowPrefOne(p *league.Player) bool {
	var bestSrc, bestT *league.GameSlot
	var bestQ *league.Player
	bestCost := 0

	for _, src := range s.flight.SlotsOf(p.ID) {
		if p.StatusAt(src.TimeslotID) != league.AvailableLowPref {
			continue
		}
		keep := func(t *league.GameSlot) bool { return preferred(p.StatusAt(t.TimeslotID)) }
		for _, t := range s.slotsByConflict(p, src, keep) {
			for _, q := range s.occupantsFor(t, src) {
				if !preferred(q.StatusAt(src.TimeslotID)) {
					continue
				}
				cost := conflicts(p, t) + conflicts(q, src)
				if bestQ == nil || cost < bestCost {
					bestSrc, bestT, bestQ, bestCost = src, t, q, cost
				}
			}
		}
	}
	if bestQ == nil {
		return false
	}
	s.swap(bestSrc, p.ID, bestT, bestQ.ID)
	return true
}
