package league

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tiendc/go-deepcopy"
)

// ErrInvalidInput marks malformed scheduling input.
var ErrInvalidInput = errors.New("invalid scheduling input")

func invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidInput)
}

// Timeslot is one window in which matches may be played. Day and Week are
// epoch-relative ordinals so "same day" and "same week" are integer equality.
type Timeslot struct {
	ID         string
	Day        int
	Week       int
	Facilities []string
}

// DayNumber returns the number of days between the Unix epoch and t's calendar date.
func DayNumber(t time.Time) int {
	y, m, d := t.Date()
	u := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(floorDiv(u.Unix(), 86400))
}

// WeekNumber returns the Monday-based week ordinal containing day.
func WeekNumber(day int) int {
	// 1970-01-01 was a Thursday.
	return int(floorDiv(int64(day)+3, 7))
}

// DayDate converts a day ordinal back to its UTC date.
func DayDate(day int) time.Time {
	return time.Unix(int64(day)*86400, 0).UTC()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// PlayerInput is a flight member as supplied by the caller.
type PlayerInput struct {
	ID           string
	Name         string
	Availability map[string]Status
	Overrides    Overrides
}

// Input is everything one scheduling run needs.
type Input struct {
	Rules     Rules
	Players   []PlayerInput
	Timeslots []Timeslot
}

// Player holds one flight member's per-run scheduling state.
type Player struct {
	ID                string
	Name              string
	Rules             Rules
	Availability      map[string]Status
	AvailabilityScore float64
	AboveMean         bool

	// Derived by Recalculate.
	GameCount    int
	Days         map[int]int
	Weeks        map[int]int
	History      map[string]int
	CaptainCount int
	Satisfied    bool
}

// StatusAt returns the effective status for a timeslot. Missing entries
// default to Available, or Unavailable when the player's rules assume busy.
func (p *Player) StatusAt(timeslotID string) Status {
	s, ok := p.Availability[timeslotID]
	if !ok {
		if p.Rules.AssumeBusy {
			return Unavailable
		}
		return Available
	}
	return Effective(s, p.Rules.AssumeBusy)
}

// CanPlay reports whether the player may be placed in the timeslot at all.
func (p *Player) CanPlay(timeslotID string) bool {
	return p.StatusAt(timeslotID) != Unavailable
}

// GameSlot is one assignable (timeslot, facility) opportunity.
type GameSlot struct {
	ID                string
	TimeslotID        string
	FacilityID        string
	Day               int
	Week              int
	Players           []string
	Full              bool
	Captain           string
	AvailabilityScore float64
	GoodAvailability  bool
}

// Has reports whether the player is in the slot.
func (g *GameSlot) Has(playerID string) bool {
	for _, id := range g.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

// SlotID builds the arena key for a (timeslot, facility) pair.
func SlotID(timeslotID, facilityID string) string {
	return timeslotID + "@" + facilityID
}

// Flight is the arena for one scheduling run. Players and slots are keyed
// by id; slots refer to players by id only.
type Flight struct {
	Rules            Rules
	Players          map[string]*Player
	PlayerOrder      []string
	Slots            map[string]*GameSlot
	SlotOrder        []string
	Timeslots        []Timeslot
	TimeslotSlots    map[string][]string
	MeanAvailability float64
}

// NewFlight builds the arena from caller input.
func NewFlight(in Input) (*Flight, error) {
	if in.Rules.PlayersPerMatch < 1 {
		return nil, invalidf("players per match must be at least 1, got %d", in.Rules.PlayersPerMatch)
	}

	f := &Flight{
		Rules:         in.Rules,
		Players:       make(map[string]*Player, len(in.Players)),
		Slots:         make(map[string]*GameSlot),
		TimeslotSlots: make(map[string][]string, len(in.Timeslots)),
	}

	for _, ts := range in.Timeslots {
		if ts.ID == "" {
			return nil, invalidf("timeslot with empty id")
		}
		if _, dup := f.TimeslotSlots[ts.ID]; dup {
			return nil, invalidf("duplicate timeslot %q", ts.ID)
		}
		facilities := append([]string(nil), ts.Facilities...)
		sort.Strings(facilities)
		for i := 1; i < len(facilities); i++ {
			if facilities[i] == facilities[i-1] {
				return nil, invalidf("timeslot %q lists facility %q twice", ts.ID, facilities[i])
			}
		}
		ts.Facilities = facilities
		f.Timeslots = append(f.Timeslots, ts)
		f.TimeslotSlots[ts.ID] = nil
	}

	for _, pi := range in.Players {
		if pi.ID == "" {
			return nil, invalidf("player with empty id")
		}
		if _, dup := f.Players[pi.ID]; dup {
			return nil, invalidf("duplicate player %q", pi.ID)
		}
		avail := make(map[string]Status, len(pi.Availability))
		for tsID, s := range pi.Availability {
			if _, ok := f.TimeslotSlots[tsID]; !ok {
				return nil, invalidf("player %q has availability for unknown timeslot %q", pi.ID, tsID)
			}
			avail[tsID] = s
		}
		name := pi.Name
		if name == "" {
			name = pi.ID
		}
		p := &Player{
			ID:           pi.ID,
			Name:         name,
			Rules:        pi.Overrides.Apply(in.Rules),
			Availability: avail,
		}
		for _, ts := range f.Timeslots {
			p.AvailabilityScore += Weight(p.StatusAt(ts.ID), p.Rules.AssumeBusy)
		}
		f.Players[p.ID] = p
		f.PlayerOrder = append(f.PlayerOrder, p.ID)
	}

	if len(f.PlayerOrder) > 0 {
		total := 0.0
		for _, p := range f.Players {
			total += p.AvailabilityScore
		}
		f.MeanAvailability = total / float64(len(f.PlayerOrder))
		for _, p := range f.Players {
			p.AboveMean = p.AvailabilityScore > f.MeanAvailability
		}
	}

	for _, ts := range f.Timeslots {
		score, good := 0.0, 0
		for _, id := range f.PlayerOrder {
			p := f.Players[id]
			st := p.StatusAt(ts.ID)
			score += Weight(st, p.Rules.AssumeBusy)
			if st == Available || st == Unknown {
				good++
			}
		}
		for _, fac := range ts.Facilities {
			s := &GameSlot{
				ID:                SlotID(ts.ID, fac),
				TimeslotID:        ts.ID,
				FacilityID:        fac,
				Day:               ts.Day,
				Week:              ts.Week,
				AvailabilityScore: score,
				GoodAvailability:  good >= f.Rules.PlayersPerMatch+f.Rules.MinimumSubsPerGame,
			}
			f.Slots[s.ID] = s
			f.SlotOrder = append(f.SlotOrder, s.ID)
			f.TimeslotSlots[ts.ID] = append(f.TimeslotSlots[ts.ID], s.ID)
		}
	}

	f.Recalculate()
	return f, nil
}

// Clone returns an independent deep copy of the arena.
func (f *Flight) Clone() (*Flight, error) {
	var out Flight
	if err := deepcopy.Copy(&out, *f); err != nil {
		return nil, errors.Wrap(err, "copying flight")
	}
	return &out, nil
}

// OrderedPlayers returns players in input order.
func (f *Flight) OrderedPlayers() []*Player {
	out := make([]*Player, 0, len(f.PlayerOrder))
	for _, id := range f.PlayerOrder {
		out = append(out, f.Players[id])
	}
	return out
}

// OrderedSlots returns slots in timeslot order, facilities sorted within a timeslot.
func (f *Flight) OrderedSlots() []*GameSlot {
	out := make([]*GameSlot, 0, len(f.SlotOrder))
	for _, id := range f.SlotOrder {
		out = append(out, f.Slots[id])
	}
	return out
}

// FullSlots returns the full slots in slot order.
func (f *Flight) FullSlots() []*GameSlot {
	var out []*GameSlot
	for _, id := range f.SlotOrder {
		if s := f.Slots[id]; s.Full {
			out = append(out, s)
		}
	}
	return out
}

// SlotsAt returns a timeslot's slots sorted by facility id.
func (f *Flight) SlotsAt(timeslotID string) []*GameSlot {
	ids := f.TimeslotSlots[timeslotID]
	out := make([]*GameSlot, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.Slots[id])
	}
	return out
}

// Capacity is the number of matches a timeslot can host at once.
func (f *Flight) Capacity(ts Timeslot) int {
	n := len(ts.Facilities)
	if f.Rules.MaxConcurrentGames > 0 && f.Rules.MaxConcurrentGames < n {
		n = f.Rules.MaxConcurrentGames
	}
	return n
}

// Timeslot looks up a timeslot by id.
func (f *Flight) Timeslot(id string) (Timeslot, bool) {
	for _, ts := range f.Timeslots {
		if ts.ID == id {
			return ts, true
		}
	}
	return Timeslot{}, false
}

// FullCount returns the number of full slots in a timeslot.
func (f *Flight) FullCount(timeslotID string) int {
	n := 0
	for _, s := range f.SlotsAt(timeslotID) {
		if s.Full {
			n++
		}
	}
	return n
}

// PlayingAt reports whether the player occupies any slot in the timeslot.
func (f *Flight) PlayingAt(playerID, timeslotID string) bool {
	for _, s := range f.SlotsAt(timeslotID) {
		if s.Has(playerID) {
			return true
		}
	}
	return false
}

// SlotsOf returns the full slots a player occupies, in slot order.
func (f *Flight) SlotsOf(playerID string) []*GameSlot {
	var out []*GameSlot
	for _, s := range f.FullSlots() {
		if s.Has(playerID) {
			out = append(out, s)
		}
	}
	return out
}

// ForceAdd places a player into a slot without the soft feasibility checks
// used while filling. It still refuses to break slot invariants.
func (f *Flight) ForceAdd(slotID, playerID string) bool {
	s, ok := f.Slots[slotID]
	if !ok {
		return false
	}
	if _, ok := f.Players[playerID]; !ok {
		return false
	}
	if len(s.Players) >= f.Rules.PlayersPerMatch || s.Has(playerID) {
		return false
	}
	s.Players = append(s.Players, playerID)
	s.Full = len(s.Players) == f.Rules.PlayersPerMatch
	return true
}

// Remove takes a player out of a slot. A slot that is no longer full loses its captain.
func (f *Flight) Remove(slotID, playerID string) bool {
	s, ok := f.Slots[slotID]
	if !ok {
		return false
	}
	for i, id := range s.Players {
		if id != playerID {
			continue
		}
		s.Players = append(s.Players[:i], s.Players[i+1:]...)
		s.Full = len(s.Players) == f.Rules.PlayersPerMatch
		if s.Captain == playerID || !s.Full {
			s.Captain = ""
		}
		return true
	}
	return false
}

// Replace swaps out one occupant of a slot for another player in place,
// keeping the slot's player order.
func (f *Flight) Replace(slotID, outID, inID string) bool {
	s, ok := f.Slots[slotID]
	if !ok || s.Has(inID) {
		return false
	}
	if _, ok := f.Players[inID]; !ok {
		return false
	}
	for i, id := range s.Players {
		if id == outID {
			s.Players[i] = inID
			if s.Captain == outID {
				s.Captain = ""
			}
			return true
		}
	}
	return false
}

// Clear empties every slot.
func (f *Flight) Clear() {
	for _, s := range f.Slots {
		s.Players = nil
		s.Full = false
		s.Captain = ""
	}
}
