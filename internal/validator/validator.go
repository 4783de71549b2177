package validator

import (
	"fmt"
	"math"
	"sort"

	"github.com/derekprior/flightsched/internal/league"
)

// Tier ranks a violation. Tier1 rules are hard constraints; Tier2 are soft.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
)

func (t Tier) String() string {
	if t == Tier1 {
		return "error"
	}
	return "warning"
}

// Violation represents a rule breach found during evaluation.
type Violation struct {
	Tier     Tier
	PlayerID string
	Rule     string
	Message  string
}

// PlayerSummary holds one player's schedule statistics.
type PlayerSummary struct {
	ID            string
	Name          string
	Games         int
	Captained     int
	LowPref       int
	DoubleHeaders int
	Days          map[int]int
	Weeks         map[int]int
	Collisions    map[string]int
}

// Score orders candidate schedules: fewer hard violations first, then fewer soft ones.
type Score struct {
	Tier1 int
	Tier2 int
}

// Less reports whether s is strictly better than o.
func (s Score) Less(o Score) bool {
	if s.Tier1 != o.Tier1 {
		return s.Tier1 < o.Tier1
	}
	return s.Tier2 < o.Tier2
}

func (s Score) String() string {
	return fmt.Sprintf("(%d, %d)", s.Tier1, s.Tier2)
}

// Report is the outcome of evaluating a flight.
type Report struct {
	Violations []Violation
	Players    []PlayerSummary
}

// Score counts the report's violations per tier.
func (r Report) Score() Score {
	var s Score
	for _, v := range r.Violations {
		if v.Tier == Tier1 {
			s.Tier1++
		} else {
			s.Tier2++
		}
	}
	return s
}

// Messages returns the violation sentences, tier1 first.
func (r Report) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}

// ForPlayer returns the violations that concern one player.
func (r Report) ForPlayer(id string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.PlayerID == id {
			out = append(out, v)
		}
	}
	return out
}

// Evaluate summarizes every player and classifies rule breaches. The flight
// is recalculated first so the counters reflect its full slots.
func Evaluate(f *league.Flight) Report {
	f.Recalculate()

	var report Report
	var tier1, tier2 []Violation
	for _, p := range f.OrderedPlayers() {
		sum := summarize(f, p)
		report.Players = append(report.Players, sum)
		tier1 = append(tier1, hardViolations(p)...)
		tier2 = append(tier2, softViolations(f, p, sum)...)
	}
	report.Violations = append(tier1, tier2...)
	return report
}

func summarize(f *league.Flight, p *league.Player) PlayerSummary {
	sum := PlayerSummary{
		ID:            p.ID,
		Name:          p.Name,
		Games:         p.GameCount,
		Captained:     p.CaptainCount,
		DoubleHeaders: p.DoubleHeaders(),
		Days:          make(map[int]int, len(p.Days)),
		Weeks:         make(map[int]int, len(p.Weeks)),
		Collisions:    make(map[string]int, len(p.History)),
	}
	for d, c := range p.Days {
		sum.Days[d] = c
	}
	for w, c := range p.Weeks {
		sum.Weeks[w] = c
	}
	for other, c := range p.History {
		sum.Collisions[other] = c
	}
	for _, slot := range f.SlotsOf(p.ID) {
		if p.StatusAt(slot.TimeslotID) == league.AvailableLowPref {
			sum.LowPref++
		}
	}
	return sum
}

func hardViolations(p *league.Player) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{Tier: Tier1, PlayerID: p.ID, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}
	r := p.Rules

	if p.GameCount < r.MinGamesTotal {
		add("min_games_total", "%s does not have enough games (%d scheduled, minimum %d)", p.Name, p.GameCount, r.MinGamesTotal)
	}
	if !league.Within(p.GameCount, r.MaxGamesTotal) {
		add("max_games_total", "%s has too many games (%d scheduled, maximum %d)", p.Name, p.GameCount, r.MaxGamesTotal)
	}
	for _, d := range sortedKeys(p.Days) {
		if c := p.Days[d]; !league.Within(c, r.MaxGamesDay) {
			add("max_games_day", "%s plays %d games on %s (maximum %d per day)", p.Name, c, dayLabel(d), r.MaxGamesDay)
		}
	}
	for _, w := range sortedKeys(p.Weeks) {
		if c := p.Weeks[w]; !league.Within(c, r.MaxGamesWeek) {
			add("max_games_week", "%s plays %d games in the week of %s (maximum %d per week)", p.Name, c, weekLabel(w), r.MaxGamesWeek)
		}
	}
	return out
}

func softViolations(f *league.Flight, p *league.Player, sum PlayerSummary) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{Tier: Tier2, PlayerID: p.ID, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}
	r := p.Rules

	if !p.CaptaincyWithin() {
		if r.MaxCaptained > 0 && p.CaptainCount >= r.MaxCaptained {
			add("max_captained", "%s captains %d games (must be fewer than %d)", p.Name, p.CaptainCount, r.MaxCaptained)
		} else {
			add("min_captained", "%s captains %d games (minimum %d)", p.Name, p.CaptainCount, r.MinCaptained)
		}
	}

	if sum.LowPref*2 > p.GameCount {
		add("low_pref", "%s has %d of %d games in low-preference timeslots", p.Name, sum.LowPref, p.GameCount)
	}

	weeks := sortedKeys(p.Weeks)
	if r.MaxWeekGap > 0 {
		for i := 1; i < len(weeks); i++ {
			if gap := weeks[i] - weeks[i-1]; gap > r.MaxWeekGap {
				add("max_week_gap", "%s goes %d weeks between games (weeks of %s and %s, maximum gap %d)",
					p.Name, gap, weekLabel(weeks[i-1]), weekLabel(weeks[i]), r.MaxWeekGap)
			}
		}
	}

	// Half of the games, rounded half-to-even.
	limit := int(math.RoundToEven(float64(p.GameCount) * 0.5))
	for _, other := range f.PlayerOrder {
		if c := p.History[other]; c > limit {
			add("repeat_pairing", "%s plays with %s %d times (limit %d)", p.Name, f.Players[other].Name, c, limit)
		}
	}

	if r.MaxDoubleHeaders > 0 && sum.DoubleHeaders > r.MaxDoubleHeaders {
		add("max_double_headers", "%s has %d double headers (maximum %d)", p.Name, sum.DoubleHeaders, r.MaxDoubleHeaders)
	}
	if r.MinGamesWeek > 0 {
		for _, w := range weeks {
			if c := p.Weeks[w]; c < r.MinGamesWeek {
				add("min_games_week", "%s plays only %d games in the week of %s (minimum %d)", p.Name, c, weekLabel(w), r.MinGamesWeek)
			}
		}
	}
	if r.MinGamesDay > 0 {
		for _, d := range sortedKeys(p.Days) {
			if c := p.Days[d]; c < r.MinGamesDay {
				add("min_games_day", "%s plays only %d games on %s (minimum %d)", p.Name, c, dayLabel(d), r.MinGamesDay)
			}
		}
	}
	return out
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k, c := range m {
		if c > 0 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}

func dayLabel(day int) string {
	return league.DayDate(day).Format("Mon 01/02")
}

// weekLabel names a week by its Monday.
func weekLabel(week int) string {
	return league.DayDate(week*7 - 3).Format("01/02")
}
