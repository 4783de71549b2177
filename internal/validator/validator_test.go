package validator

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/flightsched/internal/league"
)

// 2026-05-04 is a Monday.
var monday = league.DayNumber(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC))

func newFlight(t *testing.T, rules league.Rules, players int, days ...int) *league.Flight {
	t.Helper()
	in := league.Input{Rules: rules}
	for i, d := range days {
		day := monday + d
		in.Timeslots = append(in.Timeslots, league.Timeslot{
			ID:         fmt.Sprintf("t%d", i),
			Day:        day,
			Week:       league.WeekNumber(day),
			Facilities: []string{"A", "B"},
		})
	}
	for i := 0; i < players; i++ {
		in.Players = append(in.Players, league.PlayerInput{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("P%d", i)})
	}
	f, err := league.NewFlight(in)
	require.NoError(t, err)
	return f
}

func place(t *testing.T, f *league.Flight, slot, captain string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.True(t, f.ForceAdd(slot, id))
	}
	f.Slots[slot].Captain = captain
}

func rules(report Report, player string) []string {
	var out []string
	for _, v := range report.ForPlayer(player) {
		out = append(out, v.Rule)
	}
	return out
}

func TestScore(t *testing.T) {
	assert.True(t, Score{0, 9}.Less(Score{1, 0}))
	assert.True(t, Score{1, 2}.Less(Score{1, 3}))
	assert.False(t, Score{1, 3}.Less(Score{1, 3}))
	assert.Equal(t, "(1, 3)", Score{1, 3}.String())
	assert.Equal(t, "error", Tier1.String())
	assert.Equal(t, "warning", Tier2.String())
}

func TestHardRules(t *testing.T) {
	t.Run("too few games", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MinGamesTotal: 2}, 2, 0)
		place(t, f, "t0@A", "p0", "p0", "p1")

		report := Evaluate(f)
		msgs := report.Messages()
		require.Len(t, msgs, 4)
		assert.Equal(t, "P0 does not have enough games (1 scheduled, minimum 2)", msgs[0])
		// One meeting in a single game is already above half of one game.
		assert.Equal(t, Score{Tier1: 2, Tier2: 2}, report.Score())
	})

	t.Run("too many games", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MaxGamesTotal: 1}, 2, 0, 1)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p1", "p0", "p1")

		report := Evaluate(f)
		assert.Contains(t, rules(report, "p0"), "max_games_total")
		assert.Contains(t, report.Messages()[0], "has too many games (2 scheduled, maximum 1)")
	})

	t.Run("day and week caps", func(t *testing.T) {
		// t0 and t1 share Monday; t2 is Wednesday of the same week.
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MaxGamesDay: 1, MaxGamesWeek: 2}, 2, 0, 0, 2)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p0", "p0", "p1")
		place(t, f, "t2@A", "p1", "p0", "p1")

		report := Evaluate(f)
		assert.Equal(t, []string{"max_games_day", "max_games_week"}, rules(report, "p0")[:2])
		assert.Contains(t, report.Messages(), "P0 plays 2 games on Mon 05/04 (maximum 1 per day)")
		assert.Contains(t, report.Messages(), "P0 plays 3 games in the week of 05/04 (maximum 2 per week)")
	})

	t.Run("zero maxima are unlimited", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2}, 2, 0, 0, 2)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p0", "p0", "p1")
		place(t, f, "t2@A", "p1", "p0", "p1")
		assert.Equal(t, 0, Evaluate(f).Score().Tier1)
	})

	t.Run("tier1 listed before tier2", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MinGamesTotal: 1, MinCaptained: 1}, 3, 0)
		place(t, f, "t0@A", "p0", "p0", "p1")

		report := Evaluate(f)
		require.NotEmpty(t, report.Violations)
		seenSoft := false
		for _, v := range report.Violations {
			if v.Tier == Tier2 {
				seenSoft = true
			} else {
				assert.False(t, seenSoft, "tier1 after tier2: %s", v.Message)
			}
		}
	})
}

func TestSoftRules(t *testing.T) {
	t.Run("captaincy bounds", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MinCaptained: 1, MaxCaptained: 2}, 3, 0, 1)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p0", "p0", "p2")

		report := Evaluate(f)
		assert.Equal(t, []string{"max_captained"}, rules(report, "p0"))
		assert.Contains(t, rules(report, "p1"), "min_captained")
		assert.Contains(t, rules(report, "p2"), "min_captained")
	})

	t.Run("captain minimum applies whatever the game count", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MinCaptained: 3}, 3, 0)
		place(t, f, "t0@A", "p0", "p0", "p1")

		report := Evaluate(f)
		assert.Contains(t, rules(report, "p0"), "min_captained")
		assert.Contains(t, rules(report, "p1"), "min_captained")
		assert.Equal(t, []string{"min_captained"}, rules(report, "p2"), "no games still means too few captaincies")
	})

	t.Run("single game pair", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MinCaptained: 2}, 2, 0)
		place(t, f, "t0@A", "p0", "p0", "p1")

		report := Evaluate(f)
		assert.Equal(t, []string{"min_captained", "repeat_pairing"}, rules(report, "p0"))
		assert.Equal(t, []string{"min_captained", "repeat_pairing"}, rules(report, "p1"))
		assert.Contains(t, report.Messages(), "P0 plays with P1 1 times (limit 0)")
		assert.Equal(t, Score{Tier2: 4}, report.Score())
	})

	t.Run("low preference majority", func(t *testing.T) {
		in := league.Input{
			Rules: league.Rules{PlayersPerMatch: 2},
			Timeslots: []league.Timeslot{
				{ID: "t0", Day: monday, Week: league.WeekNumber(monday), Facilities: []string{"A"}},
				{ID: "t1", Day: monday + 1, Week: league.WeekNumber(monday + 1), Facilities: []string{"A"}},
			},
			Players: []league.PlayerInput{
				{ID: "p0", Name: "P0", Availability: map[string]league.Status{"t0": league.AvailableLowPref, "t1": league.AvailableLowPref}},
				{ID: "p1", Name: "P1", Availability: map[string]league.Status{"t0": league.AvailableLowPref}},
			},
		}
		f, err := league.NewFlight(in)
		require.NoError(t, err)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p1", "p0", "p1")

		report := Evaluate(f)
		assert.Contains(t, rules(report, "p0"), "low_pref")
		assert.NotContains(t, rules(report, "p1"), "low_pref", "exactly half is allowed")
		assert.Equal(t, 2, report.Players[0].LowPref)
		assert.Equal(t, 1, report.Players[1].LowPref)
	})

	t.Run("week gap", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2, MaxWeekGap: 2}, 2, 0, 21)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p1", "p0", "p1")

		report := Evaluate(f)
		assert.Contains(t, rules(report, "p0"), "max_week_gap")
		assert.Contains(t, report.Messages(), "P0 goes 3 weeks between games (weeks of 05/04 and 05/25, maximum gap 2)")
	})

	t.Run("repeat pairings", func(t *testing.T) {
		f := newFlight(t, league.Rules{PlayersPerMatch: 2}, 3, 0, 1, 2)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p0", "p0", "p1")
		place(t, f, "t2@A", "p0", "p0", "p1")

		report := Evaluate(f)
		// Three games allow two meetings.
		assert.Contains(t, report.Messages(), "P0 plays with P1 3 times (limit 2)")
		assert.Contains(t, rules(report, "p1"), "repeat_pairing")
	})

	t.Run("double headers and minimums", func(t *testing.T) {
		f := newFlight(t, league.Rules{
			PlayersPerMatch:  2,
			MaxGamesDay:      2,
			MaxDoubleHeaders: 1,
			MinGamesDay:      2,
			MinGamesWeek:     3,
		}, 2, 0, 0, 7, 7, 14)
		place(t, f, "t0@A", "p0", "p0", "p1")
		place(t, f, "t1@A", "p0", "p0", "p1")
		place(t, f, "t2@A", "p0", "p0", "p1")
		place(t, f, "t3@A", "p0", "p0", "p1")
		place(t, f, "t4@A", "p0", "p0", "p1")

		report := Evaluate(f)
		got := rules(report, "p1")
		assert.Contains(t, got, "max_double_headers")
		assert.Contains(t, got, "min_games_day")
		assert.Contains(t, got, "min_games_week")
		assert.Equal(t, 0, report.Score().Tier1)
		assert.Equal(t, 2, report.Players[1].DoubleHeaders)
	})
}

func TestSummaries(t *testing.T) {
	f := newFlight(t, league.Rules{PlayersPerMatch: 2}, 3, 0, 1)
	place(t, f, "t0@A", "p0", "p0", "p1")
	place(t, f, "t1@B", "p2", "p0", "p2")

	report := Evaluate(f)
	require.Len(t, report.Players, 3)
	p0 := report.Players[0]
	assert.Equal(t, "P0", p0.Name)
	assert.Equal(t, 2, p0.Games)
	assert.Equal(t, 1, p0.Captained)
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1}, p0.Collisions)
	assert.Len(t, p0.Days, 2)

	for _, m := range report.Messages() {
		assert.False(t, strings.HasPrefix(m, " "))
	}
}
