package excel

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/schedule"
	"github.com/derekprior/flightsched/internal/validator"
)

func date(y, m, d int) config.Date {
	return config.Date{Time: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)}
}

func testConfig() *config.Config {
	return &config.Config{
		Season: config.Season{
			StartDate: date(2026, 5, 4),
			EndDate:   date(2026, 5, 8),
			BlackoutDates: []config.BlackoutDate{
				{Date: date(2026, 5, 6), Reason: "Club Dinner"},
			},
		},
		Facilities: []config.Facility{
			{Name: "Court 1"},
			{Name: "Court 2"},
		},
		TimeSlots: config.TimeSlots{
			Weekday: []string{"18:00"},
		},
		Rules: config.Rules{
			PlayersPerMatch:    4,
			MinGamesTotal:      2,
			MaxGamesTotal:      4,
			MaxGamesDay:        1,
			MaxConcurrentGames: 2,
		},
		Players: []config.Player{
			{ID: "ann", Name: "Ann Archer"},
			{ID: "bob", Name: "Bob Baker"},
			{ID: "cat", Name: "Cat Carter"},
			{ID: "dan", Name: "Dan Dunn"},
			{ID: "eve", Name: "Eve Ennis"},
			{ID: "fay", Name: "Fay Fox"},
			{ID: "gus", Name: "Gus Gray"},
			{ID: "hal", Name: "Hal Hart"},
		},
	}
}

func mustBuffer(t *testing.T, f *excelize.File) *bytes.Buffer {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func testWorkbook(t *testing.T) (*config.Config, *schedule.Result, *excelize.File) {
	t.Helper()
	cfg := testConfig()
	timeslots := schedule.GenerateTimeslots(cfg)
	in, err := schedule.BuildInput(cfg, timeslots)
	require.NoError(t, err)
	result, err := schedule.Run(in, schedule.Options{Seed: 3})
	require.NoError(t, err)

	f, err := Generate(cfg, result, timeslots, schedule.GenerateBlackoutSlots(cfg))
	require.NoError(t, err)
	return cfg, result, f
}

func TestGenerateWorkbook(t *testing.T) {
	_, result, f := testWorkbook(t)
	require.NotEmpty(t, result.Events)

	t.Run("sheets", func(t *testing.T) {
		sheets := f.GetSheetList()
		assert.Equal(t, []string{masterSheet, playersSheet, violationsSheet}, sheets[:3])
		assert.Contains(t, sheets, "Ann Archer")
		assert.Contains(t, sheets, "Hal Hart")
		assert.NotContains(t, sheets, "Sheet1")
	})

	t.Run("master headers", func(t *testing.T) {
		rows, err := f.GetRows(masterSheet)
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Day", "Time", "Court 1", "Court 2"}, rows[0])
	})

	t.Run("master rows include blackouts", func(t *testing.T) {
		rows, err := f.GetRows(masterSheet)
		require.NoError(t, err)
		require.Len(t, rows, 6) // header + four timeslots + one blackout day
		assert.Equal(t, "05/06/2026", rows[3][0])
		assert.Equal(t, "Wed", rows[3][1])
		assert.Equal(t, []string{"Club Dinner", "Club Dinner"}, rows[3][3:])
	})

	t.Run("game cells list players with the captain marked", func(t *testing.T) {
		rows, err := f.GetRows(masterSheet)
		require.NoError(t, err)
		cell := ""
		for _, row := range rows[1:] {
			for _, c := range row[3:] {
				if c != "" && c != "Club Dinner" && cell == "" {
					cell = c
				}
			}
		}
		require.NotEmpty(t, cell)
		names := strings.Split(cell, ", ")
		assert.Len(t, names, 4)
		captains := 0
		for _, n := range names {
			if strings.HasSuffix(n, captainSuffix) {
				captains++
			}
		}
		assert.Equal(t, 1, captains)
	})

	t.Run("player sheet lists their games", func(t *testing.T) {
		rows, err := f.GetRows("Ann Archer")
		require.NoError(t, err)
		assert.Equal(t, "Playing With", rows[0][4])
		assert.Len(t, rows, 1+result.Flight.Players["ann"].GameCount)
	})

	t.Run("violations sheet", func(t *testing.T) {
		rows, err := f.GetRows(violationsSheet)
		require.NoError(t, err)
		assert.Equal(t, []string{"Tier", "Player", "Rule", "Message"}, rows[0])
		assert.Len(t, rows, 1+len(result.Report.Violations))
	})
}

func TestReadEvents(t *testing.T) {
	cfg, result, f := testWorkbook(t)

	t.Run("round trip", func(t *testing.T) {
		events, err := ReadEventsFrom(f, cfg)
		require.NoError(t, err)
		assert.Equal(t, result.Events, events)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schedule.xlsx")
		require.NoError(t, f.SaveAs(path))
		events, err := ReadEvents(path, cfg)
		require.NoError(t, err)
		assert.Equal(t, result.Events, events)

		flight, err := schedule.Materialize(cfg, events)
		require.NoError(t, err)
		assert.Equal(t, result.Score(), validator.Evaluate(flight).Score())
	})

	t.Run("hand edit", func(t *testing.T) {
		g, err := excelize.OpenReader(mustBuffer(t, f))
		require.NoError(t, err)
		require.NoError(t, g.SetCellValue(masterSheet, "E2", "Ann Archer (C), Bob Baker, Cat Carter, Dan Dunn"))
		require.NoError(t, g.SetCellValue(masterSheet, "D2", ""))

		events, err := ReadEventsFrom(g, cfg)
		require.NoError(t, err)
		first := events[0]
		assert.Equal(t, "2026-05-04 18:00", first.TimeslotID)
		assert.Equal(t, "Court 2", first.FacilityID)
		assert.Equal(t, "ann", first.CaptainID)
		assert.Equal(t, []string{"ann", "bob", "cat", "dan"}, first.PlayerIDs)
	})

	t.Run("unknown player", func(t *testing.T) {
		g, err := excelize.OpenReader(mustBuffer(t, f))
		require.NoError(t, err)
		require.NoError(t, g.SetCellValue(masterSheet, "D2", "Ann Archer, Zed Zane"))
		_, err = ReadEventsFrom(g, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown player "Zed Zane"`)
	})

	t.Run("two captains", func(t *testing.T) {
		g, err := excelize.OpenReader(mustBuffer(t, f))
		require.NoError(t, err)
		require.NoError(t, g.SetCellValue(masterSheet, "D2", "Ann Archer (C), Bob Baker (C)"))
		_, err = ReadEventsFrom(g, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than one captain")
	})

	t.Run("unknown facility column", func(t *testing.T) {
		g, err := excelize.OpenReader(mustBuffer(t, f))
		require.NoError(t, err)
		require.NoError(t, g.SetCellValue(masterSheet, "E1", "Court 9"))
		_, err = ReadEventsFrom(g, cfg)
		require.Error(t, err)
	})
}

func TestRefresh(t *testing.T) {
	cfg, _, f := testWorkbook(t)
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, f.SaveAs(path))

	// Empty the schedule by hand, then refresh the derived sheets.
	g, err := excelize.OpenFile(path)
	require.NoError(t, err)
	rows, err := g.GetRows(masterSheet)
	require.NoError(t, err)
	for r := 2; r <= len(rows); r++ {
		require.NoError(t, g.SetCellValue(masterSheet, cellRef(4, r), ""))
		require.NoError(t, g.SetCellValue(masterSheet, cellRef(5, r), ""))
	}
	require.NoError(t, g.Save())
	require.NoError(t, g.Close())

	events, err := ReadEvents(path, cfg)
	require.NoError(t, err)
	assert.Empty(t, events)

	flight, err := schedule.Materialize(cfg, events)
	require.NoError(t, err)
	report := validator.Evaluate(flight)
	require.NoError(t, Refresh(path, cfg, flight, report))

	h, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer h.Close()

	vrows, err := h.GetRows(violationsSheet)
	require.NoError(t, err)
	assert.Len(t, vrows, 1+len(cfg.Players))
	assert.Equal(t, "error", vrows[1][0])

	prows, err := h.GetRows("Ann Archer")
	require.NoError(t, err)
	assert.Len(t, prows, 1)
}

func TestFieldColumnName(t *testing.T) {
	names := []string{"Washington Park", "Court 1", "Court 2"}
	assert.Equal(t, "Washington", fieldColumnName("Washington Park", names))
	assert.Equal(t, "Court 1", fieldColumnName("Court 1", names))
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"players": true}
	assert.Equal(t, "Players 2", uniqueSheetName("Players", used))
	assert.Equal(t, "A_B", uniqueSheetName("A/B", used))
	long := strings.Repeat("x", 40)
	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long, used)
	assert.Len(t, first, 31)
	assert.Len(t, second, 31)
	assert.NotEqual(t, first, second)
}

func TestColLetter(t *testing.T) {
	assert.Equal(t, "A", colLetter(1))
	assert.Equal(t, "Z", colLetter(26))
	assert.Equal(t, "AA", colLetter(27))
	assert.Equal(t, "D7", cellRef(4, 7))
}
