package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/league"
	"github.com/derekprior/flightsched/internal/schedule"
	"github.com/derekprior/flightsched/internal/validator"
)

const (
	masterSheet     = "Master Schedule"
	playersSheet    = "Players"
	violationsSheet = "Violations"

	captainSuffix = " (C)"
)

// Generate creates an Excel workbook with the master schedule, a player
// summary, the violation list and one sheet per player.
func Generate(cfg *config.Config, result *schedule.Result, timeslots []schedule.Timeslot, blackouts []schedule.BlackoutSlot) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	if err := writeMasterSheet(f, cfg, result.Flight, timeslots, blackouts); err != nil {
		return nil, errors.Wrap(err, "writing master sheet")
	}
	if err := writeReport(f, result.Flight, result.Report, timeslots); err != nil {
		return nil, err
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func writeReport(f *excelize.File, flight *league.Flight, report validator.Report, timeslots []schedule.Timeslot) error {
	if err := writePlayersSheet(f, report); err != nil {
		return errors.Wrap(err, "writing players sheet")
	}
	if err := writeViolationsSheet(f, flight, report); err != nil {
		return errors.Wrap(err, "writing violations sheet")
	}
	if err := writePlayerSheets(f, flight, timeslots); err != nil {
		return errors.Wrap(err, "writing player sheets")
	}
	return nil
}

func fieldColumnName(name string, allNames []string) string {
	first, _, _ := strings.Cut(name, " ")
	// Check if first word is unique
	count := 0
	for _, n := range allNames {
		word, _, _ := strings.Cut(n, " ")
		if word == first {
			count++
		}
	}
	if count > 1 {
		return name
	}
	return first
}

// cellText renders a game as its player names, captain marked.
func cellText(flight *league.Flight, slot *league.GameSlot) string {
	names := make([]string, 0, len(slot.Players))
	for _, id := range slot.Players {
		name := flight.Players[id].Name
		if id == slot.Captain {
			name += captainSuffix
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

type styles struct {
	header int
	cell   int
	center int
}

func newStyles(f *excelize.File) styles {
	var s styles
	s.header, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.cell, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	s.center, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return s
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if style != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), style)
	}
}

func writeMasterSheet(f *excelize.File, cfg *config.Config, flight *league.Flight, timeslots []schedule.Timeslot, blackouts []schedule.BlackoutSlot) error {
	sheet := masterSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)

	facilityNames := cfg.FacilityNames()
	facilityCols := make([]string, len(facilityNames))
	for i, name := range facilityNames {
		facilityCols[i] = fieldColumnName(name, facilityNames)
	}

	// Headers: Date, Day, Time, <facility1>, <facility2>, ...
	headers := append([]string{"Date", "Day", "Time"}, facilityCols...)
	writeHeaders(f, sheet, headers, st.header)

	type slotKey struct {
		date     time.Time
		time     string
		facility string
	}
	blackoutMap := make(map[slotKey]string)
	for _, b := range blackouts {
		blackoutMap[slotKey{b.Date, b.Time, b.Facility}] = b.Reason
	}

	// Collect all unique (date, time) pairs from both timeslots and blackouts
	type row struct {
		date time.Time
		time string
	}
	seen := make(map[row]bool)
	var rows []row
	for _, ts := range timeslots {
		r := row{ts.Date, ts.Time}
		if !seen[r] {
			seen[r] = true
			rows = append(rows, r)
		}
	}
	for _, b := range blackouts {
		r := row{b.Date, b.Time}
		if !seen[r] {
			seen[r] = true
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].date.Equal(rows[j].date) {
			return rows[i].date.Before(rows[j].date)
		}
		return rows[i].time < rows[j].time
	})

	for i, r := range rows {
		rowNum := i + 2
		f.SetCellValue(sheet, cellRef(1, rowNum), r.date.Format("01/02/2006"))
		f.SetCellValue(sheet, cellRef(2, rowNum), r.date.Format("Mon"))
		f.SetCellValue(sheet, cellRef(3, rowNum), r.time)

		tsID := schedule.Timeslot{Date: r.date, Time: r.time}.ID()
		for fi, fname := range facilityNames {
			col := fi + 4 // 1-indexed, after Date/Day/Time
			if slot, ok := flight.Slots[league.SlotID(tsID, fname)]; ok && slot.Full {
				f.SetCellValue(sheet, cellRef(col, rowNum), cellText(flight, slot))
			} else if reason, ok := blackoutMap[slotKey{r.date, r.time, fname}]; ok {
				f.SetCellValue(sheet, cellRef(col, rowNum), reason)
			}
		}

		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, rowNum), cellRef(3, rowNum), st.cell)
			f.SetCellStyle(sheet, cellRef(4, rowNum), cellRef(len(headers), rowNum), st.center)
		}
	}

	// Set column widths (sized for Arial 16)
	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "B", 8)
	f.SetColWidth(sheet, "C", "C", 10)
	for i := range facilityNames {
		col := colLetter(i + 4)
		f.SetColWidth(sheet, col, col, 60)
	}

	// Conditional formatting: facility cells without a captain are blackouts
	lastRow := len(rows) + 1
	redFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	for i := range facilityNames {
		col := colLetter(i + 4)
		cellRange := fmt.Sprintf("%s2:%s%d", col, col, lastRow)
		topCell := fmt.Sprintf("%s2", col)
		formula := fmt.Sprintf(`AND(%s<>"",ISERROR(FIND("%s",%s)))`, topCell, strings.TrimSpace(captainSuffix), topCell)
		f.SetConditionalFormat(sheet, cellRange, []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: formula,
				Format:   &redFill,
			},
		})
	}

	return nil
}

func writePlayersSheet(f *excelize.File, report validator.Report) error {
	sheet := playersSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)

	headers := []string{"Player", "Games", "Captained", "Low Pref", "Double Headers", "Weeks"}
	writeHeaders(f, sheet, headers, st.header)

	for i, p := range report.Players {
		row := i + 2
		weeks := 0
		for _, c := range p.Weeks {
			if c > 0 {
				weeks++
			}
		}
		values := []any{p.Name, p.Games, p.Captained, p.LowPref, p.DoubleHeaders, weeks}
		for col, v := range values {
			f.SetCellValue(sheet, cellRef(col+1, row), v)
		}
		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.cell)
		}
	}

	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "F", 16)
	return nil
}

func writeViolationsSheet(f *excelize.File, flight *league.Flight, report validator.Report) error {
	sheet := violationsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)

	headers := []string{"Tier", "Player", "Rule", "Message"}
	writeHeaders(f, sheet, headers, st.header)

	for i, v := range report.Violations {
		row := i + 2
		name := v.PlayerID
		if p, ok := flight.Players[v.PlayerID]; ok {
			name = p.Name
		}
		f.SetCellValue(sheet, cellRef(1, row), v.Tier.String())
		f.SetCellValue(sheet, cellRef(2, row), name)
		f.SetCellValue(sheet, cellRef(3, row), v.Rule)
		f.SetCellValue(sheet, cellRef(4, row), v.Message)
		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.cell)
		}
	}

	widths := map[string]float64{"A": 12, "B": 28, "C": 22, "D": 90}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func writePlayerSheets(f *excelize.File, flight *league.Flight, timeslots []schedule.Timeslot) error {
	byID := make(map[string]schedule.Timeslot, len(timeslots))
	for _, ts := range timeslots {
		byID[ts.ID()] = ts
	}
	st := newStyles(f)

	used := map[string]bool{
		strings.ToLower(masterSheet):     true,
		strings.ToLower(playersSheet):    true,
		strings.ToLower(violationsSheet): true,
	}
	headers := []string{"Date", "Day", "Time", "Facility", "Playing With", "Captain", "Preference"}

	for _, p := range flight.OrderedPlayers() {
		sheet := uniqueSheetName(p.Name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		writeHeaders(f, sheet, headers, st.header)

		for i, slot := range flight.SlotsOf(p.ID) {
			row := i + 2
			ts := byID[slot.TimeslotID]

			var partners []string
			for _, id := range slot.Players {
				if id != p.ID {
					partners = append(partners, flight.Players[id].Name)
				}
			}
			captain := ""
			if c, ok := flight.Players[slot.Captain]; ok {
				captain = c.Name
			}
			pref := ""
			if p.StatusAt(slot.TimeslotID) == league.AvailableLowPref {
				pref = "Low"
			}

			f.SetCellValue(sheet, cellRef(1, row), ts.Date.Format("01/02/2006"))
			f.SetCellValue(sheet, cellRef(2, row), ts.Date.Format("Mon"))
			f.SetCellValue(sheet, cellRef(3, row), ts.Time)
			f.SetCellValue(sheet, cellRef(4, row), slot.FacilityID)
			f.SetCellValue(sheet, cellRef(5, row), strings.Join(partners, ", "))
			f.SetCellValue(sheet, cellRef(6, row), captain)
			f.SetCellValue(sheet, cellRef(7, row), pref)
			if st.cell != 0 {
				f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.cell)
			}
		}

		// Set column widths (sized for Arial 16)
		widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 28, "E": 60, "F": 24, "G": 14}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}
	return nil
}

// uniqueSheetName makes a legal sheet name: at most 31 characters, none of
// []:*?/\ and not already used (sheet names are case-insensitive).
func uniqueSheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	base := truncate(clean, 31)
	sheet := base
	for n := 2; used[strings.ToLower(sheet)]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		sheet = truncate(clean, 31-len(suffix)) + suffix
	}
	used[strings.ToLower(sheet)] = true
	return sheet
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
