package excel

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/league"
	"github.com/derekprior/flightsched/internal/schedule"
	"github.com/derekprior/flightsched/internal/validator"
)

// ReadEvents parses the master schedule of a workbook back into events.
func ReadEvents(path string, cfg *config.Config) ([]league.Event, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return ReadEventsFrom(f, cfg)
}

// ReadEventsFrom parses the master schedule of an open workbook. Cells on
// facility slots that do not exist in the season (blackouts, reservations)
// are ignored; every other non-empty cell must list known players.
func ReadEventsFrom(f *excelize.File, cfg *config.Config) ([]league.Event, error) {
	rows, err := f.GetRows(masterSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", masterSheet)
	}
	if len(rows) == 0 {
		return nil, errors.Newf("sheet %q is empty", masterSheet)
	}

	facilityNames := cfg.FacilityNames()
	byHeader := make(map[string]string, 2*len(facilityNames))
	for _, name := range facilityNames {
		byHeader[name] = name
		byHeader[fieldColumnName(name, facilityNames)] = name
	}
	columns := make(map[int]string)
	for i, h := range rows[0] {
		if i < 3 {
			continue
		}
		name, ok := byHeader[strings.TrimSpace(h)]
		if !ok {
			return nil, errors.Newf("unknown facility column %q", h)
		}
		columns[i] = name
	}

	valid := make(map[string]bool)
	for _, ts := range schedule.GenerateTimeslots(cfg) {
		for _, fac := range ts.Facilities {
			valid[league.SlotID(ts.ID(), fac)] = true
		}
	}

	players := make(map[string]string, 2*len(cfg.Players))
	for _, p := range cfg.Players {
		players[p.ID] = p.ID
		players[p.DisplayName()] = p.ID
	}

	var events []league.Event
	for r, row := range rows[1:] {
		rowNum := r + 2
		if len(row) < 4 {
			continue
		}
		date, err := time.Parse("01/02/2006", strings.TrimSpace(row[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad date", rowNum)
		}
		tsID := schedule.Timeslot{Date: date, Time: strings.TrimSpace(row[2])}.ID()

		for col := 3; col < len(row); col++ {
			text := strings.TrimSpace(row[col])
			if text == "" {
				continue
			}
			facility := columns[col]
			if !valid[league.SlotID(tsID, facility)] {
				continue
			}
			ev, err := parseCell(text, players)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d, %s", rowNum, facility)
			}
			ev.TimeslotID = tsID
			ev.FacilityID = facility
			events = append(events, ev)
		}
	}
	return events, nil
}

func parseCell(text string, players map[string]string) (league.Event, error) {
	var ev league.Event
	for _, part := range strings.Split(text, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		name, captain := strings.CutSuffix(name, strings.TrimSpace(captainSuffix))
		name = strings.TrimSpace(name)
		id, ok := players[name]
		if !ok {
			return league.Event{}, errors.Newf("unknown player %q", name)
		}
		if captain {
			if ev.CaptainID != "" {
				return league.Event{}, errors.Newf("more than one captain in %q", text)
			}
			ev.CaptainID = id
		}
		ev.PlayerIDs = append(ev.PlayerIDs, id)
	}
	return ev, nil
}

// Refresh rewrites every sheet except the master schedule from an evaluated
// flight, so hand edits to the master are reflected in the player sheets.
func Refresh(path string, cfg *config.Config, flight *league.Flight, report validator.Report) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	if err := refresh(f, cfg, flight, report); err != nil {
		return err
	}
	return errors.Wrap(f.Save(), "saving workbook")
}

func refresh(f *excelize.File, cfg *config.Config, flight *league.Flight, report validator.Report) error {
	for _, sheet := range f.GetSheetList() {
		if sheet != masterSheet {
			if err := f.DeleteSheet(sheet); err != nil {
				return errors.Wrapf(err, "removing sheet %q", sheet)
			}
		}
	}
	if err := writeReport(f, flight, report, schedule.GenerateTimeslots(cfg)); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex(masterSheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	return nil
}
