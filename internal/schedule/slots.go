package schedule

import (
	"sort"
	"time"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/league"
)

// Timeslot is a dated start time together with the facilities free at it.
type Timeslot struct {
	Date       time.Time
	Time       string // "17:45", "12:30", etc.
	Facilities []string
}

// ID is the key players use for timeslot availability, e.g. "2026-05-04 17:45".
func (t Timeslot) ID() string {
	return t.Date.Format("2006-01-02") + " " + t.Time
}

// League converts the timeslot to the scheduler's form.
func (t Timeslot) League() league.Timeslot {
	day := league.DayNumber(t.Date)
	return league.Timeslot{
		ID:         t.ID(),
		Day:        day,
		Week:       league.WeekNumber(day),
		Facilities: append([]string(nil), t.Facilities...),
	}
}

// BlackoutSlot represents a facility slot that is unavailable with a reason.
type BlackoutSlot struct {
	Date     time.Time
	Time     string
	Facility string
	Reason   string
}

type resKey struct {
	facility string
	date     time.Time
	time     string
}

type facilityDateKey struct {
	facility string
	date     time.Time
}

// reservationIndex builds the reservation lookups: facility+date+time for
// partial-day reservations and facility+date for full-day ones.
func reservationIndex(cfg *config.Config) (map[resKey]bool, map[facilityDateKey]bool) {
	reservations := make(map[resKey]bool)
	fullDayRes := make(map[facilityDateKey]bool)
	for _, f := range cfg.Facilities {
		for _, r := range f.Reservations {
			for _, rd := range r.Dates() {
				if len(r.Times) == 0 {
					fullDayRes[facilityDateKey{f.Name, rd}] = true
				} else {
					for _, t := range r.Times {
						reservations[resKey{f.Name, rd, t}] = true
					}
				}
			}
		}
	}
	return reservations, fullDayRes
}

// GenerateTimeslots builds every (date, time) window of the season that has
// at least one unreserved facility, excluding blackout dates.
func GenerateTimeslots(cfg *config.Config) []Timeslot {
	blackoutDates := make(map[time.Time]bool)
	for _, b := range cfg.Season.BlackoutDates {
		blackoutDates[b.Date.Time] = true
	}

	holidayDates := make(map[time.Time]bool)
	for _, h := range cfg.TimeSlots.HolidayDates {
		holidayDates[h.Time] = true
	}

	reservations, fullDayRes := reservationIndex(cfg)

	var slots []Timeslot
	d := cfg.Season.StartDate.Time
	for !d.After(cfg.Season.EndDate.Time) {
		if blackoutDates[d] {
			d = d.AddDate(0, 0, 1)
			continue
		}

		for _, t := range timesForDay(d, holidayDates, cfg.TimeSlots) {
			var facilities []string
			for _, f := range cfg.Facilities {
				if fullDayRes[facilityDateKey{f.Name, d}] {
					continue
				}
				if reservations[resKey{f.Name, d, t}] {
					continue
				}
				facilities = append(facilities, f.Name)
			}
			if len(facilities) == 0 {
				continue
			}
			slots = append(slots, Timeslot{Date: d, Time: t, Facilities: facilities})
		}

		d = d.AddDate(0, 0, 1)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].Time < slots[j].Time
	})

	return slots
}

// GenerateBlackoutSlots returns all facility slots that are blacked out
// (season-wide blackouts and facility reservations) for display on the master sheet.
func GenerateBlackoutSlots(cfg *config.Config) []BlackoutSlot {
	holidayDates := make(map[time.Time]bool)
	for _, h := range cfg.TimeSlots.HolidayDates {
		holidayDates[h.Time] = true
	}

	var blackouts []BlackoutSlot

	for _, b := range cfg.Season.BlackoutDates {
		for _, t := range timesForDay(b.Date.Time, holidayDates, cfg.TimeSlots) {
			for _, f := range cfg.Facilities {
				blackouts = append(blackouts, BlackoutSlot{
					Date:     b.Date.Time,
					Time:     t,
					Facility: f.Name,
					Reason:   b.Reason,
				})
			}
		}
	}

	// Facility reservations (only within season date range)
	for _, f := range cfg.Facilities {
		for _, r := range f.Reservations {
			for _, rd := range r.Dates() {
				if rd.Before(cfg.Season.StartDate.Time) || rd.After(cfg.Season.EndDate.Time) {
					continue
				}
				times := r.Times
				if len(times) == 0 {
					times = timesForDay(rd, holidayDates, cfg.TimeSlots)
				}
				for _, t := range times {
					blackouts = append(blackouts, BlackoutSlot{
						Date:     rd,
						Time:     t,
						Facility: f.Name,
						Reason:   r.Reason,
					})
				}
			}
		}
	}

	sort.SliceStable(blackouts, func(i, j int) bool {
		if !blackouts[i].Date.Equal(blackouts[j].Date) {
			return blackouts[i].Date.Before(blackouts[j].Date)
		}
		if blackouts[i].Time != blackouts[j].Time {
			return blackouts[i].Time < blackouts[j].Time
		}
		return blackouts[i].Facility < blackouts[j].Facility
	})

	return blackouts
}

func timesForDay(d time.Time, holidays map[time.Time]bool, ts config.TimeSlots) []string {
	if holidays[d] {
		return ts.Sunday
	}
	switch d.Weekday() {
	case time.Saturday:
		return ts.Saturday
	case time.Sunday:
		return ts.Sunday
	default:
		return ts.Weekday
	}
}
