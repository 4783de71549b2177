package schedule

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/league"
)

// BuildInput turns a league config into scheduler input. Date-level
// availability is applied first; per-timeslot entries win over it.
func BuildInput(cfg *config.Config, timeslots []Timeslot) (league.Input, error) {
	in := league.Input{Rules: cfg.LeagueRules()}

	byID := make(map[string]bool, len(timeslots))
	byDate := make(map[time.Time][]string)
	for _, ts := range timeslots {
		in.Timeslots = append(in.Timeslots, ts.League())
		byID[ts.ID()] = true
		byDate[ts.Date] = append(byDate[ts.Date], ts.ID())
	}

	for _, p := range cfg.Players {
		avail := make(map[string]league.Status)
		for _, d := range p.LowPrefDates {
			for _, id := range byDate[d.Time] {
				avail[id] = league.AvailableLowPref
			}
		}
		for _, d := range p.UnavailableDates {
			for _, id := range byDate[d.Time] {
				avail[id] = league.Unavailable
			}
		}
		for id, raw := range p.Availability {
			if !byID[id] {
				return league.Input{}, errors.Mark(
					errors.Newf("player %q: no timeslot %q in the season", p.ID, id),
					config.ErrInvalidConfig)
			}
			s, err := league.ParseStatus(raw)
			if err != nil {
				return league.Input{}, errors.Mark(errors.Wrapf(err, "player %q", p.ID), config.ErrInvalidConfig)
			}
			avail[id] = s
		}

		in.Players = append(in.Players, league.PlayerInput{
			ID:           p.ID,
			Name:         p.DisplayName(),
			Availability: avail,
			Overrides:    p.LeagueOverrides(),
		})
	}

	return in, nil
}
