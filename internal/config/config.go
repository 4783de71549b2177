package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/derekprior/flightsched/internal/league"
)

// ErrInvalidConfig marks configuration that parses but cannot be scheduled.
var ErrInvalidConfig = errors.New("invalid config")

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

type BlackoutDate struct {
	Date   Date   `yaml:"date"`
	Reason string `yaml:"reason"`
}

type Season struct {
	StartDate     Date           `yaml:"start_date"`
	EndDate       Date           `yaml:"end_date"`
	BlackoutDates []BlackoutDate `yaml:"blackout_dates"`
}

type Reservation struct {
	Date      *Date    `yaml:"date"`
	StartDate *Date    `yaml:"start_date"`
	EndDate   *Date    `yaml:"end_date"`
	Times     []string `yaml:"times"`
	Reason    string   `yaml:"reason"`
}

// Dates returns all dates covered by this reservation.
// Supports single date (date:) or range (start_date:/end_date:).
func (r *Reservation) Dates() []time.Time {
	if r.StartDate != nil && r.EndDate != nil {
		var dates []time.Time
		d := r.StartDate.Time
		for !d.After(r.EndDate.Time) {
			dates = append(dates, d)
			d = d.AddDate(0, 0, 1)
		}
		return dates
	}
	if r.Date != nil {
		return []time.Time{r.Date.Time}
	}
	return nil
}

type Facility struct {
	Name         string        `yaml:"name" validate:"required"`
	Reservations []Reservation `yaml:"reservations"`
}

type TimeSlots struct {
	Weekday      []string `yaml:"weekday"`
	Saturday     []string `yaml:"saturday"`
	Sunday       []string `yaml:"sunday"`
	HolidayDates []Date   `yaml:"holiday_dates"`
}

// Rules mirrors league.Rules with YAML names. Zero maxima mean "no limit".
type Rules struct {
	MinGamesTotal      int  `yaml:"min_games_total" validate:"gte=0"`
	MaxGamesTotal      int  `yaml:"max_games_total" validate:"gte=0"`
	MinGamesDay        int  `yaml:"min_games_day" validate:"gte=0"`
	MaxGamesDay        int  `yaml:"max_games_day" validate:"gte=0"`
	MinGamesWeek       int  `yaml:"min_games_week" validate:"gte=0"`
	MaxGamesWeek       int  `yaml:"max_games_week" validate:"gte=0"`
	MaxDoubleHeaders   int  `yaml:"max_double_headers" validate:"gte=0"`
	MaxConcurrentGames int  `yaml:"max_concurrent_games" validate:"gte=0"`
	MinCaptained       int  `yaml:"min_captained" validate:"gte=0"`
	MaxCaptained       int  `yaml:"max_captained" validate:"gte=0"`
	MaxWeekGap         int  `yaml:"max_week_gap" validate:"gte=0"`
	PlayersPerMatch    int  `yaml:"players_per_match" validate:"gte=1"`
	MinimumSubsPerGame int  `yaml:"minimum_subs_per_game" validate:"gte=0"`
	AssumeBusy         bool `yaml:"assume_busy"`
}

// Overrides are per-player rule exceptions.
type Overrides struct {
	MinGamesTotal *int `yaml:"min_games_total" validate:"omitempty,gte=0"`
	MaxGamesTotal *int `yaml:"max_games_total" validate:"omitempty,gte=0"`
	MinGamesDay   *int `yaml:"min_games_day" validate:"omitempty,gte=0"`
	MaxGamesDay   *int `yaml:"max_games_day" validate:"omitempty,gte=0"`
	MinGamesWeek  *int `yaml:"min_games_week" validate:"omitempty,gte=0"`
	MaxGamesWeek  *int `yaml:"max_games_week" validate:"omitempty,gte=0"`
	MinCaptained  *int `yaml:"min_captained" validate:"omitempty,gte=0"`
	MaxCaptained  *int `yaml:"max_captained" validate:"omitempty,gte=0"`
	MaxWeekGap    *int `yaml:"max_week_gap" validate:"omitempty,gte=0"`
}

type Player struct {
	ID               string            `yaml:"id" validate:"required"`
	Name             string            `yaml:"name"`
	Availability     map[string]string `yaml:"availability" validate:"dive,keys,required,endkeys,oneof=available low_pref unavailable unknown"`
	UnavailableDates []Date            `yaml:"unavailable_dates"`
	LowPrefDates     []Date            `yaml:"low_pref_dates"`
	Overrides        Overrides         `yaml:"overrides"`
}

// DisplayName returns the player's name, falling back to the id.
func (p Player) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

type Search struct {
	Seed        int64  `yaml:"seed"`
	Candidates  int    `yaml:"candidates" validate:"gte=0"`
	Parallelism int    `yaml:"parallelism" validate:"gte=0"`
	Ordering    string `yaml:"ordering" validate:"omitempty,oneof=auto score_shift interlace shuffle"`
}

type Config struct {
	League     string     `yaml:"league"`
	Flight     string     `yaml:"flight"`
	Season     Season     `yaml:"season"`
	Facilities []Facility `yaml:"facilities" validate:"dive"`
	TimeSlots  TimeSlots  `yaml:"time_slots"`
	Rules      Rules      `yaml:"rules"`
	Players    []Player   `yaml:"players" validate:"dive"`
	Search     Search     `yaml:"search"`
}

// FacilityNames returns the facility names in config order.
func (c *Config) FacilityNames() []string {
	var names []string
	for _, f := range c.Facilities {
		names = append(names, f.Name)
	}
	return names
}

// LeagueRules converts the configured rules into the scheduler's form.
func (c *Config) LeagueRules() league.Rules {
	r := c.Rules
	return league.Rules{
		MinGamesTotal:      r.MinGamesTotal,
		MaxGamesTotal:      r.MaxGamesTotal,
		MinGamesDay:        r.MinGamesDay,
		MaxGamesDay:        r.MaxGamesDay,
		MinGamesWeek:       r.MinGamesWeek,
		MaxGamesWeek:       r.MaxGamesWeek,
		MaxDoubleHeaders:   r.MaxDoubleHeaders,
		MaxConcurrentGames: r.MaxConcurrentGames,
		MinCaptained:       r.MinCaptained,
		MaxCaptained:       r.MaxCaptained,
		MaxWeekGap:         r.MaxWeekGap,
		PlayersPerMatch:    r.PlayersPerMatch,
		MinimumSubsPerGame: r.MinimumSubsPerGame,
		AssumeBusy:         r.AssumeBusy,
	}
}

// LeagueOverrides converts a player's overrides into the scheduler's form.
func (p Player) LeagueOverrides() league.Overrides {
	o := p.Overrides
	return league.Overrides{
		MinGamesTotal: o.MinGamesTotal,
		MaxGamesTotal: o.MaxGamesTotal,
		MinGamesDay:   o.MinGamesDay,
		MaxGamesDay:   o.MaxGamesDay,
		MinGamesWeek:  o.MinGamesWeek,
		MaxGamesWeek:  o.MaxGamesWeek,
		MinCaptained:  o.MinCaptained,
		MaxCaptained:  o.MaxCaptained,
		MaxWeekGap:    o.MaxWeekGap,
	}
}

// LoadFromBytes parses YAML bytes into a Config, applies defaults and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	// max_games_day: 0 means no limit, so its default is seeded before
	// decoding and only an absent key keeps it.
	cfg := Config{Rules: Rules{MaxGamesDay: 1}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Mark(err, ErrInvalidConfig)
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return LoadFromBytes(data)
}

func (c *Config) applyDefaults() {
	if c.Rules.PlayersPerMatch == 0 {
		c.Rules.PlayersPerMatch = 4
	}
	if c.Search.Ordering == "" {
		c.Search.Ordering = "auto"
	}
	if c.Search.Parallelism == 0 {
		c.Search.Parallelism = 1
	}
	for i := range c.Players {
		c.Players[i].ID = strings.TrimSpace(c.Players[i].ID)
		for ts, s := range c.Players[i].Availability {
			c.Players[i].Availability[ts] = strings.ToLower(strings.TrimSpace(s))
		}
	}
}

var structValidator = validator.New()

func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Newf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.Wrap(err, "validating config")
	}

	if !c.Season.EndDate.Time.After(c.Season.StartDate.Time) {
		return errors.Newf("end date %s must be after start date %s",
			c.Season.EndDate.Time.Format("2006-01-02"),
			c.Season.StartDate.Time.Format("2006-01-02"))
	}

	if len(c.Facilities) == 0 {
		return errors.New("at least one facility is required")
	}

	if c.Rules.MaxGamesTotal > 0 && c.Rules.MinGamesTotal > c.Rules.MaxGamesTotal {
		return errors.Newf("min_games_total %d exceeds max_games_total %d", c.Rules.MinGamesTotal, c.Rules.MaxGamesTotal)
	}
	if c.Rules.MaxCaptained > 0 && c.Rules.MinCaptained >= c.Rules.MaxCaptained {
		return errors.Newf("min_captained %d must be below max_captained %d (max is exclusive)", c.Rules.MinCaptained, c.Rules.MaxCaptained)
	}

	facilities := make(map[string]bool)
	for _, f := range c.Facilities {
		if facilities[f.Name] {
			return errors.Newf("facility %q is listed twice", f.Name)
		}
		facilities[f.Name] = true
	}

	// Player ids and display names both have to be unique: ids key the
	// scheduler, names key the workbook.
	ids := make(map[string]bool)
	names := make(map[string]string)
	for _, p := range c.Players {
		if ids[p.ID] {
			return errors.Newf("player %q is listed twice", p.ID)
		}
		ids[p.ID] = true
		name := p.DisplayName()
		if prev, ok := names[name]; ok {
			return errors.Newf("players %q and %q share the name %q", prev, p.ID, name)
		}
		names[name] = p.ID
	}

	for _, times := range [][]string{c.TimeSlots.Weekday, c.TimeSlots.Saturday, c.TimeSlots.Sunday} {
		for _, t := range times {
			if _, err := time.Parse("15:04", t); err != nil {
				return errors.Newf("invalid time slot %q: want HH:MM", t)
			}
		}
	}

	// Validate reservations
	for _, f := range c.Facilities {
		for _, r := range f.Reservations {
			hasDate := r.Date != nil
			hasRange := r.StartDate != nil || r.EndDate != nil
			if !hasDate && !hasRange {
				return errors.Newf("facility %q: reservation must have either 'date' or 'start_date'/'end_date'", f.Name)
			}
			if hasDate && hasRange {
				return errors.Newf("facility %q: reservation cannot have both 'date' and 'start_date'/'end_date'", f.Name)
			}
			if hasRange && (r.StartDate == nil || r.EndDate == nil) {
				return errors.Newf("facility %q: reservation with date range must have both 'start_date' and 'end_date'", f.Name)
			}
			if hasRange && r.EndDate.Time.Before(r.StartDate.Time) {
				return errors.Newf("facility %q: reservation end_date must be on or after start_date", f.Name)
			}
		}
	}

	return nil
}
