package main

const configTemplate = `# Flight Configuration
# ====================
# This file defines one flight of a club league: the players, the
# facilities they share and the rules every schedule must respect.

league: "Thursday Night Doubles"
flight: "A"

# Season defines the date range play may be scheduled in.
season:
  start_date: "2026-05-04"
  end_date: "2026-06-26"

  # Blackout dates are full days where no games will be scheduled.
  blackout_dates:
    - date: "2026-05-25"
      reason: "Memorial Day"

# Facilities are the courts (or lanes, tables...) a game can be played on.
# Reservations block a facility for a date or date range. If 'times' is
# omitted the facility is blocked for the full day.
#
#   - date: "2026-05-04"
#     times: ["18:00"]
#     reason: "Clinic"
#   - start_date: "2026-06-01"
#     end_date: "2026-06-05"
#     reason: "Resurfacing"
facilities:
  - name: Court 1
  - name: Court 2
    reservations:
      - date: "2026-05-14"
        reason: "Clinic"
  - name: Court 3

# Time slots define when games can start on each type of day.
# Times use 24-hour format (e.g., "18:00" = 6:00 PM).
time_slots:
  weekday: ["18:00", "19:30"]
  saturday: ["09:00"]
  sunday: []

  # Holiday dates use the sunday times.
  holiday_dates: []

# Rules apply to every player unless overridden. A maximum of 0 means no limit.
# min/max games, max per day and max per week are hard rules; the rest are
# guidelines reported as warnings.
rules:
  players_per_match: 4        # Players in one game
  minimum_subs_per_game: 1    # Spare available players wanted per timeslot
  min_games_total: 6
  max_games_total: 8
  max_games_day: 1
  max_games_week: 2
  min_games_week: 0
  min_games_day: 0
  max_double_headers: 0       # Days with 2+ games (needs max_games_day > 1)
  max_concurrent_games: 3     # Games at once (e.g. pros on duty)
  min_captained: 1
  max_captained: 3            # Exclusive: captains fewer than this many games
  max_week_gap: 2             # Most weeks between consecutive games
  assume_busy: false          # Treat unanswered timeslots as unavailable

# Players and their availability. Keys of 'availability' are timeslot ids
# ("YYYY-MM-DD HH:MM"); values are available, low_pref, unavailable or unknown.
# Date lists apply to every timeslot on that date.
players:
  - id: ann
    name: Ann Archer
    unavailable_dates: ["2026-05-07"]
  - id: bob
    name: Bob Baker
    low_pref_dates: ["2026-05-09"]
    availability:
      "2026-05-05 19:30": unavailable
  - id: cat
    name: Cat Carter
    overrides:
      max_games_total: 6
  - id: dan
    name: Dan Dunn

# Search controls how many candidate schedules are built and compared.
search:
  seed: 1
  candidates: 0      # 0 means twice the number of timeslots
  parallelism: 4
  ordering: auto     # auto, score_shift, interlace or shuffle
`
