package schedule

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/league"
	"github.com/derekprior/flightsched/internal/strategy"
	"github.com/derekprior/flightsched/internal/validator"
)

// Options tune the search. The zero value runs 2 × timeslots candidates
// sequentially with seed 0.
type Options struct {
	Seed        int64
	Candidates  int
	Parallelism int
	Ordering    string
	Logger      *zerolog.Logger
	Clock       clockwork.Clock
}

// OptionsFromConfig reads the search section of a league config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Seed:        cfg.Search.Seed,
		Candidates:  cfg.Search.Candidates,
		Parallelism: cfg.Search.Parallelism,
		Ordering:    cfg.Search.Ordering,
	}
}

// Result is the output of the scheduling process.
type Result struct {
	Events     []league.Event
	Report     validator.Report
	Flight     *league.Flight
	Candidate  int
	Ordering   string
	Candidates int
	Elapsed    time.Duration
}

// Score is the winning candidate's violation score.
func (r *Result) Score() validator.Score {
	return r.Report.Score()
}

type candidate struct {
	flight   *league.Flight
	report   validator.Report
	ordering string
	err      error
}

// Run schedules a flight. It builds several candidates from independent
// copies of the flight, each with its own ordering and seeded generator,
// and returns the one with the lexicographically smallest (tier1, tier2)
// score; the earliest candidate wins ties. A schedule that breaks hard
// rules is still returned; only malformed input is an error.
func Run(in league.Input, opts Options) (*Result, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	start := clock.Now()

	base, err := league.NewFlight(in)
	if err != nil {
		return nil, err
	}
	if _, err := strategy.Get(opts.Ordering, 0, len(base.Timeslots)); err != nil {
		return nil, errors.Mark(err, league.ErrInvalidInput)
	}

	if len(base.PlayerOrder) == 0 || len(base.SlotOrder) == 0 {
		log.Warn().
			Int("players", len(base.PlayerOrder)).
			Int("slots", len(base.SlotOrder)).
			Msg("nothing to schedule")
		return &Result{
			Report:    validator.Evaluate(base),
			Flight:    base,
			Candidate: -1,
			Elapsed:   clock.Since(start),
		}, nil
	}

	n := opts.Candidates
	if n <= 0 {
		n = 2 * len(base.Timeslots)
	}

	results := make([]candidate, n)
	runOne := func(i int) {
		results[i] = runCandidate(base, i, opts, log)
	}

	if opts.Parallelism > 1 {
		pool, err := ants.NewPool(opts.Parallelism)
		if err != nil {
			return nil, errors.Wrap(err, "creating candidate pool")
		}
		defer pool.Release()

		var workers sync.WaitGroup
		for i := 0; i < n; i++ {
			i := i
			workers.Add(1)
			if err := pool.Submit(func() {
				defer workers.Done()
				runOne(i)
			}); err != nil {
				workers.Done()
				workers.Wait()
				return nil, errors.Wrap(err, "submitting candidate")
			}
		}
		workers.Wait()
	} else {
		for i := 0; i < n; i++ {
			runOne(i)
		}
	}

	best := -1
	for i, c := range results {
		if c.err != nil {
			return nil, c.err
		}
		if best < 0 || c.report.Score().Less(results[best].report.Score()) {
			best = i
		}
	}

	winner := results[best]
	res := &Result{
		Events:     winner.flight.Events(),
		Report:     winner.report,
		Flight:     winner.flight,
		Candidate:  best,
		Ordering:   winner.ordering,
		Candidates: n,
		Elapsed:    clock.Since(start),
	}
	log.Info().
		Int("candidates", n).
		Int("winner", best).
		Str("ordering", winner.ordering).
		Int("tier1", res.Score().Tier1).
		Int("tier2", res.Score().Tier2).
		Dur("elapsed", res.Elapsed).
		Msg("schedule selected")
	return res, nil
}

func runCandidate(base *league.Flight, i int, opts Options, log zerolog.Logger) candidate {
	f, err := base.Clone()
	if err != nil {
		return candidate{err: err}
	}
	ordering, err := strategy.Get(opts.Ordering, i, len(f.Timeslots))
	if err != nil {
		return candidate{err: err}
	}
	rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
	clog := log.With().Int("candidate", i).Logger()

	newScheduler(f, rng, ordering, clog).run()
	report := validator.Evaluate(f)
	score := report.Score()
	clog.Debug().Int("tier1", score.Tier1).Int("tier2", score.Tier2).Msg("candidate scored")

	return candidate{flight: f, report: report, ordering: ordering.Name()}
}

// Materialize rebuilds a flight from a config and a list of events, for
// validating a schedule produced elsewhere or edited by hand.
func Materialize(cfg *config.Config, events []league.Event) (*league.Flight, error) {
	in, err := BuildInput(cfg, GenerateTimeslots(cfg))
	if err != nil {
		return nil, err
	}
	f, err := league.NewFlight(in)
	if err != nil {
		return nil, err
	}
	if err := f.ApplyEvents(events); err != nil {
		return nil, err
	}
	return f, nil
}
