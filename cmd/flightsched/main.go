package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/derekprior/flightsched/internal/config"
	"github.com/derekprior/flightsched/internal/excel"
	"github.com/derekprior/flightsched/internal/schedule"
	"github.com/derekprior/flightsched/internal/validator"
)

const (
	defaultConfigFile = "config.yaml"
	configEnv         = "FLIGHTSCHED_CONFIG"
)

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if env := os.Getenv(configEnv); env != "" {
		return env, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", errors.Newf("no config file found. Either create %s in the current directory, set %s or pass --config", defaultConfigFile, configEnv)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Str("run", uuid.NewString()).
		Logger()
}

func main() {
	// A missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "flightsched",
		Short: "Club league flight scheduler",
	}
	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log scheduling progress to stderr")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and validate schedules",
	}

	var configFile string
	scheduleCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: $"+configEnv+" or config.yaml in current directory)")

	var (
		outputFile string
		search     config.Search
	)
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate a schedule from a config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			log := newLogger(verbose)
			return runGenerate(configPath, outputFile, func(s *config.Search) {
				flags := cmd.Flags()
				if flags.Changed("seed") {
					s.Seed = search.Seed
				}
				if flags.Changed("candidates") {
					s.Candidates = search.Candidates
				}
				if flags.Changed("parallel") {
					s.Parallelism = search.Parallelism
				}
				if flags.Changed("ordering") {
					s.Ordering = search.Ordering
				}
			}, &log)
		},
	}
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "schedule.xlsx", "Output Excel file path")
	generateCmd.Flags().Int64Var(&search.Seed, "seed", 0, "Base seed for the candidate generators")
	generateCmd.Flags().IntVar(&search.Candidates, "candidates", 0, "Number of candidate schedules (default: 2 x timeslots)")
	generateCmd.Flags().IntVar(&search.Parallelism, "parallel", 1, "Candidates built concurrently")
	generateCmd.Flags().StringVar(&search.Ordering, "ordering", "auto", "Slot ordering: auto, score_shift, interlace or shuffle")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx>",
		Short:        "Validate a schedule against config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runValidate(configPath, args[0])
		},
	}

	scheduleCmd.AddCommand(generateCmd, validateCmd)
	rootCmd.AddCommand(initCmd, scheduleCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return errors.Newf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return errors.Wrap(err, "writing config")
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

func runGenerate(configPath, outputPath string, override func(*config.Search), log *zerolog.Logger) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	override(&cfg.Search)

	timeslots := schedule.GenerateTimeslots(cfg)
	blackouts := schedule.GenerateBlackoutSlots(cfg)
	in, err := schedule.BuildInput(cfg, timeslots)
	if err != nil {
		return err
	}

	opts := schedule.OptionsFromConfig(cfg)
	opts.Logger = log

	slots := 0
	for _, ts := range timeslots {
		slots += len(ts.Facilities)
	}
	fmt.Printf("Scheduling %d players into %d facility slots across %d timeslots...\n",
		len(cfg.Players), slots, len(timeslots))

	result, err := schedule.Run(in, opts)
	if err != nil {
		return errors.Wrap(err, "scheduling")
	}
	fmt.Printf("✓ %d games scheduled (best of %d candidates, %s ordering, %s)\n",
		len(result.Events), result.Candidates, result.Ordering, result.Elapsed.Round(time.Millisecond))

	printMetrics(result.Report)
	score := printViolations(result.Report)

	f, err := excel.Generate(cfg, result, timeslots, blackouts)
	if err != nil {
		return errors.Wrap(err, "generating Excel")
	}
	if err := f.SaveAs(outputPath); err != nil {
		return errors.Wrap(err, "saving file")
	}

	fmt.Printf("\n✓ Schedule saved to %s\n", outputPath)
	if score.Tier1 > 0 {
		return errors.Newf("schedule has %d rule violations", score.Tier1)
	}
	return nil
}

func printMetrics(report validator.Report) {
	fmt.Println("\nPer Player Metrics:")
	fmt.Printf("  %-24s %6s %5s %8s %4s\n", "Player", "Games", "Capt", "LowPref", "DH")
	for _, p := range report.Players {
		fmt.Printf("  %-24s %6d %5d %8d %4d\n", p.Name, p.Games, p.Captained, p.LowPref, p.DoubleHeaders)
	}
}

func printViolations(report validator.Report) validator.Score {
	for _, v := range report.Violations {
		switch v.Tier {
		case validator.Tier1:
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		default:
			fmt.Printf("⚠ Guideline violation: %s\n", v.Message)
		}
	}
	score := report.Score()
	fmt.Printf("\n%d rule violations, %d guideline violations\n", score.Tier1, score.Tier2)
	return score
}

func runValidate(configPath, schedulePath string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	events, err := excel.ReadEvents(schedulePath, cfg)
	if err != nil {
		return errors.Wrap(err, "reading schedule")
	}
	flight, err := schedule.Materialize(cfg, events)
	if err != nil {
		return errors.Wrap(err, "validating")
	}
	report := validator.Evaluate(flight)

	score := printViolations(report)

	// Regenerate player sheets from master schedule
	if err := excel.Refresh(schedulePath, cfg, flight, report); err != nil {
		return errors.Wrap(err, "updating player sheets")
	}
	fmt.Printf("✓ Player sheets updated in %s\n", schedulePath)

	if score.Tier1 > 0 {
		return errors.Newf("%d constraint violations found", score.Tier1)
	}
	return nil
}
