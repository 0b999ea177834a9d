package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"pest-spread/internal/config"
	"pest-spread/internal/core"
	"pest-spread/internal/logging"
	"pest-spread/internal/scenario"
	"pest-spread/internal/spread"
)

type options struct {
	scenario   string
	configPath string
	overrides  config.Overrides
	workers    int
	progress   time.Duration
	params     bool
	rasters    bool
}

func main() {
	logger, err := logging.ConfigureRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Fatal("run failed", "err", err)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pops", flag.ContinueOnError)
	fs.StringVar(&opts.scenario, "scenario", "", "scenario TOML file (config plus rasters)")
	fs.StringVar(&opts.configPath, "config", "", "config TOML that replaces the scenario's [config] table")
	fs.Var(&opts.overrides, "set", "config override in key=value form (repeatable)")
	fs.IntVar(&opts.workers, "workers", 0, "worker goroutines per step (0 uses config or GOMAXPROCS)")
	fs.DurationVar(&opts.progress, "progress", 2*time.Second, "minimum interval between progress logs")
	fs.BoolVar(&opts.params, "params", false, "print the resolved parameters before running")
	fs.BoolVar(&opts.rasters, "rasters", false, "print the final rasters")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.scenario == "" {
		return opts, fmt.Errorf("-scenario is required")
	}
	return opts, nil
}

func run(args []string, out io.Writer, logger *log.Logger) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	file, err := scenario.Load(opts.scenario)
	if err != nil {
		return err
	}
	base := file.Config
	if opts.configPath != "" {
		if base, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	cfg, err := base.Apply(opts.overrides.Map())
	if err != nil {
		return err
	}
	if opts.params {
		if err := cfg.Parameters().WriteTable(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	sim, err := file.Build(cfg, spread.WithLogger(logger), spread.WithWorkers(opts.workers))
	if err != nil {
		return err
	}

	start := time.Now()
	if err := drive(sim, core.NewThrottle(opts.progress), logger); err != nil {
		return err
	}
	sum := sim.Summary()
	logger.Info("finished", append(sum.KeyVals(), "elapsed", time.Since(start).Round(time.Millisecond))...)

	printSummary(out, sum)
	if opts.rasters {
		printRaster(out, "infected", sim.Infected())
		printRaster(out, "susceptible", sim.Susceptible())
		printRaster(out, "died", sim.Died())
		if sim.Dispersers() != nil {
			printRaster(out, "dispersers", sim.Dispersers())
		}
	}
	for _, d := range sim.OutsideDispersers() {
		fmt.Fprintf(out, "outside step=%d from=(%d,%d) to=(%d,%d)\n", d.Step, d.OriginRow, d.OriginCol, d.Row, d.Col)
	}
	return nil
}

// drive steps s to completion, logging progress at most once per throttle
// interval.
func drive(s core.Stepper, throttle *core.Throttle, logger *log.Logger) error {
	for s.Step() < s.Steps() {
		if err := s.RunStep(); err != nil {
			return err
		}
		if throttle.Ready() {
			logger.Info("progress", "step", s.Step(), "steps", s.Steps())
		}
	}
	return nil
}

func printSummary(w io.Writer, sum spread.Summary) {
	fmt.Fprintf(w, "steps %d/%d (%s)\n", sum.Step, sum.Steps, sum.State)
	fmt.Fprintf(w, "infected=%d cells=%d susceptible=%d died=%d mortality=%d\n",
		sum.Infected, sum.InfectedCells, sum.Susceptible, sum.Died, sum.MortalityTracker)
	fmt.Fprintf(w, "dispersers=%d outside=%d\n", sum.Dispersers, sum.Outside)
	fmt.Fprintf(w, "rate n=%.2f s=%.2f e=%.2f w=%.2f\n", sum.Rate.North, sum.Rate.South, sum.Rate.East, sum.Rate.West)
}

func printRaster(w io.Writer, name string, r *core.IntRaster) {
	fmt.Fprintf(w, "%s:\n  %v\n", name, mat.Formatted(r.Dense(), mat.Prefix("  ")))
}
