package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"pest-spread/internal/config"
	"pest-spread/internal/logging"
	"pest-spread/internal/scenario"
)

type sweepResult struct {
	seed          int64
	infected      int
	infectedCells int
	died          int
	outside       int
	err           error
}

func (r sweepResult) String() string {
	return fmt.Sprintf("seed=%d infected=%d cells=%d died=%d outside=%d", r.seed, r.infected, r.infectedCells, r.died, r.outside)
}

type sweepOptions struct {
	scenario  string
	overrides config.Overrides
	firstSeed int64
	seeds     int
	workers   int
	top       int
}

func main() {
	logger, err := logging.ConfigureRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Fatal("sweep failed", "err", err)
	}
}

func parseFlags(args []string) (sweepOptions, error) {
	var opts sweepOptions
	fs := flag.NewFlagSet("pops-sweep", flag.ContinueOnError)
	fs.StringVar(&opts.scenario, "scenario", "", "scenario TOML file (config plus rasters)")
	fs.Var(&opts.overrides, "set", "config override in key=value form (repeatable)")
	fs.Int64Var(&opts.firstSeed, "first-seed", 1, "first seed of the sweep")
	fs.IntVar(&opts.seeds, "seeds", 32, "number of consecutive seeds to run")
	fs.IntVar(&opts.workers, "workers", runtime.NumCPU(), "number of worker goroutines")
	fs.IntVar(&opts.top, "top", 5, "results to list, ranked by outside dispersers")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.scenario == "" {
		return opts, fmt.Errorf("-scenario is required")
	}
	if opts.seeds <= 0 {
		return opts, fmt.Errorf("-seeds must be positive, got %d", opts.seeds)
	}
	if opts.top < 0 {
		return opts, fmt.Errorf("-top must not be negative, got %d", opts.top)
	}
	if opts.workers <= 0 {
		opts.workers = 1
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
	base, err := file.Config.Apply(opts.overrides.Map())
	if err != nil {
		return err
	}
	// Parallelism comes from the sweep; each run steps on one goroutine.
	base.Workers = 1

	logger.Info("sweeping", "seeds", opts.seeds, "first", opts.firstSeed, "workers", opts.workers, "steps", base.Steps)

	jobs := make(chan int64)
	results := make(chan sweepResult)
	var wg sync.WaitGroup

	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				results <- runSeed(file, base, seed)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for i := 0; i < opts.seeds; i++ {
			jobs <- opts.firstSeed + int64(i)
		}
		close(jobs)
	}()

	start := time.Now()
	var all []sweepResult
	var failed *sweepResult
	for res := range results {
		if res.err != nil {
			if failed == nil || res.seed < failed.seed {
				failed = &res
			}
			continue
		}
		all = append(all, res)
	}
	if failed != nil {
		return fmt.Errorf("seed %d: %w", failed.seed, failed.err)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].outside != all[j].outside {
			return all[i].outside > all[j].outside
		}
		return all[i].seed < all[j].seed
	})
	logger.Info("sweep finished", "runs", len(all), "elapsed", time.Since(start).Round(time.Millisecond))

	outside := make([]float64, len(all))
	infected := make([]float64, len(all))
	for i, res := range all {
		outside[i] = float64(res.outside)
		infected[i] = float64(res.infected)
	}
	outsideMean, outsideStd := stat.MeanStdDev(outside, nil)
	infectedMean, infectedStd := stat.MeanStdDev(infected, nil)

	fmt.Fprintf(out, "runs=%d steps=%d\n", len(all), base.Steps)
	fmt.Fprintf(out, "outside mean=%.3f sd=%.3f\n", outsideMean, outsideStd)
	fmt.Fprintf(out, "infected mean=%.3f sd=%.3f\n", infectedMean, infectedStd)
	fmt.Fprintf(out, "\nTop %d by outside dispersers:\n", min(opts.top, len(all)))
	for i := 0; i < len(all) && i < opts.top; i++ {
		fmt.Fprintf(out, "%2d) %s\n", i+1, all[i])
	}
	return nil
}

func runSeed(file *scenario.File, base config.Config, seed int64) sweepResult {
	cfg := base
	cfg.Seed = seed
	res := sweepResult{seed: seed}
	sim, err := file.Build(cfg)
	if err != nil {
		res.err = err
		return res
	}
	if err := sim.Run(); err != nil {
		res.err = err
		return res
	}
	sum := sim.Summary()
	res.infected = sum.Infected
	res.infectedCells = sum.InfectedCells
	res.died = sum.Died
	res.outside = sum.Outside
	return res
}
