// Command scrape-range ingests lottery results for every day and region in a
// date range, writing them to Postgres, to SQL files, or both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/riskibarqy/kqsx/internal/app"
	"github.com/riskibarqy/kqsx/internal/config"
	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/observability"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// regionList collects a repeatable --region flag.
type regionList []string

func (r *regionList) String() string {
	return strings.Join(*r, ",")
}

func (r *regionList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*r = append(*r, part)
		}
	}
	return nil
}

type options struct {
	start   time.Time
	end     time.Time
	regions []string
	persist bool
	outDir  string
	strict  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("scrape-range", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		start     = fs.String("start", "", "first draw date, YYYY-MM-DD (required)")
		end       = fs.String("end", "", "last draw date, YYYY-MM-DD (default today in Asia/Ho_Chi_Minh)")
		noPersist bool
		outDir    = fs.String("out-dir", "", "write one SQL file per draw into this directory")
		strict    = fs.Bool("strict", false, "stop at the first failed pair")
		regions   regionList
	)
	fs.Var(&regions, "region", "region to ingest: mn, mt or mb (repeatable, default all)")
	fs.BoolVar(&noPersist, "no-persist", false, "do not write to the database")
	fs.BoolVar(&noPersist, "no-supabase", false, "alias of --no-persist")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	opts := options{regions: regions, persist: !noPersist, outDir: strings.TrimSpace(*outDir), strict: *strict}
	if strings.TrimSpace(*start) == "" {
		return options{}, errors.New("--start is required")
	}
	var err error
	if opts.start, err = lottery.ParseDate(strings.TrimSpace(*start)); err != nil {
		return options{}, fmt.Errorf("--start: %w", err)
	}
	if raw := strings.TrimSpace(*end); raw != "" {
		if opts.end, err = lottery.ParseDate(raw); err != nil {
			return options{}, fmt.Errorf("--end: %w", err)
		}
		if opts.end.Before(opts.start) {
			return options{}, errors.New("--end must be on or after --start")
		}
	}
	if !opts.persist && opts.outDir == "" {
		return options{}, errors.New("--out-dir is required with --no-persist")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "scrape-range: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "scrape-range: load config: %v\n", err)
		return exitUsage
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: logging.FormatConsole, Output: stderr})
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, observability.ComponentScrapeRange, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitFailed
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, closeDB, err := app.NewRangeRunner(ctx, cfg, opts.persist, logger)
	if err != nil {
		logger.Error("build range runner", "error", err)
		return exitFailed
	}
	defer func() { _ = closeDB() }()

	result, err := runner.Run(ctx, usecase.RangeInput{
		Start:     opts.start,
		End:       opts.end,
		Regions:   opts.regions,
		Persist:   opts.persist,
		ExportDir: opts.outDir,
		Strict:    opts.strict,
	})
	return report(result, err, stdout, stderr)
}

func report(result usecase.RangeResult, err error, stdout, stderr io.Writer) int {
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			fmt.Fprintf(stderr, "scrape-range: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(stderr, "scrape-range: run stopped at %v\n", err)
		return exitFailed
	}

	fmt.Fprintf(stdout, "%s..%s: %d pairs, %d succeeded, %d skipped, %d failed\n",
		result.Start, result.End, result.PairCount, result.SuccessCount, result.SkippedCount, result.FailedCount)
	for _, failure := range result.Failures() {
		fmt.Fprintf(stdout, "  failed %s\n", failure)
	}
	return exitOK
}
