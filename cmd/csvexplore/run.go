package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"csvexplore/internal/analyze"
	"csvexplore/internal/config"
	"csvexplore/internal/metrics"
	"csvexplore/internal/metrics/datadog"
	"csvexplore/internal/report"
	"csvexplore/internal/source"
)

// run analyzes every configured input in order and writes each report as soon
// as its input is exhausted.
//
// By default the first failing input aborts the run; reports already written
// stay written. With KeepGoing a failing input is logged and skipped, and the
// run fails at the end.
func (a *app) run(ctx context.Context, cfg config.Config) error {
	logger := log.New(a.stderr, "", log.LstdFlags)
	runID := uuid.NewString()

	if cfg.Verbose {
		logger.Printf("run=%s inputs=%d format=%s keep_going=%v", runID, len(cfg.Inputs), cfg.Format, cfg.KeepGoing)
	}

	closeMetrics := a.initMetrics(ctx, cfg, runID, logger)
	defer closeMetrics()

	w, err := report.New(a.stdout, report.Options{Format: cfg.Format, Dialect: cfg.Dialect})
	if err != nil {
		return usageError{err}
	}

	opt := analyze.Options{ProgressEvery: cfg.ProgressEvery, Logger: logger}
	start := time.Now()

	var failed int
	var records int64
	for _, in := range cfg.Inputs {
		spec := in.Spec(cfg.Encoding)

		rep, err := analyzeInput(ctx, spec, opt)
		if err != nil {
			if ctx.Err() != nil || !cfg.KeepGoing {
				_ = w.Close()
				return err
			}
			failed++
			logger.Printf("skipping %s: %v", spec.Label(), err)
			continue
		}

		if err := w.Write(rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		records += rep.Records
		if cfg.Verbose {
			logger.Printf("%s: %s records, %d columns in %s",
				rep.Source, humanize.Comma(rep.Records), len(rep.Columns), rep.Elapsed.Truncate(time.Millisecond))
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if cfg.Verbose {
		logger.Printf("run=%s completed: %s records in %s", runID, humanize.Comma(records), time.Since(start).Truncate(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(cfg.Inputs))
	}
	return nil
}

// analyzeInput opens one input, analyzes it, then records and flushes the
// outcome metrics.
func analyzeInput(ctx context.Context, spec source.Spec, opt analyze.Options) (analyze.Report, error) {
	start := time.Now()
	label := spec.Label()

	rep, err := func() (analyze.Report, error) {
		r, err := source.Open(ctx, spec)
		if err != nil {
			return analyze.Report{}, fmt.Errorf("analyze %s: %w", label, err)
		}
		defer r.Close()
		return analyze.Analyze(ctx, label, r, opt)
	}()

	status := metrics.StatusOK
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = metrics.StatusCanceled
	case err != nil:
		status = metrics.StatusError
	}
	labels := metrics.Labels{"status": status}
	metrics.IncCounter(metrics.InputsTotal, 1, labels)
	metrics.ObserveDuration(metrics.InputDuration, start, labels)
	if ferr := metrics.Flush(); ferr != nil && opt.Logger != nil {
		opt.Logger.Printf("metrics: flush error: %v", ferr)
	}

	return rep, err
}

// initMetrics installs the configured metrics backend and returns the
// function that flushes and uninstalls it. Backend failures only disable
// metrics.
func (a *app) initMetrics(ctx context.Context, cfg config.Config, runID string, logger *log.Logger) func() {
	backend := strings.ToLower(cfg.Metrics.Backend)
	switch backend {
	case "datadog":
		b, err := datadog.NewBackend(context.WithoutCancel(ctx), datadog.Options{
			JobName:    cfg.Metrics.Job,
			RunID:      runID,
			Tags:       cfg.Metrics.Tags,
			FlushEvery: cfg.Metrics.FlushEvery,
		})
		if err != nil {
			logger.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		if cfg.Verbose {
			logger.Printf("metrics: backend=%s job_name=%s tags=%v", backend, cfg.Metrics.Job, cfg.Metrics.Tags)
		}
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logger.Printf("metrics: datadog close/flush error: %v", err)
			}
			metrics.SetBackend(nil)
		}

	case "", "none":
		if cfg.Verbose {
			logger.Printf("metrics: disabled")
		}
	default:
		logger.Printf("metrics: unknown backend %q; metrics disabled", cfg.Metrics.Backend)
	}
	return func() {}
}
