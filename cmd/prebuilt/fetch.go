package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/fetch"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/lock"
	"github.com/ZebulonRouseFrantzich/prebuilt/internal/report"
)

// runFetch handles the `prebuilt fetch` subcommand.
// Returns an exit code (0 = nothing failed, 1 = a target failed or the
// invocation was invalid) and an error.
func runFetch(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	inv, err := parseCommand("fetch", args, stdout, stderr)
	if errors.Is(err, errHelp) {
		return 0, nil
	}
	if err != nil {
		return 1, err
	}

	matrices, baseDir, err := inv.plan(ctx)
	if err != nil {
		return 1, err
	}

	l, err := lock.Acquire(ctx, baseDir)
	if err != nil {
		return 1, fmt.Errorf("lock %s: %w", baseDir, err)
	}
	defer l.Release()

	s := inv.settings
	fetcher := fetch.NewFetcher(fetch.Config{
		UserAgent:   s.UserAgent,
		Timeout:     s.Timeout,
		Concurrency: s.Concurrency,
		Logger:      inv.logger,
	})

	runs := make([]report.Run, 0, len(matrices))
	failed := false
	for _, m := range matrices {
		outcomes := fetcher.Run(ctx, m)
		runs = append(runs, report.Run{
			Component: string(m.Component()),
			Version:   m.Version(),
			Outcomes:  outcomes,
		})
		if fetch.Summarize(outcomes).HasFailures() {
			failed = true
		}
	}

	if err := report.WriteRuns(stdout, runs, s.Format); err != nil {
		return 1, fmt.Errorf("write report: %w", err)
	}
	if failed {
		return 1, nil
	}
	return 0, nil
}
