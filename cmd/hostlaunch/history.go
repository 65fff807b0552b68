// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hostlaunch/hostlaunch/lib/cache"
	"github.com/hostlaunch/hostlaunch/lib/config"
	"github.com/hostlaunch/hostlaunch/lib/history"
	"github.com/hostlaunch/hostlaunch/lib/pipeline"
)

// printHistory writes the most recent runs as a table.
func printHistory(ctx context.Context, cfg *config.Config, limit int, stdout io.Writer, logger *slog.Logger) int {
	path := cache.Layout{Root: cfg.CacheDir}.HistoryDB()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(stdout, "no runs recorded")
		return pipeline.ExitSuccess
	}

	store, err := history.Open(ctx, path, logger)
	if err != nil {
		logger.Error("could not open run history", "error", err)
		return pipeline.ExitCache
	}
	defer store.Close()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		logger.Error("could not read run history", "error", err)
		return pipeline.ExitCache
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return pipeline.ExitSuccess
	}
	writeRuns(stdout, runs)
	return pipeline.ExitSuccess
}

func writeRuns(w io.Writer, runs []history.Run) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "STARTED\tHOST\tVERSION\tCOMMIT\tSTAGE\tEXIT\tDURATION\tERROR\n")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.Host,
			orDash(run.Version),
			orDash(shortCommit(run.Commit)),
			run.Stage,
			run.ExitCode,
			run.Duration().Round(time.Millisecond),
			orDash(run.Error),
		)
	}
	tw.Flush()
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
