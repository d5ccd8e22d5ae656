package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/isokit/isokit/internal/demo"
	"github.com/isokit/isokit/pkg/ssr"
)

func renderCmd() *cobra.Command {
	var (
		user    string
		delay   time.Duration
		timeout time.Duration
		stats   bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the demo page once and print the markup",
		Long: `Render the demo page to stdout in a single pass.

The feed component fetches with an artificial delay; set --delay above
--timeout to watch the timeout fire while the late result still lands
in the output.

Examples:
  isokit render
  isokit render --delay=50ms
  isokit render --delay=2s --timeout=100ms --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(user, delay, timeout, stats)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "ada", "User the page is rendered for")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Artificial feed fetch delay")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "Feed first-emission timeout")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print pass statistics to stderr")

	return cmd
}

func runRender(user string, delay, timeout time.Duration, printStats bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	feed := demo.NewFeed(delay, timeout)
	roots := demo.Page(user, feed)

	var passStats ssr.Stats
	html, err := ssr.RenderManyToOutput(context.Background(), roots,
		ssr.WithLogger(logger),
		ssr.WithStats(&passStats),
		ssr.WithErrorReporter(func(err error) {
			logger.Warn("instance error", "error", err)
		}),
		ssr.WithOnData(func(name, elementID string, data map[string]any) {
			logger.Debug("instance data", "name", name, "element", elementID, "data", data)
		}),
	)
	if err != nil {
		return err
	}

	fmt.Println(html)

	if printStats {
		fmt.Fprintf(os.Stderr, "instances=%d deferred=%d timeouts=%d dedup_hits=%d duration=%s\n",
			passStats.Instances, passStats.Deferred, passStats.Timeouts,
			passStats.DedupHits, passStats.Duration)
	}
	return nil
}
