package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/isokit/isokit/internal/demo"
	"github.com/isokit/isokit/pkg/outputcache"
	"github.com/isokit/isokit/pkg/vdom"
	"github.com/isokit/isokit/pkg/web"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		delay    time.Duration
		timeout  time.Duration
		cacheDir string
		cacheTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo page over HTTP",
		Long: `Serve the demo page with an output cache, Prometheus metrics at
/metrics, and a live-update WebSocket at /live.

Examples:
  isokit serve
  isokit serve --addr=:8080 --delay=100ms
  isokit serve --cache-dir=/tmp/isokit-cache --cache-ttl=1m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, delay, timeout, cacheDir, cacheTTL)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3000", "Listen address")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Artificial feed fetch delay")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "Feed first-emission timeout")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Persist the output cache here (default in-memory)")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 30*time.Second, "Output cache TTL (0 disables caching)")

	return cmd
}

func runServe(addr string, delay, timeout time.Duration, cacheDir string, cacheTTL time.Duration) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	var store outputcache.Store
	if cacheTTL > 0 {
		var err error
		if cacheDir != "" {
			store, err = outputcache.NewDisk(cacheDir)
		} else {
			store, err = outputcache.NewMemory(256)
		}
		if err != nil {
			return fmt.Errorf("output cache: %w", err)
		}
	}

	feed := demo.NewFeed(delay, timeout)
	server := web.NewServer(web.Config{
		Cache: store,
		TTL: outputcache.TTLPolicy{
			Default:  cacheTTL,
			Degraded: cacheTTL / 10,
		},
		Variant: func(r *http.Request) string {
			return r.URL.Query().Get("user")
		},
		Logger: logger,
	})

	server.HandlePage("/", func(r *http.Request) []*vdom.VNode {
		user := r.URL.Query().Get("user")
		if user == "" {
			user = "ada"
		}
		return demo.Page(user, feed)
	})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
