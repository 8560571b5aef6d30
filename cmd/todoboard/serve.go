package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/astromechza/todoboard/pkg/api"
	"github.com/astromechza/todoboard/pkg/hub"
	"github.com/astromechza/todoboard/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board over REST and websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("Opening store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	s, err := store.Open(ctx, storeOptions(cfg))
	if err != nil {
		return err
	}
	defer s.Close()

	var opts []hub.Option
	var relay *hub.Relay
	if cfg.Redis.Addr != "" {
		if relay, err = hub.NewRelay(redisOptions(cfg), cfg.Redis.Instance); err != nil {
			return err
		}
		defer relay.Close()
		opts = append(opts, hub.WithPublisher(relay))
	}
	h := hub.New(s, opts...)

	b, err := h.Snapshot(ctx)
	if err != nil {
		return err
	}
	total, completed := b.TodoCount()
	slog.Info("Loaded board", "lists", len(b.Lists), "todos", total, "completed", completed)

	if relay != nil {
		if err := relay.Listen(ctx, h); err != nil {
			return err
		}
		slog.Info("Relaying board events", "redis", cfg.Redis.Addr, "instance", cfg.Redis.Instance, "origin", relay.Origin())
	}

	httpServer := &http.Server{
		Addr:        cfg.Addr,
		Handler:     api.NewRouter(h),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
			cancel()
		}
	}()

	exit := make(chan os.Signal, 1) // buffered so the notifier is never blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down cleanly", "err", err)
	}
	wg.Wait()
	return nil
}
