package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/astromechza/todoboard/pkg/printer"
	"github.com/astromechza/todoboard/pkg/push"
	"github.com/astromechza/todoboard/pkg/render"
)

var (
	serverURL string
	showEmpty bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the board every time it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		watchContinuously(ctx)
		return nil
	},
}

func init() {
	for _, cmd := range append(mutationCmds(), watchCmd) {
		cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:5000", "the todoboard server to talk to")
		cmd.Flags().BoolVar(&showEmpty, "all", false, "show lists without todos")
	}
}

// watchContinuously reconnects after every dropped connection until ctx is done.
func watchContinuously(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		if err := watchOnce(ctx); err != nil {
			slog.Error("failed to watch", "err", err)
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			slog.Info("stopping watch")
			return
		}
	}
}

func watchOnce(ctx context.Context) error {
	c, err := push.Dial(ctx, serverURL)
	if err != nil {
		return err
	}
	defer c.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	printer.Success("connected to %s\n", serverURL)
	for {
		b, err := c.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		// Clear the screen so the latest board is the only one visible.
		fmt.Fprint(os.Stdout, "\033[H\033[2J")
		fmt.Fprint(os.Stdout, render.Board(b, render.Options{ShowEmpty: showEmpty}))
	}
}
