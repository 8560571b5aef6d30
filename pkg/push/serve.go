package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astromechza/todoboard/pkg/board"
	"github.com/astromechza/todoboard/pkg/hub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 64 * 1024
)

func readAndApplyCommand(ctx context.Context, conn *websocket.Conn, h *hub.Hub) error {
	mt, p, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	if mt != websocket.TextMessage {
		return nil
	}
	cmd, err := DecodeCommand(p)
	if err == nil {
		_, err = h.Apply(ctx, cmd)
	}
	if err != nil {
		if !errors.Is(err, board.ErrValidation) && !errors.Is(err, board.ErrNotFound) {
			return fmt.Errorf("failed to apply command: %w", err)
		}
		// There is no error channel back to the client, so the rejected
		// command is answered with the unchanged board.
		slog.Debug("dropping command", "err", err)
		if err := h.Broadcast(ctx); err != nil {
			return fmt.Errorf("failed to broadcast: %w", err)
		}
	}
	return nil
}

func writeSnapshot(conn *websocket.Conn, b board.Board) error {
	frame, err := EncodeBoard(b)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Serve subscribes conn to h and applies the commands it sends until either
// side goes away or ctx is done.
func Serve(ctx context.Context, conn *websocket.Conn, h *hub.Hub) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := h.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()
	slog.Info("observer connected", "subscription", sub.ID(), "remote", conn.RemoteAddr().String())

	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		defer conn.Close()
		for {
			if err := readAndApplyCommand(ctx, conn, h); err != nil {
				slog.Debug("stopped reading", "subscription", sub.ID(), "err", err)
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		defer conn.Close()

		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case b, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := writeSnapshot(conn, b); err != nil {
					slog.Debug("stopped writing", "subscription", sub.ID(), "err", err)
					return
				}
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					slog.Debug("ping failed", "subscription", sub.ID(), "err", err)
					return
				}
			case <-ctx.Done():
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait),
				)
				return
			}
		}
	}()

	wg.Wait()
	slog.Info("observer disconnected", "subscription", sub.ID())
	return nil
}

// Handler upgrades the request to a websocket and serves it until the
// connection ends.
func Handler(h *hub.Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return func(writer http.ResponseWriter, request *http.Request) {
		conn, err := upgrader.Upgrade(writer, request, nil)
		if err != nil {
			slog.Error("failed to upgrade", "err", err)
			return
		}
		defer conn.Close()

		if err := Serve(request.Context(), conn, h); err != nil {
			slog.Error("failed to serve observer", "err", err)
		}
	}
}
