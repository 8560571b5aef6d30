package push

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astromechza/todoboard/pkg/board"
)

// Client is the observer side of the push channel.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Dial connects to the websocket endpoint of a todoboard server. baseURL is
// the http address of the server; the scheme is switched to ws or wss.
func Dial(ctx context.Context, baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u = u.JoinPath("ws")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Next blocks until the server pushes the next snapshot.
func (c *Client) Next() (board.Board, error) {
	for {
		mt, p, err := c.conn.ReadMessage()
		if err != nil {
			return board.Board{}, fmt.Errorf("failed to read message: %w", err)
		}
		if mt == websocket.TextMessage {
			return DecodeBoard(p)
		}
	}
}

// Send emits a command. The server answers by pushing a new snapshot.
func (c *Client) Send(cmd board.Command) error {
	frame, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}
