package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/astromechza/todoboard/pkg/board"
)

// Client sends commands over REST. Unlike the push channel every command gets
// its own response, so the outcome is known even while other clients mutate
// the board.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme '%s'", u.Scheme)
	}
	return &Client{baseURL: u, http: http.DefaultClient}, nil
}

// Board fetches the whole board.
func (c *Client) Board(ctx context.Context) (board.Board, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL.JoinPath("lists"), nil)
	if err != nil {
		return board.Board{}, err
	}
	defer resp.Body.Close()
	var b board.Board
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return board.Board{}, fmt.Errorf("failed to decode board: %w", err)
	}
	return b.Normalize(), nil
}

// Apply sends cmd to the matching REST route. A 404 is returned as
// board.ErrNotFound and a 400 as board.ErrValidation.
func (c *Client) Apply(ctx context.Context, cmd board.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	var (
		method string
		target *url.URL
		body   any
	)
	todo := strconv.FormatInt(cmd.TodoID, 10)
	switch cmd.Kind {
	case board.KindAddTodo:
		method, target = http.MethodPost, c.baseURL.JoinPath("todos")
		body = map[string]string{"listId": cmd.ListID, "text": cmd.Text}
	case board.KindToggleTodo:
		method, target = http.MethodPut, c.baseURL.JoinPath("todos", todo, "toggle")
	case board.KindDeleteTodo:
		method, target = http.MethodDelete, c.baseURL.JoinPath("todos", todo)
	case board.KindUpdateListName:
		method, target = http.MethodPut, c.baseURL.JoinPath("lists", cmd.ListID)
		body = map[string]string{"name": cmd.Name}
	}
	if cmd.ListID != "" && (cmd.Kind == board.KindToggleTodo || cmd.Kind == board.KindDeleteTodo) {
		target.RawQuery = url.Values{"listId": {cmd.ListID}}.Encode()
	}

	resp, err := c.do(ctx, method, target, body)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) do(ctx context.Context, method string, target *url.URL, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	reason := strings.TrimSpace(string(msg))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", reason, board.ErrNotFound)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%s: %w", reason, board.ErrValidation)
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, reason)
	}
}
