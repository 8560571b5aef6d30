// Package api exposes the board over REST and mounts the websocket push
// channel next to it.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/astromechza/todoboard/pkg/board"
	"github.com/astromechza/todoboard/pkg/hub"
	"github.com/astromechza/todoboard/pkg/push"
)

type server struct {
	hub *hub.Hub
}

// NewRouter returns the http handler serving the REST api and the websocket.
func NewRouter(h *hub.Hub) http.Handler {
	s := &server{hub: h}

	r := mux.NewRouter()
	r.Use(logRequests, allowCORS)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	r.Methods(http.MethodGet).Path("/lists").HandlerFunc(s.getBoard)
	r.Methods(http.MethodGet).Path("/lists/{list}/todos").HandlerFunc(s.getListTodos)
	r.Methods(http.MethodPut).Path("/lists/{list}").HandlerFunc(s.renameList)
	r.Methods(http.MethodGet).Path("/todos").HandlerFunc(s.getTodos)
	r.Methods(http.MethodPost).Path("/todos").HandlerFunc(s.createTodo)
	r.Methods(http.MethodPut).Path("/todos/{todo}/toggle").HandlerFunc(s.toggleTodo)
	r.Methods(http.MethodDelete).Path("/todos/{todo}").HandlerFunc(s.deleteTodo)
	r.Methods(http.MethodOptions).PathPrefix("/").HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})
	r.Path("/ws").Handler(push.Handler(h))

	return r
}

func logRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, writer, request)
		slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
	})
}

func allowCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Access-Control-Allow-Origin", "*")
		writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		handler.ServeHTTP(writer, request)
	})
}

func (s *server) healthz(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "text/plain")
	_, _ = writer.Write([]byte("ok"))
}

func (s *server) getBoard(writer http.ResponseWriter, request *http.Request) {
	b, err := s.hub.Snapshot(request.Context())
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, b)
}

func (s *server) getListTodos(writer http.ResponseWriter, request *http.Request) {
	s.writeListTodos(writer, request, mux.Vars(request)["list"])
}

// getTodos serves the query-string form, GET /todos?listId=list-0. The older
// ?user= parameter is accepted as an alias.
func (s *server) getTodos(writer http.ResponseWriter, request *http.Request) {
	listID := request.URL.Query().Get("listId")
	if listID == "" {
		listID = request.URL.Query().Get("user")
	}
	if listID == "" {
		http.Error(writer, "listId query parameter is required", http.StatusBadRequest)
		return
	}
	s.writeListTodos(writer, request, listID)
}

func (s *server) writeListTodos(writer http.ResponseWriter, request *http.Request, listID string) {
	b, err := s.hub.Snapshot(request.Context())
	if err != nil {
		writeError(writer, err)
		return
	}
	l, ok := b.List(listID)
	if !ok {
		http.Error(writer, "list not found", http.StatusNotFound)
		return
	}
	writeJSON(writer, http.StatusOK, l.Todos)
}

func (s *server) createTodo(writer http.ResponseWriter, request *http.Request) {
	var inputs struct {
		Text   string `json:"text"`
		ListID string `json:"listId"`
		User   string `json:"user"`
	}
	if err := json.NewDecoder(request.Body).Decode(&inputs); err != nil {
		http.Error(writer, "failed to decode body", http.StatusBadRequest)
		return
	}
	if inputs.ListID == "" {
		inputs.ListID = inputs.User
	}
	res, err := s.hub.Apply(request.Context(), board.Command{
		Kind:   board.KindAddTodo,
		ListID: inputs.ListID,
		Text:   inputs.Text,
	})
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, http.StatusCreated, res.Todo)
}

func (s *server) toggleTodo(writer http.ResponseWriter, request *http.Request) {
	id, ok := todoID(writer, request)
	if !ok {
		return
	}
	res, err := s.hub.Apply(request.Context(), board.Command{
		Kind:   board.KindToggleTodo,
		TodoID: id,
		ListID: request.URL.Query().Get("listId"),
	})
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJSON(writer, http.StatusOK, res.Todo)
}

func (s *server) deleteTodo(writer http.ResponseWriter, request *http.Request) {
	id, ok := todoID(writer, request)
	if !ok {
		return
	}
	if _, err := s.hub.Apply(request.Context(), board.Command{
		Kind:   board.KindDeleteTodo,
		TodoID: id,
		ListID: request.URL.Query().Get("listId"),
	}); err != nil {
		writeError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

func (s *server) renameList(writer http.ResponseWriter, request *http.Request) {
	var inputs struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(request.Body).Decode(&inputs); err != nil {
		http.Error(writer, "failed to decode body", http.StatusBadRequest)
		return
	}
	res, err := s.hub.Apply(request.Context(), board.Command{
		Kind:   board.KindUpdateListName,
		ListID: mux.Vars(request)["list"],
		Name:   inputs.Name,
	})
	if err != nil {
		writeError(writer, err)
		return
	}
	if res.List == nil {
		// The rename was a no-op. A REST caller addressed a resource that
		// does not exist, so it still gets a 404.
		http.Error(writer, "list not found", http.StatusNotFound)
		return
	}
	writeJSON(writer, http.StatusOK, res.List)
}

func todoID(writer http.ResponseWriter, request *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(request)["todo"], 10, 64)
	if err != nil || id == 0 {
		// Ids that cannot be parsed can never match a todo.
		http.Error(writer, "todo not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func writeError(writer http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrValidation):
		http.Error(writer, err.Error(), http.StatusBadRequest)
	case errors.Is(err, board.ErrNotFound):
		http.Error(writer, err.Error(), http.StatusNotFound)
	default:
		slog.Error("failed to handle request", "err", err)
		http.Error(writer, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(writer http.ResponseWriter, status int, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}
