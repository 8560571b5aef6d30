package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/automerge/automerge-go"
	_ "github.com/mattn/go-sqlite3"

	"github.com/astromechza/todoboard/pkg/board"
)

// BoardPath is the automerge path under which the board json is kept.
const BoardPath = "board"

const defaultBoardID = "default"

// SQLiteStore keeps the board inside an automerge document stored as a row of
// the boards table. Every save commits a new change to the document, so the
// row carries the full revision history of the board.
type SQLiteStore struct {
	database *sql.DB
	id       string
	lists    int
	doc      *automerge.Doc
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func OpenSQLite(ctx context.Context, path string, lists int) (*SQLiteStore, error) {
	// Transactions take the write lock up front so that concurrent Updates
	// from several processes queue on the busy timeout instead of failing.
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLiteStore{database: db, id: defaultBoardID, lists: lists}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.database.ExecContext(
		ctx,
		`CREATE TABLE IF NOT EXISTS boards (
		id text not null primary key,
		content text
		)`,
	); err != nil {
		return fmt.Errorf("failed to create boards table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (board.Board, error) {
	doc, err := s.History(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, ErrCorrupt) {
		return board.Board{}, err
	}
	s.doc = orNewDoc(doc, err)
	raw, found := boardJSONOrWarn(s.doc)
	return resolve(ctx, raw, found, s.lists, s.initialize)
}

func (s *SQLiteStore) Save(ctx context.Context, b board.Board) error {
	return s.SaveRevision(ctx, b, "save")
}

func (s *SQLiteStore) initialize(ctx context.Context, b board.Board) error {
	return s.SaveRevision(ctx, b, "initialize board")
}

// SaveRevision commits b as a new change with the given message and writes the
// document back to the database.
func (s *SQLiteStore) SaveRevision(ctx context.Context, b board.Board, message string) error {
	if s.doc == nil {
		s.doc = automerge.New()
	}
	if err := commitBoard(s.doc, b, message); err != nil {
		return err
	}
	return s.persist(ctx, s.database, s.doc)
}

// Update re-reads the document inside an immediate transaction, applies fn
// to the latest board and commits the result as a revision named message.
// Other processes writing the same database wait for the transaction.
func (s *SQLiteStore) Update(ctx context.Context, message string, fn UpdateFunc) (board.Board, error) {
	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return board.Board{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.loadDoc(ctx, tx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, ErrCorrupt) {
		return board.Board{}, err
	}
	doc = orNewDoc(doc, err)
	raw, found := boardJSONOrWarn(doc)
	latest, _ := decodeOrDefault(raw, found, s.lists)

	next, err := fn(latest)
	if err != nil {
		return latest, err
	}
	if err := commitBoard(doc, next, message); err != nil {
		return latest, err
	}
	if err := s.persist(ctx, tx, doc); err != nil {
		return latest, err
	}
	if err := tx.Commit(); err != nil {
		return latest, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.doc = doc
	return next, nil
}

// History loads the stored automerge document, including every past revision.
// It returns sql.ErrNoRows when nothing has been saved yet.
func (s *SQLiteStore) History(ctx context.Context) (*automerge.Doc, error) {
	return s.loadDoc(ctx, s.database)
}

func (s *SQLiteStore) loadDoc(ctx context.Context, q querier) (*automerge.Doc, error) {
	var rawContent sql.NullString
	if err := q.QueryRowContext(
		ctx, `SELECT content FROM boards WHERE id = ?`, s.id,
	).Scan(&rawContent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(rawContent.String)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %v", ErrCorrupt, err)
	}
	doc, err := automerge.Load(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load doc: %v", ErrCorrupt, err)
	}
	return doc, nil
}

func (s *SQLiteStore) persist(ctx context.Context, q querier, doc *automerge.Doc) error {
	content := base64.StdEncoding.EncodeToString(doc.Save())
	if _, err := q.ExecContext(
		ctx,
		`INSERT INTO boards (id, content) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content`,
		s.id, content,
	); err != nil {
		return fmt.Errorf("failed to persist board: %w", err)
	}
	return nil
}

// orNewDoc starts a fresh document when loading found nothing usable.
func orNewDoc(doc *automerge.Doc, err error) *automerge.Doc {
	if errors.Is(err, ErrCorrupt) {
		slog.Warn("discarding unreadable board document", "err", err)
	}
	if err != nil || doc == nil {
		return automerge.New()
	}
	return doc
}

func commitBoard(doc *automerge.Doc, b board.Board, message string) error {
	raw, err := Encode(b)
	if err != nil {
		return err
	}
	if err := doc.Path(BoardPath).Set(string(raw)); err != nil {
		return fmt.Errorf("failed to set board in doc: %w", err)
	}
	if _, err := doc.Commit(message, automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return fmt.Errorf("failed to commit doc: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.database.Close()
}

// BoardAt extracts the board json held by doc. found is false when the
// document has no board yet.
func BoardAt(doc *automerge.Doc) (board.Board, bool, error) {
	raw, found, err := boardJSON(doc)
	if err != nil || !found {
		return board.Board{}, found, err
	}
	b, err := Decode(raw)
	return b, true, err
}

func boardJSONOrWarn(doc *automerge.Doc) ([]byte, bool) {
	raw, found, err := boardJSON(doc)
	if err != nil {
		slog.Warn("discarding unreadable board document", "err", err)
		return nil, false
	}
	return raw, found
}

func boardJSON(doc *automerge.Doc) ([]byte, bool, error) {
	value, err := doc.Path(BoardPath).Get()
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read board: %v", ErrCorrupt, err)
	}
	switch v := value.Interface().(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(v), true, nil
	default:
		return nil, false, fmt.Errorf("%w: board is a %T", ErrCorrupt, v)
	}
}
