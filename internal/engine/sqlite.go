package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLiteConfig configures the bundled SQLite engine.
type SQLiteConfig struct {
	// Path is the database file path. Empty means an in-memory database.
	Path string

	// Seed is SQL executed during bootstrap, after the connection is
	// configured. Useful for loading a schema or fixture data.
	Seed string
}

// SQLite is a single-session SQL shell over a SQLite database.
//
// It implements Engine with shell semantics: statement errors are written
// to the Stderr hook and leave the engine usable, query results are
// rendered as text lines through the Stdout hook, and only
// connection-terminal conditions (corrupt database, closed handle) surface
// as *ExitError.
type SQLite struct {
	log    *slog.Logger
	cfg    SQLiteConfig
	hooks  Hooks
	db     *sql.DB
	closed bool
}

// Compile-time verification that SQLite implements the Engine interface.
var _ Engine = (*SQLite)(nil)

// NewSQLite creates a SQLite engine. Bind must be called before Load.
func NewSQLite(log *slog.Logger, cfg SQLiteConfig) *SQLite {
	return &SQLite{
		log:   log.With("component", "sqlite_engine"),
		cfg:   cfg,
		hooks: Hooks{}.normalize(),
	}
}

// Bind implements Engine.
func (e *SQLite) Bind(h Hooks) {
	e.hooks = h.normalize()
}

// Load implements Engine. The bootstrap runs a fixed sequence of steps,
// reporting the remaining unit count through the Progress hook before each
// one and a final zero once every step completed.
func (e *SQLite) Load(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"open", e.open},
		{"connect", e.ping},
		{"configure", e.configure},
		{"seed", e.seed},
	}

	for i, step := range steps {
		e.hooks.Progress(len(steps) - i)

		e.log.Debug("Running bootstrap step", "step", step.name)

		if err := step.fn(ctx); err != nil {
			e.log.Error("Bootstrap step failed", "step", step.name, "error", err)

			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	e.hooks.Progress(0)

	e.log.Info("SQLite engine loaded", "path", e.databasePath())

	return nil
}

func (e *SQLite) databasePath() string {
	if e.cfg.Path == "" {
		return ":memory:"
	}

	return e.cfg.Path
}

func (e *SQLite) open(_ context.Context) error {
	db, err := sql.Open("sqlite3", e.databasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// The engine is a single session: one connection, kept for the whole
	// process lifetime. This also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	e.db = db

	return nil
}

func (e *SQLite) ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	return nil
}

func (e *SQLite) configure(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	return nil
}

func (e *SQLite) seed(ctx context.Context) error {
	if e.cfg.Seed == "" {
		return nil
	}

	if _, err := e.db.ExecContext(ctx, e.cfg.Seed); err != nil {
		return fmt.Errorf("run seed script: %w", err)
	}

	return nil
}

// Exec implements Engine.
func (e *SQLite) Exec(text string) error {
	if e.closed || e.db == nil {
		return &ExitError{Reason: "database handle is closed"}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if isQuery(text) {
		return e.runQuery(text)
	}

	return e.runStatement(text)
}

// runQuery renders the result set as text lines: a pipe-joined column
// header followed by one line per row, all delivered in a single Stdout
// hook call so the per-call bundling survives downstream.
func (e *SQLite) runQuery(text string) error {
	rows, err := e.db.Query(text)
	if err != nil {
		return e.commandError(err)
	}

	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return e.commandError(err)
	}

	lines := []string{strings.Join(cols, "|")}

	values := make([]any, len(cols))
	for i := range values {
		values[i] = new(any)
	}

	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return e.commandError(err)
		}

		fields := make([]string, len(cols))
		for i, v := range values {
			fields[i] = formatValue(*v.(*any))
		}

		lines = append(lines, strings.Join(fields, "|"))
	}

	if err := rows.Err(); err != nil {
		return e.commandError(err)
	}

	e.hooks.Stdout(lines...)

	return nil
}

// runStatement executes a non-query statement. Success is silent, like the
// sqlite3 shell.
func (e *SQLite) runStatement(text string) error {
	if _, err := e.db.Exec(text); err != nil {
		return e.commandError(err)
	}

	return nil
}

// commandError routes a statement failure: terminal conditions become
// *ExitError, everything else is shell output on the Stderr hook and the
// engine stays usable.
func (e *SQLite) commandError(err error) error {
	if exit := classifyExit(err); exit != nil {
		e.log.Error("Terminal engine fault", "error", err)

		return exit
	}

	e.log.Debug("Statement error", "error", err)
	e.hooks.Stderr("Error: " + err.Error())

	return nil
}

// Close implements Engine.
func (e *SQLite) Close() error {
	if e.closed {
		return nil
	}

	e.closed = true

	if e.db == nil {
		return nil
	}

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}

// classifyExit reports whether err is a connection-terminal SQLite fault.
func classifyExit(err error) *ExitError {
	var sqliteErr sqlite3.Error

	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return &ExitError{Code: int(sqliteErr.Code), Reason: sqliteErr.Error()}
		}
	}

	if errors.Is(err, sql.ErrConnDone) {
		return &ExitError{Reason: "database connection is gone"}
	}

	return nil
}

// isQuery reports whether text starts a row-returning statement.
func isQuery(text string) bool {
	first := strings.ToUpper(firstKeyword(text))

	switch first {
	case "SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES":
		return true
	default:
		return false
	}
}

func firstKeyword(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	return strings.TrimRight(fields[0], ";")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
