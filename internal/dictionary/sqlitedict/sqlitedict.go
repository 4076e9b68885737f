// Package sqlitedict stores a dictionary in SQLite. Entries use the same
// command list encoding as the binary format, so the two convert losslessly.
package sqlitedict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/serial"
	"stembed/internal/stroke"
)

const (
	metaLayout  = "layout"
	metaLongest = "longest_outline"
)

// ErrEmptyOutline is returned when storing an outline with no strokes.
var ErrEmptyOutline = errors.New("sqlitedict: empty outline")

// Config configures Open.
type Config[O any] struct {
	Layout   *stroke.Layout
	Codec    serial.Codec[O]
	Fallback dictionary.Fallback[O]

	// LongestOutline overrides the bound recorded in the database. Zero
	// uses the recorded value, or dictionary.DefaultLongestOutline.
	LongestOutline int

	Logger *slog.Logger
}

// Dictionary is a SQLite-backed dictionary.
type Dictionary[O any] struct {
	db       *sql.DB
	layout   *stroke.Layout
	codec    serial.Codec[O]
	fallback dictionary.Fallback[O]
	longest  int
	logger   *slog.Logger
}

var _ dictionary.Dictionary[string] = (*Dictionary[string])(nil)

// PutFunc stores one entry.
type PutFunc[O any] func(outline stroke.Outline, list command.List[O]) error

// Open opens or creates the database at path.
func Open[O any](ctx context.Context, path string, cfg Config[O]) (*Dictionary[O], error) {
	if cfg.Layout == nil || cfg.Codec == nil || cfg.Fallback == nil {
		return nil, errors.New("sqlitedict: layout, codec and fallback are required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	d := &Dictionary[O]{
		db:       db,
		layout:   cfg.Layout,
		codec:    cfg.Codec,
		fallback: cfg.Fallback,
		longest:  cfg.LongestOutline,
		logger:   cfg.Logger,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "sqlitedict")

	if err := d.checkLayout(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if d.longest == 0 {
		d.longest = d.recordedLongest(ctx)
	}
	return d, nil
}

func (d *Dictionary[O]) checkLayout(ctx context.Context) error {
	name, ok, err := d.meta(ctx, metaLayout)
	if err != nil {
		return err
	}
	if !ok {
		return d.setMeta(ctx, metaLayout, d.layout.Name())
	}
	if name != d.layout.Name() {
		return fmt.Errorf("%w: database uses %q, not %q", stroke.ErrLayoutMismatch, name, d.layout.Name())
	}
	return nil
}

func (d *Dictionary[O]) recordedLongest(ctx context.Context) int {
	v, ok, err := d.meta(ctx, metaLongest)
	if err != nil || !ok {
		return dictionary.DefaultLongestOutline
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		d.logger.Warn("ignoring invalid longest outline", "value", v)
		return dictionary.DefaultLongestOutline
	}
	return n
}

func (d *Dictionary[O]) meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read meta %s: %w", key, err)
	}
	return v, true, nil
}

func (d *Dictionary[O]) setMeta(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}

// SetLongestOutline records the outline bound used by later opens.
func (d *Dictionary[O]) SetLongestOutline(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("sqlitedict: invalid longest outline %d", n)
	}
	if err := d.setMeta(ctx, metaLongest, strconv.Itoa(n)); err != nil {
		return err
	}
	d.longest = n
	return nil
}

// Close closes the database.
func (d *Dictionary[O]) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *Dictionary[O]) put(ctx context.Context, db execer, outline stroke.Outline, list command.List[O]) error {
	if len(outline) == 0 {
		return ErrEmptyOutline
	}
	for _, s := range outline {
		if s.Layout() != d.layout {
			return fmt.Errorf("%w: %s", stroke.ErrLayoutMismatch, outline)
		}
	}
	data, err := serial.MarshalCommandList(ctx, d.codec, list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", outline, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO entries (outline, strokes, commands) VALUES (?, ?, ?)
		ON CONFLICT(outline) DO UPDATE SET commands = excluded.commands`,
		outline.Bytes(), len(outline), data)
	if err != nil {
		return fmt.Errorf("insert %s: %w", outline, err)
	}
	return nil
}

// Put stores list under outline, replacing any previous entry.
func (d *Dictionary[O]) Put(ctx context.Context, outline stroke.Outline, list command.List[O]) error {
	return d.put(ctx, d.db, outline, list)
}

// Batch runs fn inside one transaction. The transaction commits only if fn
// returns nil.
func (d *Dictionary[O]) Batch(ctx context.Context, fn func(put PutFunc[O]) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	err = fn(func(outline stroke.Outline, list command.List[O]) error {
		return d.put(ctx, tx, outline, list)
	})
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Delete removes the entry for outline, reporting whether one existed.
func (d *Dictionary[O]) Delete(ctx context.Context, outline stroke.Outline) (bool, error) {
	res, err := d.db.ExecContext(ctx, "DELETE FROM entries WHERE outline = ?", outline.Bytes())
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", outline, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Lookup implements dictionary.Dictionary. Query and decode failures are
// logged and reported as a miss.
func (d *Dictionary[O]) Lookup(ctx context.Context, outline stroke.Outline) (command.List[O], bool) {
	if len(outline) == 0 {
		return nil, false
	}
	var data []byte
	err := d.db.QueryRowContext(ctx, "SELECT commands FROM entries WHERE outline = ?", outline.Bytes()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		d.logger.Debug("lookup treated as miss", "outline", outline.String(), "error", err)
		return nil, false
	}
	list, err := serial.UnmarshalCommandList(ctx, d.codec, data)
	if err != nil {
		d.logger.Debug("lookup treated as miss", "outline", outline.String(), "error", err)
		return nil, false
	}
	return list, true
}

// FallbackCommands implements dictionary.Dictionary.
func (d *Dictionary[O]) FallbackCommands(s stroke.Stroke) command.List[O] {
	return d.fallback(s)
}

// LongestOutlineLength implements dictionary.Dictionary.
func (d *Dictionary[O]) LongestOutlineLength() int { return d.longest }

// Count returns the number of entries.
func (d *Dictionary[O]) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// LongestStored returns the stroke count of the longest stored outline.
func (d *Dictionary[O]) LongestStored(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(strokes), 0) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("longest entry: %w", err)
	}
	return n, nil
}

// Walk visits every entry ordered by outline bytes.
func (d *Dictionary[O]) Walk(ctx context.Context, fn func(outline stroke.Outline, list command.List[O]) error) error {
	rows, err := d.db.QueryContext(ctx, "SELECT outline, strokes, commands FROM entries ORDER BY outline")
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key     []byte
			strokes int
			data    []byte
		)
		if err := rows.Scan(&key, &strokes, &data); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		if len(key) != strokes*d.layout.ByteCount() {
			return fmt.Errorf("sqlitedict: entry of %d bytes does not hold %d strokes", len(key), strokes)
		}
		outline, err := serial.ReadOutline(ctx, bytestream.NewMemory(key), d.layout, strokes)
		if err != nil {
			return fmt.Errorf("decode outline: %w", err)
		}
		list, err := serial.UnmarshalCommandList(ctx, d.codec, data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", outline, err)
		}
		if err := fn(outline, list); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SchemaVersion returns the applied schema version.
func (d *Dictionary[O]) SchemaVersion(ctx context.Context) (int, error) {
	return schemaVersion(ctx, d.db)
}
