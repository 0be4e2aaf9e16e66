// Package store persists transactions and the category registry in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/fintrack-dev/fintrack/internal/id"
	"github.com/fintrack-dev/fintrack/internal/model"
)

var (
	// ErrUnavailable wraps every failure of the underlying database.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned by lookups of an unknown content hash.
	ErrNotFound = errors.New("transaction not found")
)

const timestampFormat = time.RFC3339Nano

// Store is the deduplicating transaction repository. Each public method is
// one unit of work that has committed by the time it returns.
type Store struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// InsertResult counts the outcome of InsertBatch.
type InsertResult struct {
	New     int `json:"new"`
	Skipped int `json:"skipped"`
}

// StoredCategory is a registry entry as persisted in the categories table.
type StoredCategory struct {
	Name           string
	Keywords       []string
	CreatedAt      time.Time
	LastModifiedAt time.Time
}

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, unavailable("opening database", err)
	}
	// Single writer: uniqueness is enforced by the schema, ordering by the pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("connecting to database", err)
	}
	if err := migrate(db, s.log); err != nil {
		_ = db.Close()
		return nil, unavailable("migrating database", err)
	}

	s.db = db
	s.log.Debug().Str("path", path).Msg("store opened")
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertBatch inserts every transaction whose content hash is not stored yet.
// Existing rows are left untouched and counted as skipped, so re-running a
// batch only adds what is missing. Invalid records fail the whole call
// before anything is written.
func (s *Store) InsertBatch(ctx context.Context, txns []model.Transaction) (InsertResult, error) {
	if errs := ValidateTransactions(txns); len(errs) > 0 {
		return InsertResult{}, joinValidation(errs)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertResult{}, unavailable("beginning insert", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions
			(content_hash, value_date, description, amount_cents, kind, category, uploaded_at, last_modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_hash) DO NOTHING
	`)
	if err != nil {
		return InsertResult{}, unavailable("preparing insert", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	var res InsertResult
	for _, t := range txns {
		category := t.Category
		if category == "" {
			category = model.Uncategorized
		}
		r, err := stmt.ExecContext(ctx,
			t.ContentHash,
			t.ValueDate.Format(id.DateFormat),
			t.Description,
			toCents(t.Amount),
			string(t.Kind),
			category,
			now,
			now,
		)
		if err != nil {
			return InsertResult{}, unavailable("inserting transaction", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return InsertResult{}, unavailable("inserting transaction", err)
		}
		if n > 0 {
			res.New++
			s.log.Debug().Str("hash", id.ShortHash(t.ContentHash)).Str("description", t.Description).Msg("added")
		} else {
			res.Skipped++
			s.log.Debug().Str("hash", id.ShortHash(t.ContentHash)).Str("description", t.Description).Msg("skipping duplicate")
		}
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, unavailable("committing insert", err)
	}
	return res, nil
}

// LoadAll returns every stored transaction, newest value date first and
// insertion order within a day.
func (s *Store) LoadAll(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, value_date, description, amount_cents, kind, category, uploaded_at, last_modified_at
		FROM transactions
		ORDER BY value_date DESC, id ASC
	`)
	if err != nil {
		return nil, unavailable("querying transactions", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading transactions", err)
	}
	return out, nil
}

// Get returns one transaction by content hash.
func (s *Store) Get(ctx context.Context, hash string) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_hash, value_date, description, amount_cents, kind, category, uploaded_at, last_modified_at
		FROM transactions
		WHERE content_hash = ?
	`, hash)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id.ShortHash(hash))
	}
	return t, err
}

// UpdateCategory sets the category of one transaction. An unknown hash is
// a no-op so retries stay idempotent.
func (s *Store) UpdateCategory(ctx context.Context, hash, category string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, last_modified_at = ?
		WHERE content_hash = ?
	`, category, s.timestamp(), hash)
	if err != nil {
		return unavailable("updating category", err)
	}
	return nil
}

// UpdateCategoryByDescription sets the category of every transaction whose
// description equals description exactly. It returns the number of rows changed.
func (s *Store) UpdateCategoryByDescription(ctx context.Context, description, category string) (int64, error) {
	r, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, last_modified_at = ?
		WHERE description = ?
	`, category, s.timestamp(), description)
	if err != nil {
		return 0, unavailable("updating categories by description", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, unavailable("updating categories by description", err)
	}
	return n, nil
}

// SyncCategoryRegistry upserts every category of the registry by name.
// Creation timestamps of existing categories are preserved.
func (s *Store) SyncCategoryRegistry(ctx context.Context, registry map[string][]string) error {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning category sync", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.timestamp()
	for _, name := range names {
		kws := registry[name]
		if kws == nil {
			kws = []string{}
		}
		data, err := json.Marshal(kws)
		if err != nil {
			return fmt.Errorf("encoding keywords for %q: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO categories (name, keywords, created_at, last_modified_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET
				keywords = excluded.keywords,
				last_modified_at = excluded.last_modified_at
		`, name, string(data), now, now)
		if err != nil {
			return unavailable(fmt.Sprintf("syncing category %q", name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing category sync", err)
	}
	return nil
}

// Categories returns the persisted registry in creation order.
func (s *Store) Categories(ctx context.Context) ([]StoredCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, keywords, created_at, last_modified_at
		FROM categories
		ORDER BY id
	`)
	if err != nil {
		return nil, unavailable("querying categories", err)
	}
	defer rows.Close()

	var out []StoredCategory
	for rows.Next() {
		var c StoredCategory
		var kws, created, modified string
		if err := rows.Scan(&c.Name, &kws, &created, &modified); err != nil {
			return nil, unavailable("scanning category", err)
		}
		if err := json.Unmarshal([]byte(kws), &c.Keywords); err != nil {
			return nil, fmt.Errorf("decoding keywords for %q: %w", c.Name, err)
		}
		if c.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		if c.LastModifiedAt, err = parseTimestamp(modified); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading categories", err)
	}
	return out, nil
}

// Statistics returns the total count, per-category counts (largest first)
// and the value date range. It has no side effects.
func (s *Store) Statistics(ctx context.Context) (model.Statistics, error) {
	var stats model.Statistics

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&stats.TotalCount); err != nil {
		return model.Statistics{}, unavailable("counting transactions", err)
	}

	counts, err := s.categoryCounts(ctx)
	if err != nil {
		return model.Statistics{}, err
	}
	stats.CategoryCounts = counts

	var minDate, maxDate sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(value_date), MAX(value_date) FROM transactions`).Scan(&minDate, &maxDate); err != nil {
		return model.Statistics{}, unavailable("reading date range", err)
	}
	if minDate.Valid && maxDate.Valid {
		from, err := time.Parse(id.DateFormat, minDate.String)
		if err != nil {
			return model.Statistics{}, fmt.Errorf("parsing value date %q: %w", minDate.String, err)
		}
		to, err := time.Parse(id.DateFormat, maxDate.String)
		if err != nil {
			return model.Statistics{}, fmt.Errorf("parsing value date %q: %w", maxDate.String, err)
		}
		stats.DateRange = &model.DateRange{From: from, To: to}
	}
	return stats, nil
}

func (s *Store) categoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM transactions
		GROUP BY category
		ORDER BY COUNT(*) DESC, category ASC
	`)
	if err != nil {
		return nil, unavailable("counting categories", err)
	}
	defer rows.Close()

	var out []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, unavailable("scanning category count", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading category counts", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var t model.Transaction
	var valueDate, kind, uploaded, modified string
	var cents int64
	err := row.Scan(&t.ID, &t.ContentHash, &valueDate, &t.Description, &cents, &kind, &t.Category, &uploaded, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, err
	}
	if err != nil {
		return model.Transaction{}, unavailable("scanning transaction", err)
	}

	t.ValueDate, err = time.Parse(id.DateFormat, valueDate)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing value date %q: %w", valueDate, err)
	}
	t.Amount = decimal.New(cents, -2)
	t.Kind = model.Kind(kind)
	if t.UploadedAt, err = parseTimestamp(uploaded); err != nil {
		return model.Transaction{}, err
	}
	if t.LastModifiedAt, err = parseTimestamp(modified); err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timestampFormat)
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", v, err)
	}
	return t, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
