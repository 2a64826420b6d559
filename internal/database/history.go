package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/biblioscan/internal/model"
)

// HistoryDB provides SQLite-based storage for crawl sessions and stored
// books.
//
// Design decision: We use a single database file for all sites rather
// than one file per seed. Books can be harvested from several sites
// over time, and the content-hash uniqueness constraint only works when
// every record lives in the same table.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "biblioscan.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; the batch crawler shares this
	// connection across goroutines, so serialize through the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Sessions record one crawl each
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages_visited INTEGER DEFAULT 0,
		books_stored INTEGER DEFAULT 0,
		books_duplicate INTEGER DEFAULT 0,
		truncated INTEGER DEFAULT 0,
		diagnostics TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_seed ON sessions(seed);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Books record every file added to the collection
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_hash TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		title TEXT,
		authors TEXT,
		language TEXT,
		format TEXT,
		source TEXT,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_books_filename ON books(filename);
	CREATE INDEX IF NOT EXISTS idx_books_source ON books(source);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord is one stored crawl session.
type SessionRecord struct {
	ID             int64
	Seed           string
	StartedAt      time.Time
	FinishedAt     time.Time
	PagesVisited   int
	BooksStored    int
	BooksDuplicate int
	Truncated      bool
	Diagnostics    []model.Diagnostic
}

// SaveSession stores a crawl summary and returns its row ID.
func (hdb *HistoryDB) SaveSession(ctx context.Context, summary *model.CrawlSummary) (int64, error) {
	diagJSON, err := json.Marshal(summary.Diagnostics)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize diagnostics: %w", err)
	}

	query := `
	INSERT INTO sessions (seed, started_at, finished_at, pages_visited, books_stored, books_duplicate, truncated, diagnostics)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		summary.Seed,
		summary.StartedAt.UTC().Format(sqliteTimeLayout),
		summary.FinishedAt.UTC().Format(sqliteTimeLayout),
		summary.PagesVisited,
		summary.BooksStored,
		summary.BooksDuplicate,
		summary.Truncated,
		string(diagJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save session: %w", err)
	}

	return result.LastInsertId()
}

// RecentSessions returns the most recent sessions, newest first. A
// limit of zero returns all sessions.
func (hdb *HistoryDB) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
	SELECT id, seed, started_at, finished_at, pages_visited, books_stored, books_duplicate, truncated, diagnostics
	FROM sessions
	ORDER BY started_at DESC, id DESC
	`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var startedAt, finishedAt string
		var diagJSON sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.Seed,
			&startedAt,
			&finishedAt,
			&rec.PagesVisited,
			&rec.BooksStored,
			&rec.BooksDuplicate,
			&rec.Truncated,
			&diagJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		rec.StartedAt = parseTimestamp(startedAt)
		rec.FinishedAt = parseTimestamp(finishedAt)

		if diagJSON.Valid && diagJSON.String != "" {
			if err := json.Unmarshal([]byte(diagJSON.String), &rec.Diagnostics); err != nil {
				rec.Diagnostics = nil
			}
		}

		results = append(results, rec)
	}

	return results, rows.Err()
}

// HasRecentSession checks if a seed was crawled within the specified duration.
func (hdb *HistoryDB) HasRecentSession(ctx context.Context, seed string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM sessions
	WHERE seed = ? AND started_at > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	err := hdb.db.QueryRowContext(ctx, query, seed, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent session: %w", err)
	}

	return count > 0, nil
}

// BookRecord is one stored book's catalog entry.
type BookRecord struct {
	ID          int64
	ContentHash string
	Filename    string
	Title       string
	Authors     string
	Language    string
	Format      string
	Source      string
	AddedAt     time.Time
}

// SaveBook inserts or updates a book record.
// Uses UPSERT so re-crawling the same content refreshes the catalog
// entry instead of failing the uniqueness constraint.
func (hdb *HistoryDB) SaveBook(ctx context.Context, rec *BookRecord) (int64, error) {
	query := `
	INSERT INTO books (content_hash, filename, title, authors, language, format, source)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(content_hash) DO UPDATE SET
		filename = excluded.filename,
		title = excluded.title,
		authors = excluded.authors,
		language = excluded.language,
		format = excluded.format,
		source = excluded.source,
		added_at = CURRENT_TIMESTAMP
	`

	result, err := hdb.db.ExecContext(ctx, query,
		rec.ContentHash,
		rec.Filename,
		rec.Title,
		rec.Authors,
		rec.Language,
		rec.Format,
		rec.Source,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save book: %w", err)
	}

	return result.LastInsertId()
}

// GetBookByHash retrieves a book record by its content hash.
// Returns nil without error when no record exists.
func (hdb *HistoryDB) GetBookByHash(ctx context.Context, contentHash string) (*BookRecord, error) {
	query := `
	SELECT id, content_hash, filename, title, authors, language, format, source, added_at
	FROM books
	WHERE content_hash = ?
	`

	var rec BookRecord
	var addedAt string

	err := hdb.db.QueryRowContext(ctx, query, contentHash).Scan(
		&rec.ID,
		&rec.ContentHash,
		&rec.Filename,
		&rec.Title,
		&rec.Authors,
		&rec.Language,
		&rec.Format,
		&rec.Source,
		&addedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	rec.AddedAt = parseTimestamp(addedAt)
	return &rec, nil
}

// ListBooks returns all book records ordered by filename.
func (hdb *HistoryDB) ListBooks(ctx context.Context) ([]BookRecord, error) {
	query := `
	SELECT id, content_hash, filename, title, authors, language, format, source, added_at
	FROM books
	ORDER BY filename
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var results []BookRecord
	for rows.Next() {
		var rec BookRecord
		var addedAt string

		err := rows.Scan(
			&rec.ID,
			&rec.ContentHash,
			&rec.Filename,
			&rec.Title,
			&rec.Authors,
			&rec.Language,
			&rec.Format,
			&rec.Source,
			&addedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}

		rec.AddedAt = parseTimestamp(addedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// sqliteTimeLayout is the SQLite default datetime format. Session
// timestamps are stored in this layout so the datetime() comparisons
// in HasRecentSession work.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	sqliteTimeLayout,          // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
