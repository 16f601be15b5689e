package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/FlyMan2612/DocCrawler/internal/model"
)

// dbFileName is the SQLite file created inside the data directory.
const dbFileName = "docscoop.db"

// ScanDB stores scan reports in SQLite.
type ScanDB struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the scan database under dbDir.
func Open(dbDir string) (*ScanDB, error) {
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer; a larger pool only causes lock errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &ScanDB{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates the schema if it does not exist.
func (s *ScanDB) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id              TEXT PRIMARY KEY,
	seed            TEXT NOT NULL,
	max_depth       INTEGER NOT NULL,
	anonymous       INTEGER NOT NULL,
	started_at      TIMESTAMP NOT NULL,
	finished_at     TIMESTAMP,
	pages_crawled   INTEGER NOT NULL,
	documents_found INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_id      TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	url          TEXT NOT NULL,
	content_hash TEXT,
	size         INTEGER,
	analyzed     INTEGER NOT NULL,
	is_sensitive INTEGER NOT NULL,
	analysis     TEXT,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_scan_id ON documents(scan_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveScanReport stores a completed scan and its per-document results
// in one transaction.
func (s *ScanDB) SaveScanReport(ctx context.Context, report *model.ScanReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (id, seed, max_depth, anonymous, started_at, finished_at, pages_crawled, documents_found)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Seed, report.MaxDepth, report.Anonymous,
		report.StartedAt, report.FinishedAt, report.PagesCrawled, len(report.DocumentURLs),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	for _, d := range report.Documents {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (scan_id, url, content_hash, size, analyzed, is_sensitive, analysis, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID, d.URL, d.ContentHash, d.Size, d.Analyzed, d.Sensitive, d.Analysis, d.Error,
		)
		if err != nil {
			return fmt.Errorf("insert document %s: %w", d.URL, err)
		}
	}

	return tx.Commit()
}

// ScanSummary is one row of scan history.
type ScanSummary struct {
	ID             string
	Seed           string
	StartedAt      time.Time
	PagesCrawled   int
	DocumentsFound int
}

// RecentScans returns up to limit scans, newest first.
func (s *ScanDB) RecentScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seed, started_at, pages_crawled, documents_found
		 FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []ScanSummary
	for rows.Next() {
		var sum ScanSummary
		if err := rows.Scan(&sum.ID, &sum.Seed, &sum.StartedAt, &sum.PagesCrawled, &sum.DocumentsFound); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SensitiveDocuments returns all documents ever flagged sensitive,
// across scans, newest scan first.
func (s *ScanDB) SensitiveDocuments(ctx context.Context) ([]*model.DocumentResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.url, d.content_hash, d.size, d.analyzed, d.is_sensitive, d.analysis, d.error
		 FROM documents d JOIN scans sc ON sc.id = d.scan_id
		 WHERE d.is_sensitive = 1 ORDER BY sc.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []*model.DocumentResult
	for rows.Next() {
		var d model.DocumentResult
		if err := rows.Scan(&d.URL, &d.ContentHash, &d.Size, &d.Analyzed, &d.Sensitive, &d.Analysis, &d.Error); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Path returns the database file path.
func (s *ScanDB) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *ScanDB) Close() error {
	return s.db.Close()
}
