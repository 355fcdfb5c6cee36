// Package history keeps a SQLite ledger of category runs
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nobbyfix/AzurLaneTools/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339Nano

// Ledger records runs in a SQLite database
type Ledger struct {
	db *sql.DB
}

// Run is a recorded category run
type Run struct {
	ID int64
	models.RunRecord
}

// FileEntry is the recorded outcome of one asset of a run
type FileEntry struct {
	Path        string
	CompareType models.CompareType
	Outcome     models.DownloadType
	Error       string
}

// Open opens or creates the ledger database at path
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	if _, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := l.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := l.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// Record stores a run and every asset outcome other than NoChange
func (l *Ledger) Record(ctx context.Context, rec models.RunRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	s := rec.Stats
	res, err := tx.ExecContext(ctx, `INSERT INTO runs (
		run_id, client, category, source, old_version, new_version,
		started_at, finished_at, status, error,
		files_new, files_changed, files_deleted, files_unchanged,
		files_downloaded, files_removed, files_failed, files_skipped, bytes_transferred
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, string(rec.Client), string(rec.Category), rec.Source, rec.OldVersion, rec.NewVersion,
		rec.StartedAt.UTC().Format(timeLayout), rec.FinishedAt.UTC().Format(timeLayout), rec.Status, rec.Error,
		s.FilesNew, s.FilesChanged, s.FilesDeleted, s.FilesUnchanged,
		s.FilesDownloaded, s.FilesRemoved, s.FilesFailed, s.FilesSkipped, s.BytesTransferred,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO run_files (run, path, compare_type, outcome, error) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rec.Results {
		if r.Outcome == models.DownloadNoChange {
			continue
		}
		var errText string
		if r.Err != nil {
			errText = r.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx, id, r.Path, string(r.Compare.Type), string(r.Outcome), errText); err != nil {
			return fmt.Errorf("insert file %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// List returns the most recent runs of a client, newest first. An empty
// client lists every client; limit <= 0 means no limit.
func (l *Ledger) List(ctx context.Context, client models.Client, limit int) ([]Run, error) {
	query := `SELECT id, run_id, client, category, source, old_version, new_version,
		started_at, finished_at, status, error,
		files_new, files_changed, files_deleted, files_unchanged,
		files_downloaded, files_removed, files_failed, files_skipped, bytes_transferred
		FROM runs`
	var args []interface{}
	if client != "" {
		query += " WHERE client = ?"
		args = append(args, string(client))
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var clientName, category, started, finished string
		s := &r.Stats
		if err := rows.Scan(
			&r.ID, &r.RunID, &clientName, &category, &r.Source, &r.OldVersion, &r.NewVersion,
			&started, &finished, &r.Status, &r.Error,
			&s.FilesNew, &s.FilesChanged, &s.FilesDeleted, &s.FilesUnchanged,
			&s.FilesDownloaded, &s.FilesRemoved, &s.FilesFailed, &s.FilesSkipped, &s.BytesTransferred,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Client = models.Client(clientName)
		r.Category = models.Category(category)
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Files returns the recorded asset outcomes of a run, sorted by path
func (l *Ledger) Files(ctx context.Context, runID int64) ([]FileEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT path, compare_type, outcome, error FROM run_files WHERE run = ? ORDER BY path", runID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []FileEntry
	for rows.Next() {
		var f FileEntry
		var ct, outcome string
		if err := rows.Scan(&f.Path, &ct, &outcome, &f.Error); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.CompareType = models.CompareType(ct)
		f.Outcome = models.DownloadType(outcome)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}
