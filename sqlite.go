package snoosession

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver (pure Go).
)

// snapshotCookieDB copies a cookie database (plus WAL sidecars, which may
// hold the newest rows) to a temp directory before opening it. Browsers keep
// their stores locked while running; reading a private copy sidesteps the
// lock without touching the live file.
func snapshotCookieDB(dbPath string) (snapshotPath string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "snoosession-cookies-")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	target := filepath.Join(dir, filepath.Base(dbPath))
	if err := copyFile(dbPath, target); err != nil {
		cleanup()
		return "", nil, err
	}
	_ = copyFileIfExists(dbPath+"-wal", target+"-wal")
	_ = copyFileIfExists(dbPath+"-shm", target+"-shm")

	return target, cleanup, nil
}

func openCookieDB(ctx context.Context, snapshotPath string) (*sql.DB, error) {
	dsn := "file:" + filepath.ToSlash(snapshotPath) + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// hostClause builds a WHERE fragment matching reddit.com, .reddit.com and any
// subdomain, against the given column name.
func hostClause(column string) (string, []any) {
	return column + " = ? OR " + column + " = ? OR " + column + " LIKE ?",
		[]any{cookieHost, "." + cookieHost, "%." + cookieHost}
}
