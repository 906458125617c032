package snoosession

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ini/ini"
)

// readFirefoxCookie pulls the session cookie from every Firefox profile
// listed in profiles.ini. Firefox stores cookie values unencrypted, so no
// secret store is involved.
func readFirefoxCookie(ctx context.Context) ([]cookieCandidate, []string, error) {
	dbs, warnings := firefoxCookieDBs()
	if len(dbs) == 0 {
		return nil, warnings, nil
	}

	var out []cookieCandidate
	for _, fdb := range dbs {
		snap, cleanup, err := snapshotCookieDB(fdb.path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("snoosession: failed to copy Firefox cookies DB: %v", err))
			continue
		}
		func() {
			defer cleanup()

			db, err := openCookieDB(ctx, snap)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("snoosession: failed to open Firefox cookies DB: %v", err))
				return
			}
			defer func() { _ = db.Close() }()

			candidates, err := firefoxQueryCookie(ctx, db, fdb.profile)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("snoosession: failed to read Firefox cookies: %v", err))
				return
			}
			out = append(out, candidates...)
		}()
	}
	return out, warnings, nil
}

type firefoxDB struct {
	path    string
	profile string
}

func firefoxCookieDBs() ([]firefoxDB, []string) {
	var out []firefoxDB
	for _, root := range firefoxRoots() {
		cfg, err := ini.Load(filepath.Join(root, "profiles.ini"))
		if err != nil {
			continue
		}

		for _, secName := range cfg.SectionStrings() {
			if !strings.HasPrefix(secName, "Profile") {
				continue
			}
			sec := cfg.Section(secName)
			pathStr := filepath.FromSlash(sec.Key("Path").String())
			if pathStr == "" {
				continue
			}
			if sec.Key("IsRelative").String() == "1" {
				pathStr = filepath.Join(root, pathStr)
			}
			dbPath := filepath.Join(pathStr, "cookies.sqlite")
			if !fileExists(dbPath) {
				continue
			}

			prof := sec.Key("Name").String()
			if prof == "" {
				prof = filepath.Base(pathStr)
			}
			out = append(out, firefoxDB{path: dbPath, profile: prof})
		}
	}
	return out, nil
}

func firefoxQueryCookie(ctx context.Context, db *sql.DB, profile string) ([]cookieCandidate, error) {
	where, args := hostClause("host")
	query := `SELECT value, expiry FROM moz_cookies WHERE name = ? AND (` + where + `) ORDER BY expiry DESC`
	args = append([]any{SessionCookieName}, args...)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []cookieCandidate
	for rows.Next() {
		var value string
		var expiry sql.NullInt64
		if err := rows.Scan(&value, &expiry); err != nil {
			return nil, err
		}
		c := cookieCandidate{value: value, profile: profile}
		if expiry.Valid && expiry.Int64 > 0 {
			t := time.Unix(expiry.Int64, 0).UTC()
			c.expires = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
