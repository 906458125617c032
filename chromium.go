package snoosession

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// chromiumVendor describes one Chromium-family browser: its label and the
// "Safe Storage" secret under which the OS keyring files its cookie key.
type chromiumVendor struct {
	browser Browser
	label   string

	safeStorageService string
	safeStorageAccount string
}

func chromiumVendorFor(b Browser) chromiumVendor {
	switch b {
	case BrowserChrome:
		return chromiumVendor{browser: b, label: "Chrome", safeStorageService: "Chrome Safe Storage", safeStorageAccount: "Chrome"}
	case BrowserChromium:
		return chromiumVendor{browser: b, label: "Chromium", safeStorageService: "Chromium Safe Storage", safeStorageAccount: "Chromium"}
	case BrowserEdge:
		return chromiumVendor{browser: b, label: "Microsoft Edge", safeStorageService: "Microsoft Edge Safe Storage", safeStorageAccount: "Microsoft Edge"}
	case BrowserBrave:
		return chromiumVendor{browser: b, label: "Brave", safeStorageService: "Brave Safe Storage", safeStorageAccount: "Brave"}
	case BrowserVivaldi:
		return chromiumVendor{browser: b, label: "Vivaldi", safeStorageService: "Vivaldi Safe Storage", safeStorageAccount: "Vivaldi"}
	case BrowserOpera:
		return chromiumVendor{browser: b, label: "Opera", safeStorageService: "Opera Safe Storage", safeStorageAccount: "Opera"}
	default:
		return chromiumVendor{browser: b, label: string(b), safeStorageService: fmt.Sprintf("%s Safe Storage", b), safeStorageAccount: string(b)}
	}
}

// chromiumStore is one profile's cookie database.
type chromiumStore struct {
	cookiesDB string
	userData  string
	profile   string
}

func readChromiumCookie(ctx context.Context, vendor chromiumVendor) ([]cookieCandidate, []string, error) {
	stores, warnings := chromiumResolveStores(vendor.browser)
	if len(stores) == 0 {
		return nil, warnings, nil
	}

	decrypt, decryptWarnings, secretErr := chromiumDecryptor(vendor, stores, secretStoreTimeout)
	warnings = append(warnings, decryptWarnings...)

	var out []cookieCandidate
	needsKey := false

	for _, st := range stores {
		snap, cleanup, err := snapshotCookieDB(st.cookiesDB)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("snoosession: failed to copy %s cookies DB: %v", vendor.label, err))
			continue
		}
		func() {
			defer cleanup()

			db, err := openCookieDB(ctx, snap)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("snoosession: failed to open %s cookies DB: %v", vendor.label, err))
				return
			}
			defer func() { _ = db.Close() }()

			metaVersion := chromiumMetaVersion(ctx, db)
			rows, err := chromiumQueryCookie(ctx, db)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("snoosession: failed to read %s cookies: %v", vendor.label, err))
				return
			}

			for _, row := range rows {
				value := row.value
				if value == "" && len(row.encryptedValue) > 0 {
					if decrypt == nil {
						needsKey = true
						continue
					}
					plain, ok := decrypt(row.encryptedValue, metaVersion)
					if !ok {
						needsKey = true
						continue
					}
					decoded, ok := chromiumDecodeValue(plain)
					if !ok {
						continue
					}
					value = decoded
				}
				if value == "" {
					continue
				}
				out = append(out, cookieCandidate{
					value:   value,
					profile: st.profile,
					expires: chromiumExpiry(row.expiresUTC),
				})
			}
		}()
	}

	// Only report the secret-store failure when an encrypted cookie was
	// actually blocked by it; otherwise a missing keyring is irrelevant.
	if len(out) == 0 && needsKey && secretErr != nil {
		return nil, warnings, fmt.Errorf("%w: %s: %v", ErrSecretStore, vendor.label, secretErr)
	}
	return out, warnings, nil
}

type chromiumRow struct {
	value          string
	encryptedValue []byte
	expiresUTC     int64
}

func chromiumQueryCookie(ctx context.Context, db *sql.DB) ([]chromiumRow, error) {
	where, args := hostClause("host_key")
	query := `SELECT value, encrypted_value, expires_utc FROM cookies WHERE name = ? AND (` + where + `) ORDER BY expires_utc DESC`
	args = append([]any{SessionCookieName}, args...)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []chromiumRow
	for rows.Next() {
		var r chromiumRow
		var encrypted []byte
		var expires sql.NullInt64
		if err := rows.Scan(&r.value, &encrypted, &expires); err != nil {
			return nil, err
		}
		r.encryptedValue = encrypted
		if expires.Valid {
			r.expiresUTC = expires.Int64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func chromiumMetaVersion(ctx context.Context, db *sql.DB) int64 {
	var value string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&value); err != nil {
		return 0
	}
	var v int64
	if _, err := fmt.Sscanf(value, "%d", &v); err != nil {
		return 0
	}
	return v
}

// chromiumExpiry converts Chromium's microseconds-since-1601 timestamp.
func chromiumExpiry(expiresUTC int64) *time.Time {
	const windowsToUnixMicros = int64(11644473600000000)
	unixMicros := expiresUTC - windowsToUnixMicros
	if unixMicros <= 0 {
		return nil
	}
	t := time.Unix(0, unixMicros*1000).UTC()
	return &t
}

func chromiumResolveStores(b Browser) ([]chromiumStore, []string) {
	var out []chromiumStore
	var warnings []string
	for _, root := range chromiumUserDataDirs(b) {
		if !dirExists(root) {
			continue
		}
		stores, w := chromiumStoresUnder(root)
		warnings = append(warnings, w...)
		out = append(out, stores...)
	}
	return out, warnings
}

// chromiumStoresUnder enumerates the profiles recorded in a user-data dir's
// Local State, falling back to probing the Default profile when Local State
// is missing or unreadable.
func chromiumStoresUnder(userDataDir string) ([]chromiumStore, []string) {
	raw, err := os.ReadFile(filepath.Join(userDataDir, "Local State"))
	if err != nil {
		return chromiumProfileStores(userDataDir, "Default", "Default"), nil
	}

	var localState struct {
		Profile struct {
			InfoCache map[string]struct {
				Name string `json:"name"`
			} `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(raw, &localState); err != nil {
		return chromiumProfileStores(userDataDir, "Default", "Default"),
			[]string{fmt.Sprintf("snoosession: failed to parse Local State (%s): %v", userDataDir, err)}
	}

	var out []chromiumStore
	for profDir, prof := range localState.Profile.InfoCache {
		name := prof.Name
		if name == "" {
			name = profDir
		}
		out = append(out, chromiumProfileStores(userDataDir, profDir, name)...)
	}
	if len(out) == 0 {
		out = chromiumProfileStores(userDataDir, "Default", "Default")
	}
	return out, nil
}

func chromiumProfileStores(userDataDir, profDir, profName string) []chromiumStore {
	var out []chromiumStore
	// Newer Chromium keeps the DB under Network/.
	for _, p := range []string{
		filepath.Join(userDataDir, profDir, "Network", "Cookies"),
		filepath.Join(userDataDir, profDir, "Cookies"),
	} {
		if fileExists(p) {
			out = append(out, chromiumStore{cookiesDB: p, userData: userDataDir, profile: profName})
		}
	}
	return out
}

func envKeySafeStoragePassword(b Browser) string {
	return "SNOOSESSION_" + strings.ToUpper(string(b)) + "_SAFE_STORAGE"
}
