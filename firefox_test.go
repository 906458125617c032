package snoosession

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// firefoxTestRoot redirects the home-relative Firefox root into a temp dir and
// returns it.
func firefoxTestRoot(t *testing.T) string {
	t.Helper()
	home := t.TempDir()

	switch runtime.GOOS {
	case "darwin":
		t.Setenv("HOME", home)
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	case "linux":
		t.Setenv("HOME", home)
		return filepath.Join(home, ".mozilla", "firefox")
	case "windows":
		t.Setenv("APPDATA", filepath.Join(home, "AppData", "Roaming"))
		return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox")
	default:
		t.Skip("no firefox root discovery on this OS")
		return ""
	}
}

func writeFirefoxProfile(t *testing.T, root, profileDir string, rows [][]any) {
	t.Helper()

	dir := filepath.Join(root, profileDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	ini := "[Profile0]\nName=default\nIsRelative=1\nPath=" + filepath.ToSlash(profileDir) + "\n\n"
	if err := os.WriteFile(filepath.Join(root, "profiles.ini"), []byte(ini), 0o644); err != nil {
		t.Fatal(err)
	}

	db := openTestSQLite(t, filepath.Join(dir, "cookies.sqlite"))
	if _, err := db.Exec(`CREATE TABLE moz_cookies(host TEXT, name TEXT, value TEXT, path TEXT, expiry INTEGER, isSecure INTEGER, isHttpOnly INTEGER, sameSite INTEGER)`); err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		if _, err := db.Exec(
			`INSERT INTO moz_cookies(host,name,value,path,expiry,isSecure,isHttpOnly,sameSite) VALUES(?,?,?,?,?,?,?,?)`,
			row...,
		); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExtractCookie_Firefox_DiscoveryViaProfilesINI(t *testing.T) {
	root := firefoxTestRoot(t)
	future := time.Now().Add(24 * time.Hour).Unix()
	writeFirefoxProfile(t, root, filepath.Join("Profiles", "abcd.default-release"), [][]any{
		{".reddit.com", SessionCookieName, "firefox-session-value", "/", future, 1, 1, 2},
		{".reddit.com", "csv", "other-cookie", "/", future, 1, 1, 2},
		{".example.com", SessionCookieName, "wrong-host", "/", future, 1, 1, 2},
	})

	ck, warnings, err := ExtractCookie(context.Background(), BrowserFirefox)
	if err != nil {
		t.Fatalf("err=%v warnings=%v", err, warnings)
	}
	if ck.Value != "firefox-session-value" {
		t.Fatalf("value %q", ck.Value)
	}
	if ck.Browser != BrowserFirefox || ck.Name != SessionCookieName {
		t.Fatalf("cookie %+v", ck)
	}
	if ck.Profile != "default" {
		t.Fatalf("profile %q", ck.Profile)
	}
}

func TestExtractCookie_Firefox_ExpiredCookieSkipped(t *testing.T) {
	root := firefoxTestRoot(t)
	past := time.Now().Add(-time.Hour).Unix()
	writeFirefoxProfile(t, root, filepath.Join("Profiles", "abcd.default-release"), [][]any{
		{".reddit.com", SessionCookieName, "long-gone", "/", past, 1, 1, 2},
	})

	_, _, err := ExtractCookie(context.Background(), BrowserFirefox)
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("got %v, want ErrCredentialNotFound", err)
	}
}
