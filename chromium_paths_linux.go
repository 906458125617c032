//go:build linux && !android

package snoosession

import (
	"os"
	"path/filepath"
)

// chromiumUserDataDirs lists the candidate user-data roots for a browser,
// including snap and flatpak installs, which relocate the profile directory.
func chromiumUserDataDirs(b Browser) []string {
	base := xdgConfigHome()
	home, _ := os.UserHomeDir()

	switch b {
	case BrowserChrome:
		return pruneEmpty(
			filepath.Join(base, "google-chrome"),
			filepath.Join(base, "google-chrome-beta"),
			filepath.Join(base, "google-chrome-unstable"),
			snapPath(home, "google-chrome", "common", "google-chrome"),
			flatpakPath(home, "com.google.Chrome", "google-chrome"),
		)
	case BrowserChromium:
		return pruneEmpty(
			filepath.Join(base, "chromium"),
			snapPath(home, "chromium", "common", "chromium"),
			flatpakPath(home, "org.chromium.Chromium", "chromium"),
		)
	case BrowserEdge:
		return pruneEmpty(
			filepath.Join(base, "microsoft-edge"),
			filepath.Join(base, "microsoft-edge-beta"),
			filepath.Join(base, "microsoft-edge-dev"),
		)
	case BrowserBrave:
		return pruneEmpty(
			filepath.Join(base, "BraveSoftware", "Brave-Browser"),
			filepath.Join(base, "brave-browser"),
			flatpakPath(home, "com.brave.Browser", filepath.Join("BraveSoftware", "Brave-Browser")),
		)
	case BrowserVivaldi:
		return pruneEmpty(filepath.Join(base, "vivaldi"))
	case BrowserOpera:
		return pruneEmpty(filepath.Join(base, "opera"))
	default:
		return nil
	}
}

func snapPath(home, pkg string, rest ...string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(append([]string{home, "snap", pkg}, rest...)...)
}

func flatpakPath(home, appID, configDir string) string {
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".var", "app", appID, "config", configDir)
}

func pruneEmpty(paths ...string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}
