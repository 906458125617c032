//go:build (!darwin && !linux && !windows) || (linux && android) || (darwin && ios)

package snoosession

func chromiumUserDataDirs(_ Browser) []string {
	return nil
}
