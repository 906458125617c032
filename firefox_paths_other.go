//go:build (!darwin && !linux && !windows) || (linux && android) || (darwin && ios)

package snoosession

func firefoxRoots() []string {
	return nil
}
