//go:build !darwin || ios

package snoosession

import "context"

func readSafariCookie(_ context.Context) ([]cookieCandidate, []string, error) {
	return nil, []string{"snoosession: Safari supported on macOS only"}, nil
}
