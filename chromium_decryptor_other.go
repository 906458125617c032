//go:build (!darwin && !linux && !windows) || (linux && android) || (darwin && ios)

package snoosession

import "time"

func chromiumDecryptor(_ chromiumVendor, _ []chromiumStore, _ time.Duration) (chromiumDecryptFunc, []string, error) {
	return nil, []string{"snoosession: chromium cookie decryption unsupported on this OS"}, nil
}
