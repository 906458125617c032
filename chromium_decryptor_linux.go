//go:build linux && !android

package snoosession

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

// chromiumDecryptor builds the decrypt function for Linux. v10 values use the
// hardcoded "peanuts" password; v11 values need the per-vendor Safe Storage
// password from the desktop keyring (Secret Service, with secret-tool and
// kwallet-query as fallbacks).
//
// The returned error reports a keyring failure; the function itself is still
// returned so that v10 values remain decryptable.
func chromiumDecryptor(vendor chromiumVendor, _ []chromiumStore, timeout time.Duration) (chromiumDecryptFunc, []string, error) {
	password, lookupErr := linuxSafeStoragePassword(vendor, timeout)

	v10Key := chromiumDeriveKey("peanuts", chromiumKDFItersLinux)
	emptyKey := chromiumDeriveKey("", chromiumKDFItersLinux)
	v11Key := chromiumDeriveKey(password, chromiumKDFItersLinux)

	fn := func(encrypted []byte, metaVersion int64) ([]byte, bool) {
		if len(encrypted) < 3 {
			return nil, false
		}
		var keys [][]byte
		switch string(encrypted[:3]) {
		case "v10":
			keys = [][]byte{v10Key, emptyKey}
		case "v11":
			if lookupErr != nil {
				return nil, false
			}
			keys = [][]byte{v11Key, emptyKey}
		default:
			return nil, false
		}
		for _, key := range keys {
			if plain, err := chromiumDecryptCBC(encrypted, key, metaVersion, false); err == nil {
				return plain, true
			}
		}
		return nil, false
	}

	if lookupErr != nil {
		return fn, []string{fmt.Sprintf("snoosession: %s keyring lookup failed; v11 cookies unavailable: %v", vendor.label, lookupErr)}, lookupErr
	}
	return fn, nil, nil
}

func linuxSafeStoragePassword(vendor chromiumVendor, timeout time.Duration) (string, error) {
	// Escape hatch for deterministic tooling/CI.
	if override := strings.TrimSpace(os.Getenv(envKeySafeStoragePassword(vendor.browser))); override != "" {
		return override, nil
	}

	if pw, err := keyring.Get(vendor.safeStorageService, vendor.safeStorageAccount); err == nil && strings.TrimSpace(pw) != "" {
		return strings.TrimSpace(pw), nil
	}

	if pw, err := linuxSecretToolLookup(timeout, vendor.safeStorageService, vendor.safeStorageAccount); err == nil && pw != "" {
		return pw, nil
	}

	pw, err := linuxKWalletLookup(timeout, vendor.safeStorageService, vendor.safeStorageAccount)
	if err != nil {
		return "", fmt.Errorf("no usable keyring backend for %s", vendor.safeStorageService)
	}
	return pw, nil
}

func linuxSecretToolLookup(timeout time.Duration, service, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, _, err := execCapture(ctx, "secret-tool", "lookup", "service", service, "account", account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

func linuxKWalletLookup(timeout time.Duration, service, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	folder := account + " Keys"
	stdout, _, err := execCapture(ctx, "kwallet-query", "--read-password", service, "--folder", folder, "kdewallet")
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(stdout)
	if out == "" || strings.HasPrefix(strings.ToLower(out), "failed to read") {
		return "", fmt.Errorf("kwallet-query returned no password")
	}
	return out, nil
}
