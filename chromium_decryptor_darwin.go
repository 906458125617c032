//go:build darwin && !ios

package snoosession

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// chromiumDecryptor builds the decrypt function for macOS. The per-vendor
// Safe Storage password lives in the login keychain; reading it may pop an
// interactive authorization prompt, which is outside our control. A refusal
// is reported as an error distinct from "cookie not present".
func chromiumDecryptor(vendor chromiumVendor, _ []chromiumStore, timeout time.Duration) (chromiumDecryptFunc, []string, error) {
	password, err := macosKeychainPassword(timeout, vendor.safeStorageService, vendor.safeStorageAccount)
	if err != nil {
		return nil, []string{fmt.Sprintf("snoosession: macOS keychain read failed (%s): %v", vendor.safeStorageService, err)}, err
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return nil, nil, fmt.Errorf("keychain returned an empty %s password", vendor.safeStorageService)
	}

	key := chromiumDeriveKey(password, chromiumKDFItersMacOS)
	return func(encrypted []byte, metaVersion int64) ([]byte, bool) {
		plain, err := chromiumDecryptCBC(encrypted, key, metaVersion, true)
		return plain, err == nil
	}, nil, nil
}

func macosKeychainPassword(timeout time.Duration, service, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, stderr, err := execCapture(ctx, "security",
		"find-generic-password", "-w", "-a", account, "-s", service)
	if err != nil {
		if stderr != "" {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
		}
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
