package snoosession

import (
	"context"
	"fmt"
	"time"
)

// SessionCookieName is the Reddit login cookie this package extracts.
const SessionCookieName = "reddit_session"

// cookieHost is the domain the cookie is scoped to in browser stores
// (stored as "reddit.com", ".reddit.com" or a subdomain).
const cookieHost = "reddit.com"

// secretStoreTimeout bounds OS helper calls (keychain/keyring lookups).
const secretStoreTimeout = 3 * time.Second

// ExtractedCookie is a decrypted session cookie plus its provenance.
type ExtractedCookie struct {
	Name    string
	Value   string
	Browser Browser
	Profile string
}

// cookieCandidate is one row pulled from a browser store before expiry
// filtering.
type cookieCandidate struct {
	value   string
	profile string
	expires *time.Time
}

// ExtractCookie locates and decrypts the reddit_session cookie from installed
// browsers. With a hint, only that browser is consulted; otherwise the
// DefaultBrowsers order applies and the first live cookie wins.
//
// The returned warnings describe stores that were skipped (locked databases,
// unreadable profiles); they are advisory. The error is ErrCredentialNotFound
// when no browser holds a live cookie, or ErrSecretStore when a store exists
// but the OS refused to yield its decryption key. The decrypted value is
// never logged or written here; only SessionStore persists it.
func ExtractCookie(ctx context.Context, hint Browser) (ExtractedCookie, []string, error) {
	browsers := DefaultBrowsers()
	if hint != "" {
		if !KnownBrowser(hint) {
			return ExtractedCookie{}, nil, fmt.Errorf("%w: unknown browser %q", ErrInvalidInput, hint)
		}
		browsers = []Browser{hint}
	}

	var warnings []string
	var secretErr error
	now := time.Now()

	for _, b := range browsers {
		if err := ctx.Err(); err != nil {
			return ExtractedCookie{}, warnings, err
		}

		candidates, w, err := readBrowserCookie(ctx, b)
		warnings = append(warnings, w...)
		if err != nil {
			// Secret-store denial is remembered but does not stop the
			// scan: another browser may hold an unencrypted cookie.
			secretErr = err
			continue
		}

		for _, c := range candidates {
			if c.value == "" {
				continue
			}
			if c.expires != nil && c.expires.Before(now) {
				continue
			}
			return ExtractedCookie{
				Name:    SessionCookieName,
				Value:   c.value,
				Browser: b,
				Profile: c.profile,
			}, warnings, nil
		}
	}

	if secretErr != nil {
		return ExtractedCookie{}, warnings, secretErr
	}
	return ExtractedCookie{}, warnings, ErrCredentialNotFound
}

func readBrowserCookie(ctx context.Context, b Browser) ([]cookieCandidate, []string, error) {
	switch b {
	case BrowserFirefox:
		return readFirefoxCookie(ctx)
	case BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave, BrowserVivaldi, BrowserOpera:
		return readChromiumCookie(ctx, chromiumVendorFor(b))
	case BrowserSafari:
		return readSafariCookie(ctx)
	default:
		return nil, []string{fmt.Sprintf("snoosession: unsupported browser %q", b)}, nil
	}
}
