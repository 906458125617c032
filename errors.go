package snoosession

import "errors"

// Error kinds. Callers classify with errors.Is; every error returned by this
// package wraps exactly one of these (or is a plain I/O error from setup
// paths that never reached Reddit).
var (
	// ErrCredentialNotFound means no installed browser held a usable
	// reddit_session cookie. Browser not installed, cookie absent, and
	// cookie already expired all report this: the recovery is the same
	// (log in with a browser, or try another one).
	ErrCredentialNotFound = errors.New("snoosession: no reddit_session cookie found")

	// ErrSecretStore means a cookie store exists but the OS secret store
	// refused or failed to yield the decryption key (keychain denied,
	// keyring unavailable). Distinct from ErrCredentialNotFound because
	// the cookie may well be there.
	ErrSecretStore = errors.New("snoosession: OS secret store denied or unavailable")

	// ErrSessionCorrupt means the session file exists but could not be
	// parsed. Treated like an absent session for refresh purposes.
	ErrSessionCorrupt = errors.New("snoosession: session file corrupt")

	// ErrSessionExpired means no valid credential is available for an
	// authenticated operation: there was no session, or Reddit rejected
	// the cookie and a one-shot refresh also failed.
	ErrSessionExpired = errors.New("snoosession: session expired")

	// ErrInvalidInput is a caller contract violation (bad vote direction,
	// submit with both or neither of text/url). Rejected before any
	// network call.
	ErrInvalidInput = errors.New("snoosession: invalid input")

	// ErrInvalidTarget is a malformed or unsupported thing id. Rejected
	// before any network call.
	ErrInvalidTarget = errors.New("snoosession: invalid target")

	// ErrForbidden means Reddit accepted the credential but refused the
	// operation, e.g. deleting content owned by someone else.
	ErrForbidden = errors.New("snoosession: forbidden")

	// ErrUpstreamUnavailable covers network failures, timeouts and 5xx
	// responses. Never retried internally; the caller decides.
	ErrUpstreamUnavailable = errors.New("snoosession: reddit unavailable")

	// ErrRateLimited is an upstream 429 or explicit throttle signal.
	// Never retried internally.
	ErrRateLimited = errors.New("snoosession: rate limited by reddit")
)
