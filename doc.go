// Package snoosession drives a Reddit account through the legacy JSON
// endpoints of old.reddit.com using a browser session cookie instead of an
// API key.
//
// The session cookie is discovered in the cookie stores of locally installed
// browsers (Chrome-family, Firefox, Safari), decrypted where the browser
// encrypts it, persisted to a local session file, and refreshed automatically
// when Reddit stops accepting it.
//
// This is intended for local tooling acting as a single human account. It
// reads local browser state and may trigger keychain/keyring prompts; it
// should not be used in server contexts.
package snoosession
