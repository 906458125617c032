package snoosession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
)

// errNotLoggedIn is an internal signal: Reddit served the request but did not
// recognize the cookie as a login. It drives the one-shot refresh below.
var errNotLoggedIn = errors.New("cookie not recognized as a login")

// Authenticate extracts a session cookie from an installed browser, verifies
// it against /api/me.json to learn the username, and persists the session.
// With an empty hint the DefaultBrowsers priority order applies.
func (c *Client) Authenticate(ctx context.Context, hint Browser) (Session, []string, error) {
	ck, warnings, err := c.extract(ctx, hint)
	if err != nil {
		return Session{}, warnings, err
	}

	sess := Session{
		Cookies: map[string]string{ck.Name: ck.Value},
		Browser: ck.Browser,
	}
	username, err := c.verifySession(ctx, sess)
	if err != nil {
		return Session{}, warnings, err
	}
	sess.Username = username

	if err := c.store.Save(sess); err != nil {
		return Session{}, warnings, err
	}
	c.session = &sess
	c.modhash = ""
	return sess, warnings, nil
}

// verifySession checks a candidate cookie against /api/me.json. A cookie the
// browser still stores but Reddit no longer accepts reports
// ErrCredentialNotFound: the recovery (try another browser, or log in again)
// is the same as for a missing cookie.
func (c *Client) verifySession(ctx context.Context, sess Session) (string, error) {
	prev := c.session
	c.session = &sess
	defer func() { c.session = prev }()

	var me struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/api/me.json", nil, &me); err != nil {
		return "", err
	}
	if me.Data.Name == "" {
		return "", fmt.Errorf("%w: %s cookie is no longer accepted by reddit", ErrCredentialNotFound, sess.Browser)
	}
	return me.Data.Name, nil
}

// ensureSession loads the persisted session for an authenticated operation.
// Absence means the user never ran auth: that is ErrSessionExpired, not a
// refresh trigger. A corrupt file is treated the same for control flow but
// keeps the corruption visible in the message.
func (c *Client) ensureSession(ctx context.Context) error {
	_ = ctx
	if c.session != nil {
		return nil
	}
	sess, ok, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if !ok {
		return fmt.Errorf("%w: no saved session, run auth first", ErrSessionExpired)
	}
	c.session = &sess
	return nil
}

// refreshSession re-derives the cookie from the browser recorded in the
// current session (auto-detection when the session was hand-authored without
// one) and persists the result. Called at most once per operation; there is
// no retry loop or backoff, since cookies are valid for months and a human is
// expected to re-run auth when this fails.
func (c *Client) refreshSession(ctx context.Context) error {
	var hint Browser
	username := ""
	if c.session != nil {
		hint = c.session.Browser
		username = c.session.Username
	}

	ck, _, err := c.extract(ctx, hint)
	if err != nil {
		return fmt.Errorf("%w: automatic refresh failed: %v", ErrSessionExpired, err)
	}

	sess := Session{
		Cookies:  map[string]string{ck.Name: ck.Value},
		Browser:  ck.Browser,
		Username: username,
	}
	if err := c.store.Save(sess); err != nil {
		return err
	}
	c.session = &sess
	c.modhash = ""
	return nil
}

var modhashPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"modhash":\s*"([a-zA-Z0-9]+)"`),
	regexp.MustCompile(`modhash["\s:]+([a-z0-9]+)`),
}

// fetchModhash scrapes the CSRF token from the old.reddit front page. A page
// without one means the cookie is not logged in.
func (c *Client) fetchModhash(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode); err != nil {
		return "", err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	for _, pat := range modhashPatterns {
		if m := pat.FindSubmatch(body); m != nil {
			return string(m[1]), nil
		}
	}
	return "", errNotLoggedIn
}

// authedPOST runs one write operation under the refresh policy: if Reddit
// rejects the cookie (401/403, missing modhash, or a USER_REQUIRED error
// body), the session is re-extracted and the request retried exactly once.
func (c *Client) authedPOST(ctx context.Context, path string, form url.Values) (*wireAPIResponse, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	refreshed := false
	for {
		if c.modhash == "" {
			mh, err := c.fetchModhash(ctx)
			if errors.Is(err, errNotLoggedIn) {
				if err := c.refreshOnce(ctx, &refreshed); err != nil {
					return nil, err
				}
				continue
			}
			if err != nil {
				return nil, err
			}
			c.modhash = mh
		}

		form.Set("uh", c.modhash)
		resp, err := c.do(ctx, http.MethodPost, path, nil, form)
		if err != nil {
			return nil, err
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			if !refreshed {
				if err := c.refreshOnce(ctx, &refreshed); err != nil {
					return nil, err
				}
				continue
			}
			if resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("%w: HTTP 403", ErrForbidden)
			}
			return nil, fmt.Errorf("%w: cookie rejected after refresh", ErrSessionExpired)
		}
		if err := statusError(resp.StatusCode); err != nil {
			return nil, err
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, readErr)
		}

		var parsed wireAPIResponse
		if len(body) > 0 {
			if err := json.Unmarshal(body, &parsed); err != nil {
				return nil, fmt.Errorf("%w: invalid JSON response: %v", ErrUpstreamUnavailable, err)
			}
		}
		if parsed.hasError("USER_REQUIRED") {
			if err := c.refreshOnce(ctx, &refreshed); err != nil {
				return nil, err
			}
			continue
		}
		if parsed.hasError("RATELIMIT") {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, parsed.errorString())
		}
		if s := parsed.errorString(); s != "" {
			return nil, fmt.Errorf("%w: reddit rejected the request: %s", ErrForbidden, s)
		}
		return &parsed, nil
	}
}

// authedGET runs an authenticated read (inbox) under the same one-shot
// refresh policy as the writes.
func (c *Client) authedGET(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	refreshed := false
	for {
		resp, err := c.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			_ = resp.Body.Close()
			if !refreshed {
				if err := c.refreshOnce(ctx, &refreshed); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("%w: cookie rejected after refresh", ErrSessionExpired)
		}

		err = func() error {
			defer func() { _ = resp.Body.Close() }()
			if err := statusError(resp.StatusCode); err != nil {
				return err
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("%w: invalid JSON response: %v", ErrUpstreamUnavailable, err)
			}
			return nil
		}()
		return err
	}
}

func (c *Client) refreshOnce(ctx context.Context, refreshed *bool) error {
	if *refreshed {
		return fmt.Errorf("%w: cookie rejected after refresh", ErrSessionExpired)
	}
	if err := c.refreshSession(ctx); err != nil {
		return err
	}
	*refreshed = true
	return nil
}
