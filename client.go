package snoosession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://old.reddit.com"

	// MaxListingLimit is the upstream page-size cap. Larger requests are
	// silently clamped, not rejected.
	MaxListingLimit = 100

	defaultListingLimit = 25
	defaultTimeout      = 15 * time.Second

	// defaultMinInterval is the courtesy throttle between requests: a
	// best-effort spacing to avoid tripping abuse heuristics, not a
	// guarantee against upstream rate limiting.
	defaultMinInterval = 2 * time.Second
)

// defaultUserAgent looks like the browser that owns the cookie, with an
// honest tool identifier appended.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 snoosession/1.0 (+https://github.com/steipete/snoosession)"

// extractFunc matches ExtractCookie; swappable for tests.
type extractFunc func(ctx context.Context, hint Browser) (ExtractedCookie, []string, error)

// ClientOptions configures a Client. The zero value is usable.
type ClientOptions struct {
	// BaseURL overrides the old.reddit.com endpoint (tests).
	BaseURL string

	// UserAgent overrides the identifying user-agent string.
	UserAgent string

	// HTTPClient overrides the transport. The default carries a 15s
	// timeout; a custom client should too, since no call in this package
	// may block indefinitely.
	HTTPClient *http.Client

	// MinInterval sets the courtesy throttle spacing between requests.
	MinInterval time.Duration

	// Extract overrides browser cookie extraction (tests).
	Extract extractFunc
}

// Client issues read and write operations against the legacy JSON endpoints.
// It holds the Session loaded from its SessionStore and refreshes it through
// the store when Reddit rejects the cookie. One caller at a time per client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	store      *SessionStore
	extract    extractFunc

	session *Session
	modhash string
}

// NewClient returns a client backed by the given session store.
func NewClient(store *SessionStore, opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.Extract == nil {
		opts.Extract = ExtractCookie
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		store:      store,
		extract:    opts.Extract,
	}
}

// do issues one throttled request. The session cookie is attached whenever a
// session is loaded, including on reads, so results reflect the caller's
// account context.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, form url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	// Browser-style headers; old.reddit.com serves different content to
	// clients that do not look like its own frontend.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.session != nil {
		for name, value := range c.session.Cookies {
			req.AddCookie(&http.Cookie{Name: name, Value: value})
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return resp, nil
}

// get runs a read request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	c.loadSessionIfPresent()

	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid JSON response: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// loadSessionIfPresent lazily loads the persisted session so reads carry the
// account cookie when one exists. Absent or corrupt sessions are fine here;
// reads work anonymously.
func (c *Client) loadSessionIfPresent() {
	if c.session != nil {
		return
	}
	if sess, ok, err := c.store.Load(); err == nil && ok {
		c.session = &sess
	}
}

func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	case code >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamUnavailable, code)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamUnavailable, code)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListingLimit
	}
	if limit > MaxListingLimit {
		return MaxListingLimit
	}
	return limit
}

// FetchListing returns one page of a subreddit. Sort is one of hot, new,
// top, rising (default hot). After is the cursor from the previous page's
// Listing, empty for the first page.
func (c *Client) FetchListing(ctx context.Context, subreddit, sort, after string, limit int) (Listing, error) {
	if subreddit == "" {
		return Listing{}, fmt.Errorf("%w: subreddit required", ErrInvalidInput)
	}
	if sort == "" {
		sort = "hot"
	}
	switch sort {
	case "hot", "new", "top", "rising":
	default:
		return Listing{}, fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, sort)
	}

	query := url.Values{"limit": {strconv.Itoa(clampLimit(limit))}}
	if after != "" {
		query.Set("after", after)
	}

	var l wireListing
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/"+sort+".json", query, &l); err != nil {
		return Listing{}, err
	}
	return listingFromWire(l), nil
}

// SearchOptions tune Search. Zero values mean relevance sort, all time,
// default page size, first page.
type SearchOptions struct {
	Sort  string // relevance, hot, top, new, comments
	Time  string // all, hour, day, week, month, year
	After string
	Limit int
}

// Search queries Reddit's search, restricted to a subreddit when one is
// given. Pagination follows the same cursor contract as FetchListing.
func (c *Client) Search(ctx context.Context, subreddit, searchQuery string, opts SearchOptions) (Listing, error) {
	if searchQuery == "" {
		return Listing{}, fmt.Errorf("%w: search query required", ErrInvalidInput)
	}
	if opts.Sort == "" {
		opts.Sort = "relevance"
	}
	if opts.Time == "" {
		opts.Time = "all"
	}

	query := url.Values{
		"q":     {searchQuery},
		"sort":  {opts.Sort},
		"t":     {opts.Time},
		"limit": {strconv.Itoa(clampLimit(opts.Limit))},
	}
	if opts.After != "" {
		query.Set("after", opts.After)
	}

	path := "/search.json"
	if subreddit != "" {
		query.Set("restrict_sr", "on")
		path = "/r/" + url.PathEscape(subreddit) + "/search.json"
	}

	var l wireListing
	if err := c.get(ctx, path, query, &l); err != nil {
		return Listing{}, err
	}
	return listingFromWire(l), nil
}

var bareSubmissionID = regexp.MustCompile(`^[a-zA-Z0-9]{5,10}$`)

// normalizeThreadPath accepts a full Reddit URL, a permalink path, an
// "r/sub/comments/..." fragment or a bare submission id, and returns the
// old.reddit JSON path for the thread.
func normalizeThreadPath(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: permalink required", ErrInvalidInput)
	}

	if bareSubmissionID.MatchString(s) {
		return "/comments/" + s + ".json", nil
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || !strings.HasSuffix(u.Hostname(), "reddit.com") {
			return "", fmt.Errorf("%w: not a reddit URL: %q", ErrInvalidInput, input)
		}
		s = u.EscapedPath()
	}

	s = strings.TrimPrefix(s, "/")
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "", fmt.Errorf("%w: empty thread path in %q", ErrInvalidInput, input)
	}
	if !strings.HasSuffix(s, ".json") {
		s += ".json"
	}
	return "/" + s, nil
}

// FetchThread fetches a post and reconstructs its comment tree in a single
// request. The permalink may be a URL, a path, or a bare post id.
func (c *Client) FetchThread(ctx context.Context, permalink string) (Post, *CommentTree, error) {
	path, err := normalizeThreadPath(permalink)
	if err != nil {
		return Post{}, nil, err
	}

	// The thread endpoint returns two top-level listings: the post, then
	// its comments.
	var payload []wireListing
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return Post{}, nil, err
	}
	if len(payload) == 0 || len(payload[0].Data.Children) == 0 {
		return Post{}, nil, fmt.Errorf("%w: thread payload missing post", ErrUpstreamUnavailable)
	}

	var w wirePost
	if err := json.Unmarshal(payload[0].Data.Children[0].Data, &w); err != nil {
		return Post{}, nil, fmt.Errorf("%w: malformed post: %v", ErrUpstreamUnavailable, err)
	}
	post, err := postFromWire(w)
	if err != nil {
		return Post{}, nil, fmt.Errorf("%w: malformed post id: %v", ErrUpstreamUnavailable, err)
	}

	tree := &CommentTree{}
	if len(payload) > 1 {
		tree = buildCommentTree(payload[1].Data.Children)
	}
	return post, tree, nil
}

// Inbox returns one page of the account's notifications. Requires a session;
// a rejected cookie triggers the one-shot refresh like the write operations.
func (c *Client) Inbox(ctx context.Context, unreadOnly bool, limit int) (MessageListing, error) {
	box := "inbox"
	if unreadOnly {
		box = "unread"
	}
	query := url.Values{"limit": {strconv.Itoa(clampLimit(limit))}}

	var l wireListing
	err := c.authedGET(ctx, "/message/"+box+".json", query, &l)
	if err != nil {
		return MessageListing{}, err
	}
	return messageListingFromWire(l), nil
}

// Comment replies to a post or comment and returns the new comment's id.
func (c *Client) Comment(ctx context.Context, thingID, body string) (ThingID, error) {
	target, err := ParseThingID(thingID)
	if err != nil {
		return ThingID{}, err
	}
	if strings.TrimSpace(body) == "" {
		return ThingID{}, fmt.Errorf("%w: comment body required", ErrInvalidInput)
	}

	form := url.Values{
		"thing_id": {target.String()},
		"text":     {body},
		"api_type": {"json"},
	}
	resp, err := c.authedPOST(ctx, "/api/comment", form)
	if err != nil {
		return ThingID{}, err
	}

	for _, th := range resp.JSON.Data.Things {
		var w wireComment
		if err := json.Unmarshal(th.Data, &w); err != nil {
			continue
		}
		if id, err := parseAnyThingID(w.Name); err == nil {
			return id, nil
		}
	}
	return ThingID{}, fmt.Errorf("%w: comment accepted but no id returned", ErrUpstreamUnavailable)
}

// SubmitContent is the body of a new post: exactly one of Text or URL.
type SubmitContent struct {
	Text string
	URL  string
}

// Submit creates a post and returns its id. Supplying both or neither of
// text/url is a contract violation rejected before any network call.
func (c *Client) Submit(ctx context.Context, subreddit, title string, content SubmitContent) (ThingID, error) {
	if subreddit == "" || title == "" {
		return ThingID{}, fmt.Errorf("%w: subreddit and title required", ErrInvalidInput)
	}
	hasText := content.Text != ""
	hasURL := content.URL != ""
	if hasText == hasURL {
		return ThingID{}, fmt.Errorf("%w: exactly one of text or url required", ErrInvalidInput)
	}

	form := url.Values{
		"sr":       {subreddit},
		"title":    {title},
		"api_type": {"json"},
		"resubmit": {"true"},
	}
	if hasURL {
		form.Set("kind", "link")
		form.Set("url", content.URL)
	} else {
		form.Set("kind", "self")
		form.Set("text", content.Text)
	}

	resp, err := c.authedPOST(ctx, "/api/submit", form)
	if err != nil {
		return ThingID{}, err
	}

	if id, err := parseAnyThingID(resp.JSON.Data.Name); err == nil {
		return id, nil
	}
	return ThingID{}, fmt.Errorf("%w: submission accepted but no id returned", ErrUpstreamUnavailable)
}

// Vote casts direction 1 (up), -1 (down) or 0 (clear) on a post or comment.
func (c *Client) Vote(ctx context.Context, thingID string, direction int) error {
	if direction < -1 || direction > 1 {
		return fmt.Errorf("%w: vote direction must be -1, 0 or 1 (got %d)", ErrInvalidInput, direction)
	}
	target, err := ParseThingID(thingID)
	if err != nil {
		return err
	}

	form := url.Values{
		"id":  {target.String()},
		"dir": {strconv.Itoa(direction)},
	}
	_, err = c.authedPOST(ctx, "/api/vote", form)
	return err
}

// Delete removes a post or comment owned by the authenticated account.
// Content owned by someone else surfaces as ErrForbidden.
func (c *Client) Delete(ctx context.Context, thingID string) error {
	target, err := ParseThingID(thingID)
	if err != nil {
		return err
	}

	form := url.Values{"id": {target.String()}}
	_, err = c.authedPOST(ctx, "/api/del", form)
	return err
}
