package snoosession

// Browser identifies a cookie source.
type Browser string

const (
	// BrowserFirefox is Mozilla Firefox.
	BrowserFirefox Browser = "firefox"

	// BrowserChrome is Google Chrome.
	BrowserChrome Browser = "chrome"
	// BrowserChromium is Chromium.
	BrowserChromium Browser = "chromium"
	// BrowserEdge is Microsoft Edge.
	BrowserEdge Browser = "edge"
	// BrowserBrave is Brave Browser.
	BrowserBrave Browser = "brave"
	// BrowserVivaldi is Vivaldi.
	BrowserVivaldi Browser = "vivaldi"
	// BrowserOpera is Opera.
	BrowserOpera Browser = "opera"

	// BrowserSafari is Apple Safari (macOS only).
	BrowserSafari Browser = "safari"
)

// DefaultBrowsers returns the source priority order used when no browser hint
// is given. Firefox comes first because its cookie store needs no OS
// secret-store unlock on any platform; the Chromium family follows in rough
// market-share order; Safari is last because it is macOS-only.
func DefaultBrowsers() []Browser {
	return []Browser{
		BrowserFirefox,
		BrowserChrome,
		BrowserChromium,
		BrowserEdge,
		BrowserBrave,
		BrowserVivaldi,
		BrowserOpera,
		BrowserSafari,
	}
}

// KnownBrowser reports whether b names a supported cookie source.
func KnownBrowser(b Browser) bool {
	for _, k := range DefaultBrowsers() {
		if k == b {
			return true
		}
	}
	return false
}

// Session is a persisted bearer credential plus provenance metadata.
// The cookie values are opaque: they are forwarded as request headers and
// never parsed or rewritten.
type Session struct {
	Cookies  map[string]string `json:"cookies"`
	Username string            `json:"username,omitempty"`
	Browser  Browser           `json:"browser,omitempty"`
	SavedAt  float64           `json:"saved_at,omitempty"`
}

// SessionCookie returns the reddit_session value, or "" if absent.
func (s Session) SessionCookie() string {
	return s.Cookies[SessionCookieName]
}

// Post is a submitted link or self post.
type Post struct {
	ID          ThingID `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext,omitempty"`
	URL         string  `json:"url,omitempty"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied,omitempty"`
}

// Listing is one page of posts plus the cursor for the next page.
// An empty After means end-of-stream.
type Listing struct {
	Posts []Post `json:"posts"`
	After string `json:"after,omitempty"`
}

// Message is an inbox notification (comment reply, mention, or private
// message).
type Message struct {
	ID         ThingID `json:"id"`
	Author     string  `json:"author"`
	Subject    string  `json:"subject,omitempty"`
	Body       string  `json:"body"`
	Context    string  `json:"context,omitempty"`
	CreatedUTC float64 `json:"created_utc"`
	New        bool    `json:"new"`
}

// MessageListing is one page of inbox messages plus the cursor for the next
// page.
type MessageListing struct {
	Messages []Message `json:"messages"`
	After    string    `json:"after,omitempty"`
}

// CommentNode is one comment in a thread. Nodes own their replies; there are
// no parent back-references. HasMore marks truncation at this node: Reddit
// returned a "load more" stub instead of the remaining replies, and MoreToken
// carries the continuation ids for a later request.
type CommentNode struct {
	ID         ThingID        `json:"id"`
	Author     string         `json:"author"`
	Body       string         `json:"body"`
	Score      int            `json:"score"`
	CreatedUTC float64        `json:"created_utc"`
	Replies    []*CommentNode `json:"replies,omitempty"`
	HasMore    bool           `json:"has_more,omitempty"`
	MoreToken  string         `json:"more_token,omitempty"`
}

// CommentTree is the reconstructed comment hierarchy of one thread, rooted at
// the post. HasMore/MoreToken describe truncation at the top level.
type CommentTree struct {
	Comments  []*CommentNode `json:"comments"`
	HasMore   bool           `json:"has_more,omitempty"`
	MoreToken string         `json:"more_token,omitempty"`

	// Warnings records comment nodes that were skipped because their shape
	// was not understood. A partial tree plus warnings beats a hard failure.
	Warnings []string `json:"-"`
}
