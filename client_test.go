package snoosession

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient wires a Client to an httptest server with the throttle turned
// down and browser extraction stubbed out to fail loudly.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *SessionStore, *atomic.Int64) {
	t.Helper()

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	store := NewSessionStore(t.TempDir())
	client := NewClient(store, ClientOptions{
		BaseURL:     srv.URL,
		MinInterval: time.Millisecond,
		Extract: func(ctx context.Context, hint Browser) (ExtractedCookie, []string, error) {
			return ExtractedCookie{}, nil, errors.New("extraction not stubbed for this test")
		},
	})
	return client, store, &requests
}

func TestFetchListing_Pagination(t *testing.T) {
	pages := map[string]string{
		"": `{"kind": "Listing", "data": {"after": "t3_page2", "children": [
			{"kind": "t3", "data": {"name": "t3_aaa11", "title": "first", "subreddit": "golang", "permalink": "/r/golang/comments/aaa11/first/"}},
			{"kind": "t3", "data": {"name": "t3_bbb22", "title": "second", "subreddit": "golang", "permalink": "/r/golang/comments/bbb22/second/"}}
		]}}`,
		"t3_page2": `{"kind": "Listing", "data": {"after": "", "children": [
			{"kind": "t3", "data": {"name": "t3_ccc33", "title": "third", "subreddit": "golang", "permalink": "/r/golang/comments/ccc33/third/"}}
		]}}`,
	}
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/golang/hot.json" {
			http.NotFound(w, r)
			return
		}
		page, ok := pages[r.URL.Query().Get("after")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(page))
	}))

	ctx := context.Background()
	seen := map[string]bool{}
	after := ""
	for i := 0; i < 3; i++ {
		listing, err := client.FetchListing(ctx, "golang", "hot", after, 10)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range listing.Posts {
			if seen[p.ID.String()] {
				t.Fatalf("post %s appeared on two pages", p.ID)
			}
			seen[p.ID.String()] = true
		}
		if listing.After == "" {
			break
		}
		after = listing.After
	}
	if len(seen) != 3 {
		t.Fatalf("want 3 distinct posts across pages, got %d", len(seen))
	}
}

func TestFetchListing_RejectsBadSort(t *testing.T) {
	client, _, requests := newTestClient(t, http.NotFoundHandler())

	_, err := client.FetchListing(context.Background(), "golang", "controversial", "", 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	if requests.Load() != 0 {
		t.Fatal("invalid sort reached the network")
	}
}

func TestSearch_QueryParameters(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/golang/search.json" {
			t.Errorf("path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "generics" || q.Get("restrict_sr") != "on" {
			t.Errorf("query %v", q)
		}
		if q.Get("sort") != "top" || q.Get("t") != "week" {
			t.Errorf("sort/time %v", q)
		}
		_, _ = w.Write([]byte(`{"kind": "Listing", "data": {"after": "", "children": []}}`))
	}))

	_, err := client.Search(context.Background(), "golang", "generics", SearchOptions{Sort: "top", Time: "week"})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSearch_SiteWide(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("path %s", r.URL.Path)
		}
		if r.URL.Query().Has("restrict_sr") {
			t.Error("restrict_sr set without a subreddit")
		}
		_, _ = w.Write([]byte(`{"kind": "Listing", "data": {"after": "", "children": []}}`))
	}))

	if _, err := client.Search(context.Background(), "", "generics", SearchOptions{}); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeThreadPath(t *testing.T) {
	cases := map[string]string{
		"abc12":                                   "/comments/abc12.json",
		"/r/golang/comments/abc12/title/":         "/r/golang/comments/abc12/title.json",
		"r/golang/comments/abc12/title":           "/r/golang/comments/abc12/title.json",
		"https://www.reddit.com/r/golang/comments/abc12/title/?context=3": "/r/golang/comments/abc12/title.json",
		"https://old.reddit.com/r/golang/comments/abc12/title.json":       "/r/golang/comments/abc12/title.json",
	}
	for in, want := range cases {
		got, err := normalizeThreadPath(in)
		if err != nil {
			t.Errorf("normalizeThreadPath(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("normalizeThreadPath(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "https://example.com/r/golang/comments/abc12/"} {
		if _, err := normalizeThreadPath(in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("normalizeThreadPath(%q) = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestFetchThread(t *testing.T) {
	payload := `[
		{"kind": "Listing", "data": {"children": [
			{"kind": "t3", "data": {
				"name": "t3_abc12", "subreddit": "golang", "author": "gopher",
				"title": "A question", "selftext": "body text", "is_self": true,
				"url": "https://www.reddit.com/r/golang/comments/abc12/a_question/",
				"score": 42, "num_comments": 2,
				"permalink": "/r/golang/comments/abc12/a_question/"
			}}
		]}},
		{"kind": "Listing", "data": {"children": [
			{"kind": "t1", "data": {"name": "t1_def34", "author": "alice", "body": "answer", "score": 3, "replies": ""}},
			{"kind": "more", "data": {"children": ["ghi56"], "count": 1}}
		]}}
	]`
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments/abc12.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))

	post, tree, err := client.FetchThread(context.Background(), "abc12")
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "A question" || post.Author != "gopher" {
		t.Fatalf("post %+v", post)
	}
	if post.URL != "" {
		t.Fatalf("self post should not carry its own permalink as URL, got %q", post.URL)
	}
	if len(tree.Comments) != 1 || tree.Comments[0].Body != "answer" {
		t.Fatalf("comments %+v", tree.Comments)
	}
	if !tree.HasMore || tree.MoreToken != "ghi56" {
		t.Fatalf("truncation lost: hasMore=%v token=%q", tree.HasMore, tree.MoreToken)
	}
}

func TestVote_RejectsOutOfRangeDirection(t *testing.T) {
	client, _, requests := newTestClient(t, http.NotFoundHandler())

	for _, dir := range []int{-2, 2, 5} {
		if err := client.Vote(context.Background(), "t3_abc12", dir); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Vote(dir=%d) = %v, want ErrInvalidInput", dir, err)
		}
	}
	if requests.Load() != 0 {
		t.Fatal("invalid vote reached the network")
	}
}

func TestSubmit_RequiresExactlyOneBody(t *testing.T) {
	client, _, requests := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	_, err := client.Submit(ctx, "golang", "title", SubmitContent{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("neither text nor url: %v", err)
	}
	_, err = client.Submit(ctx, "golang", "title", SubmitContent{Text: "t", URL: "https://example.com"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("both text and url: %v", err)
	}
	if requests.Load() != 0 {
		t.Fatal("invalid submit reached the network")
	}
}

func TestGet_RateLimited(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.FetchListing(context.Background(), "golang", "hot", "", 0)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
}

func TestGet_ServerError(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.FetchListing(context.Background(), "golang", "hot", "", 0)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestDo_BrowserHeadersAndCookie(t *testing.T) {
	client, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Error("missing XHR header")
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		if ck, err := r.Cookie(SessionCookieName); err != nil || ck.Value != "cookievalue" {
			t.Errorf("session cookie not attached: %v", err)
		}
		_, _ = w.Write([]byte(`{"kind": "Listing", "data": {"after": "", "children": []}}`))
	}))

	if err := store.Save(Session{Cookies: map[string]string{SessionCookieName: "cookievalue"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.FetchListing(context.Background(), "golang", "hot", "", 0); err != nil {
		t.Fatal(err)
	}
}

func TestInbox(t *testing.T) {
	client, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message/unread.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"kind": "Listing", "data": {"after": "", "children": [
			{"kind": "t1", "data": {"name": "t1_rep11", "author": "alice", "subject": "comment reply", "body": "hey", "new": true, "context": "/r/golang/comments/abc12/x/rep11/"}},
			{"kind": "t4", "data": {"name": "t4_pm222", "author": "bob", "subject": "hello", "body": "pm body", "new": false}}
		]}}`))
	}))
	if err := store.Save(Session{Cookies: map[string]string{SessionCookieName: "v"}}); err != nil {
		t.Fatal(err)
	}

	msgs, err := client.Inbox(context.Background(), true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs.Messages) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs.Messages))
	}
	if msgs.Messages[0].ID.Kind != KindComment || !msgs.Messages[0].New {
		t.Fatalf("reply message %+v", msgs.Messages[0])
	}
	if msgs.Messages[1].ID.Kind != KindMessage {
		t.Fatalf("pm message %+v", msgs.Messages[1])
	}
}
