package snoosession

import (
	"encoding/json"
	"fmt"
)

// Wire shapes of the legacy JSON endpoints. The request/response layout is an
// external contract: old.reddit.com defines it, we adapt to it.

type wireThing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type wireListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string      `json:"after"`
		Children []wireThing `json:"children"`
	} `json:"data"`
}

type wirePost struct {
	Name        string  `json:"name"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied"`
}

type wireComment struct {
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`

	// Replies is a nested Listing object, or the empty string when the
	// comment has none. RawMessage defers that quirk to the tree builder.
	Replies json.RawMessage `json:"replies"`
}

type wireMore struct {
	Children []string `json:"children"`
	Count    int      `json:"count"`
}

type wireMessage struct {
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	Context    string  `json:"context"`
	CreatedUTC float64 `json:"created_utc"`
	New        bool    `json:"new"`
}

// wireAPIResponse is the api_type=json envelope of the write endpoints.
type wireAPIResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []wireThing `json:"things"`
			URL    string      `json:"url"`
			Name   string      `json:"name"`
		} `json:"data"`
	} `json:"json"`
}

// hasError reports whether the response carries the given upstream error
// code, e.g. "USER_REQUIRED".
func (r *wireAPIResponse) hasError(code string) bool {
	for _, e := range r.JSON.Errors {
		if len(e) > 0 {
			if s, ok := e[0].(string); ok && s == code {
				return true
			}
		}
	}
	return false
}

func (r *wireAPIResponse) errorString() string {
	if len(r.JSON.Errors) == 0 {
		return ""
	}
	return fmt.Sprint(r.JSON.Errors)
}

func postFromWire(w wirePost) (Post, error) {
	id, err := parseAnyThingID(w.Name)
	if err != nil {
		return Post{}, err
	}
	url := w.URL
	if w.IsSelf {
		url = ""
	}
	return Post{
		ID:          id,
		Subreddit:   w.Subreddit,
		Author:      w.Author,
		Title:       w.Title,
		SelfText:    w.Selftext,
		URL:         url,
		Score:       w.Score,
		NumComments: w.NumComments,
		CreatedUTC:  w.CreatedUTC,
		Permalink:   w.Permalink,
		IsSelf:      w.IsSelf,
		Stickied:    w.Stickied,
	}, nil
}

func listingFromWire(l wireListing) Listing {
	out := Listing{After: l.Data.After}
	for _, ch := range l.Data.Children {
		if ch.Kind != string(KindPost) {
			continue
		}
		var w wirePost
		if err := json.Unmarshal(ch.Data, &w); err != nil {
			continue
		}
		p, err := postFromWire(w)
		if err != nil {
			continue
		}
		out.Posts = append(out.Posts, p)
	}
	return out
}

func messageListingFromWire(l wireListing) MessageListing {
	out := MessageListing{After: l.Data.After}
	for _, ch := range l.Data.Children {
		var w wireMessage
		if err := json.Unmarshal(ch.Data, &w); err != nil {
			continue
		}
		id, err := parseAnyThingID(w.Name)
		if err != nil {
			continue
		}
		out.Messages = append(out.Messages, Message{
			ID:         id,
			Author:     w.Author,
			Subject:    w.Subject,
			Body:       w.Body,
			Context:    w.Context,
			CreatedUTC: w.CreatedUTC,
			New:        w.New,
		})
	}
	return out
}
