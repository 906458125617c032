package snoosession

import (
	"encoding/json"
	"testing"
)

func mustWireThings(t *testing.T, raw string) []wireThing {
	t.Helper()
	var out []wireThing
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestBuildCommentTree_NestedReplies(t *testing.T) {
	children := mustWireThings(t, `[
		{"kind": "t1", "data": {
			"name": "t1_aaa11", "author": "alice", "body": "top", "score": 5,
			"replies": {"kind": "Listing", "data": {"children": [
				{"kind": "t1", "data": {
					"name": "t1_bbb22", "author": "bob", "body": "nested", "score": 2,
					"replies": ""
				}}
			]}}
		}},
		{"kind": "t1", "data": {
			"name": "t1_ccc33", "author": "carol", "body": "second", "score": 1,
			"replies": ""
		}}
	]`)

	tree := buildCommentTree(children)
	if len(tree.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", tree.Warnings)
	}
	if len(tree.Comments) != 2 {
		t.Fatalf("want 2 top-level comments, got %d", len(tree.Comments))
	}
	top := tree.Comments[0]
	if top.Author != "alice" || top.ID.String() != "t1_aaa11" {
		t.Fatalf("unexpected top comment %+v", top)
	}
	if len(top.Replies) != 1 || top.Replies[0].Body != "nested" {
		t.Fatalf("nested reply lost: %+v", top.Replies)
	}
	if len(tree.Comments[1].Replies) != 0 {
		t.Fatal("empty-string replies should yield no children")
	}
}

func TestBuildCommentTree_MoreStubBecomesFlag(t *testing.T) {
	children := mustWireThings(t, `[
		{"kind": "t1", "data": {
			"name": "t1_aaa11", "author": "alice", "body": "top", "score": 5,
			"replies": {"kind": "Listing", "data": {"children": [
				{"kind": "more", "data": {"children": ["ddd44", "eee55"], "count": 7}}
			]}}
		}}
	]`)

	tree := buildCommentTree(children)
	if len(tree.Comments) != 1 {
		t.Fatalf("want 1 comment, got %d", len(tree.Comments))
	}
	top := tree.Comments[0]
	if len(top.Replies) != 0 {
		t.Fatalf("more stub must not synthesize comment nodes, got %d", len(top.Replies))
	}
	if !top.HasMore {
		t.Fatal("HasMore not set from more stub")
	}
	if top.MoreToken != "ddd44,eee55" {
		t.Fatalf("token %q", top.MoreToken)
	}
	if tree.HasMore {
		t.Fatal("truncation at depth 1 leaked to tree root")
	}
}

func TestBuildCommentTree_ContinueThreadStub(t *testing.T) {
	// A "continue this thread" stub carries no child ids.
	children := mustWireThings(t, `[
		{"kind": "more", "data": {"children": [], "count": 0}}
	]`)

	tree := buildCommentTree(children)
	if !tree.HasMore {
		t.Fatal("HasMore not set for empty more stub")
	}
	if tree.MoreToken != "" {
		t.Fatalf("token %q", tree.MoreToken)
	}
}

func TestBuildCommentTree_SkipsMalformedChildren(t *testing.T) {
	children := mustWireThings(t, `[
		{"kind": "t1", "data": {"name": "not-a-fullname", "body": "bad id"}},
		{"kind": "t5", "data": {}},
		{"kind": "t1", "data": {"name": "t1_fff66", "author": "frank", "body": "ok", "replies": ""}}
	]`)

	tree := buildCommentTree(children)
	if len(tree.Comments) != 1 || tree.Comments[0].Author != "frank" {
		t.Fatalf("good comment lost: %+v", tree.Comments)
	}
	if len(tree.Warnings) != 2 {
		t.Fatalf("want 2 warnings, got %v", tree.Warnings)
	}
}

func TestRepliesListing_Quirks(t *testing.T) {
	for _, raw := range []string{``, `""`, `null`} {
		if _, ok := repliesListing(json.RawMessage(raw)); ok {
			t.Errorf("repliesListing(%q) should report absent", raw)
		}
	}
	if _, ok := repliesListing(json.RawMessage(`{"kind":"Listing","data":{"children":[]}}`)); !ok {
		t.Error("real listing reported absent")
	}
}
