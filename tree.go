package snoosession

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildCommentTree reconstructs a thread's comment hierarchy from the flat
// recursive listing Reddit returns alongside a post. Each listing level holds
// t1 comments and, optionally, a trailing "more" stub marking truncated
// siblings; the stub becomes the level's HasMore flag plus continuation
// token instead of a synthesized comment. Depth is bounded only by the actual
// thread, and malformed children are skipped with a warning rather than
// aborting the tree.
func buildCommentTree(children []wireThing) *CommentTree {
	tree := &CommentTree{}
	tree.Comments, tree.HasMore, tree.MoreToken, tree.Warnings = buildCommentLevel(children)
	return tree
}

func buildCommentLevel(children []wireThing) (nodes []*CommentNode, hasMore bool, token string, warnings []string) {
	for _, ch := range children {
		switch ch.Kind {
		case "more":
			var m wireMore
			if err := json.Unmarshal(ch.Data, &m); err != nil {
				warnings = append(warnings, fmt.Sprintf("skipping malformed more stub: %v", err))
				continue
			}
			hasMore = true
			// The token is the form /api/morechildren accepts; an empty
			// children list is a "continue thread" stub with no ids.
			token = strings.Join(m.Children, ",")

		case string(KindComment):
			node, w := commentNodeFromWire(ch.Data)
			warnings = append(warnings, w...)
			if node != nil {
				nodes = append(nodes, node)
			}

		default:
			warnings = append(warnings, fmt.Sprintf("skipping unexpected child kind %q", ch.Kind))
		}
	}
	return nodes, hasMore, token, warnings
}

func commentNodeFromWire(data json.RawMessage) (*CommentNode, []string) {
	var c wireComment
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, []string{fmt.Sprintf("skipping malformed comment: %v", err)}
	}
	id, err := parseAnyThingID(c.Name)
	if err != nil {
		return nil, []string{fmt.Sprintf("skipping comment with bad id %q", c.Name)}
	}

	node := &CommentNode{
		ID:         id,
		Author:     c.Author,
		Body:       c.Body,
		Score:      c.Score,
		CreatedUTC: c.CreatedUTC,
	}

	// A comment with no replies carries `"replies": ""`.
	if replies, ok := repliesListing(c.Replies); ok {
		var warnings []string
		node.Replies, node.HasMore, node.MoreToken, warnings = buildCommentLevel(replies.Data.Children)
		return node, warnings
	}
	return node, nil
}

func repliesListing(raw json.RawMessage) (wireListing, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == `""` || trimmed == "null" {
		return wireListing{}, false
	}
	var l wireListing
	if err := json.Unmarshal(raw, &l); err != nil {
		return wireListing{}, false
	}
	return l, true
}
