// Command snoosession reads and writes Reddit as a logged-in human account,
// using the session cookie of an installed browser instead of an API key.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/steipete/snoosession"
)

var (
	verbose bool
	jsonOut bool
	version = "dev"
)

var client *snoosession.Client

var rootCmd = &cobra.Command{
	Use:   "snoosession",
	Short: "Drive a Reddit account through browser session cookies",
	Long: `snoosession reads and writes Reddit without an API key by borrowing the
reddit_session cookie from a browser you are already logged into.

Run "snoosession auth" once to import the cookie; it is stored in
$REDDIT_SESSION_DIR (default ~/.config/snoosession) and refreshed
automatically when Reddit stops accepting it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		store := snoosession.NewSessionStore("")
		client = snoosession.NewClient(store, snoosession.ClientOptions{
			UserAgent: os.Getenv("REDDIT_USER_AGENT"),
		})
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Import a Reddit session from an installed browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		hint, _ := cmd.Flags().GetString("browser")

		sess, warnings, err := client.Authenticate(cmd.Context(), snoosession.Browser(hint))
		for _, w := range warnings {
			slog.Debug(w)
		}
		if err != nil {
			if errors.Is(err, snoosession.ErrCredentialNotFound) {
				printManualSetup()
			}
			return err
		}

		fmt.Printf("Imported session from %s\n", sess.Browser)
		fmt.Printf("  Username: %s\n", sess.Username)
		fmt.Printf("  Saved to: %s\n", snoosession.NewSessionStore("").Path())
		return nil
	},
}

func printManualSetup() {
	fmt.Fprintln(os.Stderr, "No Reddit session found in any browser. Manual setup:")
	fmt.Fprintln(os.Stderr, "  1. Log into Reddit in your browser")
	fmt.Fprintln(os.Stderr, "  2. DevTools (F12) -> Application -> Cookies -> reddit.com")
	fmt.Fprintln(os.Stderr, "  3. Copy the reddit_session cookie value")
	fmt.Fprintf(os.Stderr, "  4. Create %s with:\n", snoosession.NewSessionStore("").Path())
	fmt.Fprintln(os.Stderr, `     {"cookies": {"reddit_session": "YOUR_COOKIE"}, "username": "YOU"}`)
}

var readCmd = &cobra.Command{
	Use:   "read <permalink>",
	Short: "Read a post with its comment tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		post, tree, err := client.FetchThread(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, w := range tree.Warnings {
			slog.Debug("comment tree", "warning", w)
		}
		if jsonOut {
			return printJSON(map[string]any{"post": post, "comments": tree})
		}
		printThread(post, tree)
		return nil
	},
}

var listingCmd = &cobra.Command{
	Use:   "listing <subreddit>",
	Short: "List posts from a subreddit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		after, _ := cmd.Flags().GetString("after")
		sort, _ := cmd.Flags().GetString("sort")

		listing, err := client.FetchListing(cmd.Context(), args[0], sort, after, limit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(listing)
		}
		printListing("r/"+args[0], listing)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [subreddit] <query>",
	Short: "Search Reddit, optionally within one subreddit",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		subreddit, query := "", args[0]
		if len(args) == 2 {
			subreddit, query = args[0], args[1]
		}
		limit, _ := cmd.Flags().GetInt("limit")
		after, _ := cmd.Flags().GetString("after")
		sort, _ := cmd.Flags().GetString("sort")
		timeFilter, _ := cmd.Flags().GetString("time")

		listing, err := client.Search(cmd.Context(), subreddit, query, snoosession.SearchOptions{
			Sort:  sort,
			Time:  timeFilter,
			After: after,
			Limit: limit,
		})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(listing)
		}
		scope := "all of reddit"
		if subreddit != "" {
			scope = "r/" + subreddit
		}
		printListing(fmt.Sprintf("%s (search: %s)", scope, query), listing)
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Show inbox notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		unread, _ := cmd.Flags().GetBool("unread")
		limit, _ := cmd.Flags().GetInt("limit")

		msgs, err := client.Inbox(cmd.Context(), unread, limit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(msgs)
		}
		if len(msgs.Messages) == 0 {
			fmt.Println("No messages.")
			return nil
		}
		for _, m := range msgs.Messages {
			status := ""
			if m.New {
				status = "[NEW] "
			}
			fmt.Printf("\n%sFrom u/%s [%s]:\n", status, m.Author, m.ID)
			if m.Subject != "" {
				fmt.Printf("  Subject: %s\n", m.Subject)
			}
			fmt.Printf("  %s\n", truncate(m.Body, 200))
			if m.Context != "" {
				fmt.Printf("  Context: https://reddit.com%s\n", m.Context)
			}
		}
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <thing_id> <body>",
	Short: "Reply to a post (t3_...) or comment (t1_...)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := client.Comment(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Comment posted: %s\n", id)
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <subreddit> <title>",
	Short: "Submit a new post (--text or --url)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		postURL, _ := cmd.Flags().GetString("url")

		id, err := client.Submit(cmd.Context(), args[0], args[1], snoosession.SubmitContent{
			Text: text,
			URL:  postURL,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Post submitted: %s\n", id)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <thing_id> <-1|0|1>",
	Short: "Vote on a post or comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		direction, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("vote direction must be -1, 0 or 1: %w", err)
		}
		if err := client.Vote(cmd.Context(), args[0], direction); err != nil {
			return err
		}
		fmt.Printf("Voted %+d on %s\n", direction, args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <thing_id>",
	Short: "Delete your own post or comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printThread(post snoosession.Post, tree *snoosession.CommentTree) {
	rule := strings.Repeat("=", 79)
	fmt.Println(rule)
	fmt.Printf("r/%s | u/%s | %d points | %s\n", post.Subreddit, post.Author, post.Score, post.ID)
	fmt.Println(rule)
	fmt.Println()
	fmt.Println(post.Title)
	fmt.Println()
	if post.URL != "" {
		fmt.Printf("Link: %s\n\n", post.URL)
	}
	if post.SelfText != "" {
		fmt.Printf("%s\n\n", post.SelfText)
	}
	fmt.Println(strings.Repeat("-", 79))
	fmt.Printf("COMMENTS (%d)\n", post.NumComments)
	fmt.Println(strings.Repeat("-", 79))
	printComments(tree.Comments, 0)
	if tree.HasMore {
		fmt.Println("\n(more comments available)")
	}
}

func printComments(nodes []*snoosession.CommentNode, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, n := range nodes {
		fmt.Println()
		fmt.Printf("%su/%s (%d pts) [%s]\n", prefix, n.Author, n.Score, n.ID)
		for _, line := range strings.Split(n.Body, "\n") {
			fmt.Printf("%s%s\n", prefix, line)
		}
		if n.HasMore {
			fmt.Printf("%s(more replies available)\n", prefix)
		}
		printComments(n.Replies, indent+1)
	}
}

func printListing(header string, listing snoosession.Listing) {
	rule := strings.Repeat("=", 79)
	fmt.Println(rule)
	fmt.Println(header)
	fmt.Println(rule)
	fmt.Println()
	for _, p := range listing.Posts {
		marker := " "
		if p.Stickied {
			marker = "*"
		}
		fmt.Printf("%5d | %s%s\n", p.Score, marker, truncate(p.Title, 70))
		fmt.Printf("        https://reddit.com%s\n", p.Permalink)
	}
	if listing.After != "" {
		fmt.Printf("\nNext page: --after %s\n", listing.After)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON output")

	authCmd.Flags().StringP("browser", "b", "", "browser to import from (firefox, chrome, chromium, edge, brave, vivaldi, opera, safari)")

	listingCmd.Flags().Int("limit", 0, "number of posts per page (max 100)")
	listingCmd.Flags().String("after", "", "pagination cursor from the previous page")
	listingCmd.Flags().String("sort", "hot", "sort order (hot, new, top, rising)")

	searchCmd.Flags().Int("limit", 0, "number of results per page (max 100)")
	searchCmd.Flags().String("after", "", "pagination cursor from the previous page")
	searchCmd.Flags().String("sort", "relevance", "sort order (relevance, hot, top, new, comments)")
	searchCmd.Flags().String("time", "all", "time filter (all, hour, day, week, month, year)")

	inboxCmd.Flags().Bool("unread", false, "unread messages only")
	inboxCmd.Flags().Int("limit", 0, "number of messages (max 100)")

	submitCmd.Flags().String("text", "", "self post body")
	submitCmd.Flags().String("url", "", "link URL")

	rootCmd.AddCommand(authCmd, readCmd, listingCmd, searchCmd, inboxCmd,
		commentCmd, submitCmd, voteCmd, deleteCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
