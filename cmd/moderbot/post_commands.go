package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"moderbot/internal/access"
	"moderbot/internal/api"
)

func newPostsCommand(ctx *commandContext) *cobra.Command {
	postsCmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect submitted posts",
	}

	var status string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(a access.Access) error {
				posts, err := a.Posts(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, posts)
				}
				if len(posts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No posts")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderPostTable(posts))
				return nil
			})
		},
	}
	listCmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, published, rejected)")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of posts")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("post id", args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd, func(a access.Access) error {
				post, err := a.Post(cmd.Context(), id)
				if err != nil {
					return err
				}
				if post == nil {
					return fmt.Errorf("post #%d not found", id)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, post)
				}
				writePostDetail(cmd, *post)
				return nil
			})
		},
	}

	postsCmd.AddCommand(listCmd, showCmd)
	return postsCmd
}

func renderPostTable(posts []api.Post) string {
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		moderator := "-"
		if p.Moderator != nil {
			moderator = actorLabel(p.Moderator.ID, p.Moderator.Username)
		}
		rows = append(rows, []string{
			"#" + strconv.FormatInt(p.ID, 10),
			p.Status,
			strconv.FormatInt(p.AuthorID, 10),
			moderator,
			orDash(p.SubmittedAt),
			p.Text,
		})
	}
	return renderTable([]column{
		{header: "ID", align: alignRight},
		{header: "Status"},
		{header: "Author", align: alignRight},
		{header: "Moderator"},
		{header: "Submitted"},
		{header: "Text", wrap: true},
	}, rows)
}

func writePostDetail(cmd *cobra.Command, p api.Post) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Post #%d\n", p.ID)
	fmt.Fprintf(out, "  Status:    %s\n", p.Status)
	fmt.Fprintf(out, "  Author:    %d\n", p.AuthorID)
	fmt.Fprintf(out, "  Submitted: %s\n", orDash(p.SubmittedAt))
	if p.PhotoID != "" {
		fmt.Fprintf(out, "  Photo:     %s\n", p.PhotoID)
	}
	if p.Moderator != nil {
		fmt.Fprintf(out, "  Moderator: %s\n", actorLabel(p.Moderator.ID, p.Moderator.Username))
		fmt.Fprintf(out, "  Decided:   %s\n", orDash(p.DecidedAt))
	}
	if p.RejectReason != "" {
		fmt.Fprintf(out, "  Reason:    %s\n", p.RejectReason)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, p.Text)
}
