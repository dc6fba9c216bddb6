package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moderbot/internal/access"
	"moderbot/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the moderation action log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(a access.Access) error {
				entries, err := a.Logs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Action log is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.At, e.Action, orDash(string(e.Data))})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "ID", align: alignRight},
					{header: "At"},
					{header: "Action"},
					{header: "Data", wrap: true},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show user and post counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(a access.Access) error {
				stats, err := a.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStats(stats))
				return nil
			})
		},
	}
}

func renderStats(s api.Stats) string {
	rows := [][]string{
		{"Users", strconv.Itoa(s.Users)},
		{"New users today", strconv.Itoa(s.UsersToday)},
		{"Active bans", strconv.Itoa(s.Bans)},
		{"Blacklisted keywords", strconv.Itoa(s.Keywords)},
		{"Required subscriptions", strconv.Itoa(s.Subscriptions)},
		{"Posts", strconv.Itoa(s.PostsTotal)},
		{"Posts today", strconv.Itoa(s.PostsToday)},
	}
	for _, status := range []string{"pending", "published", "rejected"} {
		rows = append(rows, []string{"  " + status, strconv.Itoa(s.Posts[status])})
	}
	var b strings.Builder
	b.WriteString(renderTable([]column{{header: "Counter"}, {header: "Value", align: alignRight}}, rows))
	fmt.Fprintf(&b, "Server time: %s\n", s.ServerTime)
	return b.String()
}

func newBroadcastCommand(ctx *commandContext) *cobra.Command {
	var photoID string
	cmd := &cobra.Command{
		Use:   "broadcast <text...>",
		Short: "Send a message to every registered user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.BroadcastRequest{Text: strings.Join(args, " "), PhotoID: photoID, AdminID: ctx.adminID()}
			return ctx.withAccess(cmd, func(a access.Access) error {
				res, err := a.Broadcast(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Broadcast %s finished: %d sent, %d failed\n", res.JobID, res.Sent, res.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&photoID, "photo", "", "Telegram file id of a photo to attach")
	return cmd
}
