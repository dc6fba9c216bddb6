package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"moderbot/internal/access"
	"moderbot/internal/api"
)

func newSubscriptionsCommand(ctx *commandContext) *cobra.Command {
	subsCmd := &cobra.Command{
		Use:     "subs",
		Aliases: []string{"subscriptions"},
		Short:   "Manage required subscriptions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List required subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(a access.Access) error {
				subs, err := a.Subscriptions(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, subs)
				}
				if len(subs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No required subscriptions")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSubscriptionTable(subs))
				return nil
			})
		},
	}

	var req api.SubscriptionRequest
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Require a channel or bot subscription",
		Example: "  moderbot subs add --type channel --id -1001234 --name News --url https://t.me/news\n" +
			"  moderbot subs add --type bot --username helper_bot --name Helper",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.AdminID = ctx.adminID()
			return ctx.withAccess(cmd, func(a access.Access) error {
				sub, err := a.AddSubscription(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, sub)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added subscription %d: %s %s\n", sub.Index, sub.Type, sub.Name)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&req.Type, "type", "channel", "Subscription type (channel or bot)")
	addCmd.Flags().Int64Var(&req.TargetID, "id", 0, "Channel id (channel type)")
	addCmd.Flags().StringVar(&req.Username, "username", "", "Bot username (bot type)")
	addCmd.Flags().StringVar(&req.Name, "name", "", "Display name shown to users")
	addCmd.Flags().StringVar(&req.URL, "url", "", "Invite link shown to users")

	removeCmd := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the subscription at a list position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil || index <= 0 {
				return fmt.Errorf("invalid index %q", args[0])
			}
			return ctx.withAccess(cmd, func(a access.Access) error {
				removed, err := a.RemoveSubscription(cmd.Context(), index, ctx.adminID())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed subscription %d: %s\n", index, removed.Name)
				return nil
			})
		},
	}

	subsCmd.AddCommand(listCmd, addCmd, removeCmd)
	return subsCmd
}

func renderSubscriptionTable(subs []api.Subscription) string {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		target := "@" + s.Username
		if s.Type == "channel" {
			target = strconv.FormatInt(s.TargetID, 10)
		}
		rows = append(rows, []string{strconv.Itoa(s.Index), s.Type, target, s.Name, orDash(s.URL)})
	}
	return renderTable([]column{
		{header: "#", align: alignRight},
		{header: "Type"},
		{header: "Target"},
		{header: "Name"},
		{header: "URL"},
	}, rows)
}
