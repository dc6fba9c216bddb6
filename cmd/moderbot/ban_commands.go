package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moderbot/internal/access"
	"moderbot/internal/api"
)

func newBanCommands(ctx *commandContext) []*cobra.Command {
	banCmd := &cobra.Command{
		Use:   "ban <user-id> [reason...]",
		Short: "Ban a user from submitting posts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			reason := strings.Join(args[1:], " ")
			return ctx.withAccess(cmd, func(a access.Access) error {
				ban, err := a.Ban(cmd.Context(), api.BanRequest{UserID: userID, Reason: reason, AdminID: ctx.adminID()})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, ban)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Banned %d: %s\n", ban.UserID, ban.Reason)
				return nil
			})
		},
	}

	unbanCmd := &cobra.Command{
		Use:   "unban <user-id>",
		Short: "Lift a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(cmd, func(a access.Access) error {
				if err := a.Unban(cmd.Context(), userID, ctx.adminID()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unbanned %d\n", userID)
				return nil
			})
		},
	}

	bansCmd := &cobra.Command{
		Use:   "bans",
		Short: "List active bans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(a access.Access) error {
				bans, err := a.Bans(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, bans)
				}
				if len(bans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No active bans")
					return nil
				}
				rows := make([][]string, 0, len(bans))
				for _, b := range bans {
					rows = append(rows, []string{
						strconv.FormatInt(b.UserID, 10),
						actorLabel(b.Admin.ID, b.Admin.Username),
						orDash(b.BannedAt),
						b.Reason,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "User", align: alignRight},
					{header: "By"},
					{header: "Since"},
					{header: "Reason", wrap: true},
				}, rows))
				return nil
			})
		},
	}

	return []*cobra.Command{banCmd, unbanCmd, bansCmd}
}
