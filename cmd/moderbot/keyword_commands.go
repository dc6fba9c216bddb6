package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"moderbot/internal/access"
	"moderbot/internal/api"
)

func newKeywordsCommand(ctx *commandContext) *cobra.Command {
	keywordsCmd := &cobra.Command{
		Use:     "keywords",
		Aliases: []string{"blacklist"},
		Short:   "Manage the keyword blacklist",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List blacklisted keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd, func(a access.Access) error {
				keywords, err := a.Keywords(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, keywords)
				}
				if len(keywords) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Blacklist is empty")
					return nil
				}
				rows := make([][]string, 0, len(keywords))
				for _, k := range keywords {
					rows = append(rows, []string{k.Keyword, actorLabel(k.AddedBy, ""), orDash(k.AddedAt)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
					{header: "Keyword"},
					{header: "Added by"},
					{header: "Added"},
				}, rows))
				return nil
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <keyword...>",
		Short: "Blacklist a keyword or phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return ctx.withAccess(cmd, func(a access.Access) error {
				stored, err := a.AddKeyword(cmd.Context(), api.KeywordRequest{Keyword: keyword, AdminID: ctx.adminID()})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q to the blacklist\n", stored)
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <keyword...>",
		Short: "Remove a keyword from the blacklist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return ctx.withAccess(cmd, func(a access.Access) error {
				removed, err := a.RemoveKeyword(cmd.Context(), keyword, ctx.adminID())
				if err != nil {
					if suggestion := access.Suggestion(err); suggestion != "" {
						return errors.Join(err, fmt.Errorf("did you mean %q?", suggestion))
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from the blacklist\n", removed)
				return nil
			})
		},
	}

	keywordsCmd.AddCommand(listCmd, addCmd, removeCmd)
	return keywordsCmd
}
