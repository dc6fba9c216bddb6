package preflight

import (
	"context"
	"fmt"
	"strings"

	"moderbot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable preflight check for the given config.
// The channel check runs only when getMe succeeded.
func RunAll(ctx context.Context, cfg *config.Config, client BotAPI, db Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.DataDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if db != nil {
		results = append(results, CheckDatabase(ctx, db, cfg.Paths.Database))
	}

	apiResult, me := CheckBotAPI(ctx, client)
	results = append(results, apiResult)
	if me != nil {
		results = append(results, CheckChannelAdmin(ctx, client, cfg.Chats.MainChannelID, me.ID))
	}
	return results
}

// Failed joins the failed checks into one error, or returns nil.
func Failed(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
