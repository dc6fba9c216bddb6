package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"moderbot/internal/telegram"
)

// BotAPI is the subset of the Bot API client the checks need.
type BotAPI interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
}

// Pinger verifies database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBotAPI verifies the token with getMe. A single attempt with a
// 10-second timeout.
func CheckBotAPI(ctx context.Context, client BotAPI) (Result, *telegram.User) {
	const name = "Bot API"
	if client == nil {
		return Result{Name: name, Detail: "client not configured"}, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	me, err := client.GetMe(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}, nil
	}
	if !me.IsBot {
		return Result{Name: name, Detail: fmt.Sprintf("token belongs to non-bot account %d", me.ID)}, nil
	}
	return Result{Name: name, Passed: true, Detail: "@" + me.Username}, me
}

// CheckChannelAdmin verifies the bot can post to the publishing channel.
func CheckChannelAdmin(ctx context.Context, client BotAPI, channelID, botID int64) Result {
	const name = "Publishing channel"
	if channelID == 0 {
		return Result{Name: name, Detail: "main_channel_id not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	member, err := client.GetChatMember(checkCtx, channelID, botID)
	if err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	switch member.Status {
	case telegram.MemberAdministrator, telegram.MemberCreator:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d (bot is %s)", channelID, member.Status)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%d (bot is %s, needs administrator)", channelID, member.Status)}
	}
}

// CheckDatabase pings the store.
func CheckDatabase(ctx context.Context, db Pinger, path string) Result {
	const name = "Database"
	if db == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	if err := db.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (Bot API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (Bot API unreachable)"
	}
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 401 {
		return "unauthorized (check bot_token)"
	}
	return err.Error()
}
