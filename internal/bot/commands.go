package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"moderbot/internal/admin"
	"moderbot/internal/logging"
	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

const adminHelp = "<b>Admin commands</b>\n" +
	"/ban &lt;id&gt; [reason]\n/unban &lt;id&gt;\n/bans\n" +
	"/blacklist_add &lt;word&gt;\n/blacklist_remove &lt;word&gt;\n/blacklist\n" +
	"/sub_add channel &lt;id&gt; &lt;username&gt; &lt;name&gt;\n/sub_add bot &lt;username&gt; &lt;name&gt;\n/sub_remove &lt;n&gt;\n/subs\n" +
	"/stats\n/logs\n/pending\n/broadcast &lt;text&gt;"

type commandFunc func(ctx context.Context, by store.Actor, args string, in *IncomingMessage) (string, error)

func (b *Bot) commands() map[string]commandFunc {
	return map[string]commandFunc{
		"admin":            b.cmdAdmin,
		"ban":              b.cmdBan,
		"unban":            b.cmdUnban,
		"bans":             b.cmdBans,
		"blacklist_add":    b.cmdBlacklistAdd,
		"blacklist_remove": b.cmdBlacklistRemove,
		"blacklist":        b.cmdBlacklist,
		"sub_add":          b.cmdSubAdd,
		"sub_remove":       b.cmdSubRemove,
		"subs":             b.cmdSubs,
		"stats":            b.cmdStats,
		"logs":             b.cmdLogs,
		"pending":          b.cmdPending,
		"broadcast":        b.cmdBroadcast,
	}
}

// adminCommand runs cmd if it is an admin command and reports whether it was one.
func (b *Bot) adminCommand(ctx context.Context, logger *slog.Logger, in *IncomingMessage, cmd, args string) bool {
	run, ok := b.commands()[cmd]
	if !ok {
		return false
	}
	from := in.From()
	if b.deps.Admin == nil || !b.deps.Admin.IsAdmin(from.ID) {
		logger.Info("admin command refused", logging.String("command", cmd))
		b.replyText(ctx, logger, in, "⛔ This command is for admins only.")
		return true
	}
	out, err := run(ctx, from, args, in)
	switch {
	case err == nil:
	case admin.IsUserError(err) || errors.Is(err, errUsage):
		out = "⚠️ " + textutil.EscapeHTML(err.Error())
	default:
		b.internalError(ctx, logger, in, cmd, err)
		return true
	}
	if out != "" {
		b.replyText(ctx, logger, in, out)
	}
	return true
}

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, usage("user id must be a number")
	}
	return id, nil
}

func (b *Bot) cmdAdmin(ctx context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	report, err := b.deps.Admin.Stats(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🛠 <b>Admin panel</b>\n\n👥 Users: %d\n🚫 Banned: %d\n⛔ Blacklist: %d\n⏳ Pending posts: %d\n\n%s",
		report.Users, report.Bans, report.Keywords, report.Posts[store.StatusPending], adminHelp), nil
}

func (b *Bot) cmdBan(ctx context.Context, by store.Actor, args string, _ *IncomingMessage) (string, error) {
	idArg, reason, _ := strings.Cut(args, " ")
	if idArg == "" {
		return "", usage("/ban <id> [reason]")
	}
	id, err := parseUserID(idArg)
	if err != nil {
		return "", err
	}
	ban, err := b.deps.Admin.Ban(ctx, by, id, reason)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🚫 User <code>%d</code> banned.\nReason: %s", id, textutil.EscapeHTML(ban.Reason)), nil
}

func (b *Bot) cmdUnban(ctx context.Context, by store.Actor, args string, _ *IncomingMessage) (string, error) {
	if args == "" {
		return "", usage("/unban <id>")
	}
	id, err := parseUserID(args)
	if err != nil {
		return "", err
	}
	if err := b.deps.Admin.Unban(ctx, by, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ User <code>%d</code> unbanned.", id), nil
}

func (b *Bot) cmdBans(ctx context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	bans, err := b.deps.Admin.Bans(ctx)
	if err != nil {
		return "", err
	}
	if len(bans) == 0 {
		return "No banned users.", nil
	}
	var sb strings.Builder
	sb.WriteString("🚫 <b>Banned users</b>\n")
	for _, ban := range bans {
		fmt.Fprintf(&sb, "\n• <code>%d</code> %s (by %s)", ban.UserID,
			textutil.EscapeHTML(ban.Reason), textutil.EscapeHTML(ban.Admin.Display()))
	}
	return sb.String(), nil
}

func (b *Bot) cmdBlacklistAdd(ctx context.Context, by store.Actor, args string, _ *IncomingMessage) (string, error) {
	if args == "" {
		return "", usage("/blacklist_add <word>")
	}
	kw, err := b.deps.Admin.AddKeyword(ctx, by, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ «%s» added to the blacklist.", textutil.EscapeHTML(kw)), nil
}

func (b *Bot) cmdBlacklistRemove(ctx context.Context, by store.Actor, args string, _ *IncomingMessage) (string, error) {
	if args == "" {
		return "", usage("/blacklist_remove <word>")
	}
	kw, err := b.deps.Admin.RemoveKeyword(ctx, by, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ «%s» removed from the blacklist.", textutil.EscapeHTML(kw)), nil
}

func (b *Bot) cmdBlacklist(ctx context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	kws, err := b.deps.Admin.Keywords(ctx)
	if err != nil {
		return "", err
	}
	if len(kws) == 0 {
		return "The blacklist is empty.", nil
	}
	words := make([]string, 0, len(kws))
	for _, kw := range kws {
		words = append(words, "• "+textutil.EscapeHTML(kw.Keyword))
	}
	return "⛔ <b>Blacklist</b>\n\n" + strings.Join(words, "\n"), nil
}

// cmdSubAdd accepts "channel <id> <username> <name>" or "bot <username> <name>".
func (b *Bot) cmdSubAdd(ctx context.Context, by store.Actor, args string, _ *IncomingMessage) (string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", usage("/sub_add channel <id> <username> <name> or /sub_add bot <username> <name>")
	}
	sub := store.Subscription{Type: store.SubscriptionType(strings.ToLower(fields[0]))}
	switch sub.Type {
	case store.SubscriptionChannel:
		if len(fields) < 3 {
			return "", usage("/sub_add channel <id> <username> <name>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return "", usage("channel id must be a number")
		}
		sub.TargetID = id
		sub.Username = fields[2]
		sub.Name = strings.Join(fields[3:], " ")
	case store.SubscriptionBot:
		sub.Username = fields[1]
		sub.Name = strings.Join(fields[2:], " ")
	default:
		return "", usage("type must be channel or bot")
	}
	added, err := b.deps.Admin.AddSubscription(ctx, by, sub)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Added %s %s", added.Type, textutil.EscapeHTML(added.Name)), nil
}

func (b *Bot) cmdSubRemove(ctx context.Context, by store.Actor, args string, _ *IncomingMessage) (string, error) {
	index, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "", usage("/sub_remove <n> (see /subs)")
	}
	removed, err := b.deps.Admin.RemoveSubscription(ctx, by, index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Removed %s", textutil.EscapeHTML(removed.Name)), nil
}

func (b *Bot) cmdSubs(_ context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	subs, err := b.deps.Admin.Subscriptions()
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return "No required subscriptions.", nil
	}
	var sb strings.Builder
	sb.WriteString("📢 <b>Required subscriptions</b>\n")
	for i, sub := range subs {
		fmt.Fprintf(&sb, "\n%d. [%s] %s (@%s)", i+1, sub.Type,
			textutil.EscapeHTML(sub.Name), textutil.EscapeHTML(sub.Username))
	}
	return sb.String(), nil
}

func (b *Bot) cmdStats(ctx context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	r, err := b.deps.Admin.Stats(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 <b>Statistics</b>\n\n"+
		"👥 Users: %d (today %d)\n🚫 Banned: %d\n⛔ Blacklist: %d\n📢 Subscriptions: %d\n\n"+
		"📝 Posts: %d (today %d)\n✅ Published: %d\n⏳ Pending: %d\n❌ Rejected: %d\n\n🕒 %s UTC",
		r.Users, r.UsersToday, r.Bans, r.Keywords, r.Subscriptions,
		r.TotalPosts(), r.PostsToday,
		r.Posts[store.StatusPublished], r.Posts[store.StatusPending], r.Posts[store.StatusRejected],
		r.ServerTime.UTC().Format("2006-01-02 15:04:05")), nil
}

func (b *Bot) cmdLogs(ctx context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	entries, err := b.deps.Admin.Logs(ctx, admin.DefaultLogLimit)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No log entries.", nil
	}
	var sb strings.Builder
	sb.WriteString("📜 <b>Recent actions</b>\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s <b>%s</b> %s", e.At.UTC().Format("01-02 15:04"),
			textutil.EscapeHTML(e.Action), textutil.EscapeHTML(textutil.Preview(e.Data, 80)))
	}
	return sb.String(), nil
}

func (b *Bot) cmdPending(ctx context.Context, _ store.Actor, _ string, _ *IncomingMessage) (string, error) {
	pending, err := b.deps.Admin.Pending(ctx, admin.DefaultPendingLimit)
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "No pending posts.", nil
	}
	var sb strings.Builder
	sb.WriteString("⏳ <b>Pending posts</b>\n")
	for _, p := range pending {
		fmt.Fprintf(&sb, "\n#%d from <code>%d</code>: %s", p.ID, p.AuthorID, textutil.EscapeHTML(p.Preview))
	}
	return sb.String(), nil
}

// cmdBroadcast runs in the background and reports when done. A photo sent
// with a "/broadcast text" caption is broadcast too.
func (b *Bot) cmdBroadcast(ctx context.Context, by store.Actor, args string, in *IncomingMessage) (string, error) {
	photoID := in.Message.LargestPhoto()
	if args == "" && photoID == "" {
		return "", usage("/broadcast <text>")
	}
	logger := logging.WithContext(ctx, b.logger)
	b.dispatch(func() {
		res, err := b.deps.Admin.Broadcast(ctx, by, args, photoID)
		if err != nil {
			logger.Warn("broadcast stopped", logging.Error(err))
		}
		b.replyText(context.WithoutCancel(ctx), logger, in,
			fmt.Sprintf("📣 Broadcast finished: %d sent, %d failed.", res.Sent, res.Failed))
	})
	return "📣 Broadcast started.", nil
}
