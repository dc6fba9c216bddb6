package moderation

import (
	"fmt"
	"strconv"
	"strings"

	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

// Callback data carried by moderation buttons.
const (
	DataPublish      = "pub_"
	DataReject       = "rej_"
	DataCancelReject = "cancel_rej_"
	DataWhoPublished = "who_pub_"
	DataWhoRejected  = "who_rej_"
	DataDisabled     = "disabled"
)

// Action is a parsed moderation button press.
type Action int

const (
	ActionUnknown Action = iota
	ActionPublish
	ActionReject
	ActionCancelReject
	ActionWhoPublished
	ActionWhoRejected
	ActionDisabled
)

// ParseCallback decodes button data. Prefixes are checked longest first since
// cancel_rej_ and rej_ overlap.
func ParseCallback(data string) (Action, int64, bool) {
	if data == DataDisabled {
		return ActionDisabled, 0, true
	}
	prefixes := []struct {
		prefix string
		action Action
	}{
		{DataCancelReject, ActionCancelReject},
		{DataWhoPublished, ActionWhoPublished},
		{DataWhoRejected, ActionWhoRejected},
		{DataPublish, ActionPublish},
		{DataReject, ActionReject},
	}
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(data, p.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return ActionUnknown, 0, false
		}
		return p.action, id, true
	}
	return ActionUnknown, 0, false
}

func callback(prefix string, postID int64) string {
	return prefix + strconv.FormatInt(postID, 10)
}

func moderatorText(post *store.Post) string {
	return fmt.Sprintf("📨 <b>New post #%d for moderation</b>\n\n%s", post.ID, textutil.EscapeHTML(post.Text))
}

// ModeratorView is the review render with live publish/reject controls.
func ModeratorView(post *store.Post) notifier.View {
	return notifier.View{
		Text:    moderatorText(post),
		PhotoID: post.PhotoID,
		Controls: notifier.Row(
			notifier.Button{Text: "✅ Publish", Data: callback(DataPublish, post.ID)},
			notifier.Button{Text: "❌ Reject", Data: callback(DataReject, post.ID)},
		),
	}
}

// RejectingView replaces the controls while a reason is awaited.
func RejectingView(post *store.Post, moderator store.Actor) notifier.View {
	return notifier.View{
		Text:    moderatorText(post) + fmt.Sprintf("\n\n⏳ %s is writing a rejection reason", textutil.EscapeHTML(moderator.Display())),
		PhotoID: post.PhotoID,
		Controls: notifier.Row(
			notifier.Button{Text: "↩️ Cancel rejection", Data: callback(DataCancelReject, post.ID)},
		),
	}
}

// DecidedModeratorView is the terminal render: a single disabled control.
func DecidedModeratorView(post *store.Post) notifier.View {
	label := store.MatchState(post.State,
		func(store.Pending) string { return "" },
		func(store.Published) string { return "✅ Published" },
		func(store.Rejected) string { return "❌ Rejected" },
	)
	view := notifier.View{Text: moderatorText(post), PhotoID: post.PhotoID}
	if label != "" {
		view.Controls = notifier.Row(notifier.Button{Text: label, Data: DataDisabled})
	}
	return view
}

func authorLine(post *store.Post, author *store.User) string {
	username := "no username"
	if author != nil && author.Username != "" {
		username = "@" + author.Username
	}
	return fmt.Sprintf("👤 <b>Author:</b> %s\n🆔 <b>Author ID:</b> <code>%d</code>", textutil.EscapeHTML(username), post.AuthorID)
}

// AdminView is the admins-topic render. Decided posts show who acted.
func AdminView(post *store.Post, author *store.User) notifier.View {
	body := fmt.Sprintf("📄 <b>Text:</b>\n%s\n\n%s", textutil.EscapeHTML(post.Text), authorLine(post, author))
	return store.MatchState(post.State,
		func(store.Pending) notifier.View {
			return notifier.View{
				Text: fmt.Sprintf("📨 <b>New post #%d for moderation</b>\n\n%s\n📅 <b>Submitted:</b> %s",
					post.ID, body, post.SubmittedAt.UTC().Format("02.01.2006 15:04:05")),
				PhotoID: post.PhotoID,
			}
		},
		func(p store.Published) notifier.View {
			return notifier.View{
				Text: fmt.Sprintf("📨 Post #%d published\n\n%s\n👤 <b>Published by:</b> %s",
					post.ID, body, textutil.EscapeHTML(p.Moderator.Display())),
				PhotoID:  post.PhotoID,
				Controls: notifier.Row(notifier.Button{Text: "👤 Who published", Data: callback(DataWhoPublished, post.ID)}),
			}
		},
		func(r store.Rejected) notifier.View {
			return notifier.View{
				Text: fmt.Sprintf("📨 Post #%d rejected\n\n%s\n👤 <b>Rejected by:</b> %s\n📝 <b>Reason:</b> %s",
					post.ID, body, textutil.EscapeHTML(r.Moderator.Display()), textutil.EscapeHTML(r.Reason)),
				PhotoID:  post.PhotoID,
				Controls: notifier.Row(notifier.Button{Text: "👤 Who rejected", Data: callback(DataWhoRejected, post.ID)}),
			}
		},
	)
}

// DecisionDetails answers a who_pub_/who_rej_ press. Pending posts have none.
func DecisionDetails(post *store.Post) (string, bool) {
	text := store.MatchState(post.State,
		func(store.Pending) string { return "" },
		func(p store.Published) string {
			return fmt.Sprintf("👤 <b>Post #%d published</b>\n\n%s\n🕒 %s",
				post.ID, actorDetails(p.Moderator), p.At.UTC().Format("02.01.2006 15:04:05"))
		},
		func(r store.Rejected) string {
			return fmt.Sprintf("👤 <b>Post #%d rejected</b>\n\n%s\n🕒 %s\n\n📝 <b>Reason:</b>\n%s",
				post.ID, actorDetails(r.Moderator), r.At.UTC().Format("02.01.2006 15:04:05"), textutil.EscapeHTML(r.Reason))
		},
	)
	return text, text != ""
}

func actorDetails(a store.Actor) string {
	username := "unknown"
	if a.Username != "" {
		username = "@" + a.Username
	}
	return fmt.Sprintf("🆔 <b>Moderator ID:</b> <code>%d</code>\n📛 <b>Username:</b> %s\n🔗 tg://user?id=%d",
		a.ID, textutil.EscapeHTML(username), a.ID)
}

// ChannelView is the post as it appears in the main channel.
func ChannelView(post *store.Post) notifier.View {
	return notifier.View{Text: textutil.EscapeHTML(post.Text), PhotoID: post.PhotoID}
}

// ReasonPrompt asks the moderators topic for a reason and offers a way out.
func ReasonPrompt(postID int64, timeoutSeconds int) notifier.View {
	return notifier.View{
		Text: fmt.Sprintf("Describe the rejection reason for post #%d (you have %d s):", postID, timeoutSeconds),
		Controls: notifier.Row(
			notifier.Button{Text: "↩️ Cancel", Data: callback(DataCancelReject, postID)},
		),
	}
}

var (
	expiredNotice   = notifier.Text("⚠️ Time to give a reason is up. Action cancelled.")
	publishedNotice = notifier.Text("✅ Post published")
	reasonSent      = notifier.Text("✅ Reason sent to the author.")
	authorPublished = notifier.Text("🎉 Your post was published in the channel!")
)

func authorRejected(reason string, moderator store.Actor) notifier.View {
	username := "no username"
	if moderator.Username != "" {
		username = "@" + moderator.Username
	}
	return notifier.Text(fmt.Sprintf("❌ Your post was rejected.\n\n📝 <b>Reason:</b> %s\n\n👮 <b>Moderator:</b> %s",
		textutil.EscapeHTML(reason), textutil.EscapeHTML(username)))
}
