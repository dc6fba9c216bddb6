package bot

import (
	"fmt"

	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

const (
	notRegistered  = "👋 Send /start first."
	alreadyHandled = "This post has already been handled"
)

func welcomeView() notifier.View {
	return notifier.Text("Hi! 👋\n" +
		"Send a post for the channel as a message, optionally as a photo with a caption.\n\n" +
		"⚠️ <b>Rule:</b> every post must contain 🧑 or 👩\n\n" +
		"/profile shows your statistics.")
}

func profileView(user *store.User, today, limit, week int) notifier.View {
	username := "not set"
	if user.Username != "" {
		username = "@" + textutil.EscapeHTML(user.Username)
	}
	subscribed := "❌ Not verified"
	if user.SubscriptionVerified {
		subscribed = "✅ Verified"
	}
	return notifier.Text(fmt.Sprintf(
		"👤 <b>Profile</b>\n\n"+
			"🆔 <b>ID:</b> <code>%d</code>\n"+
			"📛 <b>Username:</b> %s\n"+
			"📊 <b>Posts today:</b> %d/%d\n"+
			"📊 <b>Posts in 7 days:</b> %d\n"+
			"📅 <b>Registered:</b> %s\n"+
			"📢 <b>Subscription:</b> %s",
		user.ID, username, today, limit, week,
		user.RegisteredAt.UTC().Format("2006-01-02"), subscribed,
	))
}
