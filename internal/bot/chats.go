package bot

import (
	"moderbot/internal/config"
	"moderbot/internal/telegram"
)

// classify maps a chat and topic onto a ChatKind. Group chats other than the
// moderators and admins chats are ignored, and inside those chats only the
// configured topic counts. A zero topic id accepts the whole chat.
func classify(chats config.Chats, chat telegram.Chat, threadID int64) ChatKind {
	switch chat.Type {
	case telegram.ChatPrivate:
		return ChatPrivate
	case telegram.ChatGroup, telegram.ChatSupergroup:
	default:
		return ChatIgnored
	}
	switch chat.ID {
	case chats.ModeratorsChatID:
		if topicMatches(chats.ModeratorsTopicID, threadID) {
			return ChatModerators
		}
	case chats.AdminsChatID:
		if topicMatches(chats.AdminsTopicID, threadID) {
			return ChatAdmins
		}
	}
	return ChatIgnored
}

func topicMatches(want, got int64) bool {
	return want == 0 || want == got
}
