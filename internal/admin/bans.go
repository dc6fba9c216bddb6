package admin

import (
	"context"
	"fmt"
	"strings"

	"moderbot/internal/logging"
	"moderbot/internal/notifier"
	"moderbot/internal/store"
	"moderbot/internal/textutil"
)

// Ban bans a registered user and tells them why. A repeat ban replaces the
// previous record.
func (s *Service) Ban(ctx context.Context, by store.Actor, userID int64, reason string) (store.Ban, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return store.Ban{}, err
	}
	if user == nil {
		return store.Ban{}, fmt.Errorf("ban %d: %w", userID, ErrUserNotFound)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultBanReason
	}
	ban := store.Ban{UserID: userID, Reason: reason, Admin: by, BannedAt: s.now()}
	if err := s.store.CreateBan(ctx, ban); err != nil {
		return store.Ban{}, err
	}
	s.logger.Info("user banned", logging.UserID(userID), logging.Int64("admin_id", by.ID), logging.String("reason", reason))
	s.writeLog(ctx, "ban", map[string]any{"user_id": userID, "admin_id": by.ID, "reason": reason})
	s.notify(ctx, userID, BanNotice(ban))
	return ban, nil
}

// Unban lifts an existing ban and tells the user.
func (s *Service) Unban(ctx context.Context, by store.Actor, userID int64) error {
	removed, err := s.store.DeleteBan(ctx, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("unban %d: %w", userID, ErrNotBanned)
	}
	s.logger.Info("user unbanned", logging.UserID(userID), logging.Int64("admin_id", by.ID))
	s.writeLog(ctx, "unban", map[string]any{"user_id": userID, "admin_id": by.ID})
	s.notify(ctx, userID, notifier.Text("✅ You have been unbanned. You can submit posts again."))
	return nil
}

// Bans lists every active ban.
func (s *Service) Bans(ctx context.Context) ([]store.Ban, error) {
	return s.store.ListBans(ctx)
}

// BanNotice is the message a banned user sees.
func BanNotice(ban store.Ban) notifier.View {
	return notifier.Text(fmt.Sprintf(
		"🚫 <b>You are banned</b>\n\nReason: %s\nBy: %s\nDate: %s",
		textutil.EscapeHTML(ban.Reason),
		textutil.EscapeHTML(ban.Admin.Display()),
		ban.BannedAt.UTC().Format("2006-01-02 15:04 UTC"),
	))
}
