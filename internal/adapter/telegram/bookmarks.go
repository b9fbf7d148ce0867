package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/application"
	"github.com/escalopa/tajweed-bot/internal/domain"
)

const bookmarksLimit = 20

func (b *Bot) handleToggleBookmark(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	saved, err := b.service.ToggleBookmark(ctx, userID)
	if err != nil {
		b.logger.Error("failed to toggle bookmark", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	key := "bookmark.removed"
	if saved {
		key = "bookmark.added"
	}
	b.sendMessage(chatID, b.i18n.Get(lang, key))
}

func (b *Bot) sendBookmarks(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	bookmarks, err := b.service.ListBookmarks(ctx, userID, bookmarksLimit)
	if err != nil {
		b.logger.Error("failed to list bookmarks", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	if len(bookmarks) == 0 {
		b.sendMessage(chatID, b.i18n.Get(lang, "bookmarks.empty"))
		return
	}

	keyboard := bookmarksKeyboard(bookmarks)
	b.sendHTMLWithKeyboard(chatID, renderBookmarks(b.i18n, lang, bookmarks), &keyboard)
}

func bookmarksKeyboard(bookmarks []*domain.Bookmark) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, bm := range bookmarks {
		surahNum, ayahNum := domain.ParseAyahID(bm.AyahID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🔖 %s %d:%d", bm.SurahName, surahNum, ayahNum),
				cbOpenBookmark+bm.AyahID,
			),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleOpenBookmark(ctx context.Context, chatID int64, userID string, lang domain.Language, ayahID string) {
	sel, err := b.service.OpenBookmark(ctx, userID, ayahID)
	if err != nil {
		b.logger.Error("failed to open bookmark", zap.String("user_id", userID), zap.String("ayah_id", ayahID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}
	b.sendSelection(ctx, chatID, userID, lang, sel)
}

// handleListen sends the recitation audio of the verse the user is on
func (b *Bot) handleListen(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	sel, err := b.service.CurrentVerse(ctx, userID)
	if err != nil {
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	audio, ok := verseAudio(chatID, lang, sel)
	if !ok {
		b.sendMessage(chatID, b.i18n.Get(lang, "error.audio_unavailable"))
		return
	}
	if _, err := b.api.Send(audio); err != nil {
		b.logger.Error("failed to send verse audio", zap.String("user_id", userID), zap.String("url", sel.Verse.AudioURL), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.audio_unavailable"))
	}
}

// verseAudio lets Telegram fetch the verse audio by URL, false when the
// corpus has none for the verse
func verseAudio(chatID int64, lang domain.Language, sel *application.Selection) (tgbotapi.AudioConfig, bool) {
	if sel.Verse.AudioURL == "" {
		return tgbotapi.AudioConfig{}, false
	}
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileURL(sel.Verse.AudioURL))
	audio.Caption = fmt.Sprintf("%s %d:%d", surahName(lang, sel.Surah), sel.Verse.SurahNumber, sel.Verse.Number)
	return audio, true
}
