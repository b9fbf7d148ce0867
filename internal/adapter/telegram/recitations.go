package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const recitationsPerPage = 5

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message, lang domain.Language) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	state, err := b.service.GetCurrentState(ctx, userID)
	if err != nil || state != domain.StateWaitRecording {
		b.sendMessage(chatID, b.i18n.Get(lang, "error.unexpected_voice"))
		return
	}

	b.sendMessage(chatID, b.i18n.Get(lang, "recording.processing"))

	audio, filename, err := b.downloadVoice(ctx, msg)
	if err != nil {
		b.logger.Error("failed to download voice message", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, downloadErrorKey(err)))
		return
	}

	attempt, err := b.service.HandleRecording(ctx, userID, audio, filename)
	if err != nil {
		b.logger.Error("failed to handle recording", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ "+b.i18n.Get(lang, "recording.new"), cbMode+string(domain.ModeRecite)),
			tgbotapi.NewInlineKeyboardButtonData("🗂 "+b.i18n.Get(lang, "menu.history"), cbBackToRecs),
		),
	)
	b.sendHTMLWithKeyboard(chatID, renderScoreCard(b.i18n, lang, attempt), &keyboard)
	b.sendMessage(chatID, b.i18n.Get(lang, "recording.again"))
}

// handleViewRecitation shows the score card of a stored recitation
func (b *Bot) handleViewRecitation(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, attemptID string) {
	attempt, err := b.service.GetRecitation(ctx, userID, attemptID)
	if err != nil {
		b.logger.Error("failed to get recitation", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.recording_not_found"))
		return
	}

	text := renderScoreCard(b.i18n, lang, attempt)
	text += fmt.Sprintf("\n📅 %s: %s", b.i18n.Get(lang, "recording.created"), attempt.CreatedAt.Format(time.RFC822))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ "+b.i18n.Get(lang, "nav.back"), cbBackToRecs),
		),
	)
	b.editHTML(msg, text, &keyboard, true)
}

// editRecitationsList edits msg into a page of the user's recitations
func (b *Bot) editRecitationsList(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, page int) {
	attempts, err := b.service.ListRecitations(ctx, userID, historyLimit)
	if err != nil {
		b.logger.Error("failed to list recitations", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.generic"))
		return
	}

	if len(attempts) == 0 {
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "recitations.empty"))
		return
	}

	text, keyboard := b.formatRecitationsList(lang, attempts, page)
	b.editHTML(msg, text, &keyboard, true)
}

// formatRecitationsList formats recitations into paginated list with keyboard
func (b *Bot) formatRecitationsList(lang domain.Language, attempts []*domain.RecitationAttempt, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	start, end, page, totalPages := paginate(len(attempts), recitationsPerPage, page)

	var text strings.Builder
	text.WriteString(fmt.Sprintf("<b>%s</b>\n\n", b.i18n.Get(lang, "recitations.title")))
	text.WriteString(fmt.Sprintf("%s: %d\n", b.i18n.Get(lang, "recitations.total"), len(attempts)))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range attempts[start:end] {
		surahNum, ayahNum := domain.ParseAyahID(a.AyahID)
		btnText := fmt.Sprintf("%s %d:%d · %d/100 · %s",
			tierMarker(a.Result.Tier),
			surahNum,
			ayahNum,
			a.Result.Score,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnText, cbViewRec+a.ID),
		))
	}

	if nav := b.navRow(lang, cbRecPage, page, totalPages); nav != nil {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			"➕ "+b.i18n.Get(lang, "recording.new"),
			cbMode+string(domain.ModeRecite),
		),
	))

	return text.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}
