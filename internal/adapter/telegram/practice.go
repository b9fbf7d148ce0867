package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

func (b *Bot) sendQuestion(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	q, err := b.service.NewQuestion(ctx, userID)
	if err != nil {
		b.logger.Warn("failed to generate question", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	// One choice per row, the names can be long in some languages
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, choice := range q.Choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(choice, fmt.Sprintf("%s%d", cbAnswer, i)),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	b.sendHTMLWithKeyboard(chatID, renderQuestion(b.i18n, lang, q), &keyboard)
}

func (b *Bot) handleAnswer(ctx context.Context, callback *tgbotapi.CallbackQuery, userID string, lang domain.Language, index int) {
	outcome, err := b.service.AnswerQuestion(ctx, userID, index)
	if err != nil {
		b.logger.Debug("failed to answer question", zap.String("user_id", userID), zap.Error(err))
		b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := b.outcomeKeyboard(lang)
	b.editHTML(callback.Message, renderOutcome(b.i18n, lang, outcome), &keyboard, true)
}

func (b *Bot) outcomeKeyboard(lang domain.Language) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(b.i18n.Get(lang, "practice.next")+" ➡️", cbNextQuestion),
	}
	if b.service.ExplainerEnabled() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("💡 "+b.i18n.Get(lang, "practice.explain"), cbExplainAnswer))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleExplainAnswer(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	b.sendMessage(chatID, b.i18n.Get(lang, "explain.thinking"))

	answer, err := b.service.ExplainAnswer(ctx, userID, lang)
	if err != nil {
		b.logger.Error("failed to explain answer", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(b.i18n.Get(lang, "practice.next")+" ➡️", cbNextQuestion),
	))
	msg := tgbotapi.NewMessage(chatID, "💡 "+answer)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send explanation", zap.Error(err))
	}
}
