package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/application"
	"github.com/escalopa/tajweed-bot/internal/domain"
)

const lessonsPerRow = 4

func (b *Bot) sendLessons(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	path, err := b.service.Lessons(ctx, userID)
	if err != nil {
		b.logger.Error("failed to list lessons", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	keyboard := lessonsKeyboard(path)
	b.sendHTMLWithKeyboard(chatID, renderLessons(b.i18n, lang, path), &keyboard)
}

// lessonsKeyboard has one button per lesson. Locked lessons keep their
// button and are refused with an alert when tapped.
func lessonsKeyboard(path []application.LessonStatus) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, st := range path {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", lessonMarker(st), st.Number),
			cbLesson+st.Lesson.ID,
		))
		if len(row) == lessonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleStartLesson(ctx context.Context, callback *tgbotapi.CallbackQuery, userID string, lang domain.Language, lessonID string) {
	step, err := b.service.StartLesson(ctx, userID, lessonID)
	if err != nil {
		b.logger.Debug("failed to start lesson", zap.String("user_id", userID), zap.String("lesson_id", lessonID), zap.Error(err))
		b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := lessonStepKeyboard(lang, step)
	b.sendHTMLWithKeyboard(callback.Message.Chat.ID, renderLessonStep(b.i18n, lang, step), &keyboard)
}

func (b *Bot) handleNextLessonStep(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	step, err := b.service.CurrentLessonStep(ctx, userID)
	if err != nil {
		b.logger.Debug("failed to get lesson step", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := lessonStepKeyboard(lang, step)
	b.editHTML(msg, renderLessonStep(b.i18n, lang, step), &keyboard, true)
}

// handleLessonAnswer handles "lans:<step>:<choice>"
func (b *Bot) handleLessonAnswer(ctx context.Context, callback *tgbotapi.CallbackQuery, userID string, lang domain.Language, data string) {
	stepStr, choiceStr, _ := strings.Cut(data, ":")
	step, err1 := strconv.Atoi(stepStr)
	choice, err2 := strconv.Atoi(choiceStr)
	if err1 != nil || err2 != nil {
		b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, "error.invalid_input"))
		return
	}

	outcome, err := b.service.AnswerLessonStep(ctx, userID, step, choice)
	if err != nil {
		b.logger.Debug("failed to answer lesson step", zap.String("user_id", userID), zap.Error(err))
		b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := lessonOutcomeKeyboard(b.i18n, lang, outcome)
	b.editHTML(callback.Message, renderLessonOutcome(b.i18n, lang, outcome), &keyboard, true)
}

// lessonStepKeyboard offers the options of a step, one per row. The step
// index is carried so a button of an earlier step cannot answer this one.
func lessonStepKeyboard(lang domain.Language, step *application.LessonStep) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, opt := range step.Step.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.In(string(lang)), fmt.Sprintf("%s%d:%d", cbLessonAnswer, step.Index, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func lessonOutcomeKeyboard(tr domain.I18nPort, lang domain.Language, o *application.LessonOutcome) tgbotapi.InlineKeyboardMarkup {
	if o.Finished {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗺 "+tr.Get(lang, "lessons.back"), cbLessons),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(tr.Get(lang, "lessons.next")+" ➡️", cbLessonNext),
	))
}
