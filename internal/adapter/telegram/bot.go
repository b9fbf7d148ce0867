package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/application"
	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

// Callback data prefixes and actions
const (
	cbLanguage      = "lang:"
	cbMode          = "mode:"
	cbSurahPage     = "spage:"
	cbSurah         = "surah:"
	cbDigit         = "digit:"
	cbClear         = "clear"
	cbDone          = "done"
	cbToggle        = "tajweed"
	cbExplainVerse  = "explainv"
	cbAnswer        = "answer:"
	cbNextQuestion  = "nextq"
	cbExplainAnswer = "explainq"
	cbRecPage       = "recpage:"
	cbViewRec       = "viewrec:"
	cbBackToRecs    = "backtorecs"
	cbRules         = "rules"
	cbProgress      = "progress"
	cbLessons       = "lessons"
	cbLesson        = "lesson:"
	cbLessonAnswer  = "lans:"
	cbLessonNext    = "lnext"
	cbBookmark      = "bookmark"
	cbBookmarks     = "bookmarks"
	cbOpenBookmark  = "bm:"
	cbListen        = "listen"
	cbNoop          = "noop"
)

const (
	historyLimit    = 50
	downloadTimeout = 30 * time.Second
)

type Bot struct {
	api      *tgbotapi.BotAPI
	service  *application.BotService
	catalog  *tajweed.Catalog
	i18n     domain.I18nPort
	logger   *zap.Logger
	http     *http.Client
	commands map[string]CommandHandler
	cancel   context.CancelFunc
}

func NewBot(token string, service *application.BotService, catalog *tajweed.Catalog, i18n domain.I18nPort, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := &Bot{
		api:      api,
		service:  service,
		catalog:  catalog,
		i18n:     i18n,
		logger:   logger,
		http:     &http.Client{Timeout: downloadTimeout},
		commands: make(map[string]CommandHandler),
	}

	// Register commands
	bot.registerCommands()

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.logger.Info("authorized on account", zap.String("username", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", zap.Any("panic", r), zap.Int("update_id", update.UpdateID))
		}
	}()

	userID := b.getUserID(update)
	if userID == "" {
		return
	}

	lang := b.service.GetUserLanguage(ctx, userID)

	// Handle commands
	if update.Message != nil && update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message, lang)
		return
	}

	// Handle voice messages
	if update.Message != nil && (update.Message.Voice != nil || update.Message.Audio != nil) {
		b.handleVoice(ctx, update.Message, lang)
		return
	}

	// Handle callback queries (button presses)
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		b.handleCallback(ctx, update.CallbackQuery, lang)
		return
	}

	// Handle text messages (ayah number input)
	if update.Message != nil && update.Message.Text != "" {
		b.handleText(ctx, update.Message, lang)
		return
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, lang domain.Language) {
	cmd := msg.Command()

	handler, exists := b.commands[cmd]
	if !exists {
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.unknown_command"))
		return
	}

	handler(ctx, msg)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, lang domain.Language) {
	userID := strconv.FormatInt(callback.From.ID, 10)
	msg := callback.Message
	data := callback.Data

	// Answer callback to remove loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug("failed to answer callback", zap.Error(err))
	}

	if v, ok := strings.CutPrefix(data, cbLanguage); ok {
		b.handleLanguageChoice(ctx, msg, userID, domain.Language(v))
		return
	}

	if v, ok := strings.CutPrefix(data, cbMode); ok {
		b.startSelection(ctx, msg.Chat.ID, userID, lang, domain.Mode(v))
		return
	}

	if v, ok := strings.CutPrefix(data, cbSurahPage); ok {
		page, _ := strconv.Atoi(v)
		b.editSurahSelection(ctx, msg, lang, page)
		return
	}

	if v, ok := strings.CutPrefix(data, cbSurah); ok {
		surahNum, err := strconv.Atoi(v)
		if err != nil {
			b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, "error.invalid_input"))
			return
		}
		b.handleSurahChoice(ctx, callback, userID, lang, surahNum)
		return
	}

	if v, ok := strings.CutPrefix(data, cbDigit); ok {
		b.handleDigitInput(ctx, msg, userID, lang, v)
		return
	}

	if v, ok := strings.CutPrefix(data, cbAnswer); ok {
		index, err := strconv.Atoi(v)
		if err != nil {
			b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, "error.invalid_input"))
			return
		}
		b.handleAnswer(ctx, callback, userID, lang, index)
		return
	}

	if v, ok := strings.CutPrefix(data, cbRecPage); ok {
		page, _ := strconv.Atoi(v)
		b.editRecitationsList(ctx, msg, userID, lang, page)
		return
	}

	if v, ok := strings.CutPrefix(data, cbViewRec); ok {
		b.handleViewRecitation(ctx, msg, userID, lang, v)
		return
	}

	if v, ok := strings.CutPrefix(data, cbLesson); ok {
		b.handleStartLesson(ctx, callback, userID, lang, v)
		return
	}

	if v, ok := strings.CutPrefix(data, cbLessonAnswer); ok {
		b.handleLessonAnswer(ctx, callback, userID, lang, v)
		return
	}

	if v, ok := strings.CutPrefix(data, cbOpenBookmark); ok {
		b.handleOpenBookmark(ctx, msg.Chat.ID, userID, lang, v)
		return
	}

	switch data {
	case cbClear:
		b.handleClearDigit(ctx, msg, userID, lang)
	case cbDone:
		b.handleAyahDone(ctx, msg, userID, lang)
	case cbToggle:
		b.handleToggleTajweed(ctx, msg, userID, lang)
	case cbExplainVerse:
		b.handleExplainVerse(ctx, msg.Chat.ID, userID, lang)
	case cbNextQuestion:
		b.sendQuestion(ctx, msg.Chat.ID, userID, lang)
	case cbExplainAnswer:
		b.handleExplainAnswer(ctx, msg.Chat.ID, userID, lang)
	case cbBackToRecs:
		b.editRecitationsList(ctx, msg, userID, lang, 0)
	case cbRules:
		b.sendHTML(msg.Chat.ID, renderRuleGuide(b.i18n, lang, b.service.Rules()))
	case cbProgress:
		b.sendProgress(ctx, msg.Chat.ID, userID, lang)
	case cbLessons:
		b.sendLessons(ctx, msg.Chat.ID, userID, lang)
	case cbLessonNext:
		b.handleNextLessonStep(ctx, msg, userID, lang)
	case cbBookmark:
		b.handleToggleBookmark(ctx, msg.Chat.ID, userID, lang)
	case cbBookmarks:
		b.sendBookmarks(ctx, msg.Chat.ID, userID, lang)
	case cbListen:
		b.handleListen(ctx, msg.Chat.ID, userID, lang)
	case cbNoop:
	default:
		b.logger.Debug("unknown callback", zap.String("data", data))
	}
}

func (b *Bot) handleLanguageChoice(ctx context.Context, msg *tgbotapi.Message, userID string, newLang domain.Language) {
	if err := b.service.SetLanguage(ctx, userID, newLang); err != nil {
		b.logger.Error("failed to set language", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(b.service.GetUserLanguage(ctx, userID), errorKey(err)))
		return
	}

	b.deleteMessage(msg)
	b.sendMessage(msg.Chat.ID, b.i18n.Get(newLang, "language.changed"))
	b.sendMainMenu(msg.Chat.ID, newLang)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message, lang domain.Language) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	state, err := b.service.GetCurrentState(ctx, userID)
	if err != nil {
		b.logger.Error("failed to get state", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	// Handle ayah number input
	if state == domain.StateEnterAyah {
		sel, err := b.service.HandleAyahInput(ctx, userID, strings.TrimSpace(msg.Text))
		if err != nil {
			b.logger.Debug("invalid ayah input", zap.String("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, b.i18n.Get(lang, ayahErrorKey(err)))
			return
		}
		b.sendSelection(ctx, chatID, userID, lang, sel)
		return
	}

	// For other states, show help
	b.sendMessage(chatID, b.i18n.Get(lang, "help.message"))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	b.sendHTMLWithKeyboard(chatID, text, nil)
}

func (b *Bot) sendHTMLWithKeyboard(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) editMessageWithKeyboard(msg *tgbotapi.Message, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	b.editHTML(msg, text, &keyboard, false)
}

// editHTML replaces the text and keyboard of msg, html selects the parse mode
func (b *Bot) editHTML(msg *tgbotapi.Message, text string, keyboard *tgbotapi.InlineKeyboardMarkup, html bool) {
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	edit.ReplyMarkup = keyboard
	if html {
		edit.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to edit message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) deleteMessage(msg *tgbotapi.Message) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.logger.Debug("failed to delete message", zap.Error(err))
	}
}

func (b *Bot) answerCallbackAlert(callbackID, text string) {
	callback := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error("failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) getUserID(update tgbotapi.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return strconv.FormatInt(update.Message.From.ID, 10)
	}
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		return strconv.FormatInt(update.CallbackQuery.From.ID, 10)
	}
	return ""
}

// errorKey maps a service error to the message shown to the user
func errorKey(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return "error.session_expired"
	case errors.Is(err, domain.ErrInvalidSelection):
		return "error.invalid_input"
	case errors.Is(err, domain.ErrNoMatchFound):
		return "practice.no_match"
	case errors.Is(err, domain.ErrFetchFailed):
		return "error.fetch"
	case errors.Is(err, application.ErrExplainerDisabled):
		return "error.explainer_disabled"
	case errors.Is(err, domain.ErrLessonLocked):
		return "error.lesson_locked"
	case errors.Is(err, domain.ErrNotFound):
		return "error.recording_not_found"
	default:
		return "error.generic"
	}
}

func ayahErrorKey(err error) string {
	if errors.Is(err, domain.ErrInvalidSelection) {
		return "error.invalid_ayah"
	}
	return errorKey(err)
}

func downloadErrorKey(err error) string {
	if errors.Is(err, errFileTooLarge) {
		return "error.audio_too_large"
	}
	return "error.audio_download"
}
