package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

type CommandHandler func(ctx context.Context, msg *tgbotapi.Message)

// registerCommands registers all bot commands
func (b *Bot) registerCommands() {
	b.commands = map[string]CommandHandler{
		"start":     b.commandStart,
		"help":      b.commandHelp,
		"language":  b.commandLanguage,
		"read":      b.commandRead,
		"recite":    b.commandRecite,
		"practice":  b.commandPractice,
		"rules":     b.commandRules,
		"tajweed":   b.commandTajweed,
		"history":   b.commandHistory,
		"progress":  b.commandProgress,
		"lessons":   b.commandLessons,
		"bookmark":  b.commandBookmark,
		"bookmarks": b.commandBookmarks,
	}

	// Set bot commands for Telegram UI
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "read", Description: "Read a verse with tajweed highlighting"},
		{Command: "recite", Description: "Recite a verse and get a score"},
		{Command: "practice", Description: "Practice spotting tajweed rules"},
		{Command: "lessons", Description: "Follow the lesson path"},
		{Command: "rules", Description: "Tajweed rule guide"},
		{Command: "tajweed", Description: "Turn highlighting on or off"},
		{Command: "history", Description: "View my recitations"},
		{Command: "bookmark", Description: "Bookmark the current verse"},
		{Command: "bookmarks", Description: "View my bookmarks"},
		{Command: "progress", Description: "View my XP, streak and scores"},
		{Command: "language", Description: "Change language"},
		{Command: "help", Description: "Show help"},
	}

	cmdConfig := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cmdConfig); err != nil {
		b.logger.Error("failed to set bot commands", zap.Error(err))
	}
}

// userContext returns the sender ID and preferred language of msg
func (b *Bot) userContext(ctx context.Context, msg *tgbotapi.Message) (string, domain.Language) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	return userID, b.service.GetUserLanguage(ctx, userID)
}

func (b *Bot) commandStart(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)

	if err := b.service.HandleStart(ctx, userID, lang); err != nil {
		b.logger.Error("failed to handle start", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.generic"))
		return
	}

	b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "welcome.message"))
	b.sendMainMenu(msg.Chat.ID, lang)
}

func (b *Bot) commandHelp(ctx context.Context, msg *tgbotapi.Message) {
	_, lang := b.userContext(ctx, msg)
	b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "help.message"))
}

func (b *Bot) commandLanguage(ctx context.Context, msg *tgbotapi.Message) {
	_, lang := b.userContext(ctx, msg)
	b.sendLanguageSelection(msg.Chat.ID, lang)
}

func (b *Bot) commandRead(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.startSelection(ctx, msg.Chat.ID, userID, lang, domain.ModeRead)
}

func (b *Bot) commandRecite(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.startSelection(ctx, msg.Chat.ID, userID, lang, domain.ModeRecite)
}

func (b *Bot) commandPractice(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.sendQuestion(ctx, msg.Chat.ID, userID, lang)
}

func (b *Bot) commandRules(ctx context.Context, msg *tgbotapi.Message) {
	_, lang := b.userContext(ctx, msg)
	b.sendHTML(msg.Chat.ID, renderRuleGuide(b.i18n, lang, b.service.Rules()))
}

func (b *Bot) commandTajweed(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)

	enabled, err := b.service.ToggleTajweed(ctx, userID)
	if err != nil {
		b.logger.Error("failed to toggle tajweed", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.generic"))
		return
	}

	key := "tajweed.off"
	if enabled {
		key = "tajweed.on"
	}
	b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, key))
}

func (b *Bot) commandHistory(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)

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

	text, keyboard := b.formatRecitationsList(lang, attempts, 0)
	b.sendHTMLWithKeyboard(msg.Chat.ID, text, &keyboard)
}

func (b *Bot) commandProgress(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.sendProgress(ctx, msg.Chat.ID, userID, lang)
}

func (b *Bot) commandLessons(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.sendLessons(ctx, msg.Chat.ID, userID, lang)
}

func (b *Bot) commandBookmark(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.handleToggleBookmark(ctx, msg.Chat.ID, userID, lang)
}

func (b *Bot) commandBookmarks(ctx context.Context, msg *tgbotapi.Message) {
	userID, lang := b.userContext(ctx, msg)
	b.sendBookmarks(ctx, msg.Chat.ID, userID, lang)
}

func (b *Bot) sendProgress(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	summary, err := b.service.GetProgress(ctx, userID)
	if err != nil {
		b.logger.Error("failed to get progress", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, "error.generic"))
		return
	}

	b.sendHTML(chatID, renderProgress(b.i18n, lang, summary))
}
