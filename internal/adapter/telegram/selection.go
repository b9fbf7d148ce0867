package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/application"
	"github.com/escalopa/tajweed-bot/internal/domain"
)

const (
	surahsPerPage = 10
	maxAyahDigits = 3
)

var languageButtons = []struct {
	label string
	lang  domain.Language
}{
	{"🇬🇧 English", domain.LangEnglish},
	{"🇸🇦 العربية", domain.LangArabic},
	{"🇮🇩 Bahasa Indonesia", domain.LangIndonesian},
}

func (b *Bot) sendLanguageSelection(chatID int64, currentLang domain.Language) {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range languageButtons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l.label, cbLanguage+string(l.lang)))
	}

	msg := tgbotapi.NewMessage(chatID, b.i18n.Get(currentLang, "language.select"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send language selection", zap.Error(err))
	}
}

func (b *Bot) sendMainMenu(chatID int64, lang domain.Language) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 "+b.i18n.Get(lang, "menu.read"), cbMode+string(domain.ModeRead)),
			tgbotapi.NewInlineKeyboardButtonData("🎙 "+b.i18n.Get(lang, "menu.recite"), cbMode+string(domain.ModeRecite)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧠 "+b.i18n.Get(lang, "menu.practice"), cbNextQuestion),
			tgbotapi.NewInlineKeyboardButtonData("📚 "+b.i18n.Get(lang, "menu.rules"), cbRules),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗺 "+b.i18n.Get(lang, "menu.lessons"), cbLessons),
			tgbotapi.NewInlineKeyboardButtonData("🔖 "+b.i18n.Get(lang, "menu.bookmarks"), cbBookmarks),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 "+b.i18n.Get(lang, "menu.history"), cbBackToRecs),
			tgbotapi.NewInlineKeyboardButtonData("📊 "+b.i18n.Get(lang, "menu.progress"), cbProgress),
		),
	)

	msg := tgbotapi.NewMessage(chatID, b.i18n.Get(lang, "menu.title"))
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send main menu", zap.Error(err))
	}
}

// startSelection opens the surah menu for reading or reciting
func (b *Bot) startSelection(ctx context.Context, chatID int64, userID string, lang domain.Language, mode domain.Mode) {
	if err := b.service.StartSelection(ctx, userID, mode); err != nil {
		b.logger.Error("failed to start selection", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}
	b.sendSurahSelection(ctx, chatID, lang, 0)
}

func (b *Bot) sendSurahSelection(ctx context.Context, chatID int64, lang domain.Language, page int) {
	keyboard, err := b.getSurahKeyboard(ctx, lang, page)
	if err != nil {
		b.logger.Error("failed to list surahs", zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	msg := tgbotapi.NewMessage(chatID, b.i18n.Get(lang, "surah.select"))
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send surah selection", zap.Error(err))
	}
}

func (b *Bot) editSurahSelection(ctx context.Context, msg *tgbotapi.Message, lang domain.Language, page int) {
	keyboard, err := b.getSurahKeyboard(ctx, lang, page)
	if err != nil {
		b.logger.Error("failed to list surahs", zap.Error(err))
		return
	}
	b.editMessageWithKeyboard(msg, b.i18n.Get(lang, "surah.select"), keyboard)
}

func (b *Bot) getSurahKeyboard(ctx context.Context, lang domain.Language, page int) (tgbotapi.InlineKeyboardMarkup, error) {
	surahs, err := b.service.ListSurahs(ctx)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}

	start, end, page, totalPages := paginate(len(surahs), surahsPerPage, page)

	var rows [][]tgbotapi.InlineKeyboardButton

	// Add surah buttons (2 per row)
	for i := start; i < end; i += 2 {
		row := []tgbotapi.InlineKeyboardButton{surahButton(lang, surahs[i])}
		if i+1 < end {
			row = append(row, surahButton(lang, surahs[i+1]))
		}
		rows = append(rows, row)
	}

	if nav := b.navRow(lang, cbSurahPage, page, totalPages); nav != nil {
		rows = append(rows, nav)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

func surahButton(lang domain.Language, s domain.Surah) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(
		fmt.Sprintf("%d. %s", s.Number, surahName(lang, s)),
		fmt.Sprintf("%s%d", cbSurah, s.Number),
	)
}

// navRow builds the prev / page / next row, nil when everything fits one page
func (b *Bot) navRow(lang domain.Language, prefix string, page, totalPages int) []tgbotapi.InlineKeyboardButton {
	if totalPages <= 1 {
		return nil
	}

	var navRow []tgbotapi.InlineKeyboardButton
	if page > 0 {
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
			"⬅️ "+b.i18n.Get(lang, "nav.prev"),
			fmt.Sprintf("%s%d", prefix, page-1),
		))
	}
	navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
		fmt.Sprintf("%d/%d", page+1, totalPages),
		cbNoop,
	))
	if page < totalPages-1 {
		navRow = append(navRow, tgbotapi.NewInlineKeyboardButtonData(
			b.i18n.Get(lang, "nav.next")+" ➡️",
			fmt.Sprintf("%s%d", prefix, page+1),
		))
	}
	return navRow
}

// paginate clamps page and returns the [start, end) window of n items
func paginate(n, perPage, page int) (start, end, clamped, totalPages int) {
	totalPages = (n + perPage - 1) / perPage
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}

	start = page * perPage
	end = min(start+perPage, n)
	return start, end, page, totalPages
}

func (b *Bot) handleSurahChoice(ctx context.Context, callback *tgbotapi.CallbackQuery, userID string, lang domain.Language, surahNum int) {
	surah, err := b.service.HandleSurahSelection(ctx, userID, surahNum)
	if err != nil {
		b.logger.Error("failed to select surah", zap.String("user_id", userID), zap.Int("surah", surahNum), zap.Error(err))
		b.answerCallbackAlert(callback.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	b.editMessageWithKeyboard(callback.Message, b.ayahPrompt(lang, surah, "", ""), b.getAyahKeyboard(lang))
}

// ayahPrompt is the text above the ayah keypad
func (b *Bot) ayahPrompt(lang domain.Language, surah *domain.Surah, input, warning string) string {
	text := b.i18n.Get(lang, "ayah.select", surahName(lang, *surah), surah.Ayahs)
	if input != "" {
		text += fmt.Sprintf("\n\n📝 %s", input)
	}
	if warning != "" {
		text += "\n\n⚠️ " + warning
	}
	return text
}

func (b *Bot) selectedSurah(ctx context.Context, userID string) (*domain.Surah, error) {
	surahNum, err := b.service.GetSelectedSurah(ctx, userID)
	if err != nil {
		return nil, err
	}

	surahs, err := b.service.ListSurahs(ctx)
	if err != nil {
		return nil, err
	}
	if surahNum < 1 || surahNum > len(surahs) {
		return nil, fmt.Errorf("surah %d: %w", surahNum, domain.ErrInvalidSelection)
	}
	return &surahs[surahNum-1], nil
}

func (b *Bot) handleDigitInput(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, digit string) {
	currentInput := b.service.GetAyahInput(ctx, userID)

	// Append digit (limit to 3 digits for ayah number)
	if len(currentInput) < maxAyahDigits {
		currentInput += digit
		if err := b.service.SetAyahInput(ctx, userID, currentInput); err != nil {
			b.logger.Error("failed to set ayah input", zap.String("user_id", userID), zap.Error(err))
			return
		}
	}

	b.refreshAyahKeypad(ctx, msg, userID, lang, currentInput, "")
}

func (b *Bot) handleClearDigit(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	currentInput := b.service.GetAyahInput(ctx, userID)

	// Remove last digit
	if len(currentInput) > 0 {
		currentInput = currentInput[:len(currentInput)-1]
		if err := b.service.SetAyahInput(ctx, userID, currentInput); err != nil {
			b.logger.Error("failed to set ayah input", zap.String("user_id", userID), zap.Error(err))
			return
		}
	}

	b.refreshAyahKeypad(ctx, msg, userID, lang, currentInput, "")
}

func (b *Bot) refreshAyahKeypad(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language, input, warning string) {
	surah, err := b.selectedSurah(ctx, userID)
	if err != nil {
		b.logger.Error("failed to get selected surah", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	b.editMessageWithKeyboard(msg, b.ayahPrompt(lang, surah, input, warning), b.getAyahKeyboard(lang))
}

func (b *Bot) handleAyahDone(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	ayahInput := b.service.GetAyahInput(ctx, userID)
	if ayahInput == "" {
		b.refreshAyahKeypad(ctx, msg, userID, lang, "", b.i18n.Get(lang, "error.invalid_ayah"))
		return
	}

	sel, err := b.service.HandleAyahInput(ctx, userID, ayahInput)
	if err != nil {
		b.logger.Debug("invalid ayah input", zap.String("user_id", userID), zap.Error(err))
		b.refreshAyahKeypad(ctx, msg, userID, lang, ayahInput, b.i18n.Get(lang, ayahErrorKey(err)))
		return
	}

	b.deleteMessage(msg)
	b.sendSelection(ctx, msg.Chat.ID, userID, lang, sel)
}

func (b *Bot) getAyahKeyboard(lang domain.Language) tgbotapi.InlineKeyboardMarkup {
	digit := func(d string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(d, cbDigit+d)
	}

	// Telephone-style number keyboard (3x3 + bottom row)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(digit("1"), digit("2"), digit("3")),
		tgbotapi.NewInlineKeyboardRow(digit("4"), digit("5"), digit("6")),
		tgbotapi.NewInlineKeyboardRow(digit("7"), digit("8"), digit("9")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ "+b.i18n.Get(lang, "nav.back"), cbClear),
			digit("0"),
			tgbotapi.NewInlineKeyboardButtonData("✅ "+b.i18n.Get(lang, "nav.done"), cbDone),
		),
	)
}

// sendSelection shows the chosen verse, and asks for a recording in recite mode
func (b *Bot) sendSelection(ctx context.Context, chatID int64, userID string, lang domain.Language, sel *application.Selection) {
	text := b.renderSelection(ctx, userID, lang, sel)
	keyboard := verseKeyboard(b.i18n, lang, sel, b.service.ExplainerEnabled())
	b.sendHTMLWithKeyboard(chatID, text, &keyboard)

	if sel.Mode == domain.ModeRecite {
		b.sendMessage(chatID, b.i18n.Get(lang, "recording.prompt"))
	}
}

func (b *Bot) renderSelection(ctx context.Context, userID string, lang domain.Language, sel *application.Selection) string {
	spans := b.service.Annotate(ctx, userID, sel.Verse.Text)
	return renderVerse(b.i18n, lang, b.catalog, sel.Surah, sel.Verse, spans, b.service.TajweedEnabled(ctx, userID))
}

// verseKeyboard holds the actions on a shown verse. Listen is offered only
// when the corpus has audio for it.
func verseKeyboard(tr domain.I18nPort, lang domain.Language, sel *application.Selection, explain bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🎨 "+tr.Get(lang, "verse.toggle"), cbToggle),
	}
	if explain {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("💡 "+tr.Get(lang, "verse.explain"), cbExplainVerse))
	}

	saved := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🔖 "+tr.Get(lang, "verse.bookmark"), cbBookmark),
	}
	if sel.Verse.AudioURL != "" {
		saved = append(saved, tgbotapi.NewInlineKeyboardButtonData("🔊 "+tr.Get(lang, "verse.listen"), cbListen))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		saved,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ "+tr.Get(lang, "verse.another"), cbMode+string(sel.Mode)),
		),
	)
}

func (b *Bot) handleToggleTajweed(ctx context.Context, msg *tgbotapi.Message, userID string, lang domain.Language) {
	if _, err := b.service.ToggleTajweed(ctx, userID); err != nil {
		b.logger.Error("failed to toggle tajweed", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, "error.generic"))
		return
	}

	sel, err := b.service.CurrentVerse(ctx, userID)
	if err != nil {
		b.sendMessage(msg.Chat.ID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	keyboard := verseKeyboard(b.i18n, lang, sel, b.service.ExplainerEnabled())
	b.editHTML(msg, b.renderSelection(ctx, userID, lang, sel), &keyboard, true)
}

func (b *Bot) handleExplainVerse(ctx context.Context, chatID int64, userID string, lang domain.Language) {
	b.sendMessage(chatID, b.i18n.Get(lang, "explain.thinking"))

	answer, err := b.service.ExplainVerse(ctx, userID, lang)
	if err != nil {
		b.logger.Error("failed to explain verse", zap.String("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, b.i18n.Get(lang, errorKey(err)))
		return
	}

	b.sendMessage(chatID, "💡 "+answer)
}
