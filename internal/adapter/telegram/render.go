package telegram

import (
	"fmt"
	"html"
	"slices"
	"strings"
	"time"

	"github.com/escalopa/tajweed-bot/internal/application"
	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/recitation"
	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

// rlm keeps Arabic lines right-to-left when they start a message
const rlm = "\u200F"

const maxLegendFragments = 5

var colorMarkers = map[string]string{
	"blue":    "🔵",
	"purple":  "🟣",
	"emerald": "🟢",
	"orange":  "🟠",
	"rose":    "🔴",
}

func ruleMarker(r tajweed.Rule) string {
	if m, ok := colorMarkers[r.DisplayColor]; ok {
		return m
	}
	return "⚪"
}

func tierMarker(t recitation.Tier) string {
	switch t {
	case recitation.TierGood:
		return "✅"
	case recitation.TierFair:
		return "🟡"
	default:
		return "🔴"
	}
}

func tierKey(t recitation.Tier) string {
	return "tier." + strings.ToLower(string(t))
}

// surahName picks the surah name to show in lang
func surahName(lang domain.Language, s domain.Surah) string {
	if lang == domain.LangArabic && s.ArabicName != "" {
		return s.ArabicName
	}
	if s.Name == "" {
		return fmt.Sprintf("%d", s.Number)
	}
	return s.Name
}

// renderSpans renders annotated text as Telegram HTML, ruled spans underlined
func renderSpans(spans []tajweed.Span) string {
	var b strings.Builder
	b.WriteString(rlm)
	for _, s := range spans {
		text := html.EscapeString(s.Text)
		if s.Kind == tajweed.SpanRuled {
			b.WriteString("<u>" + text + "</u>")
			continue
		}
		b.WriteString(text)
	}
	return b.String()
}

// renderLegend lists the rules found in spans with the fragments they tagged
func renderLegend(catalog *tajweed.Catalog, spans []tajweed.Span) string {
	fragments := make(map[string][]string)
	for _, s := range spans {
		if s.Kind != tajweed.SpanRuled {
			continue
		}
		list := fragments[s.RuleID]
		if len(list) >= maxLegendFragments || slices.Contains(list, s.Text) {
			continue
		}
		fragments[s.RuleID] = append(list, s.Text)
	}

	var b strings.Builder
	for _, id := range tajweed.RuleIDs(spans) {
		rule, ok := catalog.Rule(id)
		if !ok {
			continue
		}
		escaped := make([]string, len(fragments[id]))
		for i, f := range fragments[id] {
			escaped[i] = html.EscapeString(strings.TrimSpace(f))
		}
		fmt.Fprintf(&b, "%s <b>%s</b>: %s\n", ruleMarker(rule), html.EscapeString(rule.Name), strings.Join(escaped, " ، "))
	}
	return b.String()
}

func renderVerse(tr domain.I18nPort, lang domain.Language, catalog *tajweed.Catalog, surah domain.Surah, verse domain.Verse, spans []tajweed.Span, tajweedOn bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📖 <b>%s %d:%d</b>\n\n", html.EscapeString(surahName(lang, surah)), verse.SurahNumber, verse.Number)
	b.WriteString(renderSpans(spans))
	b.WriteString("\n\n")

	if verse.Transliteration != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(verse.Transliteration))
	}
	if lang == domain.LangIndonesian && verse.Translation != "" {
		fmt.Fprintf(&b, "%s\n", html.EscapeString(verse.Translation))
	}

	switch legend := renderLegend(catalog, spans); {
	case !tajweedOn:
		fmt.Fprintf(&b, "\n%s", tr.Get(lang, "tajweed.off_hint"))
	case legend == "":
		fmt.Fprintf(&b, "\n%s", tr.Get(lang, "tajweed.none"))
	default:
		fmt.Fprintf(&b, "\n<b>%s</b>\n%s", tr.Get(lang, "tajweed.legend"), legend)
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderScoreCard(tr domain.I18nPort, lang domain.Language, attempt *domain.RecitationAttempt) string {
	var b strings.Builder
	res := attempt.Result
	surahNum, ayahNum := domain.ParseAyahID(attempt.AyahID)

	fmt.Fprintf(&b, "🎙 <b>%s</b>\n", tr.Get(lang, "recording.result_title"))
	fmt.Fprintf(&b, "📖 %d:%d\n", surahNum, ayahNum)
	fmt.Fprintf(&b, "📊 %s: <b>%d/100</b> %s\n", tr.Get(lang, "recording.score"), res.Score, tierMarker(res.Tier))
	fmt.Fprintf(&b, "%s\n\n", tr.Get(lang, tierKey(res.Tier)))

	fmt.Fprintf(&b, "<b>%s</b>\n%s%s\n\n", tr.Get(lang, "recording.reference"), rlm, html.EscapeString(res.NormalizedReference))

	heard := res.NormalizedTranscript
	if heard == "" {
		heard = "—"
	}
	fmt.Fprintf(&b, "<b>%s</b>\n%s%s\n\n", tr.Get(lang, "recording.heard"), rlm, html.EscapeString(heard))
	fmt.Fprintf(&b, "✏️ %s: %d", tr.Get(lang, "recording.edits"), res.EditDistance)

	return b.String()
}

func renderQuestion(tr domain.I18nPort, lang domain.Language, q *tajweed.Question) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🧠 <b>%s</b>\n\n", tr.Get(lang, "practice.title"))
	b.WriteString(rlm)
	if q.Start >= 0 && q.Start <= q.End && q.End <= len(q.VerseText) {
		b.WriteString(html.EscapeString(q.VerseText[:q.Start]))
		b.WriteString("<b><u>" + html.EscapeString(q.VerseText[q.Start:q.End]) + "</u></b>")
		b.WriteString(html.EscapeString(q.VerseText[q.End:]))
	} else {
		b.WriteString(html.EscapeString(q.VerseText))
	}
	fmt.Fprintf(&b, "\n\n📖 %d:%d\n\n", q.SurahNumber, q.AyahNumber)
	b.WriteString(tr.Get(lang, "practice.question", html.EscapeString(q.Highlighted)))

	return b.String()
}

func renderOutcome(tr domain.I18nPort, lang domain.Language, o *application.PracticeOutcome) string {
	var b strings.Builder

	b.WriteString(renderQuestion(tr, lang, &o.Question))
	b.WriteString("\n\n")
	if o.Correct {
		fmt.Fprintf(&b, "✅ %s\n%s", tr.Get(lang, "practice.correct"), tr.Get(lang, "practice.xp", o.XP))
	} else {
		fmt.Fprintf(&b, "❌ %s", tr.Get(lang, "practice.wrong", html.EscapeString(o.CorrectName)))
	}

	return b.String()
}

func renderRuleGuide(tr domain.I18nPort, lang domain.Language, rules []tajweed.Rule) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📚 <b>%s</b>\n", tr.Get(lang, "rules.title"))
	for _, r := range rules {
		fmt.Fprintf(&b, "\n%s <b>%s</b>\n%s\n%s: %s%s\n",
			ruleMarker(r),
			html.EscapeString(r.Name),
			html.EscapeString(r.Description),
			tr.Get(lang, "rules.example"),
			rlm,
			html.EscapeString(r.Example),
		)
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderProgress(tr domain.I18nPort, lang domain.Language, s *domain.ProgressSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", tr.Get(lang, "progress.title"))
	fmt.Fprintf(&b, "⭐ %s: <b>%d</b>\n", tr.Get(lang, "progress.xp"), s.XP)
	fmt.Fprintf(&b, "🧠 %s: %d\n", tr.Get(lang, "progress.answered"), s.Answered)
	fmt.Fprintf(&b, "🎯 %s: %.1f%%\n", tr.Get(lang, "progress.accuracy"), s.Accuracy()*100)
	fmt.Fprintf(&b, "🔥 %s: %d\n", tr.Get(lang, "progress.streak"), s.Streak)
	fmt.Fprintf(&b, "🗺 %s: %d\n", tr.Get(lang, "progress.lessons"), s.CompletedLessons)
	fmt.Fprintf(&b, "🔖 %s: %d\n", tr.Get(lang, "progress.bookmarks"), s.Bookmarks)
	fmt.Fprintf(&b, "🎙 %s: %d\n", tr.Get(lang, "progress.recitations"), s.Recitations)
	if s.Recitations > 0 {
		fmt.Fprintf(&b, "📈 %s: %.1f\n", tr.Get(lang, "progress.average"), s.AverageScore)
		fmt.Fprintf(&b, "🏆 %s: %d\n", tr.Get(lang, "progress.best"), s.BestScore)
	}

	last := tr.Get(lang, "progress.never")
	if s.LastActivityAt != nil {
		last = s.LastActivityAt.Format(time.RFC822)
	}
	fmt.Fprintf(&b, "📅 %s: %s", tr.Get(lang, "progress.last"), last)

	return b.String()
}

func lessonMarker(st application.LessonStatus) string {
	switch {
	case st.Completed:
		return "✅"
	case st.Unlocked:
		return "▶️"
	default:
		return "🔒"
	}
}

// renderLessons lists the path grouped by level
func renderLessons(tr domain.I18nPort, lang domain.Language, path []application.LessonStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🗺 <b>%s</b>\n%s\n", tr.Get(lang, "lessons.title"), tr.Get(lang, "lessons.intro"))
	level := ""
	for _, st := range path {
		l := st.Lesson
		if string(l.Level) != level {
			level = string(l.Level)
			fmt.Fprintf(&b, "\n<b>%s</b>\n", tr.Get(lang, "level."+level))
		}
		fmt.Fprintf(&b, "%s %d. %s %s\n", lessonMarker(st), st.Number, l.Icon, html.EscapeString(l.Title.In(string(lang))))
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderLessonStep(tr domain.I18nPort, lang domain.Language, step *application.LessonStep) string {
	var b strings.Builder
	l := step.Lesson

	fmt.Fprintf(&b, "%s <b>%s</b>\n", l.Icon, html.EscapeString(l.Title.In(string(lang))))
	fmt.Fprintf(&b, "%s\n\n", tr.Get(lang, "lessons.step", step.Index+1, step.Total))
	b.WriteString(html.EscapeString(step.Step.Prompt.In(string(lang))))

	arabic := step.Step.Arabic
	if arabic == "" {
		arabic = "…"
	}
	fmt.Fprintf(&b, "\n\n%s<b>%s</b>", rlm, html.EscapeString(arabic))

	return b.String()
}

func renderLessonOutcome(tr domain.I18nPort, lang domain.Language, o *application.LessonOutcome) string {
	var b strings.Builder

	b.WriteString(renderLessonStep(tr, lang, &o.LessonStep))
	b.WriteString("\n\n")
	if o.Correct {
		fmt.Fprintf(&b, "✅ %s", tr.Get(lang, "lessons.correct"))
	} else {
		answer := o.Step.Options[o.Step.Answer].In(string(lang))
		fmt.Fprintf(&b, "❌ %s", tr.Get(lang, "lessons.wrong", html.EscapeString(answer)))
	}
	if exp := o.Step.Explanation.In(string(lang)); exp != "" {
		fmt.Fprintf(&b, "\n💡 %s", html.EscapeString(exp))
	}

	if o.Finished {
		fmt.Fprintf(&b, "\n\n🏁 %s\n", tr.Get(lang, "lessons.finished", o.Score, o.Total))
		if o.Repeat {
			b.WriteString(tr.Get(lang, "lessons.repeat"))
		} else {
			b.WriteString(tr.Get(lang, "lessons.xp", o.XP))
		}
	}

	return b.String()
}

func renderBookmarks(tr domain.I18nPort, lang domain.Language, bookmarks []*domain.Bookmark) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔖 <b>%s</b>\n", tr.Get(lang, "bookmarks.title"))
	for _, bm := range bookmarks {
		surahNum, ayahNum := domain.ParseAyahID(bm.AyahID)
		fmt.Fprintf(&b, "\n<b>%s %d:%d</b>\n%s%s\n", html.EscapeString(bm.SurahName), surahNum, ayahNum, rlm, html.EscapeString(bm.Text))
	}

	return strings.TrimRight(b.String(), "\n")
}
