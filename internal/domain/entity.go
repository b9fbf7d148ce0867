package domain

import (
	"fmt"
	"time"

	"github.com/escalopa/tajweed-bot/internal/recitation"
)

// Surah represents a chapter in the Quran
type Surah struct {
	Number     int    `json:"number"`
	Name       string `json:"name"`        // Latin transliteration, e.g. "Al-Fatihah"
	ArabicName string `json:"arabic_name"` // e.g. "الفاتحة"
	Meaning    string `json:"meaning"`
	Ayahs      int    `json:"ayahs"`
}

// Verse represents a single ayah with its text
type Verse struct {
	SurahNumber     int    `json:"surah_number"`
	Number          int    `json:"number"`
	Text            string `json:"text"`
	Transliteration string `json:"transliteration,omitempty"`
	Translation     string `json:"translation,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
}

// AyahID returns the formatted ayah ID (XXXYYY format)
func (v Verse) AyahID() string {
	return FormatAyahID(v.SurahNumber, v.Number)
}

// VerseSet is one corpus draw: a surah with all of its verses
type VerseSet struct {
	Surah     Surah   `json:"surah"`
	Verses    []Verse `json:"verses"`
	AyahCount int     `json:"ayah_count"`
}

// Verse returns the verse with the given 1-based number
func (s *VerseSet) Verse(number int) (Verse, bool) {
	if number >= 1 && number <= len(s.Verses) && s.Verses[number-1].Number == number {
		return s.Verses[number-1], true
	}
	for _, v := range s.Verses {
		if v.Number == number {
			return v, true
		}
	}
	return Verse{}, false
}

// FormatAyahID formats surah and ayah numbers as XXXYYY
func FormatAyahID(surahNumber, ayahNumber int) string {
	return fmt.Sprintf("%03d%03d", surahNumber, ayahNumber)
}

// ParseAyahID parses an XXXYYY ayah ID back to surah and ayah numbers
func ParseAyahID(ayahID string) (surahNumber int, ayahNumber int) {
	if len(ayahID) != 6 {
		return 0, 0
	}
	fmt.Sscanf(ayahID[:3], "%d", &surahNumber)
	fmt.Sscanf(ayahID[3:], "%d", &ayahNumber)
	return surahNumber, ayahNumber
}

// TranscriptionRequest is the payload sent to the transcription service
type TranscriptionRequest struct {
	Audio    []byte
	Filename string
	Language string
}

// Transcription is what the transcription service heard
type Transcription struct {
	Text     string
	Language string
	Duration float64
}

// RecitationAttempt is one scored recitation of an ayah
type RecitationAttempt struct {
	ID        string
	UserID    string
	AyahID    string
	Reference string
	Result    recitation.Result
	CreatedAt time.Time
}

// PracticeAttempt is one answered tajweed practice question
type PracticeAttempt struct {
	UserID    string
	AyahID    string
	RuleID    string
	Chosen    string
	Correct   bool
	XP        int
	CreatedAt time.Time
}

// PracticeXP is awarded for every correctly answered practice question
const PracticeXP = 20

// LessonCompletion records that a user went through every step of a lesson
type LessonCompletion struct {
	UserID      string
	LessonID    string
	Correct     int
	Total       int
	XP          int
	CompletedAt time.Time
}

// Bookmark is an ayah the user saved to come back to
type Bookmark struct {
	UserID    string    `json:"-"`
	AyahID    string    `json:"ayah_id"`
	SurahName string    `json:"surah_name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressSummary aggregates a user's practice, lesson and recitation history
type ProgressSummary struct {
	XP               int
	Answered         int
	Correct          int
	Recitations      int
	AverageScore     float64
	BestScore        int
	CompletedLessons int
	Bookmarks        int
	Streak           int
	LastActivityAt   *time.Time

	// ActiveDays lists the UTC days with any activity, newest first
	ActiveDays []time.Time
}

// Accuracy returns the share of correctly answered practice questions
func (p ProgressSummary) Accuracy() float64 {
	if p.Answered == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Answered)
}

// Streak counts the consecutive days with activity up to now. A streak
// survives until the end of the day after its last active day.
func Streak(activeDays []time.Time, now time.Time) int {
	seen := make(map[time.Time]bool, len(activeDays))
	for _, d := range activeDays {
		seen[day(d)] = true
	}

	cursor := day(now)
	if !seen[cursor] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for seen[cursor] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Mode tells what happens once a surah and ayah have been selected
type Mode string

const (
	ModeRead   Mode = "read"
	ModeRecite Mode = "recite"
)

// Language represents supported languages
type Language string

const (
	LangEnglish    Language = "en"
	LangArabic     Language = "ar"
	LangIndonesian Language = "id"
)

// Languages lists every supported language in menu order
var Languages = []Language{LangEnglish, LangArabic, LangIndonesian}
