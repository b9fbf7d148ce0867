package domain

import (
	"context"
)

// CorpusPort defines the interface for fetching Quran text
type CorpusPort interface {
	// ListSurahs lists every surah with its ayah count
	ListSurahs(ctx context.Context) ([]Surah, error)

	// FetchVerseSet fetches a surah with all of its verses
	FetchVerseSet(ctx context.Context, surahNumber int) (*VerseSet, error)
}

// TranscriberPort defines the interface for the speech transcription service
type TranscriberPort interface {
	// Transcribe turns recorded audio into text
	Transcribe(ctx context.Context, req TranscriptionRequest) (*Transcription, error)
}

// ExplainerPort defines the interface for the generative text service
type ExplainerPort interface {
	// Explain answers a question, optionally grounded on a verse
	Explain(ctx context.Context, question, verseContext string, lang Language) (string, error)
}

// ProgressPort defines the interface for persisting learner progress
type ProgressPort interface {
	// SavePracticeAttempt stores an answered practice question
	SavePracticeAttempt(ctx context.Context, attempt *PracticeAttempt) error

	// SaveRecitationAttempt stores a scored recitation
	SaveRecitationAttempt(ctx context.Context, attempt *RecitationAttempt) error

	// GetRecitationAttempt retrieves a recitation attempt by ID
	GetRecitationAttempt(ctx context.Context, userID, attemptID string) (*RecitationAttempt, error)

	// ListRecitationAttempts lists the latest recitation attempts of a user
	ListRecitationAttempts(ctx context.Context, userID string, limit int) ([]*RecitationAttempt, error)

	// GetSummary aggregates the progress of a user
	GetSummary(ctx context.Context, userID string) (*ProgressSummary, error)

	// CompleteLesson records a finished lesson, first is false when the
	// user had already completed it
	CompleteLesson(ctx context.Context, completion *LessonCompletion) (first bool, err error)

	// ListCompletedLessons returns the IDs of the lessons a user completed
	ListCompletedLessons(ctx context.Context, userID string) ([]string, error)

	// AddBookmark saves an ayah, added is false when it was already saved
	AddBookmark(ctx context.Context, bookmark *Bookmark) (added bool, err error)

	// RemoveBookmark deletes a saved ayah
	RemoveBookmark(ctx context.Context, userID, ayahID string) error

	// ListBookmarks lists the saved ayahs of a user, newest first
	ListBookmarks(ctx context.Context, userID string, limit int) ([]*Bookmark, error)
}

// FSMPort defines the interface for finite state machine storage
type FSMPort interface {
	// SetState sets the current state for a user
	SetState(ctx context.Context, userID string, state State) error

	// GetState gets the current state for a user
	GetState(ctx context.Context, userID string) (State, error)

	// DeleteState deletes the state for a user
	DeleteState(ctx context.Context, userID string) error

	// SetData sets temporary data for a user's current session
	SetData(ctx context.Context, userID, key, value string) error

	// GetData gets temporary data for a user's current session
	GetData(ctx context.Context, userID, key string) (string, error)

	// TakeData atomically reads and deletes session data, missing data
	// is reported as ErrSessionExpired
	TakeData(ctx context.Context, userID, key string) (string, error)

	// DeleteData deletes temporary data for a user
	DeleteData(ctx context.Context, userID, key string) error
}

// I18nPort defines the interface for internationalization
type I18nPort interface {
	// Get retrieves a translated message
	Get(lang Language, key string, args ...interface{}) string
}

// BotPort defines the interface for the bot adapter
type BotPort interface {
	// Start starts the bot
	Start(ctx context.Context) error

	// Stop stops the bot
	Stop() error
}

// State represents the FSM states
type State string

const (
	StateStart         State = "start"
	StateSelectSurah   State = "select_surah"
	StateEnterAyah     State = "enter_ayah"
	StateWaitRecording State = "wait_recording"
	StatePractice      State = "practice"
	StateLesson        State = "lesson"
)

// SessionData keys
const (
	SessionKeySurah     = "surah"
	SessionKeyAyah      = "ayah"
	SessionKeyAyahInput = "ayah_input" // Accumulated digit input for ayah number
	SessionKeyLanguage  = "language"
	SessionKeyMode      = "mode"
	SessionKeyTajweed   = "tajweed"  // "off" disables highlighting
	SessionKeyQuestion  = "question" // JSON of the open practice question
	SessionKeyAnswered  = "answered" // JSON of the last answered question, for explanations
	SessionKeyLesson    = "lesson"   // JSON of the lesson being played
)
