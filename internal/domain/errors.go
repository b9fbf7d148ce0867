package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatchFound is returned when question generation exhausts its corpus draws
	ErrNoMatchFound = errors.New("no tajweed match found")

	// ErrFetchFailed marks failures of external corpus, transcription or text services
	ErrFetchFailed = errors.New("fetch failed")

	// ErrSessionExpired is returned when session data is missing from the FSM
	ErrSessionExpired = errors.New("session data not found")

	// ErrInvalidSelection is returned for out of range surah, ayah or choice input
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNotFound is returned when a stored record does not exist
	ErrNotFound = errors.New("not found")

	// ErrLessonLocked is returned when a lesson is started before the one preceding it is completed
	ErrLessonLocked = errors.New("lesson locked")
)

// FetchError wraps the cause of a failed external call.
// errors.Is(err, ErrFetchFailed) holds for every FetchError.
type FetchError struct {
	Source string // "corpus", "transcription", "explainer"
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: fetch failed", e.Source)
	}
	return fmt.Sprintf("%s: fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// NewFetchError wraps err as a FetchError from source
func NewFetchError(source string, err error) error {
	return &FetchError{Source: source, Err: err}
}
