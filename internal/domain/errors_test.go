package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_IsAndUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := fmt.Errorf("fetch surah: %w", NewFetchError("corpus", cause))

	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrNoMatchFound))

	var fe *FetchError
	if assert.True(t, errors.As(err, &fe)) {
		assert.Equal(t, "corpus", fe.Source)
	}
	assert.Contains(t, err.Error(), "corpus: fetch failed")
}

func TestAyahID_RoundTrip(t *testing.T) {
	v := Verse{SurahNumber: 2, Number: 255}
	assert.Equal(t, "002255", v.AyahID())

	s, a := ParseAyahID("110003")
	assert.Equal(t, 110, s)
	assert.Equal(t, 3, a)

	s, a = ParseAyahID("bad")
	assert.Zero(t, s)
	assert.Zero(t, a)
}

func TestVerseSet_Verse(t *testing.T) {
	set := &VerseSet{Verses: []Verse{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}}}

	v, ok := set.Verse(2)
	assert.True(t, ok)
	assert.Equal(t, "b", v.Text)

	_, ok = set.Verse(3)
	assert.False(t, ok)
}

func TestProgressSummary_Accuracy(t *testing.T) {
	assert.Zero(t, ProgressSummary{}.Accuracy())
	assert.InDelta(t, 0.75, ProgressSummary{Answered: 4, Correct: 3}.Accuracy(), 1e-9)
}

func TestStreak(t *testing.T) {
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC)
	days := func(offsets ...int) []time.Time {
		var out []time.Time
		for _, o := range offsets {
			out = append(out, now.AddDate(0, 0, -o))
		}
		return out
	}

	tests := []struct {
		name   string
		active []time.Time
		want   int
	}{
		{"no activity", nil, 0},
		{"today only", days(0), 1},
		{"three days up to today", days(0, 1, 2), 3},
		{"yesterday keeps the streak alive", days(1, 2), 2},
		{"gap breaks it", days(0, 2, 3), 1},
		{"two days ago is lost", days(2, 3, 4), 0},
		{"duplicates count once", append(days(0, 1), now.Add(-time.Hour)), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.active, now))
		})
	}
}

func TestStreak_UsesUTCDays(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 2025-03-10 01:00 in Jakarta is still 2025-03-09 in UTC
	active := []time.Time{time.Date(2025, 3, 10, 1, 0, 0, 0, jakarta)}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, Streak(active, now))
}
