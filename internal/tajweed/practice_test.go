package tajweed

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

type fakeSource struct {
	mu     sync.Mutex
	verses []string
	err    error
	calls  int
}

func (f *fakeSource) FetchVerseSet(_ context.Context, surahNumber int) (*domain.VerseSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	set := &domain.VerseSet{
		Surah:     domain.Surah{Number: surahNumber, Ayahs: len(f.verses)},
		AyahCount: len(f.verses),
	}
	for i, text := range f.verses {
		set.Verses = append(set.Verses, domain.Verse{SurahNumber: surahNumber, Number: i + 1, Text: text})
	}
	return set, nil
}

func seeded() GeneratorOption {
	return WithRand(rand.New(rand.NewPCG(1, 2)))
}

func TestGenerator_BuildsQuestion(t *testing.T) {
	src := &fakeSource{verses: []string{minBadi, "قُلْ هُوَ اللّٰهُ أَحَدٌ"}}
	g, err := NewGenerator(Default(), src, seeded())
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		q, err := g.Generate(context.Background())
		require.NoError(t, err)

		rule, ok := Default().Rule(q.TargetRuleID)
		require.True(t, ok)
		require.True(t, rule.HasPattern())

		assert.Equal(t, q.Highlighted, q.VerseText[q.Start:q.End])
		assert.Greater(t, utf8.RuneCountInString(q.Highlighted), 1)
		assert.Equal(t, q.Highlighted, rule.Pattern.FindString(q.Highlighted))
		assert.Contains(t, DefaultSurahs, q.SurahNumber)

		require.Len(t, q.Choices, 4)
		seen := map[string]int{}
		for _, c := range q.Choices {
			seen[c]++
		}
		assert.Len(t, seen, 4, "choices must be unique: %v", q.Choices)
		assert.Equal(t, 1, seen[rule.Name])

		assert.True(t, Default().CheckAnswer(*q, rule.Name))
		for _, c := range q.Choices {
			if c != rule.Name {
				assert.False(t, Default().CheckAnswer(*q, c))
			}
		}
	}
}

func TestGenerator_SkipsSingleCharacterMatches(t *testing.T) {
	// "قَالَ" only has a lone qaf, a one code point qalqalah match.
	src := &fakeSource{verses: []string{"قَالَ"}}
	g, err := NewGenerator(Default(), src, seeded(), WithMaxDraws(3), WithMaxAttempts(4))
	require.NoError(t, err)

	_, err = g.Generate(context.Background())
	require.ErrorIs(t, err, domain.ErrNoMatchFound)
	assert.Equal(t, 3, src.calls)
}

func TestGenerator_UsesLaterLongMatch(t *testing.T) {
	// The first qalqalah match is a lone dal, the second carries a sukun.
	c, err := NewCatalog(
		Rule{ID: "qalqalah", Name: "Qalqalah", Pattern: Default().WithPattern()[3].Pattern},
		Rule{ID: "a", Name: "A"},
		Rule{ID: "b", Name: "B"},
		Rule{ID: "c", Name: "C"},
	)
	require.NoError(t, err)

	src := &fakeSource{verses: []string{"دَ قْ"}}
	g, err := NewGenerator(c, src, seeded())
	require.NoError(t, err)

	q, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "قْ", q.Highlighted)
	assert.ElementsMatch(t, []string{"Qalqalah", "A", "B", "C"}, q.Choices)
}

func TestGenerator_NoMatchIsBounded(t *testing.T) {
	tests := []struct {
		name   string
		verses []string
	}{
		{"no tajweed", []string{"hello", "سلام"}},
		{"empty surah", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{verses: tt.verses}
			g, err := NewGenerator(Default(), src, seeded(), WithMaxDraws(4))
			require.NoError(t, err)

			q, err := g.Generate(context.Background())
			require.ErrorIs(t, err, domain.ErrNoMatchFound)
			assert.Nil(t, q)
			assert.Equal(t, 4, src.calls)
		})
	}
}

func TestGenerator_PropagatesFetchFailure(t *testing.T) {
	cause := errors.New("connection refused")
	src := &fakeSource{err: domain.NewFetchError("corpus", cause)}
	g, err := NewGenerator(Default(), src, seeded())
	require.NoError(t, err)

	_, err = g.Generate(context.Background())
	require.ErrorIs(t, err, domain.ErrFetchFailed)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, 1, src.calls)
}

func TestGenerator_HonoursCancellation(t *testing.T) {
	src := &fakeSource{verses: []string{minBadi}}
	g, err := NewGenerator(Default(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

func TestGenerator_SeededIsDeterministic(t *testing.T) {
	src := &fakeSource{verses: []string{minBadi, "قُلْ هُوَ اللّٰهُ أَحَدٌ", "مَنْ اٰمَنَ"}}

	g1, err := NewGenerator(Default(), src, seeded())
	require.NoError(t, err)
	g2, err := NewGenerator(Default(), src, seeded())
	require.NoError(t, err)

	q1, err := g1.Generate(context.Background())
	require.NoError(t, err)
	q2, err := g2.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
}

func TestGenerator_WithSurahs(t *testing.T) {
	src := &fakeSource{verses: []string{minBadi}}
	g, err := NewGenerator(Default(), src, WithSurahs([]int{112}))
	require.NoError(t, err)

	q, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 112, q.SurahNumber)
	assert.Equal(t, "112001", q.AyahID())
}

func TestNewGenerator_Validation(t *testing.T) {
	small, err := NewCatalog(
		Rule{ID: "a", Name: "A", Pattern: Default().WithPattern()[0].Pattern},
		Rule{ID: "b", Name: "B"},
	)
	require.NoError(t, err)

	_, err = NewGenerator(small, &fakeSource{})
	require.Error(t, err)

	_, err = NewGenerator(Default(), nil)
	require.Error(t, err)

	noPatterns, err := NewCatalog(
		Rule{ID: "a", Name: "A"}, Rule{ID: "b", Name: "B"}, Rule{ID: "c", Name: "C"}, Rule{ID: "d", Name: "D"},
	)
	require.NoError(t, err)
	_, err = NewGenerator(noPatterns, &fakeSource{})
	require.Error(t, err)
}

func TestCheckAnswer_UnknownRule(t *testing.T) {
	q := Question{TargetRuleID: "missing"}
	assert.False(t, Default().CheckAnswer(q, "Iqlab"))

	q.TargetRuleID = "iqlab"
	assert.True(t, Default().CheckAnswer(q, "Iqlab"))
	assert.False(t, Default().CheckAnswer(q, "iqlab"))
	assert.False(t, Default().CheckAnswer(q, " Iqlab"))
}
