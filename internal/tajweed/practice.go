package tajweed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const (
	choiceCount        = 4
	defaultMaxAttempts = 20
	defaultMaxDraws    = 5
)

// DefaultSurahs is the shortlist practice verses are drawn from
var DefaultSurahs = []int{1, 18, 36, 55, 67, 78, 91, 93, 101, 110}

// VerseSource fetches a surah with all of its verses
type VerseSource interface {
	FetchVerseSet(ctx context.Context, surahNumber int) (*domain.VerseSet, error)
}

// Question asks which rule applies to a highlighted part of a verse.
// Start and End are byte offsets of Highlighted inside VerseText.
type Question struct {
	SurahNumber  int      `json:"surah_number"`
	AyahNumber   int      `json:"ayah_number"`
	VerseText    string   `json:"verse_text"`
	TargetRuleID string   `json:"target_rule_id"`
	Highlighted  string   `json:"highlighted"`
	Start        int      `json:"start"`
	End          int      `json:"end"`
	Choices      []string `json:"choices"`
}

// AyahID returns the XXXYYY ID of the question's verse
func (q Question) AyahID() string {
	return domain.FormatAyahID(q.SurahNumber, q.AyahNumber)
}

// CheckAnswer reports whether chosen is exactly the name of the question's rule
func (c *Catalog) CheckAnswer(q Question, chosen string) bool {
	rule, ok := c.Rule(q.TargetRuleID)
	if !ok {
		return false
	}
	return chosen == rule.Name
}

// Generator builds multiple-choice practice questions from real verses
type Generator struct {
	catalog     *Catalog
	source      VerseSource
	surahs      []int
	maxAttempts int
	maxDraws    int

	mu  sync.Mutex
	rng *rand.Rand
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithSurahs replaces the surah shortlist
func WithSurahs(surahs []int) GeneratorOption {
	return func(g *Generator) {
		if len(surahs) > 0 {
			g.surahs = append([]int(nil), surahs...)
		}
	}
}

// WithMaxAttempts sets how many verses are tried per corpus draw
func WithMaxAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithMaxDraws sets how many corpus draws are made before giving up
func WithMaxDraws(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxDraws = n
		}
	}
}

// WithRand sets the random source, mostly for tests
func WithRand(rng *rand.Rand) GeneratorOption {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// NewGenerator creates a question generator over catalog and source
func NewGenerator(catalog *Catalog, source VerseSource, opts ...GeneratorOption) (*Generator, error) {
	if catalog == nil {
		catalog = Default()
	}
	if source == nil {
		return nil, fmt.Errorf("verse source is required")
	}
	names := make(map[string]struct{}, catalog.Len())
	for _, r := range catalog.List() {
		names[r.Name] = struct{}{}
	}
	if len(names) < choiceCount {
		return nil, fmt.Errorf("catalog has %d distinct rule names, need at least %d", len(names), choiceCount)
	}
	if len(catalog.WithPattern()) == 0 {
		return nil, fmt.Errorf("catalog has no rules with a pattern")
	}

	seed := uint64(time.Now().UnixNano())
	g := &Generator{
		catalog:     catalog,
		source:      source,
		surahs:      append([]int(nil), DefaultSurahs...),
		maxAttempts: defaultMaxAttempts,
		maxDraws:    defaultMaxDraws,
		rng:         rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Generate finds a rule match in a random verse and builds a question for it.
// It returns domain.ErrNoMatchFound once every draw came up empty, and any
// corpus error as is.
func (g *Generator) Generate(ctx context.Context) (*Question, error) {
	for draw := 0; draw < g.maxDraws; draw++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		surahNumber := g.surahs[g.intN(len(g.surahs))]
		set, err := g.source.FetchVerseSet(ctx, surahNumber)
		if err != nil {
			return nil, fmt.Errorf("fetch surah %d: %w", surahNumber, err)
		}
		if set == nil || len(set.Verses) == 0 {
			continue
		}

		if q := g.scan(set); q != nil {
			return q, nil
		}
	}

	return nil, fmt.Errorf("after %d draws: %w", g.maxDraws, domain.ErrNoMatchFound)
}

// scan tries random verses of one draw
func (g *Generator) scan(set *domain.VerseSet) *Question {
	patterned := g.catalog.WithPattern()

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		verse := set.Verses[g.intN(len(set.Verses))]
		g.shuffle(len(patterned), func(i, j int) { patterned[i], patterned[j] = patterned[j], patterned[i] })

		for _, rule := range patterned {
			start, end, ok := firstLongMatch(rule, verse.Text)
			if !ok {
				continue
			}
			return &Question{
				SurahNumber:  verse.SurahNumber,
				AyahNumber:   verse.Number,
				VerseText:    verse.Text,
				TargetRuleID: rule.ID,
				Highlighted:  verse.Text[start:end],
				Start:        start,
				End:          end,
				Choices:      g.choices(rule),
			}
		}
	}

	return nil
}

// firstLongMatch returns the first match longer than one code point
func firstLongMatch(rule Rule, text string) (int, int, bool) {
	for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
		if utf8.RuneCountInString(text[loc[0]:loc[1]]) > 1 {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}

// choices returns the answer and three distractors in random order
func (g *Generator) choices(answer Rule) []string {
	others := make([]string, 0, g.catalog.Len()-1)
	for _, r := range g.catalog.List() {
		if r.ID != answer.ID && r.Name != answer.Name {
			others = append(others, r.Name)
		}
	}
	g.shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	out := make([]string, 0, choiceCount)
	out = append(out, answer.Name)
	seen := map[string]struct{}{answer.Name: {}}
	for _, name := range others {
		if len(out) == choiceCount {
			break
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	g.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	return out
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

func (g *Generator) shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(n, swap)
}
