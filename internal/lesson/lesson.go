// Package lesson holds the guided lesson path: short quizzes on letters,
// vowels, makhraj, vocabulary and tajweed that unlock one after another.
//
// Every question is played as one or more steps, each a multiple choice
// graded by option index, so a step means the same in every language.
package lesson

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// XP is awarded the first time a lesson is completed
const XP = 50

// FallbackLanguage is used when a text has no translation for the asked language
const FallbackLanguage = "en"

// Text is a message in several languages. A plain YAML string is stored
// under the empty key and is shown in every language.
type Text map[string]string

// In returns the text in lang, falling back to English
func (t Text) In(lang string) string {
	if s := t[lang]; s != "" {
		return s
	}
	if s := t[FallbackLanguage]; s != "" {
		return s
	}
	return t[""]
}

func (t *Text) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = Text{"": node.Value}
		return nil
	}
	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return err
	}
	*t = m
	return nil
}

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Kind tells how a question is played
type Kind string

const (
	KindChoice   Kind = "choice"   // one step, pick the answer
	KindMatching Kind = "matching" // one step per pair, pick the meaning of each word
	KindScramble Kind = "scramble" // one step per word, pick the words in order
)

type Pair struct {
	Key   string `yaml:"key"`
	Value Text   `yaml:"value"`
}

type Question struct {
	ID          string   `yaml:"id"`
	Kind        Kind     `yaml:"kind"`
	Prompt      Text     `yaml:"prompt"`
	Arabic      string   `yaml:"arabic"`
	Options     []Text   `yaml:"options"`
	Answer      int      `yaml:"answer"`
	Pairs       []Pair   `yaml:"pairs"`
	Words       []string `yaml:"words"`
	Sentence    string   `yaml:"sentence"`
	Explanation Text     `yaml:"explanation"`
}

// Lesson is one node of the path
type Lesson struct {
	ID          string     `yaml:"id"`
	Level       Level      `yaml:"level"`
	Category    string     `yaml:"category"`
	Icon        string     `yaml:"icon"`
	Title       Text       `yaml:"title"`
	Description Text       `yaml:"description"`
	Questions   []Question `yaml:"questions"`

	steps []Step
}

// Step is a single multiple choice of a lesson
type Step struct {
	QuestionID  string
	Kind        Kind
	Prompt      Text
	Arabic      string // the letter, word or verse fragment asked about
	Options     []Text
	Answer      int
	Explanation Text // set on the last step of a question
}

// Steps returns the lesson played step by step
func (l *Lesson) Steps() []Step {
	return l.steps
}

// Step returns step i, false when out of range
func (l *Lesson) Step(i int) (Step, bool) {
	if i < 0 || i >= len(l.steps) {
		return Step{}, false
	}
	return l.steps[i], true
}

func (l *Lesson) buildSteps() error {
	l.steps = l.steps[:0]
	for _, q := range l.Questions {
		steps, err := questionSteps(q)
		if err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
		steps[len(steps)-1].Explanation = q.Explanation
		l.steps = append(l.steps, steps...)
	}
	if len(l.steps) == 0 {
		return fmt.Errorf("no questions")
	}
	return nil
}

func questionSteps(q Question) ([]Step, error) {
	switch q.Kind {
	case KindChoice:
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("needs at least two options")
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return nil, fmt.Errorf("answer %d out of range", q.Answer)
		}
		return []Step{{
			QuestionID: q.ID,
			Kind:       q.Kind,
			Prompt:     q.Prompt,
			Arabic:     q.Arabic,
			Options:    q.Options,
			Answer:     q.Answer,
		}}, nil

	case KindMatching:
		if len(q.Pairs) < 2 {
			return nil, fmt.Errorf("needs at least two pairs")
		}
		// Options are ordered by their English text so the answer
		// position does not follow the pair order.
		options := make([]Text, len(q.Pairs))
		seen := make(map[string]bool, len(q.Pairs))
		for i, p := range q.Pairs {
			if seen[p.Value.In(FallbackLanguage)] {
				return nil, fmt.Errorf("duplicate meaning %q", p.Value.In(FallbackLanguage))
			}
			seen[p.Value.In(FallbackLanguage)] = true
			options[i] = p.Value
		}
		slices.SortFunc(options, func(a, b Text) int {
			return strings.Compare(a.In(FallbackLanguage), b.In(FallbackLanguage))
		})

		steps := make([]Step, len(q.Pairs))
		for i, p := range q.Pairs {
			answer := slices.IndexFunc(options, func(t Text) bool {
				return t.In(FallbackLanguage) == p.Value.In(FallbackLanguage)
			})
			steps[i] = Step{
				QuestionID: q.ID,
				Kind:       q.Kind,
				Prompt:     q.Prompt,
				Arabic:     p.Key,
				Options:    options,
				Answer:     answer,
			}
		}
		return steps, nil

	case KindScramble:
		order := strings.Fields(q.Sentence)
		if len(order) < 2 || len(order) != len(q.Words) {
			return nil, fmt.Errorf("sentence and words differ in length")
		}
		options := make([]Text, len(q.Words))
		for i, w := range q.Words {
			if slices.Index(q.Words, w) != i {
				return nil, fmt.Errorf("duplicate word %q", w)
			}
			options[i] = Text{"": w}
		}

		steps := make([]Step, len(order))
		for i, w := range order {
			answer := slices.Index(q.Words, w)
			if answer < 0 {
				return nil, fmt.Errorf("word %q is not offered", w)
			}
			steps[i] = Step{
				QuestionID: q.ID,
				Kind:       q.Kind,
				Prompt:     q.Prompt,
				Arabic:     strings.Join(order[:i], " "),
				Options:    options,
				Answer:     answer,
			}
		}
		return steps, nil

	default:
		return nil, fmt.Errorf("unknown kind %q", q.Kind)
	}
}

// Catalog is the ordered, immutable lesson path
type Catalog struct {
	lessons []*Lesson
	byID    map[string]int
}

// NewCatalog validates the lessons and builds their steps
func NewCatalog(lessons []*Lesson) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(lessons))}
	for _, l := range lessons {
		if l.ID == "" {
			return nil, fmt.Errorf("lesson %d: empty id", len(c.lessons))
		}
		if _, dup := c.byID[l.ID]; dup {
			return nil, fmt.Errorf("lesson %q: duplicate id", l.ID)
		}
		if err := l.buildSteps(); err != nil {
			return nil, fmt.Errorf("lesson %q: %w", l.ID, err)
		}
		c.byID[l.ID] = len(c.lessons)
		c.lessons = append(c.lessons, l)
	}
	return c, nil
}

// Parse reads a lesson path from YAML
func Parse(data []byte) (*Catalog, error) {
	var file struct {
		Lessons []*Lesson `yaml:"lessons"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal lessons: %w", err)
	}
	return NewCatalog(file.Lessons)
}

// List returns every lesson in path order
func (c *Catalog) List() []*Lesson {
	return slices.Clone(c.lessons)
}

// Lesson looks a lesson up by ID
func (c *Catalog) Lesson(id string) (*Lesson, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.lessons[i], true
}

// Unlocked reports whether lesson id may be started: the first lesson
// always is, any other once the lesson before it is in completed.
func (c *Catalog) Unlocked(id string, completed map[string]bool) bool {
	i, ok := c.byID[id]
	if !ok {
		return false
	}
	return i == 0 || completed[c.lessons[i-1].ID]
}

// Len returns the number of lessons
func (c *Catalog) Len() int {
	return len(c.lessons)
}

//go:embed lessons.yaml
var defaultData []byte

var defaultCatalog = mustParse(defaultData)

// Default returns the built-in lesson path
func Default() *Catalog {
	return defaultCatalog
}

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}
