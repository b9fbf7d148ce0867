package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
)

type lessonSummary struct {
	ID          string       `json:"id"`
	Number      int          `json:"number"`
	Level       lesson.Level `json:"level"`
	Category    string       `json:"category"`
	Icon        string       `json:"icon"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	StepCount   int          `json:"step_count"`
}

// stepView is a lesson step without its answer
type stepView struct {
	Index   int         `json:"index"`
	Kind    lesson.Kind `json:"kind"`
	Prompt  string      `json:"prompt"`
	Arabic  string      `json:"arabic"`
	Options []string    `json:"options"`
}

type lessonView struct {
	lessonSummary
	Steps []stepView `json:"steps"`
}

type lessonsResponse struct {
	Lessons []lessonSummary `json:"lessons"`
	XP      int             `json:"xp"` // awarded per first completion
}

func requestLanguage(r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return lang
	}
	return lesson.FallbackLanguage
}

func summarize(l *lesson.Lesson, number int, lang string) lessonSummary {
	return lessonSummary{
		ID:          l.ID,
		Number:      number,
		Level:       l.Level,
		Category:    l.Category,
		Icon:        l.Icon,
		Title:       l.Title.In(lang),
		Description: l.Description.In(lang),
		StepCount:   len(l.Steps()),
	}
}

// listLessons returns the lesson path in unlock order. The API keeps no
// user state, so locking is left to the client.
func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	lessons := h.lessons.List()
	out := lessonsResponse{Lessons: make([]lessonSummary, len(lessons)), XP: lesson.XP}
	for i, l := range lessons {
		out.Lessons[i] = summarize(l, i+1, lang)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getLesson(w http.ResponseWriter, r *http.Request) {
	l, number, err := h.lookupLesson(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lang := requestLanguage(r)

	view := lessonView{lessonSummary: summarize(l, number, lang)}
	for i, s := range l.Steps() {
		options := make([]string, len(s.Options))
		for j, o := range s.Options {
			options[j] = o.In(lang)
		}
		view.Steps = append(view.Steps, stepView{
			Index:   i,
			Kind:    s.Kind,
			Prompt:  s.Prompt.In(lang),
			Arabic:  s.Arabic,
			Options: options,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

type checkLessonRequest struct {
	Step   int `json:"step"`
	Choice int `json:"choice"`
}

type checkLessonResponse struct {
	Correct     bool   `json:"correct"`
	Answer      int    `json:"answer"`
	AnswerText  string `json:"answer_text"`
	Explanation string `json:"explanation,omitempty"`
	Last        bool   `json:"last"`
}

// checkLessonStep grades one step of a lesson
func (h *Handler) checkLessonStep(w http.ResponseWriter, r *http.Request) {
	l, _, err := h.lookupLesson(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	in, err := decodeJSON[checkLessonRequest](w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	step, ok := l.Step(in.Step)
	if !ok {
		h.writeError(w, r, errBadRequest(fmt.Sprintf("step %d out of range", in.Step)))
		return
	}
	if in.Choice < 0 || in.Choice >= len(step.Options) {
		h.writeError(w, r, errBadRequest(fmt.Sprintf("choice %d out of range", in.Choice)))
		return
	}

	lang := requestLanguage(r)
	writeJSON(w, http.StatusOK, checkLessonResponse{
		Correct:     in.Choice == step.Answer,
		Answer:      step.Answer,
		AnswerText:  step.Options[step.Answer].In(lang),
		Explanation: step.Explanation.In(lang),
		Last:        in.Step == len(l.Steps())-1,
	})
}

func (h *Handler) lookupLesson(r *http.Request) (*lesson.Lesson, int, error) {
	id := chi.URLParam(r, "id")
	for i, l := range h.lessons.List() {
		if l.ID == id {
			return l, i + 1, nil
		}
	}
	return nil, 0, fmt.Errorf("lesson %q: %w", id, domain.ErrNotFound)
}
