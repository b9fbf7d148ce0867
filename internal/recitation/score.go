package recitation

import "unicode/utf8"

// Tier is the qualitative band a score falls in
type Tier string

const (
	TierGood Tier = "GOOD"
	TierFair Tier = "FAIR"
	TierPoor Tier = "POOR"
)

const (
	goodThreshold = 90
	fairThreshold = 70
)

// TierFor maps a 0..100 score to its tier
func TierFor(score int) Tier {
	switch {
	case score >= goodThreshold:
		return TierGood
	case score >= fairThreshold:
		return TierFair
	default:
		return TierPoor
	}
}

// Message is the default English feedback for the tier
func (t Tier) Message() string {
	switch t {
	case TierGood:
		return "Excellent! Your recitation is very accurate."
	case TierFair:
		return "Good effort. A few words need more care."
	default:
		return "Keep practising. Listen to the verse again and repeat slowly."
	}
}

// Result is the outcome of one scoring call
type Result struct {
	Transcript           string `json:"transcript"`
	NormalizedReference  string `json:"normalized_reference"`
	NormalizedTranscript string `json:"normalized_transcript"`
	EditDistance         int    `json:"edit_distance"`
	Score                int    `json:"score"`
	Tier                 Tier   `json:"tier"`
}

// Score compares a transcript against the reference verse.
//
// Both sides are normalized, then
// score = round(100 - distance/max(len(ref), len(transcript), 1) * 100)
// clamped to [0, 100], with lengths in code points.
func Score(reference, transcript string) Result {
	ref := Normalize(reference)
	got := Normalize(transcript)
	d := Distance(ref, got)

	score := similarity(d, max(utf8.RuneCountInString(ref), utf8.RuneCountInString(got), 1))

	return Result{
		Transcript:           transcript,
		NormalizedReference:  ref,
		NormalizedTranscript: got,
		EditDistance:         d,
		Score:                score,
		Tier:                 TierFor(score),
	}
}

// similarity computes round(100 - d/n*100) with halves rounded up, in
// integer arithmetic. d never exceeds n for a Levenshtein distance, the
// clamp only guards direct callers.
func similarity(d, n int) int {
	if d >= n {
		return 0
	}
	// floor(100 - 100d/n + 1/2) == floor((200(n-d) + n) / 2n)
	s := (200*(n-d) + n) / (2 * n)
	return min(max(s, 0), 100)
}
