package analysis

import (
	"strings"
)

const (
	shortTextWords   = 40
	summarySentences = 3
	maxSummaryRunes  = 600
)

// Summarize returns short text whole and otherwise its leading sentences,
// truncated on a word boundary to maxSummaryRunes.
func Summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if len(strings.Fields(text)) < shortTextWords {
		return truncateRunes(text, maxSummaryRunes)
	}

	sents := sentences(text)
	if len(sents) > summarySentences {
		sents = sents[:summarySentences]
	}
	return truncateRunes(strings.Join(sents, " "), maxSummaryRunes)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max-3])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
