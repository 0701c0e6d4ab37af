package analysis

import (
	"context"
	"math"
	"strings"

	"github.com/newsradar/newsradar/internal/article"
)

const (
	negationWindow = 3
	sentimentBand  = 0.1
	minBiasCues    = 2
	biasDominance  = 0.65
)

// Lexicon is the default Analyzer: word lists for sentiment, cue phrases for
// bias, capitalization heuristics for entities and lead sentences for the
// summary. It holds no mutable state and is safe for concurrent use.
type Lexicon struct {
	supported map[string]struct{}
}

func NewLexicon() *Lexicon {
	return &Lexicon{supported: set("en")}
}

func (l *Lexicon) Supports(lang string) bool {
	_, ok := l.supported[BaseLanguage(lang)]
	return ok
}

func (l *Lexicon) Analyze(ctx context.Context, text, lang string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if strings.TrimSpace(text) == "" {
		return Unknown(text), &Error{Language: lang, Err: ErrEmptyText}
	}
	if !l.Supports(lang) {
		return Unknown(text), &Error{Language: lang, Err: ErrUnsupportedLanguage}
	}

	sents := sentences(text)
	label, score := scoreSentiment(sents)
	bias, biasScore := scoreBias(sents)

	return Result{
		Sentiment:      label,
		SentimentScore: score,
		Bias:           bias,
		BiasScore:      biasScore,
		Entities:       extractEntities(sents),
		Summary:        Summarize(text),
	}, nil
}

// scoreSentiment counts lexicon hits per sentence. A negator within the
// preceding negationWindow words flips a hit. The label comes from the net
// polarity in [-1, 1]; the score is the confidence of that label.
func scoreSentiment(sents []string) (article.Sentiment, float64) {
	var pos, neg int
	for _, s := range sents {
		ws := words(s)
		for i, w := range ws {
			_, isPos := positiveWords[w]
			_, isNeg := negativeWords[w]
			if !isPos && !isNeg {
				continue
			}
			if negated(ws, i) {
				isPos, isNeg = isNeg, isPos
			}
			if isPos {
				pos++
			} else {
				neg++
			}
		}
	}

	total := pos + neg
	if total == 0 {
		return article.SentimentNeutral, 1
	}

	net := float64(pos-neg) / float64(total)
	switch {
	case net > sentimentBand:
		return article.SentimentPositive, round(0.5 + net/2)
	case net < -sentimentBand:
		return article.SentimentNegative, round(0.5 - net/2)
	default:
		return article.SentimentNeutral, round(1 - math.Abs(net))
	}
}

func negated(ws []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
		if _, ok := negators[ws[j]]; ok {
			return true
		}
		if strings.HasSuffix(ws[j], "n't") {
			return true
		}
	}
	return false
}

// scoreBias leans left or right only when enough cues were seen and one
// side clearly dominates. The score is the dominant side's share of cues.
func scoreBias(sents []string) (article.Bias, float64) {
	var b strings.Builder
	b.WriteByte(' ')
	for _, s := range sents {
		for _, w := range words(s) {
			b.WriteString(w)
			b.WriteByte(' ')
		}
	}
	padded := b.String()

	left := countCues(padded, leftCues)
	right := countCues(padded, rightCues)
	total := left + right
	if total < minBiasCues {
		return article.BiasNeutral, 0.5
	}

	leftShare := float64(left) / float64(total)
	switch {
	case leftShare >= biasDominance:
		return article.BiasLeft, round(leftShare)
	case 1-leftShare >= biasDominance:
		return article.BiasRight, round(1 - leftShare)
	default:
		return article.BiasNeutral, round(1 - math.Abs(2*leftShare-1))
	}
}

func countCues(padded string, cues []string) int {
	n := 0
	for _, c := range cues {
		n += strings.Count(padded, " "+strings.Join(words(c), " ")+" ")
	}
	return n
}

func round(f float64) float64 {
	return math.Round(f*1000) / 1000
}
