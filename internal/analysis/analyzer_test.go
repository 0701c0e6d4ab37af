package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/newsradar/newsradar/internal/article"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, text string) Result {
	t.Helper()
	res, err := NewLexicon().Analyze(context.Background(), text, "en")
	require.NoError(t, err)
	return res
}

func TestSentiment(t *testing.T) {
	cases := []struct {
		name string
		text string
		want article.Sentiment
	}{
		{"negative", "Adani Group shares plunged after fraud allegations. Investors fear a deeper crisis.", article.SentimentNegative},
		{"positive", "Profits rose to a record as the company welcomed strong growth.", article.SentimentPositive},
		{"negation flips", "The results were not bad.", article.SentimentPositive},
		{"no signal", "The committee met on Tuesday to discuss the agenda.", article.SentimentNeutral},
		{"balanced", "Shares rose but losses widened.", article.SentimentNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := analyze(t, tc.text)
			assert.Equal(t, tc.want, res.Sentiment)
			assert.GreaterOrEqual(t, res.SentimentScore, 0.0)
			assert.LessOrEqual(t, res.SentimentScore, 1.0)
		})
	}
}

func TestBias(t *testing.T) {
	res := analyze(t, "Critics blamed corporate greed and income inequality, calling for a wealth tax.")
	assert.Equal(t, article.BiasLeft, res.Bias)
	assert.Equal(t, 1.0, res.BiasScore)

	res = analyze(t, "Officials promised tax relief and stronger border security under a free market agenda.")
	assert.Equal(t, article.BiasRight, res.Bias)

	res = analyze(t, "One mention of deregulation is not enough to lean.")
	assert.Equal(t, article.BiasNeutral, res.Bias)
}

func TestEntities_TypedAndOrdered(t *testing.T) {
	res := analyze(t, "Gautam Adani said the Adani Group would appeal. Mr. Smith disagreed, and Adani Group shares fell in India.")

	require.Len(t, res.Entities, 4)
	assert.Equal(t, article.Entity{Name: "Adani Group", Type: EntityOrganization, Salience: 0.4}, res.Entities[0])
	assert.Equal(t, article.Entity{Name: "Gautam Adani", Type: EntityPerson, Salience: 0.2}, res.Entities[1])
	assert.Equal(t, article.Entity{Name: "Smith", Type: EntityPerson, Salience: 0.2}, res.Entities[2])
	assert.Equal(t, article.Entity{Name: "India", Type: EntityLocation, Salience: 0.2}, res.Entities[3])
}

func TestEntities_CaseInsensitiveDedup(t *testing.T) {
	res := analyze(t, "Investors watched Adani Group closely. Analysts said ADANI GROUP would recover.")

	require.Len(t, res.Entities, 1)
	assert.Equal(t, "Adani Group", res.Entities[0].Name)
	assert.Equal(t, EntityOrganization, res.Entities[0].Type)
	assert.Equal(t, 1.0, res.Entities[0].Salience)
}

func TestSummarize(t *testing.T) {
	short := "A short note about the markets."
	assert.Equal(t, short, Summarize(short))
	assert.Equal(t, "", Summarize("   "))

	var sents []string
	for i := 1; i <= 5; i++ {
		sents = append(sents, fmt.Sprintf("Sentence %d talks about markets and prices moving around today.", i))
	}
	long := strings.Join(sents, " ")
	assert.Equal(t, strings.Join(sents[:3], " "), Summarize(long))

	huge := strings.Repeat("word ", 200) + ". " + strings.Repeat("more ", 200) + "."
	got := Summarize(huge)
	assert.LessOrEqual(t, len([]rune(got)), maxSummaryRunes)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestAnalyze_UnsupportedLanguage(t *testing.T) {
	res, err := NewLexicon().Analyze(context.Background(), "Hola mundo", "es")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "es", aerr.Language)

	assert.Equal(t, article.SentimentUnknown, res.Sentiment)
	assert.Equal(t, article.BiasUnknown, res.Bias)
	assert.Equal(t, "Hola mundo", res.Summary)
}

func TestAnalyze_EmptyText(t *testing.T) {
	res, err := NewLexicon().Analyze(context.Background(), "  \n ", "en")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, article.SentimentUnknown, res.Sentiment)
	assert.Empty(t, res.Summary)
}

func TestAnalyze_LanguageTagsAndDeterminism(t *testing.T) {
	l := NewLexicon()
	text := "Markets slumped on Monday as Tesla warned of weaker demand."

	a, err := l.Analyze(context.Background(), text, "en-US")
	require.NoError(t, err)
	b, err := l.Analyze(context.Background(), text, "EN")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, article.SentimentNegative, a.Sentiment)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLexicon().Analyze(ctx, "anything", "en")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBaseLanguage(t *testing.T) {
	assert.Equal(t, "en", BaseLanguage("en-GB"))
	assert.Equal(t, "pt", BaseLanguage("pt_BR"))
	assert.Equal(t, "de", BaseLanguage(" DE "))
	assert.Equal(t, "", BaseLanguage(""))
	assert.Equal(t, "", BaseLanguage("not a tag!"))
}
