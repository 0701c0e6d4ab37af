// Package analysis turns article text into sentiment, bias, entities and a
// summary. Analyzers are pure: the same text and language always produce the
// same Result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newsradar/newsradar/internal/article"

	"golang.org/x/text/language"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyText           = errors.New("empty text")
)

// Error reports why an article could not be classified. It always comes
// with a usable Unknown result.
type Error struct {
	Language string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analysis (language %q): %v", e.Language, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Result struct {
	Sentiment      article.Sentiment
	SentimentScore float64
	Bias           article.Bias
	BiasScore      float64
	Entities       []article.Entity
	Summary        string
}

// Unknown is the result for text that cannot be classified. The summary is
// still produced so the article stays readable in search results.
func Unknown(text string) Result {
	return Result{
		Sentiment: article.SentimentUnknown,
		Bias:      article.BiasUnknown,
		Entities:  []article.Entity{},
		Summary:   Summarize(text),
	}
}

type Analyzer interface {
	Analyze(ctx context.Context, text, lang string) (Result, error)
}

// BaseLanguage reduces a language tag such as "en-US" or "EN_gb" to its
// ISO 639-1 base code. Unparseable input returns "".
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
