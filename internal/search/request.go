package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/newsradar/newsradar/internal/analysis"
	"github.com/newsradar/newsradar/internal/article"
)

const DefaultSize = 20

// Request is a normalized search. Size is the result limit; 0 returns
// nothing.
type Request struct {
	Text   string            `json:"q"`
	Filter article.Filter    `json:"filter"`
	Size   int               `json:"size"`
	Sort   article.SortOrder `json:"sort"`
}

// InvalidParamError names a query parameter that could not be parsed.
type InvalidParamError struct {
	Param string
	Value string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Param)
}

// ParseRequest reads q, language, sentiment, bias, size and sort. Empty or
// "all" filter values leave the field unconstrained; anything else must be
// a known value. A missing size means DefaultSize; an explicit 0 asks for
// no results.
func ParseRequest(v url.Values) (Request, error) {
	req := Request{Text: strings.TrimSpace(v.Get("q"))}

	if lang := filterValue(v.Get("language")); lang != "" {
		base := analysis.BaseLanguage(lang)
		if base == "" {
			return req, &InvalidParamError{Param: "language", Value: lang}
		}
		req.Filter.Language = &base
	}
	if raw := filterValue(v.Get("sentiment")); raw != "" {
		s, err := article.ParseSentiment(raw)
		if err != nil {
			return req, &InvalidParamError{Param: "sentiment", Value: raw}
		}
		req.Filter.Sentiment = &s
	}
	if raw := filterValue(v.Get("bias")); raw != "" {
		b, err := article.ParseBias(raw)
		if err != nil {
			return req, &InvalidParamError{Param: "bias", Value: raw}
		}
		req.Filter.Bias = &b
	}
	req.Size = DefaultSize
	if raw := strings.TrimSpace(v.Get("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return req, &InvalidParamError{Param: "size", Value: raw}
		}
		req.Size = n
	}
	switch raw := strings.ToLower(strings.TrimSpace(v.Get("sort"))); raw {
	case "":
	case string(article.SortRelevance), string(article.SortRecency):
		req.Sort = article.SortOrder(raw)
	default:
		return req, &InvalidParamError{Param: "sort", Value: raw}
	}
	return req, nil
}

func filterValue(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
