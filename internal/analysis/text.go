package analysis

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "st": {}, "jr": {}, "sr": {},
	"inc": {}, "ltd": {}, "co": {}, "corp": {}, "vs": {}, "gen": {}, "gov": {}, "sen": {},
	"rep": {}, "u.s": {}, "u.k": {}, "no": {}, "jan": {}, "feb": {}, "mar": {}, "apr": {},
	"aug": {}, "sept": {}, "sep": {}, "oct": {}, "nov": {}, "dec": {},
}

// sentences splits text on terminal punctuation followed by whitespace,
// ignoring periods that close a known abbreviation or a single initial.
func sentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && runes[i+1] != ' ' {
			continue
		}
		if r == '.' && closesAbbreviation(runes[start:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func closesAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && before[j-1] != ' ' {
		j--
	}
	word := strings.ToLower(string(before[j:]))
	if len([]rune(word)) == 1 && unicode.IsUpper(before[j]) {
		return true
	}
	_, ok := abbreviations[word]
	return ok
}

// words returns the lowercase word tokens of s. Apostrophes stay inside
// words so contractions like "isn't" survive.
func words(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'’")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
