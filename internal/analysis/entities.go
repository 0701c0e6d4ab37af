package analysis

import (
	"sort"
	"strings"
	"unicode"

	"github.com/newsradar/newsradar/internal/article"

	"golang.org/x/text/cases"
)

const (
	EntityPerson       = "person"
	EntityOrganization = "organization"
	EntityLocation     = "location"
	EntityMisc         = "misc"
)

type token struct {
	text  string
	upper bool
	stop  bool // punctuation after the token ends the current run
}

type mention struct {
	name  string
	kind  string
	count int
	first int
}

// extractEntities finds runs of capitalized words, types them and merges
// repeats case-insensitively. The result is ordered by mention count, then
// by first appearance.
func extractEntities(sents []string) []article.Entity {
	fold := cases.Fold()
	byKey := map[string]*mention{}
	var order []*mention
	pos, total := 0, 0

	for _, s := range sents {
		for _, r := range capitalizedRuns(tokenize(s)) {
			name, person := cleanRun(r.tokens)
			if name == "" {
				continue
			}
			kind := classify(name, person)
			if r.start == 0 && !strings.Contains(name, " ") && kind == EntityMisc {
				continue
			}

			key := fold.String(name)
			m, ok := byKey[key]
			if !ok {
				m = &mention{name: name, kind: kind, first: pos}
				byKey[key] = m
				order = append(order, m)
			}
			m.count++
			if person && m.kind != EntityPerson {
				m.kind = EntityPerson
			}
			pos++
			total++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	out := make([]article.Entity, 0, len(order))
	for _, m := range order {
		out = append(out, article.Entity{
			Name:     m.name,
			Type:     m.kind,
			Salience: round(float64(m.count) / float64(total)),
		})
	}
	return out
}

func tokenize(sentence string) []token {
	fields := strings.Fields(sentence)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.TrimLeftFunc(f, isEdgePunct)
		stop := false
		if core := strings.TrimRightFunc(trimmed, isEdgePunct); core != trimmed {
			stop = true
			// keep the closing period of dotted acronyms like U.S.
			if strings.Count(trimmed, ".") > 1 && strings.HasSuffix(trimmed, ".") {
				core = strings.TrimRight(trimmed, ",;:!?\"')”’")
			}
			if trimmed == core+"." && keepsRunAcrossPeriod(core) {
				stop = false
			}
			trimmed = core
		}
		trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, "'s"), "’s")
		if trimmed == "" {
			continue
		}
		r := []rune(trimmed)
		out = append(out, token{text: trimmed, upper: unicode.IsUpper(r[0]), stop: stop})
	}
	return out
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) && r != '&' || unicode.IsSymbol(r)
}

type run struct {
	tokens []string
	start  int
}

func capitalizedRuns(toks []token) []run {
	var out []run
	var cur []string
	start := 0

	flush := func() {
		if len(cur) > 0 {
			out = append(out, run{tokens: cur, start: start})
		}
		cur = nil
	}

	for i, t := range toks {
		switch {
		case t.upper:
			if len(cur) == 0 {
				start = i
			}
			cur = append(cur, t.text)
		case len(cur) > 0 && (t.text == "of" || t.text == "&") && i+1 < len(toks) && toks[i+1].upper:
			cur = append(cur, t.text)
		default:
			flush()
		}
		if t.stop {
			flush()
		}
	}
	flush()
	return out
}

// cleanRun strips leading stopwords and honorifics. person is set when an
// honorific preceded the name.
func cleanRun(toks []string) (string, bool) {
	person := false
	for len(toks) > 0 {
		lw := strings.ToLower(strings.TrimSuffix(toks[0], "."))
		if _, ok := honorifics[lw]; ok && len(toks) > 1 {
			person = true
			toks = toks[1:]
			continue
		}
		if _, ok := stopCapitalized[lw]; ok {
			toks = toks[1:]
			continue
		}
		break
	}
	if person {
		for i, t := range toks {
			if t == "of" || t == "&" {
				toks = toks[:i]
				break
			}
		}
	}
	for len(toks) > 0 && (toks[len(toks)-1] == "of" || toks[len(toks)-1] == "&") {
		toks = toks[:len(toks)-1]
	}

	name := strings.Join(toks, " ")
	if len([]rune(name)) < 2 || isNumeric(name) {
		return "", false
	}
	return name, person
}

func classify(name string, person bool) string {
	if person {
		return EntityPerson
	}
	lower := strings.ToLower(name)
	parts := strings.Fields(lower)

	if _, ok := knownLocations[strings.TrimSuffix(lower, ".")]; ok {
		return EntityLocation
	}
	if _, ok := knownOrganizations[lower]; ok {
		return EntityOrganization
	}
	if _, ok := orgSuffixes[strings.TrimSuffix(parts[len(parts)-1], ".")]; ok && len(parts) > 1 {
		return EntityOrganization
	}
	if isAcronym(name) {
		return EntityOrganization
	}
	if len(parts) >= 2 && len(parts) <= 3 {
		return EntityPerson
	}
	return EntityMisc
}

func isAcronym(s string) bool {
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			letters++
		case r == '.' || r == '&':
		default:
			return false
		}
	}
	return letters >= 2
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != ',' && r != '.' && r != ' ' {
			return false
		}
	}
	return true
}

func keepsRunAcrossPeriod(core string) bool {
	lw := strings.ToLower(core)
	if _, ok := honorifics[lw]; ok {
		return true
	}
	r := []rune(core)
	return len(r) == 1 && unicode.IsUpper(r[0])
}
