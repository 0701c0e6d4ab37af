package article

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// textStopWords are words the English text index never stores, so a
// phrase made only of them can not be found through $text.
var textStopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at
		be because been before being below between both but by can could did do does doing down
		during each few for from further had has have having he her here hers herself him himself
		his how i if in into is it its itself just me more most my myself no nor not now of off on
		once only or other our ours ourselves out over own same she should so some such than that
		the their theirs them themselves then there these they this those through to too under
		until up us very was we were what when where which while who whom why will with would you
		your yours yourself yourselves`) {
		textStopWords[w] = struct{}{}
	}
}

// indexable reports whether topic has at least one word the text index keeps.
func indexable(topic string) bool {
	for _, w := range strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !(r == '\'' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r > 127)
	}) {
		if _, stop := textStopWords[w]; !stop {
			return true
		}
	}
	return false
}

// topicFilter matches topic as a phrase. Topics the text index can not see
// fall back to a whole-word, case-insensitive regex over the same fields.
func topicFilter(topic string) bson.M {
	if indexable(topic) {
		return bson.M{"$text": bson.M{"$search": `"` + topic + `"`}}
	}

	words := strings.Fields(topic)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re := primitive.Regex{Pattern: `\b` + strings.Join(words, `\s+`) + `\b`, Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"summary": re},
		bson.M{"rawText": re},
	}}
}
