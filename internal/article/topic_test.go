package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexable(t *testing.T) {
	assert.True(t, indexable("Adani"))
	assert.True(t, indexable("Bank of America"))
	assert.False(t, indexable("US"))
	assert.False(t, indexable("The Who"))
}

func TestTopicFilter(t *testing.T) {
	text := topicFilter("Acme Corp")
	assert.Equal(t, bson.M{"$search": `"Acme Corp"`}, text["$text"])

	fallback := topicFilter("us")
	assert.NotContains(t, fallback, "$text")
	assert.Len(t, fallback["$or"], 3)
}
