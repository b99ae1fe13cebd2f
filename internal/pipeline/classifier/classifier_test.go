package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourist-kgqa/internal/pipeline/matcher"
)

func attractionEntities(names ...string) map[string][]matcher.EntityKind {
	out := make(map[string][]matcher.EntityKind, len(names))
	for _, n := range names {
		out[n] = []matcher.EntityKind{matcher.KindAttraction}
	}
	return out
}

func TestClassifyKeywordIntents(t *testing.T) {
	c := New()
	cases := []struct {
		question string
		want     IntentLabel
	}{
		{"武侯祠的地址在哪里？", IntentAddress},
		{"武侯祠几点开门？", IntentOpeningHours},
		{"武侯祠的咨询电话是多少？", IntentPhone},
		{"武侯祠好玩吗？", IntentRating},
		{"武侯祠人多吗？", IntentPopularity},
		{"武侯祠有官方网站吗？", IntentWebsite},
		{"武侯祠门票多少钱？", IntentTicketPrice},
	}

	for _, tc := range cases {
		res := c.Classify(tc.question, attractionEntities("武侯祠"), []string{"武侯祠"})
		require.NotEmpty(t, res.Intents, tc.question)
		assert.Contains(t, res.Intents, tc.want, tc.question)
	}
}

func TestClassifyDescriptionKeywordFallsBack(t *testing.T) {
	c := New()

	res := c.Classify("介绍一下杜甫草堂", attractionEntities("杜甫草堂"), []string{"杜甫草堂"})

	assert.Equal(t, []IntentLabel{IntentDescription}, res.Intents)
}

func TestClassifyBareEntityDefaultsToDescription(t *testing.T) {
	c := New()

	res := c.Classify("杜甫草堂", attractionEntities("杜甫草堂"), []string{"杜甫草堂"})

	assert.Equal(t, []IntentLabel{IntentDescription}, res.Intents)
}

func TestClassifyMultipleIntentsPreserveTableOrder(t *testing.T) {
	c := New()

	res := c.Classify("武侯祠的门票多少钱？地址在哪里？", attractionEntities("武侯祠"), []string{"武侯祠"})

	// 多少钱 also trips the ticket-price set; order follows the keyword table.
	assert.Equal(t, []IntentLabel{IntentAddress, IntentTicketPrice}, res.Intents)
}

func TestClassifyNoEntitiesYieldsEmptyResult(t *testing.T) {
	c := New()

	res := c.Classify("地址在哪里？", nil, nil)

	assert.True(t, res.Empty())
	assert.Empty(t, res.Intents)
}

func TestClassifyNonAttractionEntitiesYieldEmptyResult(t *testing.T) {
	c := New()
	entities := map[string][]matcher.EntityKind{
		"某实体": {matcher.EntityKind("other")},
	}

	res := c.Classify("某实体的地址在哪里？", entities, []string{"某实体"})

	assert.True(t, res.Empty())
}

func TestClassifyNeverEmitsIntentsWithoutEntities(t *testing.T) {
	c := New()
	questions := []string{"", "地址", "门票多少钱", "介绍一下"}

	for _, q := range questions {
		res := c.Classify(q, nil, nil)
		assert.Empty(t, res.Intents, q)
	}
}

func TestAttractionEntitiesFilterKeepsOrder(t *testing.T) {
	res := Result{
		Entities: map[string][]matcher.EntityKind{
			"武侯祠":  {matcher.KindAttraction},
			"某实体":  {matcher.EntityKind("other")},
			"锦里古街": {matcher.KindAttraction},
		},
		Order: []string{"锦里古街", "某实体", "武侯祠"},
	}

	// Non-attraction kinds are filtered out; question-occurrence order holds.
	assert.Equal(t, []string{"锦里古街", "武侯祠"}, res.AttractionEntities())
}
