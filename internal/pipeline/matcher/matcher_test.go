package matcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/vocab"
)

func newTestMatcher(t *testing.T, names []string, aliases map[string]string) *Matcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.txt")
	content := ""
	for _, n := range names {
		content += n + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := vocab.Load(path, aliases, logger.NewTestLogger(t))
	return New(store, logger.NewTestLogger(t))
}

func TestMatchRecognizesVocabularyEntry(t *testing.T) {
	m := newTestMatcher(t, []string{"武侯祠", "锦里古街"}, nil)

	entities, order := m.Match("武侯祠的地址在哪里？")

	require.Len(t, entities, 1)
	assert.Equal(t, []EntityKind{KindAttraction}, entities["武侯祠"])
	assert.Equal(t, []string{"武侯祠"}, order)
}

func TestMatchDropsStrictSubstringMatches(t *testing.T) {
	m := newTestMatcher(t, []string{"都江堰", "都江堰景区"}, nil)

	entities, _ := m.Match("都江堰景区的门票多少钱？")

	// The longer surface form wins; the shorter one is a strict substring.
	require.Len(t, entities, 1)
	assert.Contains(t, entities, "都江堰景区")
}

func TestMatchResolvesAliasToCanonicalName(t *testing.T) {
	m := newTestMatcher(t, []string{"成都大熊猫繁育研究基地"}, map[string]string{
		"熊猫基地": "成都大熊猫繁育研究基地",
	})

	entities, order := m.Match("熊猫基地几点开门？")

	require.Len(t, entities, 1)
	assert.Contains(t, entities, "成都大熊猫繁育研究基地")
	assert.Equal(t, []string{"成都大熊猫繁育研究基地"}, order)
}

func TestMatchAliasAndCanonicalMergeToOneEntity(t *testing.T) {
	m := newTestMatcher(t, []string{"锦里古街"}, map[string]string{"锦里": "锦里古街"})

	entities, order := m.Match("锦里古街就是锦里吗？")

	require.Len(t, entities, 1)
	assert.Equal(t, []EntityKind{KindAttraction}, entities["锦里古街"])
	assert.Equal(t, []string{"锦里古街"}, order)
}

func TestMatchMultipleDistinctEntities(t *testing.T) {
	m := newTestMatcher(t, []string{"武侯祠", "杜甫草堂"}, nil)

	entities, _ := m.Match("武侯祠和杜甫草堂哪个评分高？")

	assert.Len(t, entities, 2)
	assert.Contains(t, entities, "武侯祠")
	assert.Contains(t, entities, "杜甫草堂")
}

func TestMatchOrderFollowsQuestionOccurrence(t *testing.T) {
	m := newTestMatcher(t, []string{"武侯祠", "杜甫草堂", "锦里古街"}, nil)

	_, order := m.Match("杜甫草堂离锦里古街和武侯祠远吗？")

	assert.Equal(t, []string{"杜甫草堂", "锦里古街", "武侯祠"}, order)
}

func TestMatchOrderUsesEarliestSurfaceForMergedEntity(t *testing.T) {
	m := newTestMatcher(t, []string{"成都大熊猫繁育研究基地", "武侯祠"}, map[string]string{
		"熊猫基地": "成都大熊猫繁育研究基地",
	})

	_, order := m.Match("熊猫基地好玩还是武侯祠好玩？听说成都大熊猫繁育研究基地在北郊。")

	// The alias occurs first, so the merged canonical name leads even though
	// the canonical surface form appears later in the question.
	assert.Equal(t, []string{"成都大熊猫繁育研究基地", "武侯祠"}, order)
}

func TestMatchNothingRecognized(t *testing.T) {
	m := newTestMatcher(t, []string{"武侯祠"}, nil)

	entities, order := m.Match("今天天气怎么样？")
	assert.Empty(t, entities)
	assert.Empty(t, order)

	entities, order = m.Match("")
	assert.Empty(t, entities)
	assert.Empty(t, order)
}

func TestEmptyVocabularyMatchesNothing(t *testing.T) {
	m := newTestMatcher(t, nil, nil)

	entities, order := m.Match("武侯祠在哪里？")
	assert.Empty(t, entities)
	assert.Empty(t, order)
}

func TestMatchIsDeterministic(t *testing.T) {
	m := newTestMatcher(t, []string{"青城山", "都江堰景区"}, map[string]string{"都江堰": "都江堰景区"})
	question := "青城山和都江堰一日游怎么安排？"

	firstEntities, firstOrder := m.Match(question)
	for i := 0; i < 10; i++ {
		entities, order := m.Match(question)
		assert.Equal(t, firstEntities, entities)
		assert.Equal(t, firstOrder, order)
	}
}
