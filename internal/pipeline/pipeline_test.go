package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/common/observability"
	"tourist-kgqa/internal/fallback"
	"tourist-kgqa/internal/pipeline/classifier"
	"tourist-kgqa/internal/pipeline/formatter"
	"tourist-kgqa/internal/pipeline/matcher"
	"tourist-kgqa/internal/pipeline/synthesizer"
	"tourist-kgqa/internal/vocab"
)

type fakeExecutor struct {
	rows map[string][]map[string]any
	err  error
}

func (f *fakeExecutor) Execute(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	name, _ := params["name"].(string)
	return f.rows[name], nil
}

type fakeDeferrer struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDeferrer) Dispatch(requestID, userID, question string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, question)
}

func (f *fakeDeferrer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestPipeline(t *testing.T, exec formatter.Executor) (*Pipeline, *fakeDeferrer, *fallback.HistoryStore) {
	t.Helper()
	log := logger.NewTestLogger(t)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("武侯祠\n锦里古街\n都江堰景区\n"), 0o644))
	store := vocab.Load(path, map[string]string{"锦里": "锦里古街"}, log)

	deferrer := &fakeDeferrer{}
	history := fallback.NewHistoryStore(0, log)
	p := New(
		matcher.New(store, log),
		classifier.New(),
		synthesizer.New(),
		formatter.New(exec, log),
		deferrer,
		history,
		observability.New("pipeline-test"),
		log,
	)
	return p, deferrer, history
}

func TestAskAnswersLocally(t *testing.T) {
	exec := &fakeExecutor{rows: map[string][]map[string]any{
		"武侯祠": {{"name": "武侯祠", "地址": "武侯祠大街231号"}},
	}}
	p, deferrer, history := newTestPipeline(t, exec)

	resp := p.Ask(context.Background(), "武侯祠的地址在哪里？", "user-1")

	assert.False(t, resp.Deferred)
	assert.Empty(t, resp.RequestID)
	assert.Equal(t, "武侯祠的地址是：武侯祠大街231号。", resp.Answer)
	assert.Equal(t, 0, deferrer.count())
	// Local answers feed the conversation history for later follow-ups.
	assert.Len(t, history.Snapshot("user-1"), 2)
}

func TestAskAliasResolvesBeforeQuerying(t *testing.T) {
	exec := &fakeExecutor{rows: map[string][]map[string]any{
		"锦里古街": {{"name": "锦里古街", "门票价格": "免费"}},
	}}
	p, _, _ := newTestPipeline(t, exec)

	resp := p.Ask(context.Background(), "锦里的门票多少钱？", "user-1")

	assert.False(t, resp.Deferred)
	assert.Equal(t, "锦里古街的门票价格是：免费。", resp.Answer)
}

func TestAskNoEntityDefers(t *testing.T) {
	p, deferrer, _ := newTestPipeline(t, &fakeExecutor{})

	resp := p.Ask(context.Background(), "今天成都的天气怎么样？", "user-1")

	assert.True(t, resp.Deferred)
	assert.NotEmpty(t, resp.RequestID)
	assert.Contains(t, resp.Answer, "正在思考中")
	assert.Equal(t, 1, deferrer.count())
}

func TestAskNoLocalDataDefers(t *testing.T) {
	// Entity and intent resolve, but the graph holds no node for it.
	p, deferrer, _ := newTestPipeline(t, &fakeExecutor{rows: map[string][]map[string]any{}})

	resp := p.Ask(context.Background(), "都江堰景区的开放时间是？", "user-1")

	assert.True(t, resp.Deferred)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, 1, deferrer.count())
}

func TestAskGraphErrorDefers(t *testing.T) {
	p, deferrer, _ := newTestPipeline(t, &fakeExecutor{err: fmt.Errorf("connection refused")})

	resp := p.Ask(context.Background(), "武侯祠的地址在哪里？", "user-1")

	assert.True(t, resp.Deferred)
	assert.Equal(t, 1, deferrer.count())
}

func TestAskBareEntityAnswersWithDescription(t *testing.T) {
	exec := &fakeExecutor{rows: map[string][]map[string]any{
		"武侯祠": {{"name": "武侯祠", "简介": "纪念诸葛亮的祠堂。"}},
	}}
	p, _, _ := newTestPipeline(t, exec)

	resp := p.Ask(context.Background(), "武侯祠", "user-1")

	assert.False(t, resp.Deferred)
	assert.Equal(t, "武侯祠的简介：纪念诸葛亮的祠堂。", resp.Answer)
}

func TestAskMultiIntentJoinsSentences(t *testing.T) {
	exec := &fakeExecutor{rows: map[string][]map[string]any{
		"武侯祠": {{"name": "武侯祠", "地址": "武侯祠大街231号", "门票价格": "50元"}},
	}}
	p, _, _ := newTestPipeline(t, exec)

	resp := p.Ask(context.Background(), "武侯祠的门票多少钱？地址在哪里？", "user-1")

	assert.False(t, resp.Deferred)
	assert.Contains(t, resp.Answer, "武侯祠的地址是：武侯祠大街231号。")
	assert.Contains(t, resp.Answer, "武侯祠的门票价格是：50元。")
}

func TestAskNullAttributeAnswersWithApology(t *testing.T) {
	// The node exists but the attribute is null: answered locally, no deferral.
	exec := &fakeExecutor{rows: map[string][]map[string]any{
		"武侯祠": {{"name": "武侯祠", "地址": nil}},
	}}
	p, deferrer, _ := newTestPipeline(t, exec)

	resp := p.Ask(context.Background(), "武侯祠的地址在哪里？", "user-1")

	assert.False(t, resp.Deferred)
	assert.Equal(t, "抱歉，未能查询到武侯祠的地址信息。", resp.Answer)
	assert.Equal(t, 0, deferrer.count())
}

func TestAskTwoEntitiesAnsweredInQuestionOrder(t *testing.T) {
	exec := &fakeExecutor{rows: map[string][]map[string]any{
		"武侯祠":  {{"name": "武侯祠", "简介": "纪念诸葛亮的祠堂。"}},
		"锦里古街": {{"name": "锦里古街", "简介": "清末民初风貌的商业街。"}},
	}}
	p, _, _ := newTestPipeline(t, exec)

	resp := p.Ask(context.Background(), "介绍一下武侯祠和锦里古街", "user-1")
	require.False(t, resp.Deferred)
	assert.Equal(t,
		"武侯祠的简介：纪念诸葛亮的祠堂。\n锦里古街的简介：清末民初风貌的商业街。",
		resp.Answer)

	// Reversing the question reverses the answer; the order is the user's,
	// not a lexicographic one.
	resp = p.Ask(context.Background(), "介绍一下锦里古街和武侯祠", "user-1")
	require.False(t, resp.Deferred)
	assert.Equal(t,
		"锦里古街的简介：清末民初风貌的商业街。\n武侯祠的简介：纪念诸葛亮的祠堂。",
		resp.Answer)
}

func TestAskEachDeferralGetsFreshRequestID(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeExecutor{})

	first := p.Ask(context.Background(), "随便聊聊", "user-1")
	second := p.Ask(context.Background(), "随便聊聊", "user-1")

	require.True(t, first.Deferred)
	require.True(t, second.Deferred)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}
