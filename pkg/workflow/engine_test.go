package workflow

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-agentic-be/internal/constant"
	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/store"
)

type fakeClassifier struct {
	label      string
	confidence float64
	err        error
	calls      int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (string, float64, error) {
	f.calls++
	return f.label, f.confidence, f.err
}

type fakeAugmenter struct {
	queries []string
	err     error
	calls   int
}

func (f *fakeAugmenter) Augment(ctx context.Context, query string) ([]string, error) {
	f.calls++
	return f.queries, f.err
}

type fakeRetriever struct {
	items   []store.EvidenceItem
	err     error
	errOnce bool
	calls   int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, subQueries []store.SubQuery) ([]store.EvidenceItem, error) {
	f.calls++
	if f.err != nil && (!f.errOnce || f.calls == 1) {
		return nil, f.err
	}
	out := make([]store.EvidenceItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

type fakeMerger struct {
	err   error
	calls int
}

func (f *fakeMerger) Merge(ctx context.Context, query string, evidence []store.EvidenceItem, iteration int) (*store.RankedContext, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &store.RankedContext{Items: evidence, Iteration: iteration}, nil
}

type fakeJudge struct {
	verdicts []*Verdict
	err      error
	calls    int
}

func (f *fakeJudge) Judge(ctx context.Context, query string, rc *store.RankedContext, iteration int) (*Verdict, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= len(f.verdicts) {
		return f.verdicts[f.calls-1], nil
	}
	return &Verdict{Sufficient: true}, nil
}

type fakeGenerator struct {
	answer        string
	generalAnswer string
	streamErr     error
	fragments     []llm.Fragment
	generateCalls int
	generalCalls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, q Query, rc *store.RankedContext, history []store.Turn, degraded bool) (string, error) {
	f.generateCalls++
	if degraded || rc.Empty() {
		return constant.NoEvidenceReply, nil
	}
	return f.answer, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, q Query, rc *store.RankedContext, history []store.Turn, degraded bool) (<-chan llm.Fragment, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan llm.Fragment, len(f.fragments))
	for _, frag := range f.fragments {
		out <- frag
	}
	close(out)
	return out, nil
}

func (f *fakeGenerator) GeneralAnswer(ctx context.Context, q Query) (string, error) {
	f.generalCalls++
	return f.generalAnswer, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []TurnRecord
	err     error
}

func (f *fakeRecorder) Record(record TurnRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeRecorder) last(t *testing.T) TurnRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		t.Fatal("no turn was recorded")
	}
	return f.records[len(f.records)-1]
}

type fakeHistory struct {
	turns []store.Turn
	err   error
}

func (f *fakeHistory) RecentTurns(ctx context.Context, userId, conversationId string, limit int) ([]store.Turn, error) {
	return f.turns, f.err
}

type engineFixture struct {
	classifier *fakeClassifier
	augmenter  *fakeAugmenter
	retriever  *fakeRetriever
	merger     *fakeMerger
	judge      *fakeJudge
	generator  *fakeGenerator
	recorder   *fakeRecorder
	history    *fakeHistory
	engine     *Engine
}

func newEngineFixture(cfg Config) *engineFixture {
	fx := &engineFixture{
		classifier: &fakeClassifier{label: constant.IntentMedical, confidence: 0.8},
		augmenter:  &fakeAugmenter{queries: []string{"sub query one", "sub query two"}},
		retriever: &fakeRetriever{items: []store.EvidenceItem{
			{Source: store.SourceKnowledgeBase, SourceID: "chunk-1", Content: "evidence", Score: 0.9},
		}},
		merger:    &fakeMerger{},
		judge:     &fakeJudge{},
		generator: &fakeGenerator{answer: "grounded answer", generalAnswer: "general reply"},
		recorder:  &fakeRecorder{},
		history:   &fakeHistory{},
	}
	trace := log.New(io.Discard, "", 0)
	fx.engine = NewEngine(cfg, fx.classifier, fx.augmenter, fx.retriever, fx.merger,
		fx.judge, fx.generator, fx.history, fx.recorder, nil, trace)
	return fx
}

func TestResolveHappyPath(t *testing.T) {
	fx := newEngineFixture(Config{MaxIterations: 3, HistoryTurns: 3, ModelName: "qwen2.5"})

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "thuốc paracetamol", UserId: "u1", ConversationId: "c1"})
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", ans.Text)
	assert.Equal(t, constant.IntentMedical, ans.Intent)
	assert.False(t, ans.Degraded)
	assert.Equal(t, 0, ans.Iterations)
	assert.Equal(t, "qwen2.5", ans.ModelName)

	record := fx.recorder.last(t)
	assert.Equal(t, TurnStatusOK, record.Status)
	assert.Equal(t, "thuốc paracetamol", record.Query)
}

func TestResolveEmptyQuery(t *testing.T) {
	fx := newEngineFixture(Config{})

	_, err := fx.engine.Resolve(context.Background(), Query{Text: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	var stageError *StageError
	require.ErrorAs(t, err, &stageError)
	assert.Equal(t, StageClassify, stageError.Stage)
}

func TestResolveOutOfDomainShortCircuits(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.classifier.label = constant.IntentGeneral

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "thời tiết hôm nay", UserId: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "general reply", ans.Text)
	assert.Equal(t, constant.IntentGeneral, ans.Intent)
	// Retrieval machinery never runs for out-of-domain queries.
	assert.Zero(t, fx.augmenter.calls)
	assert.Zero(t, fx.retriever.calls)
	assert.Zero(t, fx.judge.calls)
	assert.Equal(t, 1, fx.generator.generalCalls)

	// The turn is still recorded.
	record := fx.recorder.last(t)
	assert.Equal(t, TurnStatusOK, record.Status)
}

func TestResolveClassifierFailureFallsBack(t *testing.T) {
	fx := newEngineFixture(Config{FallbackIntent: constant.IntentMedical})
	fx.classifier.err = errors.New("embedding service down")

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "liều aspirin"})
	require.NoError(t, err)

	// Fallback keeps the full workflow on the in-domain path.
	assert.Equal(t, constant.IntentMedical, ans.Intent)
	assert.Equal(t, "grounded answer", ans.Text)
	assert.Equal(t, 1, fx.retriever.calls)
}

func TestResolveAugmenterFailureUsesQueryVerbatim(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.augmenter.err = errors.New("llm timeout")

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "tương tác warfarin"})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", ans.Text)
	assert.Equal(t, 1, fx.retriever.calls)
}

func TestResolveTotalRetrievalFailureDegrades(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.retriever.err = ErrAllSourcesFailed

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "thuốc hiếm"})
	require.NoError(t, err)

	assert.True(t, ans.Degraded)
	assert.Equal(t, constant.NoEvidenceReply, ans.Text)
	// Degraded path never consults merger or judge.
	assert.Zero(t, fx.merger.calls)
	assert.Zero(t, fx.judge.calls)

	record := fx.recorder.last(t)
	assert.Equal(t, TurnStatusDegraded, record.Status)
}

func TestResolveLaterRoundFailureKeepsPriorEvidence(t *testing.T) {
	fx := newEngineFixture(Config{MaxIterations: 3})
	// First judgement asks for more; the second retrieval round fails.
	fx.judge.verdicts = []*Verdict{
		{Sufficient: false, FollowUps: []string{"follow up query"}},
	}
	fx.retriever.items = []store.EvidenceItem{
		{Source: store.SourceKnowledgeBase, SourceID: "chunk-1", Content: "evidence", Score: 0.9},
	}

	// Fail every call after the first.
	first := true
	fx.engine.retriever = retrieverFunc(func(ctx context.Context, subQueries []store.SubQuery) ([]store.EvidenceItem, error) {
		if first {
			first = false
			return []store.EvidenceItem{{Source: store.SourceKnowledgeBase, SourceID: "chunk-1", Content: "evidence", Score: 0.9}}, nil
		}
		return nil, ErrAllSourcesFailed
	})

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "liều dùng"})
	require.NoError(t, err)

	// Prior evidence still grounds the answer.
	assert.False(t, ans.Degraded)
	assert.Equal(t, "grounded answer", ans.Text)
	assert.Equal(t, 1, ans.Iterations)
}

type retrieverFunc func(ctx context.Context, subQueries []store.SubQuery) ([]store.EvidenceItem, error)

func (f retrieverFunc) Retrieve(ctx context.Context, subQueries []store.SubQuery) ([]store.EvidenceItem, error) {
	return f(ctx, subQueries)
}

func TestResolveMergeFailureIsFatal(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.merger.err = errors.New("rerank payload invalid")

	_, err := fx.engine.Resolve(context.Background(), Query{Text: "liều dùng"})
	require.Error(t, err)

	var stageError *StageError
	require.ErrorAs(t, err, &stageError)
	assert.Equal(t, StageMerge, stageError.Stage)

	record := fx.recorder.last(t)
	assert.Equal(t, TurnStatusDegraded, record.Status)
}

func TestReflectionForcedTerminationAtCap(t *testing.T) {
	fx := newEngineFixture(Config{MaxIterations: 3})
	// The judge never finds the context sufficient and always offers a
	// fresh follow-up, so only the cap can stop the loop.
	fx.engine.judge = judgeFunc(func(ctx context.Context, query string, rc *store.RankedContext, iteration int) (*Verdict, error) {
		fx.judge.calls++
		return &Verdict{
			Sufficient: false,
			FollowUps:  []string{NormalizeSubQuery(query) + " round " + string(rune('a'+fx.judge.calls))},
			Iteration:  iteration,
		}, nil
	})

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "thuốc X"})
	require.NoError(t, err)

	// Three insufficient verdicts expand three times; the fourth entry hits
	// the cap and concludes without consulting the judge again.
	assert.Equal(t, 3, fx.judge.calls)
	assert.Equal(t, 3, ans.Iterations)
	// Initial round plus one per expansion.
	assert.Equal(t, 4, fx.retriever.calls)
}

type judgeFunc func(ctx context.Context, query string, rc *store.RankedContext, iteration int) (*Verdict, error)

func (f judgeFunc) Judge(ctx context.Context, query string, rc *store.RankedContext, iteration int) (*Verdict, error) {
	return f(ctx, query, rc, iteration)
}

func TestReflectionJudgeFailureConcludesOpen(t *testing.T) {
	fx := newEngineFixture(Config{MaxIterations: 3})
	fx.judge.err = errors.New("judge llm unavailable")

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "thuốc Y"})
	require.NoError(t, err)

	// Fail-open: one retrieval round, answer produced from what exists.
	assert.Equal(t, "grounded answer", ans.Text)
	assert.Equal(t, 0, ans.Iterations)
	assert.Equal(t, 1, fx.retriever.calls)
}

func TestReflectionDuplicateFollowUpsConclude(t *testing.T) {
	fx := newEngineFixture(Config{MaxIterations: 3})
	// The follow-up repeats an already-issued sub-query, so no new round
	// can be formed and the loop must conclude.
	fx.judge.verdicts = []*Verdict{
		{Sufficient: false, FollowUps: []string{"Sub Query One"}},
	}

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "thuốc Z"})
	require.NoError(t, err)

	assert.Equal(t, 0, ans.Iterations)
	assert.Equal(t, 1, fx.judge.calls)
	assert.Equal(t, 1, fx.retriever.calls)
}

func TestResolveRecorderFailureDoesNotSurface(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.recorder.err = errors.New("bus closed")

	ans, err := fx.engine.Resolve(context.Background(), Query{Text: "liều dùng"})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", ans.Text)
}

func TestResolveCancelledContext(t *testing.T) {
	fx := newEngineFixture(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.engine.Resolve(ctx, Query{Text: "liều dùng"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	record := fx.recorder.last(t)
	assert.Equal(t, TurnStatusCancelled, record.Status)
}

func TestResolveStreamRelaysFragments(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.generator.fragments = []llm.Fragment{
		{Content: "Paracetamol "},
		{Content: "giảm đau."},
		{Done: true},
	}

	fragments, err := fx.engine.ResolveStream(context.Background(), Query{Text: "paracetamol", UserId: "u1", ConversationId: "c1"})
	require.NoError(t, err)

	var full string
	for frag := range fragments {
		require.NoError(t, frag.Err)
		full += frag.Content
	}
	assert.Equal(t, "Paracetamol giảm đau.", full)

	record := fx.recorder.last(t)
	assert.Equal(t, "Paracetamol giảm đau.", record.Answer)
	assert.Equal(t, TurnStatusOK, record.Status)
}

func TestResolveStreamSetupFailureDegrades(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.generator.streamErr = errors.New("stream refused")

	fragments, err := fx.engine.ResolveStream(context.Background(), Query{Text: "paracetamol"})
	require.NoError(t, err)

	var frags []llm.Fragment
	for frag := range fragments {
		frags = append(frags, frag)
	}
	require.Len(t, frags, 2)
	assert.Equal(t, constant.NoEvidenceReply, frags[0].Content)
	assert.True(t, frags[1].Done)

	record := fx.recorder.last(t)
	assert.Equal(t, TurnStatusDegraded, record.Status)
}

func TestResolveStreamGeneralAnswerIsAtomic(t *testing.T) {
	fx := newEngineFixture(Config{})
	fx.classifier.label = constant.IntentGeneral

	fragments, err := fx.engine.ResolveStream(context.Background(), Query{Text: "thời tiết"})
	require.NoError(t, err)

	var frags []llm.Fragment
	for frag := range fragments {
		frags = append(frags, frag)
	}
	require.Len(t, frags, 2)
	assert.Equal(t, "general reply", frags[0].Content)
	assert.True(t, frags[1].Done)
}
