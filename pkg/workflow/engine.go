package workflow

import (
	"context"
	"log"
	"strings"
	"time"

	"drug-agentic-be/internal/constant"
	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/store"
)

const inDomainIntent = constant.IntentMedical

// Turn status values recorded with every persisted turn.
const (
	TurnStatusOK        = "ok"
	TurnStatusDegraded  = "degraded"
	TurnStatusCancelled = "cancelled"
)

// IntentClassifier decides whether a query is in the medical domain.
// An unavailable classifier returns an error; the engine applies the
// configured fallback label instead of aborting.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}

// QueryAugmenter expands the user query into retrieval sub-queries.
type QueryAugmenter interface {
	Augment(ctx context.Context, query string) ([]string, error)
}

// Retriever fans a round of sub-queries out to every evidence source and
// returns the combined set. Only total failure of all sources for all
// sub-queries is an error (ErrAllSourcesFailed).
type Retriever interface {
	Retrieve(ctx context.Context, subQueries []store.SubQuery) ([]store.EvidenceItem, error)
}

// ContextMerger dedups, reranks and truncates the accumulated evidence
// into the context for the current iteration.
type ContextMerger interface {
	Merge(ctx context.Context, query string, evidence []store.EvidenceItem, iteration int) (*store.RankedContext, error)
}

// Verdict is a sufficiency judgement over the current context.
type Verdict struct {
	Sufficient bool
	Reasoning  string
	FollowUps  []string
	Iteration  int
}

// SufficiencyJudge decides whether the context answers the query.
type SufficiencyJudge interface {
	Judge(ctx context.Context, query string, rc *store.RankedContext, iteration int) (*Verdict, error)
}

// AnswerGenerator produces the final answer, atomically or as a fragment
// stream. An empty context must yield an explicit insufficient-information
// answer, never fabricated content.
type AnswerGenerator interface {
	Generate(ctx context.Context, q Query, rc *store.RankedContext, history []store.Turn, degraded bool) (string, error)
	GenerateStream(ctx context.Context, q Query, rc *store.RankedContext, history []store.Turn, degraded bool) (<-chan llm.Fragment, error)
	GeneralAnswer(ctx context.Context, q Query) (string, error)
}

// HistoryProvider loads the most recent turns of a conversation.
type HistoryProvider interface {
	RecentTurns(ctx context.Context, userId, conversationId string, limit int) ([]store.Turn, error)
}

// TurnRecord is everything the persister needs to write one turn.
type TurnRecord struct {
	UserId         string
	ConversationId string
	Query          string
	Intent         string
	Answer         string
	Context        *store.RankedContext
	Status         string
	Iterations     int
	LatencyMs      int64
}

// TurnRecorder accepts a turn record without blocking answer delivery.
type TurnRecorder interface {
	Record(record TurnRecord) error
}

// Metrics receives workflow observability signals.
type Metrics interface {
	ObserveStage(stage string, seconds float64)
	IncReflectionIteration()
	IncResolvedTurn(status string)
	IncPersistFailure()
}

// NopMetrics discards every signal.
type NopMetrics struct{}

func (NopMetrics) ObserveStage(string, float64) {}
func (NopMetrics) IncReflectionIteration()      {}
func (NopMetrics) IncResolvedTurn(string)       {}
func (NopMetrics) IncPersistFailure()           {}

// Config bounds one engine instance.
type Config struct {
	MaxIterations  int
	FallbackIntent string
	HistoryTurns   int
	ModelName      string
}

// Answer is the terminal output of one resolved query.
type Answer struct {
	Text       string
	Intent     string
	Context    *store.RankedContext
	Degraded   bool
	Iterations int
	ModelName  string
	LatencyMs  int64
}

// Engine drives the query-resolution state machine. One Engine serves many
// concurrent requests; all per-request state lives in PipelineState.
type Engine struct {
	cfg        Config
	classifier IntentClassifier
	augmenter  QueryAugmenter
	retriever  Retriever
	merger     ContextMerger
	judge      SufficiencyJudge
	generator  AnswerGenerator
	history    HistoryProvider
	recorder   TurnRecorder
	metrics    Metrics
	trace      *log.Logger
}

func NewEngine(
	cfg Config,
	classifier IntentClassifier,
	augmenter QueryAugmenter,
	retriever Retriever,
	merger ContextMerger,
	judge SufficiencyJudge,
	generator AnswerGenerator,
	history HistoryProvider,
	recorder TurnRecorder,
	metrics Metrics,
	trace *log.Logger,
) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.FallbackIntent == "" {
		cfg.FallbackIntent = inDomainIntent
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if trace == nil {
		trace = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		augmenter:  augmenter,
		retriever:  retriever,
		merger:     merger,
		judge:      judge,
		generator:  generator,
		history:    history,
		recorder:   recorder,
		metrics:    metrics,
		trace:      trace,
	}
}

// Resolve runs the full workflow and returns an atomic answer.
func (e *Engine) Resolve(ctx context.Context, q Query) (*Answer, error) {
	s, err := e.runUntilGeneration(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.Stage == StageGeneralAnswer {
		e.generalAnswer(ctx, s)
	} else {
		e.generate(ctx, s)
	}

	status := TurnStatusOK
	if s.Degraded {
		status = TurnStatusDegraded
	}
	e.persist(s, status)

	return e.answerFrom(s), nil
}

// ResolveStream runs the workflow and streams the answer as an ordered,
// finite fragment sequence. The turn is persisted once the stream ends,
// including best-effort on cancellation.
func (e *Engine) ResolveStream(ctx context.Context, q Query) (<-chan llm.Fragment, error) {
	s, err := e.runUntilGeneration(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.Stage == StageGeneralAnswer {
		out := make(chan llm.Fragment, 2)
		e.generalAnswer(ctx, s)
		out <- llm.Fragment{Content: s.Answer}
		out <- llm.Fragment{Done: true}
		close(out)
		e.persist(s, e.statusOf(s))
		return out, nil
	}

	history := e.loadHistory(ctx, s)
	inner, err := e.generator.GenerateStream(ctx, s.Query, s.Context, history, s.Degraded)
	if err != nil {
		// Stream setup failed: degrade to the canned reply, still one
		// well-formed fragment sequence for the caller.
		s.Answer = constant.NoEvidenceReply
		s.Degraded = true
		out := make(chan llm.Fragment, 2)
		out <- llm.Fragment{Content: s.Answer}
		out <- llm.Fragment{Done: true}
		close(out)
		e.persist(s, TurnStatusDegraded)
		return out, nil
	}

	out := make(chan llm.Fragment)
	go e.relayStream(ctx, s, inner, out)
	return out, nil
}

// relayStream forwards fragments while accumulating the full answer text,
// then records the turn exactly once when the stream terminates.
func (e *Engine) relayStream(ctx context.Context, s *PipelineState, inner <-chan llm.Fragment, out chan<- llm.Fragment) {
	defer close(out)

	var full strings.Builder
	for frag := range inner {
		if frag.Err != nil {
			s.Degraded = true
		}
		full.WriteString(frag.Content)

		select {
		case out <- frag:
		case <-ctx.Done():
			s.Answer = full.String()
			e.persist(s, TurnStatusCancelled)
			return
		}
		if frag.Done || frag.Err != nil {
			break
		}
	}

	s.Answer = full.String()
	if s.Answer == "" {
		s.Answer = constant.NoEvidenceReply
		s.Degraded = true
	}
	e.persist(s, e.statusOf(s))
}

// runUntilGeneration executes classify through reflect and stops at the
// generation stage, which Resolve and ResolveStream handle differently.
func (e *Engine) runUntilGeneration(ctx context.Context, q Query) (*PipelineState, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, stageErr(StageClassify, ErrEmptyQuery)
	}

	s := NewPipelineState(q)
	for s.Stage != StageGenerate && s.Stage != StageGeneralAnswer {
		if err := ctx.Err(); err != nil {
			e.persist(s, TurnStatusCancelled)
			return nil, stageErr(s.Stage, err)
		}

		start := time.Now()
		switch s.Stage {
		case StageClassify:
			e.classify(ctx, s)
		case StageAugment:
			e.augment(ctx, s)
		case StageRetrieve:
			e.retrieve(ctx, s)
		case StageMerge:
			if err := e.merge(ctx, s); err != nil {
				e.persist(s, TurnStatusDegraded)
				return nil, stageErr(StageMerge, err)
			}
		case StageReflect:
			e.reflect(ctx, s)
		}
		e.metrics.ObserveStage(s.Stage.String(), time.Since(start).Seconds())

		s.Stage = nextStage(s)
	}
	return s, nil
}

func (e *Engine) classify(ctx context.Context, s *PipelineState) {
	label, confidence, err := e.classifier.Classify(ctx, s.Query.Text)
	if err != nil {
		e.trace.Printf("[CLASSIFY] classifier unavailable, falling back to %q: %v", e.cfg.FallbackIntent, err)
		s.Intent = e.cfg.FallbackIntent
		s.Confidence = 0
		return
	}
	s.Intent = label
	s.Confidence = confidence
	e.trace.Printf("[CLASSIFY] intent=%s confidence=%.2f query=%q", label, confidence, snippet(s.Query.Text))
}

func (e *Engine) augment(ctx context.Context, s *PipelineState) {
	candidates, err := e.augmenter.Augment(ctx, s.Query.Text)
	if err != nil {
		e.trace.Printf("[AUGMENT] augmenter failed, using query verbatim: %v", err)
		candidates = nil
	}
	if s.AddSubQueries(candidates) == 0 {
		// The workflow never stalls for lack of a search term.
		s.AddSubQueries([]string{s.Query.Text})
	}
	e.trace.Printf("[AUGMENT] %d sub-queries staged", len(s.SubQueries))
}

func (e *Engine) retrieve(ctx context.Context, s *PipelineState) {
	fresh, err := e.retriever.Retrieve(ctx, s.SubQueries)
	if err != nil {
		if len(s.Evidence) == 0 {
			e.trace.Printf("[RETRIEVE] total retrieval failure, degrading: %v", err)
			s.Degraded = true
			return
		}
		// Prior iterations already produced evidence; continue with it.
		e.trace.Printf("[RETRIEVE] round failed, keeping %d prior items: %v", len(s.Evidence), err)
		return
	}

	base := len(s.Evidence)
	for i := range fresh {
		fresh[i].Order = base + i
	}
	s.Evidence = append(s.Evidence, fresh...)
	e.trace.Printf("[RETRIEVE] iteration=%d fresh=%d total=%d", s.Iteration, len(fresh), len(s.Evidence))
}

func (e *Engine) merge(ctx context.Context, s *PipelineState) error {
	rc, err := e.merger.Merge(ctx, s.Query.Text, s.Evidence, s.Iteration)
	if err != nil {
		return err
	}
	s.Context = rc
	e.trace.Printf("[MERGE] iteration=%d items=%d chars=%d truncated=%v", s.Iteration, len(rc.Items), rc.TotalLen, rc.Truncated)
	return nil
}

func (e *Engine) reflect(ctx context.Context, s *PipelineState) {
	if s.Iteration >= e.cfg.MaxIterations {
		e.trace.Printf("[REFLECT] iteration cap %d reached, forcing conclusion", e.cfg.MaxIterations)
		s.Concluded = true
		return
	}

	verdict, err := e.judge.Judge(ctx, s.Query.Text, s.Context, s.Iteration)
	if err != nil {
		// Fail-open: an unavailable judge never blocks the answer.
		e.trace.Printf("[REFLECT] judge failed, concluding: %v", err)
		s.Concluded = true
		return
	}
	if verdict.Sufficient {
		e.trace.Printf("[REFLECT] sufficient at iteration %d", s.Iteration)
		s.Concluded = true
		return
	}

	staged := s.AddSubQueries(verdict.FollowUps)
	if staged == 0 {
		e.trace.Printf("[REFLECT] insufficient but no new follow-ups, concluding")
		s.Concluded = true
		return
	}

	s.Iteration++
	e.metrics.IncReflectionIteration()
	e.trace.Printf("[REFLECT] insufficient (%s), iteration=%d follow-ups=%d", snippet(verdict.Reasoning), s.Iteration, staged)
}

func (e *Engine) generate(ctx context.Context, s *PipelineState) {
	history := e.loadHistory(ctx, s)
	answer, err := e.generator.Generate(ctx, s.Query, s.Context, history, s.Degraded)
	if err != nil {
		e.trace.Printf("[GENERATE] generator failed, degrading: %v", err)
		s.Answer = constant.NoEvidenceReply
		s.Degraded = true
		return
	}
	s.Answer = answer
}

func (e *Engine) generalAnswer(ctx context.Context, s *PipelineState) {
	answer, err := e.generator.GeneralAnswer(ctx, s.Query)
	if err != nil {
		e.trace.Printf("[GENERAL] general answer failed, using canned reply: %v", err)
		answer = constant.GeneralFallbackReply
	}
	s.Answer = answer
}

func (e *Engine) loadHistory(ctx context.Context, s *PipelineState) []store.Turn {
	if e.history == nil || s.Query.ConversationId == "" || e.cfg.HistoryTurns <= 0 {
		return nil
	}
	turns, err := e.history.RecentTurns(ctx, s.Query.UserId, s.Query.ConversationId, e.cfg.HistoryTurns)
	if err != nil {
		e.trace.Printf("[HISTORY] load failed, answering without history: %v", err)
		return nil
	}
	return turns
}

// persist dispatches the turn record. Failure is observed, never surfaced.
func (e *Engine) persist(s *PipelineState, status string) {
	record := TurnRecord{
		UserId:         s.Query.UserId,
		ConversationId: s.Query.ConversationId,
		Query:          s.Query.Text,
		Intent:         s.Intent,
		Answer:         s.Answer,
		Context:        s.Context,
		Status:         status,
		Iterations:     s.Iteration,
		LatencyMs:      time.Since(s.StartedAt).Milliseconds(),
	}
	if err := e.recorder.Record(record); err != nil {
		e.metrics.IncPersistFailure()
		e.trace.Printf("[PERSIST] dispatch failed: %v", err)
	}
	e.metrics.IncResolvedTurn(status)
}

func (e *Engine) statusOf(s *PipelineState) string {
	if s.Degraded {
		return TurnStatusDegraded
	}
	return TurnStatusOK
}

func (e *Engine) answerFrom(s *PipelineState) *Answer {
	return &Answer{
		Text:       s.Answer,
		Intent:     s.Intent,
		Context:    s.Context,
		Degraded:   s.Degraded,
		Iterations: s.Iteration,
		ModelName:  e.cfg.ModelName,
		LatencyMs:  time.Since(s.StartedAt).Milliseconds(),
	}
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= 60 {
		return text
	}
	return string(runes[:60]) + "..."
}
