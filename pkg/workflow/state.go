package workflow

import (
	"strings"
	"time"

	"drug-agentic-be/pkg/store"
)

// Stage enumerates the states of the query-resolution machine. Transitions
// are fixed in nextStage; there is no dynamic dispatch.
type Stage int

const (
	StageClassify Stage = iota
	StageAugment
	StageRetrieve
	StageMerge
	StageReflect
	StageGenerate
	StageGeneralAnswer
	StagePersist
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageClassify:
		return "classify"
	case StageAugment:
		return "augment"
	case StageRetrieve:
		return "retrieve"
	case StageMerge:
		return "merge"
	case StageReflect:
		return "reflect"
	case StageGenerate:
		return "generate"
	case StageGeneralAnswer:
		return "general_answer"
	case StagePersist:
		return "persist"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// Query is the immutable input of one workflow execution.
type Query struct {
	Text           string
	UserId         string
	ConversationId string
	Language       string
}

// PipelineState is the mutable aggregate threaded through one execution.
// It is owned by exactly one Engine.Resolve call and never shared.
type PipelineState struct {
	Query Query
	Stage Stage

	Intent     string
	Confidence float64

	// SubQueries holds the queries for the next retrieval round only.
	// issued tracks every normalized sub-query ever sent, for dedup.
	SubQueries []store.SubQuery
	issued     map[string]struct{}

	// Evidence accumulates across reflection iterations; Context is the
	// reranked view rebuilt from it each round.
	Evidence []store.EvidenceItem
	Context  *store.RankedContext

	Iteration int
	Degraded  bool
	Concluded bool

	Answer    string
	StartedAt time.Time
}

func NewPipelineState(q Query) *PipelineState {
	return &PipelineState{
		Query:     q,
		Stage:     StageClassify,
		issued:    map[string]struct{}{},
		StartedAt: time.Now(),
	}
}

// NormalizeSubQuery is the canonical form used for sub-query dedup:
// lower-cased with collapsed whitespace.
func NormalizeSubQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// AddSubQueries filters candidates against everything issued so far and
// stages the survivors for the next retrieval round. It returns how many
// survived.
func (s *PipelineState) AddSubQueries(candidates []string) int {
	s.SubQueries = s.SubQueries[:0]
	for _, text := range candidates {
		norm := NormalizeSubQuery(text)
		if norm == "" {
			continue
		}
		if _, seen := s.issued[norm]; seen {
			continue
		}
		s.issued[norm] = struct{}{}
		s.SubQueries = append(s.SubQueries, store.SubQuery{Text: text, Iteration: s.Iteration})
	}
	return len(s.SubQueries)
}

// IssuedCount reports how many distinct sub-queries the execution has sent.
func (s *PipelineState) IssuedCount() int {
	return len(s.issued)
}

// nextStage is the transition table of the machine. Every edge the engine
// can take is listed here.
func nextStage(s *PipelineState) Stage {
	switch s.Stage {
	case StageClassify:
		if s.Intent != inDomainIntent {
			return StageGeneralAnswer
		}
		return StageAugment
	case StageAugment:
		return StageRetrieve
	case StageRetrieve:
		if s.Degraded {
			// Total retrieval failure skips straight to the degraded answer.
			return StageGenerate
		}
		return StageMerge
	case StageMerge:
		return StageReflect
	case StageReflect:
		if s.Concluded {
			return StageGenerate
		}
		return StageRetrieve
	case StageGenerate, StageGeneralAnswer:
		return StagePersist
	case StagePersist:
		return StageDone
	}
	return StageDone
}
