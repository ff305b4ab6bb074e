package store

// SourceType identifies which retrieval source produced an evidence item.
type SourceType string

const (
	SourceKnowledgeBase SourceType = "knowledge_base"
	SourceWeb           SourceType = "web"
)

// EvidenceItem is a single retrieved unit of information. It is immutable
// once produced by the retrieval coordinator.
type EvidenceItem struct {
	Source   SourceType        `json:"source"`
	SourceID string            `json:"source_id"` // chunk id or URL
	Content  string            `json:"content"`
	Score    float64           `json:"score"`         // source-local scale
	Unified  float64           `json:"unified_score"` // cross-source rerank score
	Metadata map[string]string `json:"metadata,omitempty"`

	// Order is the discovery position within the retrieval round that
	// produced the item. Used as the final ranking tie-breaker.
	Order int `json:"order"`
}

// RankedContext is the deduplicated, reranked, truncated evidence set a
// single reflection iteration produced. It is replaced, never mutated.
type RankedContext struct {
	Items     []EvidenceItem `json:"items"`
	TotalLen  int            `json:"total_len"` // aggregate content length in runes
	Iteration int            `json:"iteration"`
	Truncated bool           `json:"truncated"`
}

// Empty reports whether the context carries no evidence at all.
func (rc *RankedContext) Empty() bool {
	return rc == nil || len(rc.Items) == 0
}

// SourceIDs returns the ordered source identifiers, mostly for logging and
// citation building.
func (rc *RankedContext) SourceIDs() []string {
	if rc == nil {
		return nil
	}
	ids := make([]string, len(rc.Items))
	for i, it := range rc.Items {
		ids[i] = it.SourceID
	}
	return ids
}

// SubQuery is a retrieval-oriented query derived from the user's question.
// Iteration 0 marks sub-queries from the initial augmentation, later values
// mark reflection follow-ups.
type SubQuery struct {
	Text      string `json:"text"`
	Iteration int    `json:"iteration"`
}

// Turn is one persisted conversation exchange, loaded back for history-aware
// answer generation.
type Turn struct {
	Index  int    `json:"turn"`
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
