package merge

import (
	"context"
	"log"
	"sort"

	"drug-agentic-be/pkg/rerank"
	"drug-agentic-be/pkg/store"
)

// Merger turns the accumulated evidence of all iterations into the bounded
// context handed to reflection and generation. Deduplication, ordering and
// truncation are pure; only the unified scoring step calls out.
type Merger struct {
	reranker rerank.Reranker
	maxItems int
	maxChars int
	logger   *log.Logger
}

func NewMerger(reranker rerank.Reranker, maxItems, maxChars int, logger *log.Logger) *Merger {
	if maxItems <= 0 {
		maxItems = 12
	}
	if maxChars <= 0 {
		maxChars = 24000
	}
	return &Merger{
		reranker: reranker,
		maxItems: maxItems,
		maxChars: maxChars,
		logger:   logger,
	}
}

func (m *Merger) Merge(ctx context.Context, query string, evidence []store.EvidenceItem, iteration int) (*store.RankedContext, error) {
	deduped := Dedupe(evidence)

	scored := m.unifyScores(ctx, query, deduped)

	items, totalLen, truncated := Rank(scored, m.maxItems, m.maxChars)
	return &store.RankedContext{
		Items:     items,
		TotalLen:  totalLen,
		Iteration: iteration,
		Truncated: truncated,
	}, nil
}

// unifyScores asks the reranker for cross-source relevance scores. When the
// reranker is unavailable the source-local score stands in, which keeps the
// ordering meaningful within each source.
func (m *Merger) unifyScores(ctx context.Context, query string, items []store.EvidenceItem) []store.EvidenceItem {
	if len(items) == 0 {
		return items
	}

	fallback := func() []store.EvidenceItem {
		for i := range items {
			items[i].Unified = items[i].Score
		}
		return items
	}

	if m.reranker == nil {
		return fallback()
	}

	docs := make([]string, len(items))
	for i, it := range items {
		docs[i] = it.Content
	}

	scored, err := m.reranker.Rerank(ctx, query, docs, len(docs))
	if err != nil {
		m.logger.Printf("[MERGE] rerank failed, using source-local scores: %v", err)
		return fallback()
	}

	assigned := make([]bool, len(items))
	for _, sd := range scored {
		if sd.Index < 0 || sd.Index >= len(items) {
			continue
		}
		items[sd.Index].Unified = sd.Score
		assigned[sd.Index] = true
	}
	for i := range items {
		if !assigned[i] {
			items[i].Unified = items[i].Score
		}
	}
	return items
}

// Dedupe collapses items sharing a source identifier, keeping the higher
// source-local score. Among equal scores the earlier discovery wins.
func Dedupe(evidence []store.EvidenceItem) []store.EvidenceItem {
	bySource := map[string]int{}
	out := make([]store.EvidenceItem, 0, len(evidence))
	for _, item := range evidence {
		idx, seen := bySource[item.SourceID]
		if !seen {
			bySource[item.SourceID] = len(out)
			out = append(out, item)
			continue
		}
		if item.Score > out[idx].Score {
			keep := item
			keep.Order = out[idx].Order
			out[idx] = keep
		}
	}
	return out
}

// Rank orders items by unified score descending, knowledge base before web
// on ties, then discovery order, and truncates to the item and character
// budgets dropping the lowest-ranked first. Pure: identical input always
// yields identical output.
func Rank(items []store.EvidenceItem, maxItems, maxChars int) ([]store.EvidenceItem, int, bool) {
	ordered := make([]store.EvidenceItem, len(items))
	copy(ordered, items)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Unified != ordered[j].Unified {
			return ordered[i].Unified > ordered[j].Unified
		}
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source == store.SourceKnowledgeBase
		}
		return ordered[i].Order < ordered[j].Order
	})

	truncated := false
	if maxItems > 0 && len(ordered) > maxItems {
		ordered = ordered[:maxItems]
		truncated = true
	}

	totalLen := 0
	kept := ordered[:0]
	for _, item := range ordered {
		itemLen := len([]rune(item.Content))
		if maxChars > 0 && totalLen+itemLen > maxChars && len(kept) > 0 {
			truncated = true
			break
		}
		kept = append(kept, item)
		totalLen += itemLen
	}
	return kept, totalLen, truncated
}
