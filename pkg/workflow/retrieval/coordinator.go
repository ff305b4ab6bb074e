package retrieval

import (
	"context"
	"log"
	"sync"
	"time"

	"drug-agentic-be/pkg/store"
	"drug-agentic-be/pkg/workflow"
)

// Source is one evidence backend the coordinator fans out to.
type Source interface {
	Name() string
	Search(ctx context.Context, subQuery string) ([]store.EvidenceItem, error)
}

// FailureCounter observes per-source call failures.
type FailureCounter interface {
	IncSourceFailure(source string)
}

// Coordinator issues one call per (sub-query, source) pair, all started
// concurrently, each under its own timeout. A failed or timed-out call
// contributes nothing; the round only errors when every call failed.
type Coordinator struct {
	sources  []Source
	timeout  time.Duration
	failures FailureCounter
	logger   *log.Logger
}

func NewCoordinator(sources []Source, timeout time.Duration, failures FailureCounter, logger *log.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Coordinator{
		sources:  sources,
		timeout:  timeout,
		failures: failures,
		logger:   logger,
	}
}

func (c *Coordinator) Retrieve(ctx context.Context, subQueries []store.SubQuery) ([]store.EvidenceItem, error) {
	calls := len(subQueries) * len(c.sources)
	if calls == 0 {
		return nil, nil
	}

	// Results are slotted by (sub-query, source) so the assembled set does
	// not depend on response arrival order.
	results := make([][]store.EvidenceItem, calls)
	errs := make([]error, calls)

	var wg sync.WaitGroup
	for qi, sq := range subQueries {
		for si, src := range c.sources {
			wg.Add(1)
			go func(slot int, src Source, query string) {
				defer wg.Done()

				callCtx, cancel := context.WithTimeout(ctx, c.timeout)
				defer cancel()

				items, err := src.Search(callCtx, query)
				if err != nil {
					errs[slot] = err
					if c.failures != nil {
						c.failures.IncSourceFailure(src.Name())
					}
					c.logger.Printf("[RETRIEVE] source %s failed for %q: %v", src.Name(), truncate(query, 50), err)
					return
				}
				results[slot] = items
			}(qi*len(c.sources)+si, src, sq.Text)
		}
	}
	wg.Wait()

	var combined []store.EvidenceItem
	failed := 0
	for slot := range results {
		if errs[slot] != nil {
			failed++
			continue
		}
		combined = append(combined, results[slot]...)
	}

	if failed == calls {
		return nil, workflow.ErrAllSourcesFailed
	}
	return combined, nil
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
