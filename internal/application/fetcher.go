package application

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"finledger-service/internal/domain"
)

const (
	// DefaultGroupSize matches the upstream per-second call allowance.
	DefaultGroupSize = 5
)

// BatchFetcher partitions a symbol set into fixed-size groups, fetches each
// group's symbols concurrently and paces group dispatch through a Gate so the
// upstream rate limit is never exceeded. Failures are isolated per symbol: a
// de-listed ticker or a malformed payload never blocks its siblings.
type BatchFetcher struct {
	provider  QuoteProvider
	gate      Gate
	groupSize int
	log       *zap.Logger
}

func NewBatchFetcher(provider QuoteProvider, gate Gate, groupSize int, log *zap.Logger) *BatchFetcher {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	if gate == nil {
		gate = NoopGate{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchFetcher{provider: provider, gate: gate, groupSize: groupSize, log: log}
}

// FetchAll returns a mapping whose keys are a subset of symbols. Symbols whose
// fetch fails or whose payload violates the quote invariants are omitted, never
// cause an error. Groups run strictly sequentially; within a group one fetch is
// issued per symbol concurrently and the caller blocks until the whole group
// resolves. Every group waits on the gate, the first included: the gate is
// shared across calls, so dispatch stays paced even when each call carries a
// single group.
func (f *BatchFetcher) FetchAll(ctx context.Context, symbols []domain.Symbol) map[domain.Symbol]domain.Quote {
	out := make(map[domain.Symbol]domain.Quote, len(symbols))
	groups := f.partition(symbols)

	var mu sync.Mutex
	for i, group := range groups {
		if err := f.gate.Wait(ctx); err != nil {
			f.log.Warn("fetch.gate_interrupted", zap.Error(err), zap.Int("groups_done", i))
			return out
		}
		var wg sync.WaitGroup
		for _, sym := range group {
			wg.Add(1)
			go func(sym domain.Symbol) {
				defer wg.Done()
				q, err := f.fetchOne(ctx, sym)
				if err != nil {
					f.log.Warn("fetch.symbol_failed", zap.String("symbol", string(sym)), zap.Error(err))
					return
				}
				mu.Lock()
				out[sym] = q
				mu.Unlock()
			}(sym)
		}
		wg.Wait()
	}
	return out
}

func (f *BatchFetcher) fetchOne(ctx context.Context, sym domain.Symbol) (domain.Quote, error) {
	q, err := f.provider.Get(ctx, sym)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// partition dedupes, sorts and splits symbols into groups of at most
// groupSize. Sorting makes grouping deterministic for a given input set.
func (f *BatchFetcher) partition(symbols []domain.Symbol) [][]domain.Symbol {
	seen := make(map[domain.Symbol]bool, len(symbols))
	uniq := make([]domain.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if !domain.ValidateSymbol(s) {
			f.log.Warn("fetch.invalid_symbol", zap.String("symbol", string(s)))
			continue
		}
		if !seen[s] {
			seen[s] = true
			uniq = append(uniq, s)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	var groups [][]domain.Symbol
	for i := 0; i < len(uniq); i += f.groupSize {
		end := i + f.groupSize
		if end > len(uniq) {
			end = len(uniq)
		}
		groups = append(groups, uniq[i:end])
	}
	return groups
}
