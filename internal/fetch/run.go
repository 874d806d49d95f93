package fetch

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/matrix"
)

// Run fetches every target in the matrix concurrently and waits until all of
// them have settled. It returns exactly one outcome per target, sorted by
// platform key. A failed target never cancels its siblings.
func (f *Fetcher) Run(ctx context.Context, m *matrix.Matrix) []Outcome {
	return f.RunTargets(ctx, m.Targets())
}

// RunTargets is Run over an explicit target list. Platform keys must be
// unique within the list.
func (f *Fetcher) RunTargets(ctx context.Context, targets []matrix.Target) []Outcome {
	p := pool.NewWithResults[Outcome]()
	if f.concurrency > 0 {
		p = p.WithMaxGoroutines(f.concurrency)
	}

	for _, target := range targets {
		p.Go(func() Outcome {
			return f.FetchAndExtract(ctx, target)
		})
	}

	outcomes := p.Wait()
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].PlatformKey < outcomes[j].PlatformKey
	})
	return outcomes
}
