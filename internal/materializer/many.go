package materializer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wadi/materializer/internal/types"
)

// MaterializeMany runs the pipeline for several distinct projects
// concurrently. Runs for different project ids need no coordination; runs
// targeting the same id are left to the per-project idempotency guard.
// Each attempt is its own error boundary, so the group never fails as a
// whole.
func (s *Service) MaterializeMany(ctx context.Context, projectIDs []string, opts Options) map[string]types.BlueprintResult {
	results := make(map[string]types.BlueprintResult, len(projectIDs))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for _, projectID := range projectIDs {
		g.Go(func() error {
			result := s.Materialize(gCtx, projectID, opts)
			mu.Lock()
			results[projectID] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
