// Package metrics derives aggregate counters from materialization events.
// The service is a passive bus subscriber: it never returns an error into
// the emitting caller's stack, and metric persistence is best-effort.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wadi/materializer/internal/events"
	"github.com/wadi/materializer/internal/types"
)

// Store persists metric rows. May be nil, in which case aggregation is
// in-memory only.
type Store interface {
	SaveDeployMetric(ctx context.Context, projectID, correlationID string, result types.DeploymentResult) error
	SaveRunMetric(ctx context.Context, projectID, correlationID string, success bool, filesCreated int, durationMs int64) error
}

// persistTimeout bounds metric writes so a slow store cannot stall the
// synchronous event delivery path for long.
const persistTimeout = 5 * time.Second

// Service aggregates build, deploy, and run metrics.
type Service struct {
	store Store

	mu             sync.Mutex
	buildStatuses  map[string]int
	deployAttempts int
	deployFailures int
	runStarts      map[string]time.Time
}

// NewService creates a metrics service and subscribes it to the bus.
func NewService(store Store, bus *events.Bus) *Service {
	s := &Service{
		store:         store,
		buildStatuses: make(map[string]int),
		runStarts:     make(map[string]time.Time),
	}
	bus.Subscribe(events.ScaffoldingComplete, s.onScaffoldingComplete)
	bus.Subscribe(events.BuildVerified, s.onBuildVerified)
	bus.Subscribe(events.DeploymentComplete, s.onDeploymentComplete)
	bus.Subscribe(events.MaterializationComplete, s.onMaterializationComplete)
	return s
}

func (s *Service) onScaffoldingComplete(e events.Event) {
	evt, ok := e.(events.ScaffoldingCompleteEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.runStarts[evt.CorrelationID] = time.Now()
	s.mu.Unlock()
}

func (s *Service) onBuildVerified(e events.Event) {
	evt, ok := e.(events.BuildVerifiedEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.buildStatuses[evt.Result.Status]++
	s.mu.Unlock()
}

func (s *Service) onDeploymentComplete(e events.Event) {
	evt, ok := e.(events.DeploymentCompleteEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.deployAttempts++
	if !evt.Result.Success {
		s.deployFailures++
	}
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.SaveDeployMetric(ctx, evt.ProjectID, evt.CorrelationID, evt.Result); err != nil {
		fmt.Printf("Warning: failed to persist deploy metric: %v\n", err)
	}
}

func (s *Service) onMaterializationComplete(e events.Event) {
	evt, ok := e.(events.MaterializationCompleteEvent)
	if !ok {
		return
	}

	// Duration is measured from scaffolding start; a run that never
	// scaffolded (dry run, SAFE mode, no template) has no duration.
	durationMs := int64(-1)
	s.mu.Lock()
	if start, ok := s.runStarts[evt.CorrelationID]; ok {
		durationMs = time.Since(start).Milliseconds()
		delete(s.runStarts, evt.CorrelationID)
	}
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.SaveRunMetric(ctx, evt.ProjectID, evt.CorrelationID, evt.Success, evt.FilesCreated, durationMs); err != nil {
		fmt.Printf("Warning: failed to persist run metric: %v\n", err)
	}
}

// DeployFailureRate returns the percentage of deploy attempts that failed,
// 0 if no deploy has been attempted yet.
func (s *Service) DeployFailureRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deployAttempts == 0 {
		return 0
	}
	return float64(s.deployFailures) / float64(s.deployAttempts) * 100
}

// BuildHistogram returns a snapshot of build verification counts by status.
func (s *Service) BuildHistogram() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]int, len(s.buildStatuses))
	for status, count := range s.buildStatuses {
		snapshot[status] = count
	}
	return snapshot
}
