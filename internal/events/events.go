// Package events provides the in-process publish/subscribe channel that
// decouples the materializer from metrics and logging observers. The bus is
// an explicit dependency: the materializer publishes, observers subscribe,
// and neither side knows about the other.
package events

import (
	"fmt"
	"os"
	"sync"

	"github.com/wadi/materializer/internal/types"
)

// Name identifies one entry in the fixed event catalog.
type Name string

const (
	ProjectCrystallized     Name = "PROJECT_CRYSTALLIZED"
	ScaffoldingComplete     Name = "SCAFFOLDING_COMPLETE"
	FeatureImplemented      Name = "FEATURE_IMPLEMENTED"
	FilesWritten            Name = "FILES_WRITTEN"
	BuildVerified           Name = "BUILD_VERIFIED"
	MaterializationComplete Name = "MATERIALIZATION_COMPLETE"
	DeploymentComplete      Name = "DEPLOYMENT_COMPLETE"
	RunFailed               Name = "RUN_FAILED"
)

// Event is implemented by every payload in the catalog.
type Event interface {
	EventName() Name
}

// ProjectCrystallizedEvent is emitted by the brief-crystallization flow
// once a structure has been authored and persisted.
type ProjectCrystallizedEvent struct {
	ProjectID     string                  `json:"project_id"`
	CorrelationID string                  `json:"correlation_id"`
	Structure     *types.ProjectStructure `json:"structure"`
}

func (ProjectCrystallizedEvent) EventName() Name { return ProjectCrystallized }

type ScaffoldingCompleteEvent struct {
	ProjectID     string `json:"project_id"`
	CorrelationID string `json:"correlation_id"`
	TemplateID    string `json:"template_id,omitempty"`
}

func (ScaffoldingCompleteEvent) EventName() Name { return ScaffoldingComplete }

type FeatureImplementedEvent struct {
	ProjectID     string         `json:"project_id"`
	CorrelationID string         `json:"correlation_id"`
	FeatureID     string         `json:"feature_id"`
	Params        map[string]any `json:"params,omitempty"`
}

func (FeatureImplementedEvent) EventName() Name { return FeatureImplemented }

type FilesWrittenEvent struct {
	ProjectID     string `json:"project_id"`
	CorrelationID string `json:"correlation_id"`
	FilesCreated  int    `json:"files_created"`
}

func (FilesWrittenEvent) EventName() Name { return FilesWritten }

type BuildVerifiedEvent struct {
	ProjectID     string            `json:"project_id"`
	CorrelationID string            `json:"correlation_id"`
	Result        types.BuildResult `json:"result"`
}

func (BuildVerifiedEvent) EventName() Name { return BuildVerified }

type MaterializationCompleteEvent struct {
	ProjectID     string `json:"project_id"`
	CorrelationID string `json:"correlation_id"`
	Success       bool   `json:"success"`
	FilesCreated  int    `json:"files_created"`
	DeployURL     string `json:"deploy_url,omitempty"`
}

func (MaterializationCompleteEvent) EventName() Name { return MaterializationComplete }

type DeploymentCompleteEvent struct {
	ProjectID     string                 `json:"project_id"`
	CorrelationID string                 `json:"correlation_id"`
	Result        types.DeploymentResult `json:"result"`
}

func (DeploymentCompleteEvent) EventName() Name { return DeploymentComplete }

type RunFailedEvent struct {
	ProjectID     string `json:"project_id"`
	CorrelationID string `json:"correlation_id"`
	Step          string `json:"step"`
	Error         string `json:"error"`
}

func (RunFailedEvent) EventName() Name { return RunFailed }

// Listener receives one event. Listeners run synchronously on the emitting
// goroutine, in subscription order.
type Listener func(Event)

// Bus delivers events synchronously and in order to the listeners
// registered for each name at the moment of Emit. There is no buffering and
// no persistence; a listener panic is recovered and logged so it cannot
// take down the emitter or starve later listeners of the same emit.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Name][]Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Name][]Listener)}
}

// Subscribe registers a listener for one event name.
func (b *Bus) Subscribe(name Name, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Emit delivers e to every listener registered for its name. Each listener
// is invoked independently; one failing listener never prevents the rest
// from running.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners[e.EventName()]))
	copy(listeners, b.listeners[e.EventName()])
	b.mu.RUnlock()

	for _, l := range listeners {
		b.deliver(e, l)
	}
}

func (b *Bus) deliver(e Event, l Listener) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Warning: event listener panicked on %s: %v\n", e.EventName(), r)
		}
	}()
	l(e)
}
