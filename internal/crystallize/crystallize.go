// Package crystallize turns a natural-language project brief into a
// validated, persisted ProjectStructure ready for materialization. It is
// the flow that emits PROJECT_CRYSTALLIZED.
package crystallize

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/wadi/materializer/internal/breaker"
	"github.com/wadi/materializer/internal/events"
	"github.com/wadi/materializer/internal/llm"
	"github.com/wadi/materializer/internal/policy"
	"github.com/wadi/materializer/internal/types"
)

//go:embed project_structure.schema.json
var structureSchema []byte

// Store persists crystallized structures.
type Store interface {
	SaveProjectStructure(ctx context.Context, projectID string, structure *types.ProjectStructure) error
}

// Service drives brief crystallization. The model call is guarded by a
// circuit breaker shared across all attempts against the AI provider.
type Service struct {
	client  llm.Client
	store   Store
	bus     *events.Bus
	policy  policy.Policy
	breaker *breaker.CircuitBreaker
	schema  *gojsonschema.Schema
}

// NewService creates a crystallization service.
func NewService(client llm.Client, store Store, bus *events.Bus, pol policy.Policy) (*Service, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(structureSchema))
	if err != nil {
		return nil, fmt.Errorf("project structure schema is invalid: %w", err)
	}
	return &Service{
		client: client,
		store:  store,
		bus:    bus,
		policy: pol,
		breaker: breaker.New("ai", 5, 2, 60*time.Second, breaker.WithTransitionFunc(
			func(name string, from, to breaker.State) {
				fmt.Printf("Circuit breaker %s: %s -> %s\n", name, from, to)
			},
		)),
		schema: schema,
	}, nil
}

const promptTemplate = `You are WADI, a project architect. Turn the following project brief into a
JSON project structure with this shape:
{"name": string, "description": string, "template_id": one of %v,
 "features": [{"id": kebab-case string, "params": object}],
 "files": [{"path": relative path, "content": string}],
 "should_deploy": bool, "deploy_provider": "render" or "vercel"}
Respond with JSON only.

Brief:
%s`

// Crystallize authors a structure for the brief, validates it, persists it,
// and emits PROJECT_CRYSTALLIZED. Invalid model output is retried up to the
// policy's tool-iteration ceiling (capped at three attempts).
func (s *Service) Crystallize(ctx context.Context, projectID, brief string, templateIDs []string) (*types.ProjectStructure, error) {
	if brief == "" {
		return nil, fmt.Errorf("project brief is empty")
	}

	maxAttempts := min(3, s.policy.Profile.MaxToolIterations)
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	prompt := fmt.Sprintf(promptTemplate, templateIDs, brief)

	var structure *types.ProjectStructure
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var raw string
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			out, gerr := s.client.GenerateJSON(ctx, prompt, s.policy.Profile.MaxTokensPerRun)
			if gerr != nil {
				return gerr
			}
			raw = out
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		parsed, perr := s.parse(raw)
		if perr != nil {
			lastErr = perr
			fmt.Printf("Warning: crystallization attempt %d produced an invalid structure: %v\n", attempt, perr)
			continue
		}
		structure = parsed
		break
	}
	if structure == nil {
		return nil, fmt.Errorf("model never produced a valid structure: %w", lastErr)
	}

	if s.store != nil {
		if err := s.store.SaveProjectStructure(ctx, projectID, structure); err != nil {
			return nil, fmt.Errorf("failed to persist structure: %w", err)
		}
	}

	s.bus.Emit(events.ProjectCrystallizedEvent{
		ProjectID:     projectID,
		CorrelationID: uuid.NewString(),
		Structure:     structure,
	})
	return structure, nil
}

// parse validates raw model output against the JSON schema and the
// struct-level rules before accepting it.
func (s *Service) parse(raw string) (*types.ProjectStructure, error) {
	result, err := s.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("structure is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return nil, fmt.Errorf("structure failed schema validation: %s", msg)
	}

	var structure types.ProjectStructure
	if err := json.Unmarshal([]byte(raw), &structure); err != nil {
		return nil, fmt.Errorf("structure is not decodable: %w", err)
	}
	if err := types.ValidateStructure(&structure); err != nil {
		return nil, err
	}
	return &structure, nil
}
