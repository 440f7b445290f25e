package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wadi/materializer/internal/breaker"
	"github.com/wadi/materializer/internal/faultinject"
	"github.com/wadi/materializer/internal/types"
)

// ProviderClient performs the external deploy RPC for one provider. Only
// its success/failure/timeout contract matters to the pipeline.
type ProviderClient interface {
	Deploy(ctx context.Context, projectID string) (url string, err error)
}

// HTTPProviderClient deploys by POSTing to a provider API endpoint.
type HTTPProviderClient struct {
	Provider types.DeployProvider
	Endpoint string
	APIKey   string
	Client   *http.Client
}

type deployResponse struct {
	URL string `json:"url"`
}

// Deploy posts the project id to the provider endpoint and returns the
// deployment URL from the response body.
func (c *HTTPProviderClient) Deploy(ctx context.Context, projectID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"project_id": projectID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deploy request to %s failed: %w", c.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deploy to %s returned HTTP %d: %s", c.Provider, resp.StatusCode, string(data))
	}

	var parsed deployResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("deploy response from %s is not decodable: %w", c.Provider, err)
	}
	return parsed.URL, nil
}

// Deployer dispatches deploys to provider clients, each guarded by its own
// circuit breaker. Breaker state is shared across all concurrent runs
// targeting the same provider.
type Deployer struct {
	clients  map[types.DeployProvider]ProviderClient
	breakers map[types.DeployProvider]*breaker.CircuitBreaker
	faults   *faultinject.Registry
}

// DeployerOption configures a Deployer.
type DeployerOption func(*Deployer)

// WithFaultInjection consults the given registry before every provider
// call. Intended for chaos tests.
func WithFaultInjection(reg *faultinject.Registry) DeployerOption {
	return func(d *Deployer) { d.faults = reg }
}

// NewDeployer wires one breaker per provider around the given clients.
func NewDeployer(clients map[types.DeployProvider]ProviderClient, opts ...DeployerOption) *Deployer {
	d := &Deployer{
		clients:  clients,
		breakers: make(map[types.DeployProvider]*breaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(d)
	}
	for provider := range clients {
		d.breakers[provider] = breaker.New(
			string(provider), 5, 2, 60*time.Second,
			breaker.WithTransitionFunc(func(name string, from, to breaker.State) {
				fmt.Printf("Circuit breaker %s: %s -> %s\n", name, from, to)
			}),
		)
	}
	return d
}

// Breaker exposes the breaker guarding one provider, mainly for tests.
func (d *Deployer) Breaker(provider types.DeployProvider) *breaker.CircuitBreaker {
	return d.breakers[provider]
}

// Deploy runs the provider call through its breaker. Provider failures are
// recorded in the result, never returned as an error; a rejected call while
// the breaker is open is reported as a degraded failure.
func (d *Deployer) Deploy(ctx context.Context, projectID string, provider types.DeployProvider) types.DeploymentResult {
	client, ok := d.clients[provider]
	if !ok {
		return types.DeploymentResult{
			Provider: provider,
			Error:    fmt.Sprintf("no client configured for provider %s", provider),
		}
	}

	var url string
	err := d.breakers[provider].Execute(ctx, func(ctx context.Context) error {
		if ferr := d.faults.Check(string(provider)); ferr != nil {
			return ferr
		}
		deployed, derr := client.Deploy(ctx, projectID)
		if derr != nil {
			return derr
		}
		url = deployed
		return nil
	})
	if err != nil {
		return types.DeploymentResult{
			Provider: provider,
			Error:    err.Error(),
			Degraded: errors.Is(err, breaker.ErrOpen),
		}
	}
	return types.DeploymentResult{Success: true, URL: url, Provider: provider}
}

// Register adds the deploy_project tool to a registry.
func (d *Deployer) Register(r *Registry) error {
	def := Definition{
		Name:        NameDeployProject,
		Description: "Deploys a project to an external provider. Failures are recorded in the result, not raised.",
		Parameters: []byte(`{
			"type": "object",
			"properties": {
				"project_id": {"type": "string", "minLength": 1},
				"provider":   {"type": "string", "enum": ["render", "vercel"]}
			},
			"required": ["project_id", "provider"]
		}`),
	}
	return r.Register(def, func(ctx context.Context, args map[string]any) (any, error) {
		projectID, _ := GetString(args, "project_id")
		provider, _ := GetString(args, "provider")
		return d.Deploy(ctx, projectID, types.DeployProvider(provider)), nil
	})
}

// DecodeDeploymentResult converts a tool call result back into a
// DeploymentResult.
func DecodeDeploymentResult(v any) (types.DeploymentResult, error) {
	if r, ok := v.(types.DeploymentResult); ok {
		return r, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return types.DeploymentResult{}, fmt.Errorf("deployment result is not decodable: %w", err)
	}
	var result types.DeploymentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.DeploymentResult{}, fmt.Errorf("deployment result is not decodable: %w", err)
	}
	return result, nil
}
