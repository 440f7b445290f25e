package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadi/materializer/internal/breaker"
	"github.com/wadi/materializer/internal/faultinject"
	"github.com/wadi/materializer/internal/types"
)

type stubClient struct {
	url   string
	err   error
	calls int
}

func (c *stubClient) Deploy(context.Context, string) (string, error) {
	c.calls++
	return c.url, c.err
}

func TestDeploySuccess(t *testing.T) {
	client := &stubClient{url: "https://demo.onrender.com"}
	d := NewDeployer(map[types.DeployProvider]ProviderClient{types.ProviderRender: client})

	result := d.Deploy(context.Background(), "demo", types.ProviderRender)
	assert.True(t, result.Success)
	assert.Equal(t, "https://demo.onrender.com", result.URL)
	assert.Equal(t, types.ProviderRender, result.Provider)
	assert.False(t, result.Degraded)
}

func TestDeployFailureIsRecordedNotRaised(t *testing.T) {
	client := &stubClient{err: errors.New("provider down")}
	d := NewDeployer(map[types.DeployProvider]ProviderClient{types.ProviderRender: client})

	result := d.Deploy(context.Background(), "demo", types.ProviderRender)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "provider down")
	assert.False(t, result.Degraded)
}

func TestDeployUnconfiguredProvider(t *testing.T) {
	d := NewDeployer(map[types.DeployProvider]ProviderClient{})

	result := d.Deploy(context.Background(), "demo", types.ProviderVercel)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no client configured")
}

func TestDeployDegradedWhenBreakerOpens(t *testing.T) {
	client := &stubClient{err: errors.New("provider down")}
	d := NewDeployer(map[types.DeployProvider]ProviderClient{types.ProviderRender: client})

	// Five consecutive failures open the breaker.
	for i := 0; i < 5; i++ {
		result := d.Deploy(context.Background(), "demo", types.ProviderRender)
		assert.False(t, result.Degraded, "failure %d happens with the breaker still closed", i)
	}
	require.Equal(t, breaker.StateOpen, d.Breaker(types.ProviderRender).State())

	// The next attempt is rejected without reaching the provider.
	callsBefore := client.calls
	result := d.Deploy(context.Background(), "demo", types.ProviderRender)
	assert.False(t, result.Success)
	assert.True(t, result.Degraded)
	assert.Equal(t, callsBefore, client.calls)
}

func TestDeployFaultInjection(t *testing.T) {
	client := &stubClient{url: "https://demo.vercel.app"}
	faults := faultinject.NewRegistry()
	d := NewDeployer(
		map[types.DeployProvider]ProviderClient{types.ProviderVercel: client},
		WithFaultInjection(faults),
	)

	faults.Arm(string(types.ProviderVercel), faultinject.KindHTTP500, 1)

	result := d.Deploy(context.Background(), "demo", types.ProviderVercel)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "injected HTTP 500")
	assert.Zero(t, client.calls, "armed fault must preempt the provider call")

	// Fault self-disarmed; the next deploy goes through.
	result = d.Deploy(context.Background(), "demo", types.ProviderVercel)
	assert.True(t, result.Success)
	assert.Equal(t, 1, client.calls)
}

func TestHTTPProviderClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url": "https://demo.onrender.com"}`))
	}))
	defer srv.Close()

	client := &HTTPProviderClient{
		Provider: types.ProviderRender,
		Endpoint: srv.URL,
		APIKey:   "secret",
		Client:   srv.Client(),
	}
	url, err := client.Deploy(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "https://demo.onrender.com", url)
}

func TestHTTPProviderClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := &HTTPProviderClient{Provider: types.ProviderRender, Endpoint: srv.URL, Client: srv.Client()}
	_, err := client.Deploy(context.Background(), "demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 402")
}

func TestDecodeDeploymentResult(t *testing.T) {
	direct := types.DeploymentResult{Success: true, URL: "https://x", Provider: types.ProviderRender}
	decoded, err := DecodeDeploymentResult(direct)
	require.NoError(t, err)
	assert.Equal(t, direct, decoded)

	decoded, err = DecodeDeploymentResult(map[string]any{"success": true, "url": "https://y", "provider": "vercel"})
	require.NoError(t, err)
	assert.True(t, decoded.Success)
	assert.Equal(t, types.ProviderVercel, decoded.Provider)
}

func TestGitCommitRejectsBadInput(t *testing.T) {
	g := NewGitCommitter(NewFileWriter(t.TempDir()))

	_, err := g.Commit(context.Background(), "demo", "   ")
	assert.Error(t, err)

	_, err = g.Commit(context.Background(), "../escape", "message")
	assert.Error(t, err)
}
