package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wadi/materializer/internal/types"
)

func TestResolveModeTable(t *testing.T) {
	cases := []struct {
		selector  string
		mode      ExecutionMode
		maxFiles  int
		maxIter   int
		maxTokens int
	}{
		{"SAFE", ModeSafe, 20, 5, 2000},
		{"STANDARD", ModeStandard, 50, 10, 4000},
		{"FULL", ModeFull, 100, 20, 8000},
		{"full", ModeFull, 100, 20, 8000},
		{"  safe  ", ModeSafe, 20, 5, 2000},
		{"", ModeStandard, 50, 10, 4000},
		{"TURBO", ModeStandard, 50, 10, 4000},
	}

	for _, tc := range cases {
		p := Resolve(tc.selector, "/tmp/projects", false)
		assert.Equal(t, tc.mode, p.Mode, "selector %q", tc.selector)
		assert.Equal(t, tc.maxFiles, p.Profile.MaxFilesPerProject, "selector %q", tc.selector)
		assert.Equal(t, tc.maxIter, p.Profile.MaxToolIterations, "selector %q", tc.selector)
		assert.Equal(t, tc.maxTokens, p.Profile.MaxTokensPerRun, "selector %q", tc.selector)
		assert.True(t, p.BlockDeployOnBuildError)
	}
}

func TestModePermissions(t *testing.T) {
	safe := Resolve("SAFE", "/tmp", true)
	assert.False(t, safe.Profile.AllowDeploy)
	assert.False(t, safe.Profile.AllowGitCommit)
	assert.False(t, safe.Profile.AllowGitPush)
	assert.True(t, safe.IsSafeMode())

	standard := Resolve("STANDARD", "/tmp", false)
	assert.True(t, standard.Profile.AllowDeploy)
	assert.True(t, standard.Profile.AllowGitCommit)
	assert.False(t, standard.Profile.AllowGitPush)
	assert.False(t, standard.IsSafeMode())

	full := Resolve("FULL", "/tmp", false)
	assert.True(t, full.Profile.AllowGitPush)
}

func TestIsDeployAllowed(t *testing.T) {
	// SAFE never deploys, even with opt-in.
	assert.False(t, Resolve("SAFE", "/tmp", true).IsDeployAllowed(types.ProviderRender))

	// STANDARD needs the explicit opt-in.
	assert.False(t, Resolve("STANDARD", "/tmp", false).IsDeployAllowed(types.ProviderRender))
	assert.True(t, Resolve("STANDARD", "/tmp", true).IsDeployAllowed(types.ProviderRender))

	// FULL does not need opt-in.
	assert.True(t, Resolve("FULL", "/tmp", false).IsDeployAllowed(types.ProviderVercel))

	// Providers off the allow-list are always rejected.
	assert.False(t, Resolve("FULL", "/tmp", true).IsDeployAllowed(types.DeployProvider("heroku")))
}

func TestIsPathAllowed(t *testing.T) {
	p := Resolve("STANDARD", "/srv/projects", false)

	assert.True(t, p.IsPathAllowed("demo/src/index.js"))
	assert.True(t, p.IsPathAllowed("/srv/projects/demo/readme.md"))
	assert.False(t, p.IsPathAllowed("../outside.txt"))
	assert.False(t, p.IsPathAllowed("/etc/passwd"))
	assert.False(t, p.IsPathAllowed("demo/../../escape.txt"))

	empty := Policy{}
	assert.False(t, empty.IsPathAllowed("anything"))
}

func TestStepName(t *testing.T) {
	assert.Equal(t, types.StepSafePreview, Resolve("SAFE", "/tmp", false).StepName(false))
	assert.Equal(t, types.StepSafePreview, Resolve("SAFE", "/tmp", false).StepName(true))
	assert.Equal(t, types.StepPreviewBlueprint, Resolve("FULL", "/tmp", false).StepName(true))
	assert.Equal(t, types.StepMaterialization, Resolve("FULL", "/tmp", false).StepName(false))
}

func TestLogPrefixes(t *testing.T) {
	assert.Equal(t, "[SAFE] ", Resolve("SAFE", "/tmp", false).Profile.LogPrefix)
	assert.Equal(t, "[STANDARD] ", Resolve("STANDARD", "/tmp", false).Profile.LogPrefix)
	assert.Equal(t, "[FULL] ", Resolve("FULL", "/tmp", false).Profile.LogPrefix)
}
