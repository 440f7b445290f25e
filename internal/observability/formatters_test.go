package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/wadi/materializer/internal/types"
)

func TestPrintBlueprintResultMaterialized(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	p.PrintBlueprintResult("demo", types.BlueprintResult{
		Success:       true,
		FilesCreated:  4,
		DeployURL:     "https://demo.onrender.com",
		CorrelationID: "abc-123",
	})

	out := buf.String()
	assert.Contains(t, out, "MATERIALIZATION RESULT")
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "abc-123")
	assert.Contains(t, out, "https://demo.onrender.com")
}

func TestPrintBlueprintResultPreview(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	p.PrintBlueprintResult("demo", types.BlueprintResult{
		Success:   true,
		Blueprint: []string{"a.ts", "src/b.ts"},
	})

	out := buf.String()
	assert.Contains(t, out, "no files written")
	assert.Contains(t, out, "a.ts")
	assert.Contains(t, out, "src/b.ts")
}

func TestPrintBlueprintResultTruncatesLongLists(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	blueprint := make([]string, 15)
	for i := range blueprint {
		blueprint[i] = "file.ts"
	}
	p.PrintBlueprintResult("demo", types.BlueprintResult{Success: true, Blueprint: blueprint})

	assert.Contains(t, buf.String(), "... and 5 more")
}

func TestPrintRun(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	completed := time.Now()
	p.PrintRun(&types.Run{
		ID:            uuid.New(),
		ProjectID:     "demo",
		StepName:      types.StepMaterialization,
		Status:        types.RunStatusFailed,
		CorrelationID: "abc",
		ErrorMessage:  "scaffolding exploded",
		CreatedAt:     completed.Add(-time.Minute),
		CompletedAt:   &completed,
	})

	out := buf.String()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "scaffolding exploded")

	buf.Reset()
	p.PrintRun(nil)
	assert.Empty(t, buf.String())
}

func TestPrintRunsEmpty(t *testing.T) {
	var buf strings.Builder
	NewPrinter(&buf).PrintRuns(nil)
	assert.Contains(t, buf.String(), "No runs found")
}

func TestPrintMetrics(t *testing.T) {
	var buf strings.Builder
	NewPrinter(&buf).PrintMetrics(25.0, map[string]int{"OK": 3, "ERROR": 1})

	out := buf.String()
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "ERROR")
}
