package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"name": `),
				genai.Text(`"Demo"}`),
			}},
		}},
	}

	out, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"name": "Demo"}`, out)
}

func TestExtractTextNoCandidates(t *testing.T) {
	_, err := extractText(nil)
	assert.Error(t, err)

	_, err = extractText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestExtractTextSafetyBlockedCandidate(t *testing.T) {
	// A safety-blocked response carries a candidate with nil content; it
	// must surface as an error, not a panic.
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      nil,
			FinishReason: genai.FinishReasonSafety,
		}},
	}

	_, err := extractText(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

func TestExtractTextEmptyParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{},
		}},
	}

	_, err := extractText(resp)
	assert.Error(t, err)
}
