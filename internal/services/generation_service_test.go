package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"vaultrag/internal/clearance"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type fakeInvoker struct {
	lastInput *bedrockruntime.InvokeModelInput
	respBody  string
	err       error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.respBody)}, nil
}

func TestGenerateBuildsAnthropicPayload(t *testing.T) {
	fake := &fakeInvoker{respBody: `{"content":[{"type":"text","text":"The merger closes in Q3."}]}`}
	svc := NewGenerationService(fake, "anthropic.claude-3-sonnet-20240229-v1:0", 1000)

	answer, err := svc.Generate(context.Background(), "merger terms", "Merger closes Q3 2026.", clearance.RoleCFO)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "The merger closes in Q3." {
		t.Errorf("answer = %q", answer)
	}

	if got := aws.ToString(fake.lastInput.ModelId); got != "anthropic.claude-3-sonnet-20240229-v1:0" {
		t.Errorf("model ID = %q", got)
	}

	var req anthropicRequest
	if err := json.Unmarshal(fake.lastInput.Body, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if req.AnthropicVersion != anthropicVersion {
		t.Errorf("anthropic_version = %q", req.AnthropicVersion)
	}
	if req.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}

	prompt := req.Messages[0].Content
	for _, fragment := range []string{"CFO", "<context>Merger closes Q3 2026.</context>", "Question: merger terms"} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestGenerateTransportErrorIsGenerationUnavailable(t *testing.T) {
	fake := &fakeInvoker{err: errors.New("throttled")}
	svc := NewGenerationService(fake, "model", 100)

	_, err := svc.Generate(context.Background(), "q", "ctx", clearance.RoleIntern)
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("error = %v, want ErrGenerationUnavailable", err)
	}
}

func TestGenerateRejectsEmptyOrMalformedResponse(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"empty content", `{"content":[]}`},
		{"not json", `<html>nope</html>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeInvoker{respBody: tc.body}
			svc := NewGenerationService(fake, "model", 100)

			_, err := svc.Generate(context.Background(), "q", "ctx", clearance.RoleIntern)
			if !errors.Is(err, ErrGenerationUnavailable) {
				t.Fatalf("error = %v, want ErrGenerationUnavailable", err)
			}
		})
	}
}
