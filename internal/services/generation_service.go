package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vaultrag/internal/clearance"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// invokeAPI is the slice of the Bedrock runtime client the gateway uses.
type invokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// GenerationService wraps grounded-answer requests to a Bedrock-hosted
// model. The model is opaque and possibly slow; errors and timeouts
// propagate to the caller, which owns any retry policy.
type GenerationService struct {
	client    invokeAPI
	modelID   string
	maxTokens int
}

// NewGenerationService creates a new generation gateway.
func NewGenerationService(client invokeAPI, modelID string, maxTokens int) *GenerationService {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &GenerationService{client: client, modelID: modelID, maxTokens: maxTokens}
}

const anthropicVersion = "bedrock-2023-05-31"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// buildPrompt wraps the question and retrieved context into the fixed
// instruction template. The role is the resolved role, never raw user
// input.
func buildPrompt(query, contextStr string, role clearance.Role) string {
	var b strings.Builder
	b.WriteString("You are an internal corporate assistant.\n")
	fmt.Fprintf(&b, "The user is an authorized employee (%s).\n", role)
	b.WriteString("Answer using the data below.\n")
	fmt.Fprintf(&b, "<context>%s</context>\n", contextStr)
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}

// Generate requests a bounded-length completion grounded in the retrieved
// context.
func (s *GenerationService) Generate(ctx context.Context, query, contextStr string, role clearance.Role) (string, error) {
	payload := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        s.maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildPrompt(query, contextStr, role)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal model request: %w", err)
	}

	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode model response: %v", ErrGenerationUnavailable, err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: model returned no content", ErrGenerationUnavailable)
	}

	return resp.Content[0].Text, nil
}
