package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
)

const narratorPrompt = `You are a marketing analyst. You are given a markdown report produced by an analytics pipeline.
Write one short paragraph (at most 120 words) for a non-technical reader: what the numbers say and one concrete next step.
Do not restate every figure, do not invent numbers that are not in the report, and answer in plain text.`

// BedrockAPI is the part of the Bedrock runtime client the narrator uses.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Narrator asks a Bedrock-hosted model for a plain-language commentary on
// a rendered report.
type Narrator struct {
	client  BedrockAPI
	modelID string
}

type narratorMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type narratorRequest struct {
	AnthropicVersion string            `json:"anthropic_version"`
	MaxTokens        int               `json:"max_tokens"`
	System           string            `json:"system"`
	Messages         []narratorMessage `json:"messages"`
	Temperature      float64           `json:"temperature"`
}

type narratorResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewNarrator builds a Bedrock client in cfg.Region for cfg.NarrativeModel.
func NewNarrator(ctx context.Context, cfg config.ReportConfig) (*Narrator, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for bedrock: %w", err)
	}
	return NewNarratorWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg.NarrativeModel), nil
}

// NewNarratorWithClient wraps an existing Bedrock runtime client.
func NewNarratorWithClient(client BedrockAPI, modelID string) *Narrator {
	return &Narrator{client: client, modelID: modelID}
}

// Narrate returns the model's commentary on report.
func (n *Narrator) Narrate(ctx context.Context, report string) (string, error) {
	body, err := json.Marshal(narratorRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        400,
		System:           narratorPrompt,
		Messages:         []narratorMessage{{Role: "user", Content: report}},
		Temperature:      0.2,
	})
	if err != nil {
		return "", err
	}

	out, err := n.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(n.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp narratorResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock response: %w", err)
	}
	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	logger.Debug("report narrated", "model", n.modelID,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return strings.TrimSpace(text.String()), nil
}
