// Package anthropic wraps the official SDK behind the minimal completion
// surface the interview engine needs, so the extractor and summarizer can
// be stubbed in tests.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the completion operation used by the engine.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Turn is a single conversational message.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// CompletionRequest is our own request type for Complete.
type CompletionRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	CacheSystem bool // mark the system prompt as ephemeral-cacheable
	Turns       []Turn
	Temperature *float64
}

// Completion is our own response type from Complete.
type Completion struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption for cost attribution.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// LogCost logs token usage with structured fields, attributed to a phase.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
	)
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a Client backed by the official SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Turns),
	}
	if req.System != "" {
		block := sdk.TextBlockParam{Text: req.System}
		if req.CacheSystem {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
		}
		params.System = []sdk.TextBlockParam{block}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: complete")
	}

	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}

	return &Completion{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}, nil
}

func toSDKMessages(turns []Turn) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(turns))
	for i, t := range turns {
		block := sdk.NewTextBlock(t.Content)
		switch t.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}
