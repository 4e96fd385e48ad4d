package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Extraction payloads are small; 4096 output tokens leaves ample headroom.
const anthropicMaxTokens = 4096

type anthropicClient struct {
	client sdk.Client
	model  string
}

// NewAnthropic creates a Provider backed by the official Anthropic SDK.
// System turns travel as system prompt blocks rather than messages.
func NewAnthropic(apiKey, model string) Provider {
	return &anthropicClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		model: model,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   anthropicMaxTokens,
		Messages:    toSDKMessages(msgs),
		Temperature: sdk.Float(0),
	}

	if system := toSDKSystemBlocks(msgs); len(system) > 0 {
		params.System = system
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", providerErr(ProviderAnthropic, eris.Wrap(err, "llm: create message"))
	}

	return textContent(msg), nil
}

// toSDKMessages converts the non-system turns to SDK message params,
// preserving order.
func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(block))
		default:
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return out
}

// toSDKSystemBlocks lifts system turns into dedicated system prompt blocks.
func toSDKSystemBlocks(msgs []Message) []sdk.TextBlockParam {
	var out []sdk.TextBlockParam
	for _, m := range msgs {
		if m.Role == RoleSystem {
			out = append(out, sdk.TextBlockParam{Text: m.Content})
		}
	}
	return out
}

// textContent concatenates the text blocks of a response.
func textContent(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		b.WriteString(block.Text)
	}
	return b.String()
}
