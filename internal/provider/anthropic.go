// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"net/http"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
)

const anthropicMaxTokens = 4096

// AnthropicGateway sends turns to the Anthropic Messages API.
type AnthropicGateway struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGateway creates a Claude gateway bound to one model.
func NewAnthropicGateway(apiKey, modelName string) *AnthropicGateway {
	client := anthropic.NewClient(apiKey,
		anthropic.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	)
	return &AnthropicGateway{client: client, model: modelName}
}

// Name implements Gateway.
func (g *AnthropicGateway) Name() string {
	return string(ProviderAnthropic)
}

// Send implements Gateway. History maps to alternating user/assistant
// messages; the system prompt travels in the request's system slot, never
// as a message.
func (g *AnthropicGateway) Send(ctx context.Context, message string, history []model.Turn, sysCtx SystemContext) (string, error) {
	msgs := make([]anthropic.Message, 0, len(history)+1)
	for _, t := range history {
		role := anthropic.RoleAssistant
		if t.FromUser {
			role = anthropic.RoleUser
		}
		msgs = append(msgs, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(t.Content)},
		})
	}
	msgs = append(msgs, anthropic.Message{
		Role:    anthropic.RoleUser,
		Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(message)},
	})

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		Messages:  msgs,
		MaxTokens: anthropicMaxTokens,
	}
	if prompt := sysCtx.SystemPrompt(); prompt != "" {
		req.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: prompt}}
	}

	resp, err := g.client.CreateMessages(ctx, req)
	if err != nil {
		return "", g.wrapError(err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}
	if text == "" {
		return "", decodeFailure(g.Name(), errors.New("empty content in response"))
	}
	return text, nil
}

// wrapError converts SDK errors into the shared failure taxonomy. A decoded
// API error message is surfaced verbatim; anything else is transport.
func (g *AnthropicGateway) wrapError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return serverFailure(g.Name(), 0, apiErr.Message)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return serverFailure(g.Name(), reqErr.StatusCode, reqErr.Error())
	}
	return transportFailure(g.Name(), err)
}
