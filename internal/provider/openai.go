// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
)

// OpenAIGateway sends turns to an OpenAI-compatible chat completions API.
// The Grok gateway reuses it with a custom base URL, since xAI exposes the
// same wire format.
type OpenAIGateway struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIGateway creates an OpenAI gateway bound to one model.
func NewOpenAIGateway(apiKey, modelName string) *OpenAIGateway {
	return newOpenAICompatible(apiKey, modelName, "", string(ProviderOpenAI))
}

// grokBaseURL is xAI's OpenAI-compatible endpoint.
const grokBaseURL = "https://api.x.ai/v1"

// NewGrokGateway creates a Grok gateway bound to one model.
func NewGrokGateway(apiKey, modelName string) *OpenAIGateway {
	return newOpenAICompatible(apiKey, modelName, grokBaseURL, string(ProviderGrok))
}

func newOpenAICompatible(apiKey, modelName, baseURL, name string) *OpenAIGateway {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: DefaultTimeout}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(config),
		model:  modelName,
		name:   name,
	}
}

// Name implements Gateway.
func (g *OpenAIGateway) Name() string {
	return g.name
}

// Send implements Gateway.
func (g *OpenAIGateway) Send(ctx context.Context, message string, history []model.Turn, sysCtx SystemContext) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if prompt := sysCtx.SystemPrompt(); prompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt,
		})
	}
	for _, t := range history {
		role := openai.ChatMessageRoleAssistant
		if t.FromUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: msgs,
	})
	if err != nil {
		return "", g.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", decodeFailure(g.name, errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// wrapError converts SDK errors into the shared failure taxonomy.
func (g *OpenAIGateway) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return serverFailure(g.name, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return serverFailure(g.name, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return transportFailure(g.name, err)
}
