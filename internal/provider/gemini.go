// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
)

// DefaultGeminiURL is the base URL for the Gemini generateContent API.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// Shared HTTP client with connection pooling for all Gemini requests.
var geminiHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// GATEWAY
// =============================================================================

// GeminiGateway sends turns to the Google Gemini generateContent API.
// No Go SDK is used; the wire format is a small JSON shape and the request
// follows the same build/limit/decode discipline as the other gateways.
type GeminiGateway struct {
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiGateway creates a Gemini gateway bound to one model.
func NewGeminiGateway(apiKey, modelName string) *GeminiGateway {
	return &GeminiGateway{
		apiKey:  apiKey,
		model:   modelName,
		baseURL: DefaultGeminiURL,
	}
}

// WithBaseURL overrides the API base URL (used by tests).
func (g *GeminiGateway) WithBaseURL(base string) *GeminiGateway {
	g.baseURL = base
	return g
}

// Name implements Gateway.
func (g *GeminiGateway) Name() string {
	return string(ProviderGemini)
}

// Send implements Gateway. Gemini uses "user"/"model" roles instead of
// "user"/"assistant", and carries the system prompt in system_instruction.
func (g *GeminiGateway) Send(ctx context.Context, message string, history []model.Turn, sysCtx SystemContext) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, t := range history {
		role := "model"
		if t.FromUser {
			role = "user"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: t.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: message}},
	})

	reqBody := geminiRequest{Contents: contents}
	if prompt := sysCtx.SystemPrompt(); prompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: prompt}}}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", transportFailure(g.Name(), err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", transportFailure(g.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := geminiHTTPClient.Do(req)
	if err != nil {
		return "", transportFailure(g.Name(), err)
	}
	defer resp.Body.Close()

	// Bounded read prevents buffering an oversized body.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", transportFailure(g.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", g.handleErrorResponse(resp.StatusCode, body)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", decodeFailure(g.Name(), err)
	}

	var text string
	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			text += part.Text
		}
		break
	}
	if text == "" {
		return "", decodeFailure(g.Name(), fmt.Errorf("no candidates in response"))
	}
	return text, nil
}

// handleErrorResponse surfaces a structured server message when the body
// decodes, and a generic transport failure otherwise.
func (g *GeminiGateway) handleErrorResponse(status int, body []byte) error {
	var apiErr geminiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return serverFailure(g.Name(), status, apiErr.Error.Message)
	}
	return &Failure{
		Provider: g.Name(),
		Kind:     FailureTransport,
		Status:   status,
		Message:  fmt.Sprintf("The request failed with status %d.", status),
	}
}
