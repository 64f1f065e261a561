// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"strings"
)

// Provider identifies an LLM backend family.
type Provider string

const (
	ProviderGrok      Provider = "grok"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderDemo      Provider = "demo"
)

// DisplayName returns the provider's user-facing name, used in
// missing-credential notices.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGrok:
		return "Grok"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Claude"
	case ProviderGemini:
		return "Gemini"
	case ProviderDemo:
		return "Demo"
	default:
		return string(p)
	}
}

// Credentials maps provider families to API keys. The core only reads it;
// storage and entry are external concerns.
type Credentials struct {
	Grok      string
	OpenAI    string
	Anthropic string
	Gemini    string
}

// MissingCredentialError signals that the selected model requires a
// credential that is not configured.
type MissingCredentialError struct {
	Provider Provider
}

// Error implements the error interface.
func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider.DisplayName())
}

// UserMessage returns the notice text shown in the conversation.
func (e *MissingCredentialError) UserMessage() string {
	return "Please add your " + e.Provider.DisplayName() + " API key in settings to use this model."
}

// Route is a resolved provider call target.
type Route struct {
	Provider   Provider
	Model      string
	Credential string
}

// IsDemo reports whether the route degrades to the offline demo gateway.
func (r Route) IsDemo() bool {
	return r.Provider == ProviderDemo
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolve maps the selected model plus stored credentials to a concrete
// provider call. Ordered, first match wins:
//
//  1. claude-family models require the Anthropic key (hard failure)
//  2. gpt/chatgpt-family models require the OpenAI key (hard failure)
//  3. gemini-family models use the Gemini key when present, otherwise
//     degrade silently to the demo gateway
//  4. everything else is the Grok family: key if present, demo otherwise
//
// The failure policy is intentionally asymmetric (hard error for
// Claude/OpenAI, soft fallback for Gemini/Grok); see DESIGN.md.
func Resolve(selectedModel string, creds Credentials) (Route, error) {
	m := strings.ToLower(strings.TrimSpace(selectedModel))

	switch {
	case strings.HasPrefix(m, "claude"):
		if creds.Anthropic == "" {
			return Route{}, &MissingCredentialError{Provider: ProviderAnthropic}
		}
		return Route{Provider: ProviderAnthropic, Model: selectedModel, Credential: creds.Anthropic}, nil

	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "chatgpt"):
		if creds.OpenAI == "" {
			return Route{}, &MissingCredentialError{Provider: ProviderOpenAI}
		}
		return Route{Provider: ProviderOpenAI, Model: selectedModel, Credential: creds.OpenAI}, nil

	case strings.HasPrefix(m, "gemini"):
		if creds.Gemini == "" {
			return Route{Provider: ProviderDemo, Model: selectedModel}, nil
		}
		return Route{Provider: ProviderGemini, Model: selectedModel, Credential: creds.Gemini}, nil

	default:
		if creds.Grok == "" {
			return Route{Provider: ProviderDemo, Model: selectedModel}, nil
		}
		return Route{Provider: ProviderGrok, Model: selectedModel, Credential: creds.Grok}, nil
	}
}
