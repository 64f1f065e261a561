// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestResolve_Routing(t *testing.T) {
	full := Credentials{
		Grok:      "grok-key",
		OpenAI:    "openai-key",
		Anthropic: "anthropic-key",
		Gemini:    "gemini-key",
	}

	tests := []struct {
		name         string
		model        string
		creds        Credentials
		wantProvider Provider
		wantCred     string
		wantMissing  Provider // zero value = no error expected
	}{
		{"claude with key", "claude-sonnet-4", full, ProviderAnthropic, "anthropic-key", ""},
		{"gpt with key", "gpt-5", full, ProviderOpenAI, "openai-key", ""},
		{"chatgpt prefix", "chatgpt-4o-latest", full, ProviderOpenAI, "openai-key", ""},
		{"gemini with key", "gemini-2.5-pro", full, ProviderGemini, "gemini-key", ""},
		{"default is grok", "grok-4", full, ProviderGrok, "grok-key", ""},
		{"unknown model is grok family", "mystery-model", full, ProviderGrok, "grok-key", ""},
		{"case insensitive prefix", "Claude-Opus", full, ProviderAnthropic, "anthropic-key", ""},

		{"claude without key is hard failure", "claude-sonnet-4", Credentials{}, "", "", ProviderAnthropic},
		{"gpt without key is hard failure", "gpt-5", Credentials{}, "", "", ProviderOpenAI},
		{"gemini without key degrades to demo", "gemini-2.5-pro", Credentials{}, ProviderDemo, "", ""},
		{"grok without key degrades to demo", "grok-4", Credentials{}, ProviderDemo, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := Resolve(tt.model, tt.creds)

			if tt.wantMissing != "" {
				var missing *MissingCredentialError
				if !errors.As(err, &missing) {
					t.Fatalf("err = %v, want MissingCredentialError", err)
				}
				if missing.Provider != tt.wantMissing {
					t.Errorf("missing provider = %q, want %q", missing.Provider, tt.wantMissing)
				}
				return
			}

			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if route.Provider != tt.wantProvider {
				t.Errorf("provider = %q, want %q", route.Provider, tt.wantProvider)
			}
			if route.Credential != tt.wantCred {
				t.Errorf("credential = %q, want %q", route.Credential, tt.wantCred)
			}
			if route.Model != tt.model {
				t.Errorf("model = %q, want %q", route.Model, tt.model)
			}
		})
	}
}

func TestMissingCredentialError_UserMessage(t *testing.T) {
	err := &MissingCredentialError{Provider: ProviderAnthropic}
	if !strings.Contains(err.UserMessage(), "Claude") {
		t.Errorf("message should name the provider: %q", err.UserMessage())
	}
}

func TestRoute_IsDemo(t *testing.T) {
	if !(Route{Provider: ProviderDemo}).IsDemo() {
		t.Error("demo route should report IsDemo")
	}
	if (Route{Provider: ProviderGrok}).IsDemo() {
		t.Error("grok route should not report IsDemo")
	}
}

func TestDial_RouteMapping(t *testing.T) {
	tests := []struct {
		provider Provider
		wantName string
	}{
		{ProviderAnthropic, "anthropic"},
		{ProviderOpenAI, "openai"},
		{ProviderGemini, "gemini"},
		{ProviderGrok, "grok"},
		{ProviderDemo, "demo"},
	}
	for _, tt := range tests {
		gw := Dial(Route{Provider: tt.provider, Model: "m", Credential: "k"})
		if gw.Name() != tt.wantName {
			t.Errorf("Dial(%q).Name() = %q, want %q", tt.provider, gw.Name(), tt.wantName)
		}
	}
}
