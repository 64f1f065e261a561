// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

// Dial builds the concrete gateway for a resolved route. Routes carry the
// credential and model chosen by Resolve, so gateways bind both up front
// and need no further configuration per request.
func Dial(route Route) Gateway {
	switch route.Provider {
	case ProviderAnthropic:
		return NewAnthropicGateway(route.Credential, route.Model)
	case ProviderOpenAI:
		return NewOpenAIGateway(route.Credential, route.Model)
	case ProviderGemini:
		return NewGeminiGateway(route.Credential, route.Model)
	case ProviderGrok:
		return NewGrokGateway(route.Credential, route.Model)
	default:
		return NewDemoGateway()
	}
}
