// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/EfeTurkel/LocalMind-sub000/internal/model"
)

// Canned replies used when no API key is configured.
var demoResponses = []string{
	"This is a demo response. Add your API key in settings to chat with a real model.",
	"I'm running in demo mode right now. Real answers need an API key configured in settings.",
	"Demo mode is active, so this reply is canned. Configure a provider key to unlock live responses.",
	"Here's a sample answer from demo mode. Connect an API key to get actual model output.",
	"You're seeing a placeholder reply. Once an API key is added, responses will come from a real provider.",
}

// DemoGateway produces canned responses without any network access.
// It never returns an error, but it still honors context cancellation
// so the orchestrator behaves the same as with real providers.
type DemoGateway struct{}

// NewDemoGateway creates a demo gateway.
func NewDemoGateway() *DemoGateway {
	return &DemoGateway{}
}

// Name implements Gateway.
func (g *DemoGateway) Name() string {
	return string(ProviderDemo)
}

// Send implements Gateway. The numeric suffix makes consecutive replies
// visibly distinct in the transcript.
func (g *DemoGateway) Send(ctx context.Context, message string, history []model.Turn, sysCtx SystemContext) (string, error) {
	// Small delay so the placeholder turn is briefly visible.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(150 * time.Millisecond):
	}
	reply := demoResponses[rand.IntN(len(demoResponses))]
	return fmt.Sprintf("%s (#%04d)", reply, rand.IntN(10000)), nil
}
