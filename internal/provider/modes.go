// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the uniform gateway contract shared by all LLM
// backends, the resolver that picks one for an outgoing message, and the
// concrete gateway implementations.
package provider

// Mode is a conversation mode. Each mode contributes a fixed prompt to the
// system instruction assembled for every provider call.
type Mode string

const (
	ModeGeneral  Mode = "general"
	ModeCoding   Mode = "coding"
	ModeCreative Mode = "creative"
	ModeAcademic Mode = "academic"
	ModeMath     Mode = "math"
	ModeBusiness Mode = "business"
)

// modePrompts holds the fixed prompt text for each mode.
var modePrompts = map[Mode]string{
	ModeGeneral:  "You are a helpful, friendly assistant. Answer clearly and concisely.",
	ModeCoding:   "You are an expert software engineer. Provide working code with brief explanations, and point out pitfalls.",
	ModeCreative: "You are a creative writing partner. Be imaginative, vivid, and original while following the user's direction.",
	ModeAcademic: "You are an academic tutor. Explain step by step, cite relevant concepts, and keep a rigorous tone.",
	ModeMath:     "You are a mathematics assistant. Show your reasoning step by step and state the final answer clearly.",
	ModeBusiness: "You are a business consultant. Be structured, practical, and focused on actionable recommendations.",
}

// Prompt returns the mode's fixed prompt text. Unknown modes fall back to
// the general prompt.
func (m Mode) Prompt() string {
	if p, ok := modePrompts[m]; ok {
		return p
	}
	return modePrompts[ModeGeneral]
}

// Valid reports whether m is one of the six recognized modes.
func (m Mode) Valid() bool {
	_, ok := modePrompts[m]
	return ok
}
