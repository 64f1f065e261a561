// Copyright (c) 2024-2025 Efe Turkel
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// MaxHistoryTurns is the maximum number of prior turns sent to a provider
// with an outgoing message. Older turns are trimmed to bound request size.
const MaxHistoryTurns = 30

// HistoryForProvider returns the slice of prior turns to send alongside a
// new outgoing message, in original order.
//
// Three rules apply:
//  1. placeholders and notice turns never qualify
//  2. only the most recent MaxHistoryTurns qualifying turns are kept
//  3. if the most recent qualifying turn is an unanswered user turn it is
//     dropped, since the outgoing message is always passed separately and
//     the history must not end on an unpaired user turn
func HistoryForProvider(turns []Turn) []Turn {
	qualifying := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.IsChat() {
			qualifying = append(qualifying, t)
		}
	}

	if n := len(qualifying); n > 0 && qualifying[n-1].FromUser {
		qualifying = qualifying[:n-1]
	}

	if len(qualifying) > MaxHistoryTurns {
		qualifying = qualifying[len(qualifying)-MaxHistoryTurns:]
	}

	return qualifying
}
