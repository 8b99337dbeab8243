// Package history derives the bounded conversation context sent with each
// chat request.
package history

import (
	"slices"

	"superchat/client/internal/model"
)

// Window returns the last 2n non-empty messages of the transcript in
// chronological order. The pair count n is doubled internally to account
// for question+answer pairs. n <= 0 or an empty transcript yields nil.
// The function is deterministic and side-effect free.
func Window(messages []model.Message, n int) []model.Message {
	return window(messages, n, nil)
}

// ChainWindow behaves like Window but, when a workflow query is active,
// stops the backward walk at the first message whose query type or attached
// file set differs from the active one. Follow-up questions on the same
// attachments keep their shared context; anything earlier belongs to a
// different chain and is excluded.
func ChainWindow(messages []model.Message, n int, active model.QueryType, files []string) []model.Message {
	if active.IsZero() {
		return window(messages, n, nil)
	}
	stop := func(m model.Message) bool {
		return m.Query != active || !slices.Equal(m.AttachedFiles, files)
	}
	return window(messages, n, stop)
}

func window(messages []model.Message, n int, stop func(model.Message) bool) []model.Message {
	if n <= 0 || len(messages) == 0 {
		return nil
	}
	limit := 2 * n

	var collected []model.Message
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if stop != nil && stop(m) {
			break
		}
		if m.Text == "" {
			continue
		}
		collected = append(collected, m)
		if len(collected) >= limit {
			break
		}
	}
	slices.Reverse(collected)
	return collected
}
