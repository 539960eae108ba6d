package worker

import "github.com/whirlun/emigo-go/pkg/types"

const (
	defaultMaxHistoryTokens   = 8000
	defaultMinHistoryMessages = 3
)

// truncateHistory bounds the message list sent to the LLM: the first user
// message is always retained (it anchors the original task), and messages
// are added back-to-front (newest first) while they fit the cumulative token
// budget, or regardless of budget while fewer than minMessages have been
// kept; the first message that meets neither condition ends the walk.
func truncateHistory(history []types.Message, maxTokens, minMessages int) []types.Message {
	if len(history) == 0 {
		return history
	}

	firstUserIdx := -1
	for i, m := range history {
		if m.Role == types.RoleUser {
			firstUserIdx = i
			break
		}
	}

	kept := make(map[int]bool)
	tokens := 0
	for i := len(history) - 1; i >= 0; i-- {
		if kept[i] {
			continue
		}
		msgTokens := countTokens(history[i].Content)
		for _, tc := range history[i].ToolCalls {
			msgTokens += countTokens(tc.Arguments)
		}
		withinBudget := tokens+msgTokens <= maxTokens
		belowFloor := len(kept) < minMessages
		if !withinBudget && !belowFloor {
			break
		}
		kept[i] = true
		tokens += msgTokens
	}
	if firstUserIdx >= 0 {
		kept[firstUserIdx] = true
	}

	result := make([]types.Message, 0, len(kept))
	for i, m := range history {
		if kept[i] {
			result = append(result, m)
		}
	}
	return result
}
