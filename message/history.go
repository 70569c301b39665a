package message

// TrimHistory bounds a history before it is persisted.
// It applies the message limit first, then the token limit, dropping the
// oldest messages. A limit <= 0 disables that bound.
// The most recent message is always kept so an in-progress exchange survives.
func TrimHistory(history []Message, tokenLimit, messageLimit int) []Message {
	if len(history) == 0 {
		return history
	}

	if messageLimit > 0 && len(history) > messageLimit {
		history = history[len(history)-messageLimit:]
	}

	if tokenLimit <= 0 {
		return history
	}

	total := 0
	for _, msg := range history {
		total += EstimateTokens(msg.Content)
	}

	for total > tokenLimit && len(history) > 1 {
		total -= EstimateTokens(history[0].Content)
		history = history[1:]
	}

	return history
}
