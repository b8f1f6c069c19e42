package utils

// CountTokens estimates the number of tokens in text at roughly four
// characters per token. It is only used to warn before a prompt outgrows a
// model's context window, so the provider's real count is never needed.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	// Ensure at least 1 token for any non-empty text
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}
