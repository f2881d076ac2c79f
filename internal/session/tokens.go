package session

// EstimateTokens estimates the token count for a text using a
// Unicode-aware heuristic: ~4 ASCII characters per token, ~1 non-ASCII
// character (CJK, emoji, accented letters) per token.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		if r <= 127 {
			weight += 1
		} else {
			weight += 4
		}
	}
	return (weight + 3) / 4
}
