package metrics

// TokenUsage captures model token counts used to satisfy a request.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// FromCounts builds a TokenUsage, returning nil when everything is zero.
func FromCounts(prompt, completion, total int) *TokenUsage {
	usage := TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
	if usage.IsZero() {
		return nil
	}
	return &usage
}
