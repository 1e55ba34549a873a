package port

import "context"

// TokenUsage carries the token counts reported for one model call.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Add returns the element-wise sum of two usages.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// InvokeInput carries a prompt and an optional document for a model call.
// FileBytes may be nil for text-only prompts.
type InvokeInput struct {
	Prompt      string
	FileBytes   []byte
	ContentType string
}

// InvokeOutput is the model's textual answer plus its reported usage.
type InvokeOutput struct {
	Text  string
	Usage TokenUsage
}

// ModelClient abstracts a generative model invocation. Transport and quota
// errors are returned unchanged; no retries happen at this layer.
type ModelClient interface {
	Invoke(ctx context.Context, input InvokeInput) (*InvokeOutput, error)
	Model() string
}
