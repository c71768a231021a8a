// lifestory/services/summarizer/summarizer.go
package summarizer

import "context"

// Result is what the external capability derives from the merged story text.
type Result struct {
	Summary   string   `json:"summary"`
	KeyThemes []string `json:"key_themes"`
}

// Summarizer is the external summarization/theme-extraction capability. The
// aggregator treats failures and timeouts as a degraded story (summary and
// themes absent), never as a failed aggregation.
type Summarizer interface {
	Summarize(ctx context.Context, mergedText string) (*Result, error)
}
