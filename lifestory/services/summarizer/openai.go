// lifestory/services/summarizer/openai.go
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"

	"lifestory/lifestory/utils/jsonutils"
	"lifestory/lifestory/utils/logging"

	openai "github.com/sashabaranov/go-openai"
)

const summarizePrompt = `You are an editor for a life-story publishing service.
Given the merged chapters of a client's life story, respond with ONLY a JSON object:
{"summary": "<3-5 sentence summary>", "key_themes": ["<theme>", ...]}
List at most 6 key themes, most prominent first.`

type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey, model string) *OpenAISummarizer {
	return &OpenAISummarizer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Model reports the model name, recorded in each story's generation stats.
func (s *OpenAISummarizer) Model() string {
	return s.model
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, mergedText string) (*Result, error) {
	defer logging.LogDuration(ctx, "summarizer_openai")()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizePrompt},
			{Role: openai.ChatMessageRoleUser, Content: mergedText},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("summarizer returned no choices")
	}

	raw := jsonutils.ExtractJSON(resp.Choices[0].Message.Content)
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("summarizer returned unparseable JSON: %w", err)
	}
	return &result, nil
}
