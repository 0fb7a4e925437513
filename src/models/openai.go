package models

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel completes prompts through the OpenAI chat API.
type OpenAIModel struct {
	Client *openai.Client
	Model  string
}

// NewOpenAIModel constructs a client from OPENAI_API_KEY (OPENAI_KEY as a
// fallback).
func NewOpenAIModel(model string) *OpenAIModel {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY")
	}
	return &OpenAIModel{Client: openai.NewClient(apiKey), Model: model}
}

// Complete implements Model. Stop sequences are passed to the API and
// enforced again client side.
func (o *OpenAIModel) Complete(ctx context.Context, prompt string, stop []string) (string, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Stop:  stop,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return truncateAtStop(resp.Choices[0].Message.Content, stop), nil
}

var _ Model = (*OpenAIModel)(nil)
