package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/reviewgate/internal/models"
)

// APIInvoker runs prompts against the Anthropic Messages API in-process,
// for environments where the claude CLI is not installed.
type APIInvoker struct {
	name   string
	api    *anthropic.Client
	model  anthropic.Model
	apiKey string
}

func newAPIInvoker(name string, recipe Recipe, apiKey string) *APIInvoker {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &APIInvoker{
		name:   name,
		api:    &client,
		model:  anthropic.Model(recipe.Model),
		apiKey: apiKey,
	}
}

func (a *APIInvoker) Name() string { return a.name }

// Check verifies an API key is configured.
func (a *APIInvoker) Check() error {
	if a.apiKey == "" {
		return fmt.Errorf("%w: no API key configured for %s", ErrUnavailable, a.name)
	}
	return nil
}

// Invoke sends the prompt as a single user message and returns the text
// content. API errors are recoverable and land in RawResponse.Err.
func (a *APIInvoker) Invoke(ctx context.Context, prompt string, unitIDs []string) models.RawResponse {
	resp := models.RawResponse{Backend: a.name, UnitIDs: unitIDs}

	start := time.Now()
	msg, err := a.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	resp.Elapsed = time.Since(start)

	if err != nil {
		resp.Err = fmt.Sprintf("anthropic API call: %v", err)
		return resp
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			resp.Text = block.Text
			break
		}
	}
	if resp.Text == "" {
		resp.Err = "no text content in API response"
	}
	return resp
}
