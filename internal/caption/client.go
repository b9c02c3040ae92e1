// Package caption generates social post captions for recipes via the
// Gemini API.
package caption

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/recipereel/workers/internal/domain"
)

const systemPrompt = `You write short Instagram captions for a recipe-sharing community.
Rules:
1. Two or three sentences, warm but not gushing. No hashtag walls: at most three hashtags at the end.
2. Always credit the source by name.
3. Mention one or two standout ingredients, never the full list.
4. Output the caption text only. No quotes, no markdown, no preamble.`

const maxPromptIngredients = 8

// Client generates captions with a single configured model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a caption client. The API key is required.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("caption API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Generate produces a caption for the recipe snapshot. Any model failure or
// empty completion is returned as an error; the dispatcher records it as the
// item's failure reason.
func (c *Client) Generate(ctx context.Context, snap *domain.RecipeSnapshot) (string, error) {
	prompt := buildPrompt(snap)

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("caption generation failed: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("caption generation returned no candidates")
	}

	text := cleanCaption(result.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", errors.New("caption generation returned empty text")
	}
	return text, nil
}

func buildPrompt(snap *domain.RecipeSnapshot) string {
	ingredients := snap.Ingredients
	if len(ingredients) > maxPromptIngredients {
		ingredients = ingredients[:maxPromptIngredients]
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nRecipe: ")
	b.WriteString(snap.Title)
	b.WriteString("\nSource: ")
	b.WriteString(snap.SourceDisplay())
	if len(ingredients) > 0 {
		b.WriteString("\nIngredients: ")
		b.WriteString(strings.Join(ingredients, ", "))
	}
	return b.String()
}

// cleanCaption strips markdown fences and surrounding quotes the model
// sometimes adds despite the prompt.
func cleanCaption(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
