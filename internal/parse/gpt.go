package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const gptPrompt = `Extract the receipt in this image as JSON with this exact shape:
{"vendor":{"name":"","type":"","address":""},"line_items":[{"quantity":1,"description":"","total":0.0}],"subtotal":0.0,"tax":0.0,"tip":0.0,"total":0.0}
Use numbers for all amounts. Respond with only the JSON object.`

// GPTParser extracts receipt structure from an image with a vision-capable
// chat model
type GPTParser struct {
	client openai.Client
	model  string
}

// NewGPTParser creates a GPT-backed receipt parser. An empty model falls
// back to gpt-4o.
func NewGPTParser(apiKey, model string) *GPTParser {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &GPTParser{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Parse sends the receipt image to the chat completion API and decodes the
// structured receipt from the response
func (p *GPTParser) Parse(ctx context.Context, imageData string) (*Receipt, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.TextContentPart(gptPrompt),
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
								URL: imageData,
							}),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var receipt Receipt
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt JSON: %w", err)
	}

	return &receipt, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
