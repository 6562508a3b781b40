package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// MediaClient talks to the same OpenAI-compatible service for the calls that
// go beyond plain function classification: image reading and embeddings.
type MediaClient struct {
	client     *openai.Client
	model      string
	embedModel string
}

// MediaOption configures a MediaClient.
type MediaOption func(*mediaSettings)

type mediaSettings struct {
	baseURL    string
	model      string
	embedModel string
	timeout    time.Duration
}

// WithMediaBaseURL sets a custom API base URL.
func WithMediaBaseURL(url string) MediaOption {
	return func(s *mediaSettings) { s.baseURL = url }
}

// WithMediaModel sets the vision-capable chat model.
func WithMediaModel(model string) MediaOption {
	return func(s *mediaSettings) { s.model = model }
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) MediaOption {
	return func(s *mediaSettings) { s.embedModel = model }
}

// WithMediaTimeout sets the per-call HTTP timeout.
func WithMediaTimeout(d time.Duration) MediaOption {
	return func(s *mediaSettings) { s.timeout = d }
}

// NewMediaClient creates a go-openai backed client.
func NewMediaClient(apiKey string, opts ...MediaOption) *MediaClient {
	s := mediaSettings{
		model:      "gpt-4o-mini",
		embedModel: string(openai.SmallEmbedding3),
		timeout:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}

	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: s.timeout}

	return &MediaClient{
		client:     openai.NewClientWithConfig(cfg),
		model:      s.model,
		embedModel: s.embedModel,
	}
}

// ReadImageText sends the image inline as a data URL together with prompt and
// returns the model's text answer.
func (c *MediaClient) ReadImageText(ctx context.Context, prompt, mimeType string, image []byte) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision request: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns one embedding per input text, in input order.
func (c *MediaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding request: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}
