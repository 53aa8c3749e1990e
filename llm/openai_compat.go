// ABOUTME: Chat Completions client for OpenAI-compatible endpoints such as a local Ollama server.
// ABOUTME: Implements the mux client interface so the crew can talk to local and hosted models alike.
package llm

import (
	"context"
	"fmt"
	"log"

	muxllm "github.com/2389-research/mux/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// localAPIKey is sent to endpoints that ignore authentication but reject an
// empty bearer token.
const localAPIKey = "ollama"

// OpenAICompatClient implements muxllm.Client over /v1/chat/completions with a
// configurable base URL.
type OpenAICompatClient struct {
	client openai.Client
	model  string
}

// NewOpenAICompatClient creates a client for baseURL. apiKey may be empty for
// local servers.
func NewOpenAICompatClient(apiKey, model, baseURL string, opts ...option.RequestOption) *OpenAICompatClient {
	if apiKey == "" {
		apiKey = localAPIKey
	}
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &OpenAICompatClient{
		client: openai.NewClient(all...),
		model:  model,
	}
}

// Model returns the default model used when a request leaves it empty.
func (c *OpenAICompatClient) Model() string { return c.model }

// CreateMessage sends a request and returns the complete response.
func (c *OpenAICompatClient) CreateMessage(ctx context.Context, req *muxllm.Request) (*muxllm.Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return convertCompletion(resp), nil
}

// CreateMessageStream streams text deltas followed by the assembled response.
func (c *OpenAICompatClient) CreateMessageStream(ctx context.Context, req *muxllm.Request) (<-chan muxllm.StreamEvent, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	events := make(chan muxllm.StreamEvent, 64)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("component=llm action=stream_panic err=%v", r)
				events <- muxllm.StreamEvent{Type: muxllm.EventError, Error: fmt.Errorf("panic in stream: %v", r)}
			}
		}()

		var acc openai.ChatCompletionAccumulator
		events <- muxllm.StreamEvent{Type: muxllm.EventMessageStart}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				events <- muxllm.StreamEvent{Type: muxllm.EventContentDelta, Text: chunk.Choices[0].Delta.Content}
			}
		}
		if err := stream.Err(); err != nil {
			events <- muxllm.StreamEvent{Type: muxllm.EventError, Error: err}
			return
		}
		events <- muxllm.StreamEvent{Type: muxllm.EventMessageStop, Response: convertCompletion(&acc.ChatCompletion)}
	}()

	return events, nil
}

func (c *OpenAICompatClient) params(req *muxllm.Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}
	params := openai.ChatCompletionNewParams{Model: model}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		text := messageText(msg)
		switch msg.Role {
		case muxllm.RoleUser:
			messages = append(messages, openai.UserMessage(text))
		case muxllm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(text))
		}
	}
	params.Messages = messages
	return params
}

func messageText(msg muxllm.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	for _, block := range msg.Blocks {
		if block.Type == muxllm.ContentTypeText {
			return block.Text
		}
	}
	return ""
}

func convertCompletion(resp *openai.ChatCompletion) *muxllm.Response {
	out := &muxllm.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: muxllm.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		StopReason: muxllm.StopReasonEndTurn,
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		out.StopReason = muxllm.StopReasonMaxTokens
	}
	if choice.Message.Content != "" {
		out.Content = append(out.Content, muxllm.ContentBlock{
			Type: muxllm.ContentTypeText,
			Text: choice.Message.Content,
		})
	}
	return out
}

var _ muxllm.Client = (*OpenAICompatClient)(nil)
