package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"bioneuro/backend/internal/llm/contract"
)

// OpenAIProvider talks to any OpenAI-compatible chat endpoint. Gemini is
// reached through its compatibility base URL.
type OpenAIProvider struct {
	name   string
	client openai.Client
	config *contract.ProviderConfig
	usage  usageTracker
}

func NewOpenAIProvider(config *contract.ProviderConfig) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	name := strings.ToLower(config.ProviderName)
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{
		name:   name,
		client: openai.NewClient(opts...),
		config: config,
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

func (o *OpenAIProvider) GetConfig() *contract.ProviderConfig { return o.config }

func (o *OpenAIProvider) GetUsage(ctx context.Context) (*contract.UsageStats, error) {
	return o.usage.snapshot(), nil
}

func (o *OpenAIProvider) Chat(ctx context.Context, req contract.ChatRequest) (string, error) {
	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		o.usage.failure(o.record(start), err)
		return "", err
	}
	record := o.record(start)
	record.InputTokens = int(resp.Usage.PromptTokens)
	record.OutputTokens = int(resp.Usage.CompletionTokens)
	record.TotalTokens = int(resp.Usage.TotalTokens)
	o.usage.success(o.config, record)
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) StreamChat(ctx context.Context, req contract.ChatRequest) (contract.ChunkStream, error) {
	params := o.params(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	if stream == nil {
		return nil, errors.New("openai: stream not created")
	}
	return &openAIStream{provider: o, stream: stream, start: time.Now()}, nil
}

func (o *OpenAIProvider) HealthCheck(ctx context.Context) (*contract.HealthCheckResult, error) {
	start := time.Now()
	_, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.config.ModelName),
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(8),
		Messages: []openai.ChatCompletionMessageParamUnion{
			userMessage(healthPrompt),
		},
	})
	return healthResult(start, err), err
}

func (o *OpenAIProvider) LastUsageRecord() contract.UsageRecord {
	return o.usage.lastUsageRecord()
}

func (o *OpenAIProvider) params(req contract.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, systemMessage(req.System))
	}
	for _, turn := range req.History {
		if turn.Role == contract.RoleAssistant {
			messages = append(messages, assistantMessage(turn.Text))
			continue
		}
		messages = append(messages, userMessage(turn.Text))
	}
	messages = append(messages, userMessage(req.Message))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.config.ModelName),
		Temperature: openai.Float(o.config.Temperature),
		Messages:    messages,
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}
	return params
}

func (o *OpenAIProvider) record(start time.Time) contract.UsageRecord {
	return contract.UsageRecord{
		Provider: o.name,
		Model:    o.config.ModelName,
		Latency:  time.Since(start),
		Feature:  "chat",
	}
}

type openAIStream struct {
	provider *OpenAIProvider
	stream   *ssestream.Stream[openai.ChatCompletionChunk]
	start    time.Time
	current  string
	usage    openai.CompletionUsage
	done     bool
}

func (s *openAIStream) Next() bool {
	if s.done {
		return false
	}
	for s.stream.Next() {
		chunk := s.stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			s.usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			s.current = text
			return true
		}
	}
	s.finish()
	return false
}

func (s *openAIStream) Current() string { return s.current }

func (s *openAIStream) Err() error { return s.stream.Err() }

func (s *openAIStream) Close() error {
	s.finish()
	return s.stream.Close()
}

func (s *openAIStream) finish() {
	if s.done {
		return
	}
	s.done = true
	s.current = ""
	record := s.provider.record(s.start)
	if err := s.stream.Err(); err != nil {
		s.provider.usage.failure(record, err)
		return
	}
	record.InputTokens = int(s.usage.PromptTokens)
	record.OutputTokens = int(s.usage.CompletionTokens)
	record.TotalTokens = int(s.usage.TotalTokens)
	s.provider.usage.success(s.provider.config, record)
}

func userMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}

func systemMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}

func assistantMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}
