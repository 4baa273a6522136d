package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"bioneuro/backend/internal/llm/contract"
)

const claudeDefaultMaxTokens = 1024

type ClaudeProvider struct {
	client anthropic.Client
	config *contract.ProviderConfig
	usage  usageTracker
}

func NewClaudeProvider(config *contract.ProviderConfig) *ClaudeProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &ClaudeProvider{
		client: anthropic.NewClient(opts...),
		config: config,
	}
}

func (c *ClaudeProvider) Name() string { return "claude" }

func (c *ClaudeProvider) GetConfig() *contract.ProviderConfig { return c.config }

func (c *ClaudeProvider) GetUsage(ctx context.Context) (*contract.UsageStats, error) {
	return c.usage.snapshot(), nil
}

func (c *ClaudeProvider) Chat(ctx context.Context, req contract.ChatRequest) (string, error) {
	start := time.Now()
	resp, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		c.usage.failure(c.record(start), err)
		return "", err
	}
	record := c.record(start)
	record.InputTokens = int(resp.Usage.InputTokens)
	record.OutputTokens = int(resp.Usage.OutputTokens)
	record.TotalTokens = record.InputTokens + record.OutputTokens
	c.usage.success(c.config, record)

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (c *ClaudeProvider) StreamChat(ctx context.Context, req contract.ChatRequest) (contract.ChunkStream, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(req))
	if stream == nil {
		return nil, errors.New("claude: stream not created")
	}
	return &claudeStream{provider: c, stream: stream, start: time.Now()}, nil
}

func (c *ClaudeProvider) HealthCheck(ctx context.Context) (*contract.HealthCheckResult, error) {
	start := time.Now()
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.ModelName),
		MaxTokens:   int64(32),
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(healthPrompt)),
		},
	})
	return healthResult(start, err), err
}

func (c *ClaudeProvider) LastUsageRecord() contract.UsageRecord {
	return c.usage.lastUsageRecord()
}

func (c *ClaudeProvider) params(req contract.ChatRequest) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Role == contract.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Text)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)))

	maxTokens := int64(c.config.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.ModelName),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(c.config.Temperature),
		Messages:    messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

func (c *ClaudeProvider) record(start time.Time) contract.UsageRecord {
	return contract.UsageRecord{
		Provider: "claude",
		Model:    c.config.ModelName,
		Latency:  time.Since(start),
		Feature:  "chat",
	}
}

type claudeStream struct {
	provider     *ClaudeProvider
	stream       *ssestream.Stream[anthropic.MessageStreamEventUnion]
	start        time.Time
	current      string
	inputTokens  int64
	outputTokens int64
	done         bool
}

func (s *claudeStream) Next() bool {
	if s.done {
		return false
	}
	for s.stream.Next() {
		event := s.stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			s.inputTokens = ev.Message.Usage.InputTokens
		case anthropic.MessageDeltaEvent:
			s.outputTokens = ev.Usage.OutputTokens
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				s.current = delta.Text
				return true
			}
		}
	}
	s.finish()
	return false
}

func (s *claudeStream) Current() string { return s.current }

func (s *claudeStream) Err() error { return s.stream.Err() }

func (s *claudeStream) Close() error {
	s.finish()
	return s.stream.Close()
}

func (s *claudeStream) finish() {
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
	record.InputTokens = int(s.inputTokens)
	record.OutputTokens = int(s.outputTokens)
	record.TotalTokens = record.InputTokens + record.OutputTokens
	s.provider.usage.success(s.provider.config, record)
}
