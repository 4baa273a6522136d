package providers

import (
	"context"
	"errors"
	"time"

	cohere "github.com/cohere-ai/cohere-go"

	"bioneuro/backend/internal/llm/contract"
)

var errCohereClient = errors.New("cohere client not initialized")

// CohereProvider uses the completion endpoint. The client has no streaming
// call, so StreamChat replays the whole reply as a single fragment.
type CohereProvider struct {
	client *cohere.Client
	config *contract.ProviderConfig
	usage  usageTracker
}

func NewCohereProvider(config *contract.ProviderConfig) *CohereProvider {
	client, _ := cohere.CreateClient(config.APIKey)
	return &CohereProvider{
		client: client,
		config: config,
	}
}

func (c *CohereProvider) Name() string { return "cohere" }

func (c *CohereProvider) GetConfig() *contract.ProviderConfig { return c.config }

func (c *CohereProvider) GetUsage(ctx context.Context) (*contract.UsageStats, error) {
	return c.usage.snapshot(), nil
}

func (c *CohereProvider) Chat(ctx context.Context, req contract.ChatRequest) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, flattenPrompt(req), uint(c.config.MaxTokens), c.config.Temperature)
	record := contract.UsageRecord{
		Provider: "cohere",
		Model:    c.config.ModelName,
		Latency:  time.Since(start),
		Feature:  "chat",
	}
	if err != nil {
		c.usage.failure(record, err)
		return "", err
	}
	c.usage.success(c.config, record)
	return text, nil
}

func (c *CohereProvider) StreamChat(ctx context.Context, req contract.ChatRequest) (contract.ChunkStream, error) {
	text, err := c.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSliceStream(text), nil
}

func (c *CohereProvider) HealthCheck(ctx context.Context) (*contract.HealthCheckResult, error) {
	start := time.Now()
	_, err := c.generate(ctx, healthPrompt, 10, 0)
	return healthResult(start, err), err
}

func (c *CohereProvider) LastUsageRecord() contract.UsageRecord {
	return c.usage.lastUsageRecord()
}

// generate runs the blocking client call off the caller's goroutine so a
// cancelled ctx releases the caller.
func (c *CohereProvider) generate(ctx context.Context, prompt string, maxTokens uint, temperature float64) (string, error) {
	if c.client == nil {
		return "", errCohereClient
	}
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		opts := cohere.GenerateOptions{
			Model:       c.config.ModelName,
			Prompt:      prompt,
			Temperature: &temperature,
		}
		if maxTokens > 0 {
			opts.MaxTokens = &maxTokens
		}
		resp, err := c.client.Generate(opts)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		if resp == nil || len(resp.Generations) == 0 {
			done <- outcome{}
			return
		}
		done <- outcome{text: resp.Generations[0].Text}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-done:
		return out.text, out.err
	}
}
