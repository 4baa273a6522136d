package providers

import (
	"strings"
	"sync"
	"time"

	"bioneuro/backend/internal/llm/contract"
)

func averageLatency(current time.Duration, new time.Duration, count int64) time.Duration {
	if count <= 1 {
		return new
	}
	return time.Duration(((current * time.Duration(count-1)) + new) / time.Duration(count))
}

// flattenPrompt renders a chat request as a single completion prompt for
// upstreams without a chat endpoint.
func flattenPrompt(req contract.ChatRequest) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(strings.TrimSpace(req.System))
		b.WriteString("\n\n")
	}
	for _, turn := range req.History {
		b.WriteString(speaker(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	b.WriteString(speaker(contract.RoleUser))
	b.WriteString(": ")
	b.WriteString(req.Message)
	b.WriteString("\n")
	b.WriteString(speaker(contract.RoleAssistant))
	b.WriteString(":")
	return b.String()
}

func speaker(role contract.Role) string {
	if role == contract.RoleAssistant {
		return "Asistente"
	}
	return "Usuario"
}

// sliceStream replays fixed fragments through the ChunkStream interface.
type sliceStream struct {
	chunks  []string
	index   int
	current string
}

func newSliceStream(chunks ...string) *sliceStream {
	return &sliceStream{chunks: chunks, index: -1}
}

func (s *sliceStream) Next() bool {
	for s.index+1 < len(s.chunks) {
		s.index++
		if s.chunks[s.index] != "" {
			s.current = s.chunks[s.index]
			return true
		}
	}
	s.current = ""
	return false
}

func (s *sliceStream) Current() string { return s.current }

func (s *sliceStream) Err() error { return nil }

func (s *sliceStream) Close() error {
	s.index = len(s.chunks)
	return nil
}

// usageTracker accumulates per-provider stats. Providers are shared across
// visitors, so every access is locked.
type usageTracker struct {
	mu         sync.Mutex
	stats      contract.UsageStats
	lastRecord contract.UsageRecord
}

func (u *usageTracker) success(config *contract.ProviderConfig, record contract.UsageRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	record.Success = true
	u.lastRecord = record
	u.stats.TotalRequests++
	u.stats.SuccessfulRequests++
	u.stats.TotalCost += record.TotalCost(config.CostPer1KInput, config.CostPer1KOutput)
	u.stats.AverageLatency = averageLatency(u.stats.AverageLatency, record.Latency, u.stats.SuccessfulRequests)
}

func (u *usageTracker) failure(record contract.UsageRecord, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	record.Success = false
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	u.lastRecord = record
	u.stats.TotalRequests++
	u.stats.FailedRequests++
}

func (u *usageTracker) snapshot() *contract.UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	stats := u.stats
	return &stats
}

func (u *usageTracker) lastUsageRecord() contract.UsageRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastRecord
}

func healthResult(start time.Time, err error) *contract.HealthCheckResult {
	status := "ok"
	msg := ""
	if err != nil {
		status = "error"
		msg = err.Error()
	}
	return &contract.HealthCheckResult{
		Status:       status,
		Latency:      time.Since(start),
		ErrorMessage: msg,
		Timestamp:    time.Now().UTC(),
	}
}

const healthPrompt = "Respond with: OK"
