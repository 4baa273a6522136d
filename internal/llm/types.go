package llm

import "bioneuro/backend/internal/llm/contract"

type Provider = contract.Provider

type ProviderConfig = contract.ProviderConfig

type ChatRequest = contract.ChatRequest

type ChunkStream = contract.ChunkStream

type Turn = contract.Turn

type Role = contract.Role

type HealthCheckResult = contract.HealthCheckResult

type UsageStats = contract.UsageStats

type UsageRecord = contract.UsageRecord
