package llm

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bioneuro/backend/internal/db"
)

// UsageStore writes usage records to llm_usage_logs.
type UsageStore struct {
	DB *db.Store
}

func NewUsageStore(store *db.Store) *UsageStore {
	return &UsageStore{DB: store}
}

func (s *UsageStore) RecordUsage(ctx context.Context, record UsageRecord, costIn, costOut float64) error {
	return s.DB.WithConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO llm_usage_logs (provider, model, input_tokens, output_tokens, total_tokens, input_cost, output_cost, total_cost, response_time_ms, success, error_message, feature_used, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			record.Provider, record.Model, record.InputTokens, record.OutputTokens, record.TotalTokens,
			record.InputCost(costIn), record.OutputCost(costOut), record.TotalCost(costIn, costOut),
			record.Latency.Milliseconds(), record.Success, record.ErrorMessage, record.Feature, time.Now().UTC())
		return err
	})
}
