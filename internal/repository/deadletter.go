package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"alarmsync/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DeadLetter mirrors permanently failed operations into a Redis list so an
// operator can inspect or replay them out of band. The queue itself keeps
// its failed rows; this is a copy, and losing it never loses data.
type DeadLetter struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

func NewDeadLetter(client *redis.Client, key string, logger *zerolog.Logger) *DeadLetter {
	return &DeadLetter{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "deadletter").Logger(),
	}
}

// Push appends the operation to the dead-letter list.
func (d *DeadLetter) Push(ctx context.Context, op models.Operation) error {
	if d.client == nil {
		return nil
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode dead-letter operation: %w", err)
	}
	if err := d.client.LPush(ctx, d.key, data).Err(); err != nil {
		return fmt.Errorf("push dead-letter operation: %w", err)
	}
	return nil
}

// List returns up to limit most recent dead-letter entries.
func (d *DeadLetter) List(ctx context.Context, limit int64) ([]models.Operation, error) {
	if d.client == nil {
		return nil, nil
	}

	raw, err := d.client.LRange(ctx, d.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead-letter list: %w", err)
	}

	ops := make([]models.Operation, 0, len(raw))
	for _, item := range raw {
		var op models.Operation
		if err := json.Unmarshal([]byte(item), &op); err != nil {
			d.logger.Warn().Err(err).Msg("skipping malformed dead-letter entry")
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}
