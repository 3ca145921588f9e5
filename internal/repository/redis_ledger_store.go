package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kmssa/attendance-register/internal/models"
)

// RedisLedgerStore keeps the serialized ledger under a single Redis key.
type RedisLedgerStore struct {
	client *redis.Client
	key    string
}

// NewRedisLedgerStore constructs the store around an existing client.
func NewRedisLedgerStore(client *redis.Client, key string) *RedisLedgerStore {
	if key == "" {
		key = "attendanceRecords"
	}
	return &RedisLedgerStore{client: client, key: key}
}

// Load fetches and decodes the ledger blob, empty on first run.
func (s *RedisLedgerStore) Load(ctx context.Context) ([]models.AttendanceRecord, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []models.AttendanceRecord{}, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var records []models.AttendanceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode ledger blob: %w", err)
	}
	return records, nil
}

// Save replaces the ledger blob. The key never expires.
func (s *RedisLedgerStore) Save(ctx context.Context, records []models.AttendanceRecord) error {
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
