package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"coursechat/models"
)

// Store keeps session history in redis lists so sessions survive process
// restarts and can be shared across instances. Each session is one list
// keyed by id, trimmed to maxHistory entries and expired after ttl.
type Store struct {
	client     *redis.Client
	maxHistory int
	ttl        time.Duration
}

func New(addr, password string, db, maxHistory int, ttl time.Duration) (*Store, error) {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Store{client: client, maxHistory: maxHistory, ttl: ttl}, nil
}

func key(id string) string { return "coursechat:session:" + id }

func (s *Store) Create(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) History(ctx context.Context, id string) ([]models.Exchange, error) {
	raw, err := s.client.LRange(ctx, key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	history := make([]models.Exchange, 0, len(raw))
	for _, item := range raw {
		var ex models.Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			return nil, fmt.Errorf("decode session %s entry: %w", id, err)
		}
		history = append(history, ex)
	}
	return history, nil
}

func (s *Store) AddExchange(ctx context.Context, id string, ex models.Exchange) error {
	payload, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("encode exchange: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key(id), payload)
	pipe.LTrim(ctx, key(id), int64(-s.maxHistory), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key(id), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session %s: %w", id, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", id, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
