package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/applicant-harvester/internal/entity"
)

const statusKey = "harvester:status"

type kvClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// StatusRepoImpl echoes the latest run status into Redis so a reconnecting
// client, or a restarted process, can show it.
type StatusRepoImpl struct {
	client kvClient
	ttl    time.Duration
}

// NewStatusRepo creates a new instance of StatusRepoImpl. A zero ttl keeps the key forever.
func NewStatusRepo(client *redis.Client, ttl time.Duration) *StatusRepoImpl {
	return &StatusRepoImpl{client: client, ttl: ttl}
}

// NewClient builds a client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

// SetStatus writes the status record.
func (r *StatusRepoImpl) SetStatus(ctx context.Context, status entity.RunStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, statusKey, payload, r.ttl).Err()
}

// GetStatus reads the status record. found is false when none is stored.
func (r *StatusRepoImpl) GetStatus(ctx context.Context) (entity.RunStatus, bool, error) {
	val, err := r.client.Get(ctx, statusKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.RunStatus{}, false, nil
		}
		return entity.RunStatus{}, false, err
	}

	var status entity.RunStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return entity.RunStatus{}, false, fmt.Errorf("corrupt status record: %w", err)
	}
	return status, true, nil
}
