package consistency

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	inconsistencyListKey = "asso:inconsistencies"      // newest-first list of JSON records
	inconsistencyChannel = "asso:events:inconsistency" // Pub/Sub channel for new records
	inconsistencyTTL     = 30 * 24 * time.Hour         // list expiry after the last report
	defaultReportCap     = 1000
)

// Inconsistency records a companion write that failed after the primary
// mutation of an operation succeeded.
type Inconsistency struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityId"`
	Error     string    `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
	At        time.Time `json:"at"`
}

// Reporter persists inconsistencies so they can be listed and repaired.
type Reporter interface {
	Report(ctx context.Context, inc Inconsistency) error
	Recent(ctx context.Context, n int) ([]Inconsistency, error)
}

func stamp(inc *Inconsistency) {
	if inc.ID == "" {
		inc.ID = uuid.New().String()
	}
	if inc.At.IsZero() {
		inc.At = time.Now().UTC()
	}
}

// MemoryReporter keeps the most recent records in process memory.
type MemoryReporter struct {
	mu    sync.Mutex
	cap   int
	items []Inconsistency // oldest first
}

func NewMemoryReporter(capacity int) *MemoryReporter {
	if capacity <= 0 {
		capacity = defaultReportCap
	}
	return &MemoryReporter{cap: capacity}
}

func (m *MemoryReporter) Report(_ context.Context, inc Inconsistency) error {
	stamp(&inc)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, inc)
	if over := len(m.items) - m.cap; over > 0 {
		m.items = append([]Inconsistency(nil), m.items[over:]...)
	}
	return nil
}

func (m *MemoryReporter) Recent(_ context.Context, n int) ([]Inconsistency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.items) {
		n = len(m.items)
	}
	out := make([]Inconsistency, 0, n)
	for i := len(m.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

// RedisReporter pushes records onto a capped redis list and announces them
// on a Pub/Sub channel.
type RedisReporter struct {
	client *redis.Client
	cap    int64
}

func NewRedisReporter(client *redis.Client, capacity int) *RedisReporter {
	if capacity <= 0 {
		capacity = defaultReportCap
	}
	return &RedisReporter{client: client, cap: int64(capacity)}
}

func (r *RedisReporter) Report(ctx context.Context, inc Inconsistency) error {
	stamp(&inc)
	data, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("failed to marshal inconsistency: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, inconsistencyListKey, data)
	pipe.LTrim(ctx, inconsistencyListKey, 0, r.cap-1)
	pipe.Expire(ctx, inconsistencyListKey, inconsistencyTTL)
	pipe.Publish(ctx, inconsistencyChannel, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to report inconsistency: %w", err)
	}
	return nil
}

func (r *RedisReporter) Recent(ctx context.Context, n int) ([]Inconsistency, error) {
	stop := int64(n) - 1
	if n <= 0 {
		stop = -1
	}
	raw, err := r.client.LRange(ctx, inconsistencyListKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list inconsistencies: %w", err)
	}

	out := make([]Inconsistency, 0, len(raw))
	for _, item := range raw {
		var inc Inconsistency
		if err := json.Unmarshal([]byte(item), &inc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inconsistency: %w", err)
		}
		out = append(out, inc)
	}
	return out, nil
}

// Subscribe returns a channel of records published after the call. The
// channel closes when ctx is done.
func (r *RedisReporter) Subscribe(ctx context.Context) (<-chan Inconsistency, error) {
	sub := r.client.Subscribe(ctx, inconsistencyChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Inconsistency)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var inc Inconsistency
				if err := json.Unmarshal([]byte(msg.Payload), &inc); err != nil {
					continue
				}
				select {
				case out <- inc:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
