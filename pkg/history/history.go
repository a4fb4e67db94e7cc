// Package history keeps a short, per-device ring buffer of recently executed
// commands for the History command and CLI inspection. It uses a thin Redis
// client wrapper (one struct holding a *redis.Client) when a Redis address
// is configured, and falls back to an in-process ring buffer otherwise so
// the daemon never depends on Redis being present. Recent returns entries
// oldest first in both implementations.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Entry is one recorded command invocation.
type Entry struct {
	Command   string    `json:"command"`
	At        time.Time `json:"at"`
	Succeeded bool      `json:"succeeded"`
}

// Store records and retrieves recent command history per device host.
type Store interface {
	Record(ctx context.Context, host string, entry Entry) error
	Recent(ctx context.Context, host string, limit int) ([]Entry, error)
	Close() error
}

const defaultCapacity = 50

// MemoryStore is a process-local ring buffer per host, used when no Redis
// address is configured. It never fails.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	byHost   map[string][]Entry
}

// NewMemoryStore creates an in-memory Store keeping up to capacity entries
// per device. capacity <= 0 uses defaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{capacity: capacity, byHost: make(map[string][]Entry)}
}

func (m *MemoryStore) Record(ctx context.Context, host string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := append(m.byHost[host], entry)
	if len(entries) > m.capacity {
		entries = entries[len(entries)-m.capacity:]
	}
	m.byHost[host] = entries
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, host string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.byHost[host]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]Entry, limit)
	copy(out, entries[len(entries)-limit:])
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// RedisStore keeps each host's history in a Redis list (LPUSH + LTRIM),
// the same key-per-entity, one-client-per-store shape the rest of the
// codebase's Redis clients use.
type RedisStore struct {
	client   *redis.Client
	capacity int64
}

// NewRedisStore creates a RedisStore talking to addr. capacity <= 0 uses
// defaultCapacity. Connectivity is not verified until the first call.
func NewRedisStore(addr string, capacity int) *RedisStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		capacity: int64(capacity),
	}
}

// Ping verifies the Redis connection is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func historyKey(host string) string {
	return fmt.Sprintf("devbridge:history:%s", host)
}

func (r *RedisStore) Record(ctx context.Context, host string, entry Entry) error {
	key := historyKey(host)
	encoded := fmt.Sprintf("%d|%t|%s", entry.At.UnixNano(), entry.Succeeded, entry.Command)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, encoded)
	pipe.LTrim(ctx, key, 0, r.capacity-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording history for %s: %w", host, err)
	}
	return nil
}

func (r *RedisStore) Recent(ctx context.Context, host string, limit int) ([]Entry, error) {
	key := historyKey(host)
	stop := r.capacity - 1
	if limit > 0 && int64(limit) < r.capacity {
		stop = int64(limit) - 1
	}
	raw, err := r.client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", host, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, line := range raw {
		entry, ok := decodeEntry(line)
		if ok {
			entries = append(entries, entry)
		}
	}
	// LPUSH stores newest first; reverse to match MemoryStore's oldest-first order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func decodeEntry(line string) (Entry, bool) {
	var nanos int64
	var succeeded bool
	var command string
	n, err := fmt.Sscanf(line, "%d|%t|", &nanos, &succeeded)
	if err != nil || n != 2 {
		return Entry{}, false
	}
	prefix := fmt.Sprintf("%d|%t|", nanos, succeeded)
	if len(line) >= len(prefix) {
		command = line[len(prefix):]
	}
	return Entry{Command: command, At: time.Unix(0, nanos), Succeeded: succeeded}, true
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
