package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hinosemi/internal/index"
)

// RedisOptions configures the Redis publisher.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisPublisher stores the latest snapshot and series under prefixed keys and announces
// each update on a pub/sub channel.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "hinosemi"
	}
	return &RedisPublisher{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

// Name implements Publisher.
func (r *RedisPublisher) Name() string { return "redis" }

// SnapshotKey is where the latest snapshot of key is stored.
func (r *RedisPublisher) SnapshotKey(key string) string {
	return fmt.Sprintf("%s:%s:snapshot", r.prefix, key)
}

// SeriesKey is where the latest series of key is stored.
func (r *RedisPublisher) SeriesKey(key string) string {
	return fmt.Sprintf("%s:%s:series", r.prefix, key)
}

// Channel receives the snapshot JSON on every update.
func (r *RedisPublisher) Channel(key string) string {
	return fmt.Sprintf("%s:%s:updates", r.prefix, key)
}

type seriesPoint struct {
	Time    time.Time `json:"timestamp"`
	Percent float64   `json:"pct"`
}

// Publish implements Publisher.
func (r *RedisPublisher) Publish(ctx context.Context, rel Release) error {
	snap, err := json.Marshal(rel.Snapshot)
	if err != nil {
		return err
	}
	points := make([]seriesPoint, len(rel.Series))
	for i, p := range rel.Series {
		points[i] = seriesPoint{Time: p.Time, Percent: p.Percent}
	}
	series, err := json.Marshal(points)
	if err != nil {
		return err
	}

	key := rel.Snapshot.Key
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.SnapshotKey(key), snap, r.ttl)
		pipe.Set(ctx, r.SeriesKey(key), series, r.ttl)
		pipe.Publish(ctx, r.Channel(key), snap)
		return nil
	})
	return err
}

// Latest reads the stored snapshot for key.
func (r *RedisPublisher) Latest(ctx context.Context, key string) (index.Snapshot, error) {
	var snap index.Snapshot
	data, err := r.client.Get(ctx, r.SnapshotKey(key)).Bytes()
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}

// Close releases the connection pool.
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
