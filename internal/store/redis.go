package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/notjira/internal/config"
)

// RedisStore backs the document store with Redis. Each document is a hash
// whose fields hold JSON-encoded values, so HINCRBY gives atomic counter
// updates and a TxPipeline applies a multi-field delta as one unit.
// Collection membership lives in a set, and every write publishes on the
// collection's pub/sub channel; subscribers respond by re-reading the whole
// collection, which yields the full-snapshot push semantics.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis using the provided configuration.
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &RedisStore{client: client, logger: logger}
}

func docKey(collection, key string) string { return "nj:" + collection + ":" + key }
func setKey(collection string) string      { return "nj:" + collection }
func channel(collection string) string     { return "nj:" + collection + ":events" }

func (r *RedisStore) Put(ctx context.Context, collection, key string, value any) error {
	fields, err := encodeFields(value)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, docKey(collection, key))
	if len(fields) > 0 {
		pipe.HSet(ctx, docKey(collection, key), fields)
	}
	pipe.SAdd(ctx, setKey(collection), key)
	pipe.Publish(ctx, channel(collection), key)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, collection, key string, dest any) error {
	fields, err := r.client.HGetAll(ctx, docKey(collection, key)).Result()
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return ErrNotFound
	}
	return json.Unmarshal(composeDoc(fields), dest)
}

func (r *RedisStore) Merge(ctx context.Context, collection, key string, fields map[string]any) error {
	encoded := make(map[string]any, len(fields))
	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", name, err)
		}
		encoded[name] = string(raw)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, docKey(collection, key), encoded)
	pipe.SAdd(ctx, setKey(collection), key)
	pipe.Publish(ctx, channel(collection), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Increment(ctx context.Context, collection, key string, deltas map[string]int64) error {
	pipe := r.client.TxPipeline()
	for field, delta := range deltas {
		pipe.HIncrBy(ctx, docKey(collection, key), field, delta)
	}
	pipe.SAdd(ctx, setKey(collection), key)
	pipe.Publish(ctx, channel(collection), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Delete(ctx context.Context, collection, key string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, docKey(collection, key))
	pipe.SRem(ctx, setKey(collection), key)
	pipe.Publish(ctx, channel(collection), key)
	_, err := pipe.Exec(ctx)
	return err
}

type redisSubscription struct {
	ch     chan Snapshot
	pubsub *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSubscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *redisSubscription) Close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.pubsub.Close()
	})
}

func (r *RedisStore) Subscribe(ctx context.Context, collection string) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(subCtx, channel(collection))
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		ch:     make(chan Snapshot, 16),
		pubsub: pubsub,
		cancel: cancel,
	}

	go func() {
		defer close(sub.ch)
		deliver := func() {
			snap, err := r.snapshot(subCtx, collection)
			if err != nil {
				r.logger.Warn("snapshot read failed", zap.String("collection", collection), zap.Error(err))
				return
			}
			select {
			case sub.ch <- snap:
			case <-subCtx.Done():
			}
		}
		deliver()
		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return sub, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) snapshot(ctx context.Context, collection string) (Snapshot, error) {
	keys, err := r.client.SMembers(ctx, setKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(keys))
	for _, key := range keys {
		fields, err := r.client.HGetAll(ctx, docKey(collection, key)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// Key set and hash can briefly disagree between pipeline steps
			// of a concurrent delete; skip rather than emit an empty doc.
			continue
		}
		snap[key] = composeDoc(fields)
	}
	return snap, nil
}

// encodeFields flattens a document into hash fields with JSON-encoded values.
func encodeFields(value any) (map[string]any, error) {
	doc, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	out := make(map[string]any, len(fields))
	for name, raw := range fields {
		out[name] = string(raw)
	}
	return out, nil
}

// composeDoc rebuilds a JSON object from hash fields. Counter fields written
// by HINCRBY hold bare integers, which are valid JSON values already.
func composeDoc(fields map[string]string) json.RawMessage {
	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	first := true
	for name, raw := range fields {
		if !first {
			buf = append(buf, ',')
		}
		first = false
		buf = strconv.AppendQuote(buf, name)
		buf = append(buf, ':')
		buf = append(buf, raw...)
	}
	buf = append(buf, '}')
	return buf
}
