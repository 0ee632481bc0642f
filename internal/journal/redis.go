package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to event names to build hash keys.
const DefaultPrefix = "journal:"

// RedisStore keeps one hash per event with the fields args, version and at.
type RedisStore struct {
	mu      sync.Mutex
	client  *redis.Client
	options *redis.Options
	prefix  string
	retired []*redis.Client
	logger  hclog.Logger
}

// NewRedisStore returns a new RedisStore. An empty prefix means DefaultPrefix.
func NewRedisStore(opts *redis.Options, prefix string, logger hclog.Logger) *RedisStore {
	if logger == nil {
		logger = hclog.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{
		client:  redis.NewClient(opts),
		options: opts,
		prefix:  prefix,
		logger:  logger,
	}
}

// ensureConnection pings Redis and reconnects if needed. A ping that fails
// because ctx is done is ignored. Replaced clients may still be in use by
// concurrent calls, so they are only closed by Close.
func (s *RedisStore) ensureConnection(ctx context.Context) *redis.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.client.Ping(ctx).Err()
	if err == nil || ctx.Err() != nil {
		return s.client
	}
	s.logger.Warn("reconnecting to redis", "addr", s.options.Addr, "error", err)
	s.retired = append(s.retired, s.client)
	s.client = redis.NewClient(s.options)
	return s.client
}

func (s *RedisStore) key(event string) string { return s.prefix + event }

// Record stores args as the latest emission of event and returns the new
// version. A positive ttl expires the entry.
func (s *RedisStore) Record(ctx context.Context, event string, args []any, ttl time.Duration) (int64, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("encode args of %q: %w", event, err)
	}
	client := s.ensureConnection(ctx)

	key := s.key(event)
	pipe := client.TxPipeline()
	ver := pipe.HIncrBy(ctx, key, "version", 1)
	pipe.HSet(ctx, key, "args", data, "at", time.Now().UTC().Format(time.RFC3339Nano))
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record %q: %w", event, err)
	}
	s.logger.Trace("recorded", "event", event, "version", ver.Val())
	return ver.Val(), nil
}

// Last returns the latest emission of event, or nil if none is recorded.
func (s *RedisStore) Last(ctx context.Context, event string) (*Entry, error) {
	client := s.ensureConnection(ctx)
	res, err := client.HGetAll(ctx, s.key(event)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", event, err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	entry := &Entry{Event: event}
	if raw := res["args"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Args); err != nil {
			return nil, fmt.Errorf("decode args of %q: %w", event, err)
		}
	}
	if entry.Version, err = parseInt(res["version"]); err != nil {
		return nil, fmt.Errorf("decode version of %q: %w", event, err)
	}
	if at := res["at"]; at != "" {
		if entry.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("decode time of %q: %w", event, err)
		}
	}
	return entry, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Delete forgets event.
func (s *RedisStore) Delete(ctx context.Context, event string) error {
	client := s.ensureConnection(ctx)
	return client.Del(ctx, s.key(event)).Err()
}

// Close closes the Redis connections.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result error
	for _, client := range append(s.retired, s.client) {
		if err := client.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.retired = nil
	return result
}
