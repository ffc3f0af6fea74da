package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps checkpoints as string values keyed by prefix + path. Run
// directories are virtual: Remove and Find scan the key space.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps checkpoints until removed.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Conn dials redis and checks it answers PING.
func Conn(ctx context.Context, addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: timeout,
	})
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

func (s *RedisStore) key(p string) string {
	return s.prefix + filepath.ToSlash(filepath.Clean(p))
}

func (s *RedisStore) Save(ctx context.Context, p string, v any) error {
	if p == "" {
		return errors.New("checkpoint path is empty")
	}
	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(p), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, p string, v any) error {
	data, err := s.client.Get(ctx, s.key(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return fmt.Errorf("redis get checkpoint: %w", err)
	}
	return unmarshal(p, data, v)
}

func (s *RedisStore) Remove(ctx context.Context, dir string) error {
	if dir == "" || dir == "." {
		return fmt.Errorf("refusing to remove %q", dir)
	}
	keys, err := s.scan(ctx, s.key(dir)+"/*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete run: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, root string) ([]string, error) {
	keys, err := s.scan(ctx, s.key(root)+"/*/"+RunFile)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		p := filepath.FromSlash(strings.TrimPrefix(k, s.prefix))
		// the glob also matches deeper keys; keep direct children only
		if path.Dir(path.Dir(filepath.ToSlash(p))) != filepath.ToSlash(filepath.Clean(root)) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// EnsureDir is a no-op: redis has no directories.
func (s *RedisStore) EnsureDir(context.Context, string) error { return nil }

func (s *RedisStore) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", match, err)
	}
	return keys, nil
}
