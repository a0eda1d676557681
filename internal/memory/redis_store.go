package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

// maxTxRetries bounds optimistic retries when another writer touches the
// same session between read and write.
const maxTxRetries = 5

// RedisStore implements Store interface using Redis. Each session is one
// JSON document whose TTL is refreshed on every write, so expiry is native.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (r *RedisStore) CreateSession(ctx context.Context, sessionID, customerID string) (*SessionData, error) {
	session := newSession(sessionID, customerID, r.now())
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.sessionKey(sessionID), data, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s already exists", sessionID)
	}
	return session, nil
}

func (r *RedisStore) LoadSession(ctx context.Context, sessionID string) (*SessionData, error) {
	data, err := r.client.Get(ctx, r.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}
	return decodeSession(data)
}

func decodeSession(data []byte) (*SessionData, error) {
	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &session, nil
}

func (r *RedisStore) AppendMessages(ctx context.Context, sessionID string, msgs ...models.Message) error {
	return r.update(ctx, sessionID, func(s *SessionData) {
		s.append(r.now(), msgs)
	})
}

// update is a WATCH/MULTI read-modify-write of one session document.
func (r *RedisStore) update(ctx context.Context, sessionID string, fn func(*SessionData)) error {
	key := r.sessionKey(sessionID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load session from Redis: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		fn(session)

		out, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("failed to save session to Redis: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to save session %s: concurrent writers", sessionID)
}

func (r *RedisStore) GetMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	session, err := r.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (r *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *RedisStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists > 0, nil
}

// UpdateActivity updates the last activity timestamp and refreshes TTL
func (r *RedisStore) UpdateActivity(ctx context.Context, sessionID string) error {
	return r.update(ctx, sessionID, func(s *SessionData) {
		s.Metadata.LastActivity = r.now()
	})
}

// Sweep is a no-op: Redis expires keys itself.
func (r *RedisStore) Sweep(context.Context) (int, error) { return 0, nil }

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping is the health check of the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
