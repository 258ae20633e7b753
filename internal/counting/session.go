package counting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionIndexKey   = "count:sessions"
	sessionKeyPrefix  = "count:sess:"
	defaultSessionTTL = 8 * time.Hour
)

// SessionStore keeps in-progress count sheets in Redis. Sessions carry a TTL
// so abandoned sheets disappear on their own; committing an adjustment or an
// explicit discard removes them immediately.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a SessionStore. A non-positive ttl falls back to the
// default of eight hours.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func metaKey(id string) string  { return sessionKeyPrefix + id + ":meta" }
func itemsKey(id string) string { return sessionKeyPrefix + id + ":items" }

// Start opens a counting session for a warehouse and returns its descriptor.
func (s *SessionStore) Start(ctx context.Context, warehouse string) (Session, error) {
	session := Session{
		ID:        uuid.NewString(),
		Warehouse: warehouse,
		StartedAt: time.Now().UTC(),
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, metaKey(session.ID),
		"warehouse", session.Warehouse,
		"started_at", session.StartedAt.Format(time.RFC3339),
	)
	pipe.Expire(ctx, metaKey(session.ID), s.ttl)
	pipe.ZAdd(ctx, sessionIndexKey, redis.Z{
		Score:  float64(session.StartedAt.Unix()),
		Member: session.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return Session{}, fmt.Errorf("counting: start session: %w", err)
	}
	return session, nil
}

// Get loads a session's descriptor.
func (s *SessionStore) Get(ctx context.Context, id string) (Session, error) {
	fields, err := s.client.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("counting: load session: %w", err)
	}
	if len(fields) == 0 {
		return Session{}, ErrSessionNotFound
	}
	startedAt, _ := time.Parse(time.RFC3339, fields["started_at"])
	return Session{ID: id, Warehouse: fields["warehouse"], StartedAt: startedAt}, nil
}

// Record stores one counted line, overwriting any earlier count for the same
// item, and refreshes the session TTL.
func (s *SessionStore) Record(ctx context.Context, id string, rec CountRecord) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("counting: encode record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, itemsKey(id), rec.ItemName, payload)
	pipe.Expire(ctx, itemsKey(id), s.ttl)
	pipe.Expire(ctx, metaKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("counting: record count: %w", err)
	}
	return nil
}

// Records returns every counted line of the session.
func (s *SessionStore) Records(ctx context.Context, id string) ([]CountRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	raw, err := s.client.HGetAll(ctx, itemsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("counting: load records: %w", err)
	}
	records := make([]CountRecord, 0, len(raw))
	for _, payload := range raw {
		var rec CountRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("counting: decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Discard drops a session and its records.
func (s *SessionStore) Discard(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, metaKey(id), itemsKey(id))
	pipe.ZRem(ctx, sessionIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("counting: discard session: %w", err)
	}
	return nil
}

// Sweep removes index entries whose session keys have already expired and
// returns how many were cleaned up. Run periodically by the worker.
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	ids, err := s.client.ZRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("counting: sweep sessions: %w", err)
	}
	removed := 0
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, metaKey(id)).Result()
		if err != nil {
			return removed, fmt.Errorf("counting: sweep sessions: %w", err)
		}
		if exists == 0 {
			if err := s.client.ZRem(ctx, sessionIndexKey, id).Err(); err != nil {
				return removed, fmt.Errorf("counting: sweep sessions: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
