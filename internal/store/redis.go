// Package store keeps scenes and per-player session state in Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tileworld/internal/game"
	"tileworld/internal/logger"
	"tileworld/internal/maps"
)

// SessionTTL is how long an idle player's state is kept.
const SessionTTL = 24 * time.Hour

// Store is the Redis-backed scene and session store.
type Store struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

// New connects to the Redis server at addr. Keys are namespaced by prefix.
func New(addr, prefix string, log logrus.FieldLogger) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), prefix, log)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	if prefix == "" {
		prefix = "tileworld"
	}
	return &Store{client: client, prefix: prefix, log: log.WithField("component", "store")}
}

func (s *Store) sceneKey(id string) string   { return s.prefix + ":scene:" + id }
func (s *Store) sessionKey(id string) string { return s.prefix + ":session:" + id }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		s.log.WithError(err).Error("Failed to close Redis connection")
		return err
	}
	s.log.Info("Redis connection closed")
	return nil
}

// WaitForConnection pings until Redis answers, giving up after attempts
// tries spaced by delay.
func (s *Store) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		err := s.Ping(ctx)
		if err == nil {
			s.log.Info("Redis connection established")
			return nil
		}
		s.log.WithError(err).WithField("attempt", i+1).Debug("Redis not ready yet")

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

// SaveScene stores a room under its scene id.
func (s *Store) SaveScene(ctx context.Context, room *maps.Room) error {
	data, err := maps.MarshalRoom(room)
	if err != nil {
		return fmt.Errorf("marshal scene %q: %w", room.SceneID, err)
	}
	if err := s.client.Set(ctx, s.sceneKey(room.SceneID), data, 0).Err(); err != nil {
		return fmt.Errorf("save scene %q: %w", room.SceneID, err)
	}
	return nil
}

// Load implements game.SceneLoader. Unknown ids wrap maps.ErrSceneNotFound.
func (s *Store) Load(ctx context.Context, id string) (*maps.Room, error) {
	data, err := s.client.Get(ctx, s.sceneKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("scene %q: %w", id, maps.ErrSceneNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", id, err)
	}
	room, err := maps.ParseRoom(id, data)
	if err != nil {
		return nil, fmt.Errorf("parse scene %q: %w", id, err)
	}
	return room, nil
}

// Session returns the game.Session of one player.
func (s *Store) Session(id string) *Session {
	return &Session{store: s, id: id}
}

// CachedLoader serves scenes from the store and falls back to another
// loader on a miss, writing what it finds back.
type CachedLoader struct {
	store    *Store
	fallback game.SceneLoader
}

// NewCachedLoader returns a loader reading through store to fallback.
func NewCachedLoader(store *Store, fallback game.SceneLoader) *CachedLoader {
	return &CachedLoader{store: store, fallback: fallback}
}

// Load implements game.SceneLoader.
func (l *CachedLoader) Load(ctx context.Context, id string) (*maps.Room, error) {
	room, err := l.store.Load(ctx, id)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, maps.ErrSceneNotFound) {
		l.store.log.WithError(err).WithField("scene", id).Warn("Scene store unavailable, reading through")
	}

	room, err = l.fallback.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.store.SaveScene(ctx, room); err != nil {
		l.store.log.WithError(err).WithField("scene", id).Warn("Could not cache scene")
	}
	return room, nil
}

// Session is the Redis copy of one player's authoritative state.
type Session struct {
	store *Store
	id    string
}

var _ game.Session = (*Session)(nil)

type sessionRecord struct {
	game.SessionState
	UpdatedAt time.Time `json:"updated_at"`
}

// Authoritative returns the stored state, or game.ErrNoState.
func (s *Session) Authoritative(ctx context.Context) (game.SessionState, error) {
	data, err := s.store.client.Get(ctx, s.store.sessionKey(s.id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.SessionState{}, game.ErrNoState
	}
	if err != nil {
		return game.SessionState{}, fmt.Errorf("load session %q: %w", s.id, err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return game.SessionState{}, fmt.Errorf("unmarshal session %q: %w", s.id, err)
	}
	return rec.SessionState, nil
}

// Save writes st and refreshes the TTL.
func (s *Session) Save(ctx context.Context, st game.SessionState) error {
	data, err := json.Marshal(sessionRecord{SessionState: st, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal session %q: %w", s.id, err)
	}
	if err := s.store.client.Set(ctx, s.store.sessionKey(s.id), data, SessionTTL).Err(); err != nil {
		return fmt.Errorf("save session %q: %w", s.id, err)
	}
	return nil
}

// Delete removes the stored state.
func (s *Session) Delete(ctx context.Context) error {
	if err := s.store.client.Del(ctx, s.store.sessionKey(s.id)).Err(); err != nil {
		return fmt.Errorf("delete session %q: %w", s.id, err)
	}
	return nil
}
