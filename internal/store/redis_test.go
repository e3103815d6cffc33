package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tileworld/internal/game"
	"tileworld/internal/maps"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test", nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func sampleRoom() *maps.Room {
	it := maps.PlacedItem{ID: 1, X: []int{2, 3}, Y: []int{4}}
	it.EnsureAnim()
	return &maps.Room{
		SceneID: "town", Name: "Town", Width: 8, Height: 6,
		Spawn:   maps.Cell{X: 1, Y: 1},
		Items:   []maps.PlacedItem{it},
		Portals: []maps.Portal{{X: 7, Y: 5, TargetScene: "forest", TargetX: 0, TargetY: 0}},
	}
}

type countingLoader struct {
	rooms map[string]*maps.Room
	calls int
}

func (l *countingLoader) Load(_ context.Context, id string) (*maps.Room, error) {
	l.calls++
	r, ok := l.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, maps.ErrSceneNotFound)
	}
	return r.Clone(), nil
}

func TestPingAndWait(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.WaitForConnection(ctx, 3, time.Millisecond))
}

func TestWaitForConnectionGivesUp(t *testing.T) {
	s, mr := setupTestStore(t)
	mr.Close()

	err := s.WaitForConnection(context.Background(), 2, time.Millisecond)
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestSceneRoundTrip(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveScene(ctx, sampleRoom()))
	assert.True(t, mr.Exists("test:scene:town"))

	got, err := s.Load(ctx, "town")
	require.NoError(t, err)
	assert.Equal(t, "Town", got.Name)
	assert.Equal(t, 8, got.Width)
	require.Len(t, got.Items, 1)
	assert.Equal(t, []int{2, 3}, got.Items[0].X)
	assert.Equal(t, "forest", got.Portals[0].TargetScene)

	_, err = s.Load(ctx, "nowhere")
	assert.ErrorIs(t, err, maps.ErrSceneNotFound)
}

func TestCachedLoaderReadsThrough(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()
	fallback := &countingLoader{rooms: map[string]*maps.Room{"town": sampleRoom()}}
	l := NewCachedLoader(s, fallback)

	room, err := l.Load(ctx, "town")
	require.NoError(t, err)
	assert.Equal(t, "town", room.SceneID)
	assert.Equal(t, 1, fallback.calls)
	assert.True(t, mr.Exists("test:scene:town"))

	_, err = l.Load(ctx, "town")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls, "second load is served from redis")

	_, err = l.Load(ctx, "cave")
	assert.ErrorIs(t, err, maps.ErrSceneNotFound)
}

func TestSessionState(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()
	sess := s.Session("p1")

	_, err := sess.Authoritative(ctx)
	assert.ErrorIs(t, err, game.ErrNoState)

	st := game.SessionState{SceneID: "town", Player: maps.Cell{X: 3, Y: 2}, Clock: 26 * time.Hour}
	require.NoError(t, sess.Save(ctx, st))
	assert.Equal(t, SessionTTL, mr.TTL("test:session:p1"))

	got, err := sess.Authoritative(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	require.NoError(t, sess.Delete(ctx))
	_, err = sess.Authoritative(ctx)
	assert.ErrorIs(t, err, game.ErrNoState)
}

func TestSessionCorrupt(t *testing.T) {
	s, mr := setupTestStore(t)
	require.NoError(t, mr.Set("test:session:p2", "{not json"))

	_, err := s.Session("p2").Authoritative(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, game.ErrNoState)
}
