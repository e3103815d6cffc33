package diag

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tileworld/internal/game"
	"tileworld/internal/render"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) game.Diagnostics {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var d game.Diagnostics
	require.NoError(t, conn.ReadJSON(&d))
	return d
}

func TestHubBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(game.Diagnostics{
		Session: "s1", Scene: "town", State: "running", FPS: 59.5,
		Counts: render.Counts{Background: 100, ItemCells: 12, Actors: 1},
	})

	d := read(t, conn)
	assert.Equal(t, "s1", d.Session)
	assert.Equal(t, "town", d.Scene)
	assert.InDelta(t, 59.5, d.FPS, 0.001)
	assert.Equal(t, 12, d.Counts.ItemCells)
}

func TestHubReplaysLatest(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	hub.Publish(game.Diagnostics{Session: "b", Tick: 1})
	hub.Publish(game.Diagnostics{Session: "a", Tick: 7})
	hub.Publish(game.Diagnostics{Session: "b", Tick: 2})
	hub.Publish(game.Diagnostics{Session: "gone", Tick: 3})
	hub.Forget("gone")

	conn := dial(t, srv)
	first := read(t, conn)
	second := read(t, conn)
	assert.Equal(t, "a", first.Session)
	assert.Equal(t, uint64(7), first.Tick)
	assert.Equal(t, "b", second.Session)
	assert.Equal(t, uint64(2), second.Tick)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)

	// publishing with nobody listening is fine
	hub.Publish(game.Diagnostics{Session: "s1"})
}

func TestHubForgetAnnouncesStop(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(game.Diagnostics{Session: "s1", State: "running"})
	assert.Equal(t, "running", read(t, conn).State)

	hub.Forget("s1")
	hub.Forget("s1")
	d := read(t, conn)
	assert.Equal(t, "s1", d.Session)
	assert.Equal(t, game.StateStopped.String(), d.State)
}
