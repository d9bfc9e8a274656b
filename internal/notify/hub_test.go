package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// dialPair spins up a server that hands the accepted connection to the test,
// and returns the client side plus the server side.
func dialPair(t *testing.T) (client *websocket.Conn, server *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("server side connection not accepted")
	}
	return client, server
}

func TestHub_NotifyDeliversToRegisteredConnection(t *testing.T) {
	hub := NewHub(discardLogger())
	defer hub.Close()

	client, server := dialPair(t)
	hub.Register("user-1", server)
	require.Equal(t, 1, hub.ConnectionCount("user-1"))

	hub.Notify("user-1", NewEvent(EventSessionRevoked, map[string]string{"session_id": "sess-1"}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	var got Event
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, EventSessionRevoked, got.Type)
	assert.False(t, got.Timestamp.IsZero())
}

func TestHub_ConcurrentNotifySerializesWrites(t *testing.T) {
	hub := NewHub(discardLogger())
	defer hub.Close()

	client, server := dialPair(t)
	hub.Register("user-1", server)

	const (
		notifiers        = 8
		eventsPerNotifer = 50
	)

	var wg sync.WaitGroup
	for i := 0; i < notifiers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < eventsPerNotifer; j++ {
				hub.Notify("user-1", NewEvent(EventRefreshReuse, map[string]string{"seq": strconv.Itoa(n*eventsPerNotifer + j)}))
			}
		}(i)
	}

	// Every frame must decode cleanly; interleaved writers would corrupt them.
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < notifiers*eventsPerNotifer; i++ {
		var got Event
		_, msg, err := client.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, EventRefreshReuse, got.Type)
	}
	wg.Wait()
}

func TestHub_NotifyUnknownUserIsNoop(t *testing.T) {
	hub := NewHub(discardLogger())
	defer hub.Close()

	// Must not panic or block.
	hub.Notify("nobody", NewEvent(EventRefreshReuse, nil))
	assert.Equal(t, 0, hub.ConnectionCount("nobody"))
}

func TestHub_UnregisterRemovesConnection(t *testing.T) {
	hub := NewHub(discardLogger())
	defer hub.Close()

	_, server := dialPair(t)
	hub.Register("user-1", server)
	hub.Unregister("user-1", server)

	assert.Equal(t, 0, hub.ConnectionCount("user-1"))
}

func TestHub_RegisterAfterCloseIsRejected(t *testing.T) {
	hub := NewHub(discardLogger())
	hub.Close()

	_, server := dialPair(t)
	hub.Register("user-1", server)

	assert.Equal(t, 0, hub.ConnectionCount("user-1"))
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(discardLogger())
	_, server := dialPair(t)
	hub.Register("user-1", server)

	hub.Close()
	hub.Close()

	assert.Equal(t, 0, hub.ConnectionCount("user-1"))
}
