package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestClient spins up a server that upgrades one connection, wraps it in
// a Client and runs its pumps.  It returns the dialer side, the Client and a
// channel closed when the client's pumps unwind.
func dialTestClient(t *testing.T, idleWindow time.Duration) (*websocket.Conn, *Client, chan struct{}) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	clientCh := make(chan *Client, 1)
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		c := NewClient(conn, "r1", 8, idleWindow, zerolog.Nop())
		clientCh <- c
		go c.Run(func() { close(done) })
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dialer.Close() })

	return dialer, <-clientCh, done
}

func TestClientPingPong(t *testing.T) {
	dialer, _, _ := dialTestClient(t, 5*time.Second)

	require.NoError(t, dialer.WriteJSON(map[string]string{"type": "ping"}))

	_ = dialer.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Event
	require.NoError(t, dialer.ReadJSON(&reply))
	assert.Equal(t, TypePong, reply.Type)
}

func TestClientSendDeliversToPeer(t *testing.T) {
	dialer, client, _ := dialTestClient(t, 5*time.Second)

	payload, err := json.Marshal(Event{Type: "guest_updated", EntityID: "g1"})
	require.NoError(t, err)
	require.True(t, client.Send(payload))

	_ = dialer.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, dialer.ReadJSON(&got))
	assert.Equal(t, "guest_updated", got.Type)
	assert.Equal(t, "g1", got.EntityID)
}

func TestClientTracksLiveness(t *testing.T) {
	dialer, client, _ := dialTestClient(t, 5*time.Second)

	before := client.LastSeen()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, dialer.WriteJSON(map[string]string{"type": "ping"}))

	require.Eventually(t, func() bool {
		return client.LastSeen().After(before)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClientUnwindsOnPeerClose(t *testing.T) {
	dialer, client, done := dialTestClient(t, 5*time.Second)

	require.NoError(t, dialer.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client pumps did not unwind after peer close")
	}
	// Send after close reports failure so the dispatcher can evict.
	assert.False(t, client.Send([]byte("late")))
}

func TestClientSilentPeerHitsReadDeadline(t *testing.T) {
	_, _, done := dialTestClient(t, 150*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("silent connection was not torn down at the read deadline")
	}
}
