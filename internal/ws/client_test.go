package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/syncify/syncify/backend/go-services/internal/rooms"
)

func startServer(t *testing.T) (*httptest.Server, *rooms.Registry) {
	t.Helper()
	registry := rooms.NewRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, registry)
	}))
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, env rooms.Envelope) {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) rooms.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env rooms.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no message")
}

func TestPlaybackEventReachesPeersButNotSender(t *testing.T) {
	srv, _ := startServer(t)

	c1 := dial(t, srv)
	sendEnvelope(t, c1, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "xyz", UserName: "Alice"})
	joined := readEnvelope(t, c1)
	require.Equal(t, rooms.TypePeerJoined, joined.Type)
	require.Equal(t, "Alice", joined.UserName)

	c2 := dial(t, srv)
	sendEnvelope(t, c2, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "xyz", UserName: "Bob"})
	// both members see Bob arrive
	require.Equal(t, "Bob", readEnvelope(t, c1).UserName)
	require.Equal(t, "Bob", readEnvelope(t, c2).UserName)

	payload, _ := json.Marshal(map[string]any{"type": "pause"})
	sendEnvelope(t, c1, rooms.Envelope{Type: rooms.TypePlaybackEvent, RoomID: "xyz", Payload: payload})

	got := readEnvelope(t, c2)
	require.Equal(t, rooms.TypePlaybackEvent, got.Type)
	require.Equal(t, "xyz", got.RoomID)
	require.Equal(t, "Alice", got.UserName)
	require.JSONEq(t, `{"type":"pause"}`, string(got.Payload))

	// the sender does not get its own event echoed back
	expectSilence(t, c1)
}

func TestDisconnectAnnouncesPeerLeft(t *testing.T) {
	srv, registry := startServer(t)

	c1 := dial(t, srv)
	sendEnvelope(t, c1, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "xyz", UserName: "Alice"})
	readEnvelope(t, c1)

	c2 := dial(t, srv)
	sendEnvelope(t, c2, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "xyz", UserName: "Bob"})
	readEnvelope(t, c1)
	readEnvelope(t, c2)

	c2.Close()

	left := readEnvelope(t, c1)
	require.Equal(t, rooms.TypePeerLeft, left.Type)
	require.Equal(t, "Bob", left.UserName)

	require.Eventually(t, func() bool {
		return len(registry.Members("xyz")) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMalformedAndRoomlessMessagesDropped(t *testing.T) {
	srv, _ := startServer(t)

	c1 := dial(t, srv)
	// not JSON
	require.NoError(t, c1.WriteMessage(websocket.TextMessage, []byte("not-json")))
	// playback event with no room target
	payload, _ := json.Marshal(map[string]any{"type": "pause"})
	sendEnvelope(t, c1, rooms.Envelope{Type: rooms.TypePlaybackEvent, Payload: payload})

	// the connection is still healthy and can join afterwards
	sendEnvelope(t, c1, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "abc", UserName: "Alice"})
	joined := readEnvelope(t, c1)
	require.Equal(t, rooms.TypePeerJoined, joined.Type)
}

func TestExplicitLeaveAnnounced(t *testing.T) {
	srv, registry := startServer(t)

	c1 := dial(t, srv)
	sendEnvelope(t, c1, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "xyz", UserName: "Alice"})
	readEnvelope(t, c1)

	c2 := dial(t, srv)
	sendEnvelope(t, c2, rooms.Envelope{Type: rooms.TypeJoinRoom, RoomID: "xyz", UserName: "Bob"})
	readEnvelope(t, c1)
	readEnvelope(t, c2)

	sendEnvelope(t, c2, rooms.Envelope{Type: rooms.TypeLeaveRoom, RoomID: "xyz"})
	left := readEnvelope(t, c1)
	require.Equal(t, rooms.TypePeerLeft, left.Type)
	require.Equal(t, "Bob", left.UserName)

	require.Eventually(t, func() bool {
		return len(registry.Members("xyz")) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
