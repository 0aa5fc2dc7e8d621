package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-notechat/internal/database"
	"github.com/npezzotti/go-notechat/internal/presence"
	"github.com/npezzotti/go-notechat/internal/stats"
	"github.com/npezzotti/go-notechat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newRelayServer(t *testing.T, r *Relay) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}

		c, err := NewClient(req.URL.Query().Get("email"), conn, r, r.log)
		if err != nil {
			conn.Close()
			return
		}

		if !r.RegisterClient(c) {
			conn.Close()
			return
		}

		go c.Write()
		go c.Read()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, email string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?email=" + email
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "expected websocket dial to succeed")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f), "expected a frame from the relay")
	return f
}

func readConnected(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	f := readFrame(t, conn)
	require.Equal(t, EventConnected, f.Event)
	var data Connected
	require.NoError(t, json.Unmarshal(f.Data, &data))
	require.NotEmpty(t, data.Id, "expected a connection id")
	return data.Id
}

func readPresence(t *testing.T, conn *websocket.Conn) PresenceChanged {
	t.Helper()
	f := readFrame(t, conn)
	require.Equal(t, EventUserListUpdated, f.Event)
	var data PresenceChanged
	require.NoError(t, json.Unmarshal(f.Data, &data))
	return data
}

func TestRelay_WebSocket(t *testing.T) {
	db := &database.MockNotesRepository{}
	defer db.AssertExpectations(t)
	db.On("SetSocketId", "alice@example.com", mock.Anything).Return(nil).Once()
	db.On("SetSocketId", "bob@example.com", mock.Anything).Return(nil).Once()
	db.On("ClearSocketId", "bob@example.com", mock.Anything).Return(nil).Once()
	// alice is still joined when the relay shuts down
	db.On("ClearSocketId", "alice@example.com", mock.Anything).Return(nil).Once()

	r := NewRelay(testutil.TestLogger(t), db, presence.NewMemoryRegistry(), stats.NopStats{})
	go r.Run()

	srv := newRelayServer(t, r)

	alice := dial(t, srv, "alice@example.com")
	aliceId := readConnected(t, alice)
	bob := dial(t, srv, "bob@example.com")
	bobId := readConnected(t, bob)
	assert.NotEqual(t, aliceId, bobId, "expected distinct connection ids")

	require.NoError(t, alice.WriteJSON(map[string]any{"event": "join", "data": map[string]string{"email": "alice@example.com"}}))
	assert.Equal(t, PresenceChanged{Email: "alice@example.com", Online: true}, readPresence(t, bob))

	require.NoError(t, bob.WriteJSON(map[string]any{"event": "join", "data": map[string]string{"email": "bob@example.com"}}))
	assert.Equal(t, PresenceChanged{Email: "bob@example.com", Online: true}, readPresence(t, alice))

	require.NoError(t, alice.WriteJSON(map[string]any{
		"event": "message",
		"data":  map[string]any{"message": map[string]string{"text": "hi bob"}, "socketId": bobId},
	}))

	f := readFrame(t, bob)
	require.Equal(t, EventReceiveMessage, f.Event)
	var received Received
	require.NoError(t, json.Unmarshal(f.Data, &received))
	assert.Equal(t, aliceId, received.From)
	assert.JSONEq(t, `{"text":"hi bob"}`, string(received.Message))

	bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	bob.Close()
	assert.Equal(t, PresenceChanged{Email: "bob@example.com", Online: false}, readPresence(t, alice))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	// the relay closes remaining connections on shutdown
	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := alice.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "expected a going-away close, got %v", err)
}
