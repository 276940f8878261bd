package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/handlers/testutil"
	"github.com/charlesng35/chatrelay/internal/models"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/internal/services"
)

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestRealtimeStreamRelaysAndArchives(t *testing.T) {
	env := testutil.NewEnv(t)
	base := env.StartServer()

	alice := dial(t, base+"?userId=alice", nil)
	require.Equal(t, realtime.EventSocketID, readEvent(t, alice)["event"])
	bob := dial(t, base+"?userId=bob", nil)
	require.Equal(t, realtime.EventSocketID, readEvent(t, bob)["event"])

	for _, conn := range []*websocket.Conn{alice, bob} {
		require.NoError(t, conn.WriteJSON(map[string]any{"event": realtime.EventJoinRoom, "data": "general"}))
	}
	require.Eventually(t, func() bool { return len(env.Hub.Members("general")) == 2 }, 2*time.Second, 10*time.Millisecond)

	message := map[string]any{"room": "general", "author": "alice", "message": "hello", "time": "09:30"}
	require.NoError(t, alice.WriteJSON(map[string]any{"event": realtime.EventSendMessage, "data": message}))

	frame := readEvent(t, bob)
	require.Equal(t, realtime.EventReceiveMessage, frame["event"])
	require.Equal(t, message, frame["data"])

	require.Eventually(t, func() bool {
		history, err := env.Messages.ListByRoom(context.Background(), "general", services.ListMessagesOptions{})
		return err == nil && len(history) == 1
	}, 2*time.Second, 20*time.Millisecond)

	var stored models.ChatMessage
	require.NoError(t, env.DB.First(&stored).Error)
	require.Equal(t, "alice", stored.SenderID)
	require.Equal(t, "hello", stored.Text)
	require.Equal(t, "09:30", stored.ClientTime)
}

func TestRealtimeStreamEnforcesAuthorWhenConfigured(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithEnforcedAuthor())
	base := env.StartServer()

	alice := dial(t, base+"?userId=alice", nil)
	readEvent(t, alice)
	bob := dial(t, base+"?userId=bob", nil)
	readEvent(t, bob)

	for _, conn := range []*websocket.Conn{alice, bob} {
		require.NoError(t, conn.WriteJSON(map[string]any{"event": realtime.EventJoinRoom, "data": "general"}))
	}
	require.Eventually(t, func() bool { return len(env.Hub.Members("general")) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(map[string]any{
		"event": realtime.EventSendMessage,
		"data":  map[string]any{"room": "general", "author": "mallory", "message": "hi"},
	}))

	data, ok := readEvent(t, bob)["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice", data["author"])
}

func TestRealtimeStreamJWTIdentity(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithJWTIdentity())
	base := env.StartServer()

	// The declared userId is ignored in jwt mode.
	conn := dial(t, base+"?token="+env.Token("alice")+"&userId=mallory", nil)
	require.Equal(t, realtime.EventSocketID, readEvent(t, conn)["event"])

	connID, ok := env.Hub.Lookup("alice")
	require.True(t, ok)
	require.NotEmpty(t, connID)
	_, ok = env.Hub.Lookup("mallory")
	require.False(t, ok)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.Token("bob"))
	dial(t, base, header)
	require.Eventually(t, func() bool {
		_, ok := env.Hub.Lookup("bob")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeStreamRejectsInvalidToken(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithJWTIdentity())
	base := env.StartServer()

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=not-a-token", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, env.Hub.Stats().Connections)
}

func TestRealtimeStreamAnonymousInJWTMode(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithJWTIdentity())
	base := env.StartServer()

	dial(t, base, nil)
	require.Eventually(t, func() bool { return env.Hub.Stats().Connections == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, env.Hub.Stats().Users)
}
