package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/handlers/testutil"
	"github.com/charlesng35/chatrelay/internal/models"
)

func TestRoomHandlerListIncludesSeededRooms(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/chat/rooms", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	payload := testutil.DecodeResponse(t, resp)
	require.True(t, payload.Success)
	require.NotNil(t, payload.Meta)
	require.Equal(t, 1, payload.Meta.Total)

	var rooms []models.ChatRoom
	testutil.DecodeInto(t, payload.Data, &rooms)
	require.Len(t, rooms, 1)
	require.Equal(t, "general", rooms[0].Name)
}

func TestRoomHandlerCreateAndGet(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/chat/rooms", map[string]any{"name": "  random ", "is_group": true}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created models.ChatRoom
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &created)
	require.Equal(t, "random", created.Name)
	require.True(t, created.IsGroup)
	require.NotEmpty(t, created.ID)

	for _, key := range []string{created.ID, "random"} {
		resp = env.Request(http.MethodGet, "/api/chat/rooms/"+key, nil, "")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var fetched models.ChatRoom
		testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &fetched)
		require.Equal(t, created.ID, fetched.ID)
	}
}

func TestRoomHandlerCreateRejectsDuplicates(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/chat/rooms", map[string]any{"name": "general"}, "")
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())

	payload := testutil.DecodeResponse(t, resp)
	require.False(t, payload.Success)
	require.Equal(t, "chat.room_exists", payload.Error.Code)
}

func TestRoomHandlerCreateValidatesPayload(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodPost, "/api/chat/rooms", map[string]any{"name": ""}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Equal(t, "name is required", testutil.DecodeResponse(t, resp).Error.Message)

	resp = env.Request(http.MethodPost, "/api/chat/rooms", map[string]any{"name": "bad\u0007room"}, "")
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "control characters")
}

func TestRoomHandlerGetUnknownRoom(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/chat/rooms/nowhere", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
	require.Equal(t, "chat.room_not_found", testutil.DecodeResponse(t, resp).Error.Code)
}

func TestRoomHandlerCreateIsRateLimited(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithRateLimit(1, time.Minute))

	resp := env.Request(http.MethodPost, "/api/chat/rooms", map[string]any{"name": "one"}, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodPost, "/api/chat/rooms", map[string]any{"name": "two"}, "")
	require.Equal(t, http.StatusTooManyRequests, resp.Code, resp.Body.String())

	// Listing is not limited.
	resp = env.Request(http.MethodGet, "/api/chat/rooms", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
}
