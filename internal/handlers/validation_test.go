package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appValidator "github.com/charlesng35/chatrelay/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	err := appValidator.ValidationErrors{
		{Field: "createRoomPayload.name", Tag: "required"},
		{Field: "createRoomPayload.created_by", Tag: "max", Param: "128"},
		{Field: "createRoomPayload.name", Tag: "roomname"},
		{Field: "payload.room", Tag: "lobby"},
	}

	require.Equal(t,
		"name is required; created by must be at most 128 characters; name must not contain control characters; room failed validation: lobby",
		formatValidationError(err),
	)
	require.Equal(t, "invalid request payload", formatValidationError(nil))
}

func TestParseIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=25&bad=x", nil)

	require.Equal(t, 25, parseIntQuery(c, "limit", 50))
	require.Equal(t, 50, parseIntQuery(c, "bad", 50))
	require.Equal(t, 50, parseIntQuery(c, "missing", 50))
}
