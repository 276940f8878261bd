package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/handlers/testutil"
)

func TestMonitoringSummaryIsPublic(t *testing.T) {
	t.Parallel()

	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/monitoring/summary", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
