package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/pkg/metrics"
)

func TestMetricsMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/chat/rooms/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/api/chat/rooms/general")
	serve(r, "/api/chat/rooms/random")

	// Both requests share one series keyed by the route template.
	require.Equal(t, 1, promtestutil.CollectAndCount(metrics.APILatency))
}

func TestMetricsMiddlewareSkipsRoutesAndCollapsesUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics("/ws"))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := promtestutil.CollectAndCount(metrics.APILatency)
	serve(r, "/ws")
	require.Equal(t, before, promtestutil.CollectAndCount(metrics.APILatency))

	serve(r, "/no/such/route")
	serve(r, "/another/missing/route")
	require.Equal(t, before+1, promtestutil.CollectAndCount(metrics.APILatency))
}
