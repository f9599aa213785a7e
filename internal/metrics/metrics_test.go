package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(notificationsCreated)
	RecordNotifications(3)
	RecordNotifications(0)
	assert.Equal(t, before+3, testutil.ToFloat64(notificationsCreated))

	before = testutil.ToFloat64(ordersPlaced)
	RecordOrderPlaced()
	assert.Equal(t, before+1, testutil.ToFloat64(ordersPlaced))

	before = testutil.ToFloat64(eventsPublished.WithLabelValues("unknown", "false"))
	RecordEventPublished("", false)
	assert.Equal(t, before+1, testutil.ToFloat64(eventsPublished.WithLabelValues("unknown", "false")))
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := httpRequests.WithLabelValues("GET", "/orders/:id", "200")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/8", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordMenuPublished()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookameal_menus_published_total")
}
