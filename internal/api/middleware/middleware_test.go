package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	registry := metrics.NewRegistry()
	engine := gin.New()
	engine.Use(Recovery(registry))
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(engine, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.Equal(t, int64(1), registry.Get("http.panics").(metrics.Counter).Count())
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS())
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, http.MethodGet, "/x")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))

	w = serve(engine, http.MethodOptions, "/x")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestLogger_RejectsPreface(t *testing.T) {
	registry := metrics.NewRegistry()
	engine := gin.New()
	engine.Use(Logger(registry))
	engine.Handle("PRI", "/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, "PRI", "/x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, registry.Get("http.status.4xx"))
}

func TestLogger_RecordsMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	engine := gin.New()
	engine.Use(Logger(registry))
	engine.GET("/block/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, http.MethodGet, "/block/0")
	serve(engine, http.MethodGet, "/block/840000?x=1")
	serve(engine, http.MethodGet, "/missing")

	timer, ok := registry.Get("http./block/:id").(metrics.Timer)
	require.True(t, ok)
	assert.Equal(t, int64(2), timer.Count())
	unmatched, ok := registry.Get("http.unmatched").(metrics.Timer)
	require.True(t, ok)
	assert.Equal(t, int64(1), unmatched.Count())
	assert.Equal(t, int64(2), registry.Get("http.status.2xx").(metrics.Counter).Count())
	assert.Equal(t, int64(1), registry.Get("http.status.4xx").(metrics.Counter).Count())
}

func TestRecovery_OutsideLogger(t *testing.T) {
	registry := metrics.NewRegistry()
	engine := gin.New()
	engine.Use(Recovery(registry), Logger(registry))
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })
	engine.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusInternalServerError, serve(engine, http.MethodGet, "/boom").Code)
	// the server keeps serving after a panic
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/ok").Code)
	assert.Equal(t, int64(1), registry.Get("http.panics").(metrics.Counter).Count())
}
