package capture

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faultline/pkg/models"
)

func newGinEngine(c *Capturer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(c.GinReportErrors(), c.GinRecovery())
	return engine
}

func TestGinRecoveryCapturesPanic(t *testing.T) {
	c, p, rs := newTestCapturer(t)
	engine := newGinEngine(c)
	engine.GET("/boom", func(*gin.Context) {
		panic("gin handler exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error","error_code":"INTERNAL_ERROR"}`, rr.Body.String())

	flushEvents(t, p)
	events := rs.Events()
	require.Len(t, events, 1)
	got := events[0]

	assert.Equal(t, models.KindRuntimeError, got.Kind)
	assert.Equal(t, "gin handler exploded", got.Message)
	assert.Equal(t, "/boom", got.Route)
}

func TestGinReportErrorsCapturesContextErrors(t *testing.T) {
	c, p, rs := newTestCapturer(t)
	engine := newGinEngine(c)
	engine.GET("/fail", func(g *gin.Context) {
		_ = g.Error(errors.New("upstream failed"))
		g.Status(http.StatusBadGateway)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)

	flushEvents(t, p)
	events := rs.Events()
	require.Len(t, events, 1)
	got := events[0]

	assert.Equal(t, models.KindExplicitRejection, got.Kind)
	assert.Contains(t, got.Message, "upstream failed")
	assert.Equal(t, "502", got.Metadata["status_code"])
	assert.Equal(t, "/fail", got.Route)
}

func TestGinReportErrorsCapturesUnexplained5xx(t *testing.T) {
	c, p, rs := newTestCapturer(t)
	engine := newGinEngine(c)
	engine.GET("/broken", func(g *gin.Context) {
		g.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/broken", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	flushEvents(t, p)
	events := rs.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.KindHTTPError, events[0].Kind)
	assert.Equal(t, "Internal Server Error", events[0].Name)
}

func TestGinPanicReportedOnce(t *testing.T) {
	c, p, rs := newTestCapturer(t)
	engine := newGinEngine(c)
	engine.GET("/boom", func(*gin.Context) {
		panic("only one event")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	flushEvents(t, p)
	events := rs.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.KindRuntimeError, events[0].Kind)
}

func TestGinQuietOnSuccess(t *testing.T) {
	c, p, rs := newTestCapturer(t)
	engine := newGinEngine(c)
	engine.GET("/fine", func(g *gin.Context) {
		g.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/fine", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	flushEvents(t, p)
	assert.Empty(t, rs.Events())
}
