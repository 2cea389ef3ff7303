package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faultline/internal/logger"
)

// logRecorder keeps the logged fields for assertions; everything it does not
// override is a no-op.
type logRecorder struct {
	logger.Logger
	mu     sync.Mutex
	infos  [][]interface{}
	errors [][]interface{}
}

func newLogRecorder() *logRecorder {
	return &logRecorder{Logger: logger.NopLogger()}
}

func (l *logRecorder) Infow(_ string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, keysAndValues)
}

func (l *logRecorder) Errorw(_ string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, keysAndValues)
}

func fieldValue(fields []interface{}, key string) interface{} {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == key {
			return fields[i+1]
		}
	}
	return nil
}

func TestLoggerMiddlewareRedactsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := newLogRecorder()

	engine := gin.New()
	engine.Use(RequestIDMiddleware(), LoggerMiddleware(rec))
	engine.GET("/search", func(g *gin.Context) {
		g.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/search?q=widgets&token=abc123", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	require.Len(t, rec.infos, 1)
	path := fieldValue(rec.infos[0], "path")
	assert.Equal(t, "/search?q=widgets&token=REDACTED", path)
	assert.NotEmpty(t, fieldValue(rec.infos[0], "request_id"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestLoggerMiddlewareUsesErrorLevelFor5xx(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := newLogRecorder()

	engine := gin.New()
	engine.Use(LoggerMiddleware(rec))
	engine.GET("/broken", func(g *gin.Context) {
		g.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/broken", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	assert.Empty(t, rec.infos)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, http.StatusInternalServerError, fieldValue(rec.errors[0], "status"))
}

func TestRequestIDMiddlewareHonorsExistingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	engine.GET("/", func(g *gin.Context) {
		g.String(http.StatusOK, g.GetString("request_id"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id-7")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	assert.Equal(t, "upstream-id-7", rr.Body.String())
	assert.Equal(t, "upstream-id-7", rr.Header().Get("X-Request-ID"))
}
