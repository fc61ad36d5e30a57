package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/constants"
	"conduit/pkg/logging"
)

type lineRecorder struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	ctxIDs []string
}

func (r *lineRecorder) InfowCtx(ctx context.Context, msg string, _ ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
	r.ctxIDs = append(r.ctxIDs, logging.GetCorrelationID(ctx))
}

func (r *lineRecorder) ErrorwCtx(ctx context.Context, msg string, _ ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
	r.ctxIDs = append(r.ctxIDs, logging.GetCorrelationID(ctx))
}

func newEngine(rec *lineRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware(), RecoveryMiddleware(rec), LoggerMiddleware(rec))
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, logging.GetCorrelationID(c.Request.Context()))
	})
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func TestCorrelationID_PropagatesCallerValue(t *testing.T) {
	rec := &lineRecorder{}
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(constants.HeaderCorrelationID, "abc")
	w := httptest.NewRecorder()
	newEngine(rec).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(constants.HeaderCorrelationID))
	require.Len(t, rec.infos, 1)
	assert.Equal(t, "abc", rec.ctxIDs[0])
}

func TestCorrelationID_GeneratedWhenMissing(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine(&lineRecorder{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.NotEmpty(t, w.Header().Get(constants.HeaderCorrelationID))
	assert.Equal(t, w.Header().Get(constants.HeaderCorrelationID), w.Body.String())
}

func TestRecovery_WritesInternalError(t *testing.T) {
	rec := &lineRecorder{}
	w := httptest.NewRecorder()
	newEngine(rec).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, rec.errors, "Panic recovered")
}
