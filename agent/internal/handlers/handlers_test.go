package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"moonbags-buybot/shared/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, src StatusSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.NewLogger(logger.Config{Level: "error"})
	require.NoError(t, err)
	return SetupRouter(src, log)
}

func okSource() StatusSource {
	return StatusSource{
		GroupCount:  func() (int64, error) { return 3, nil },
		BoostCount:  func() (int64, error) { return 1, nil },
		FeedMode:    "poll",
		Environment: "test",
	}
}

func TestLivenessProbe(t *testing.T) {
	router := testRouter(t, okSource())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, okSource())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStatusEndpoint(t *testing.T) {
	router := testRouter(t, okSource())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"groups":3`)
	assert.Contains(t, w.Body.String(), `"active_boosts":1`)
	assert.Contains(t, w.Body.String(), `"feed_mode":"poll"`)
}

func TestStatusEndpointDatabaseDown(t *testing.T) {
	src := okSource()
	src.GroupCount = func() (int64, error) { return 0, fmt.Errorf("connection refused") }
	router := testRouter(t, src)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
