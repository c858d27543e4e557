package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"stocklink/internal/erp"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Both backing stores point at unreachable addresses; the endpoint must
// degrade to 503 with per-dependency detail instead of failing outright, and the
// report backlog must read -1 when redis cannot answer.
func TestHealthReportsDependencyOutage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(
		postgres.Open("host=127.0.0.1 port=1 user=nobody dbname=nothing sslmode=disable"),
		&gorm.Config{DisableAutomaticPing: true},
	)
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	r := gin.New()
	r.GET("/health", Health(db, rdb, erp.NewRegistry()))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"db":"error"`)
	assert.Contains(t, body, `"redis":"error"`)
	assert.Contains(t, body, `"report_dlq":-1`)
	assert.Contains(t, body, `"ok":false`)
}
