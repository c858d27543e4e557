package handler

import (
	"context"
	"net/http"
	"time"

	"stocklink/internal/erp"
	"stocklink/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity plus ERP session state; the ERP check is
// in-memory only so a remote outage never slows the probe down.
func Health(db *gorm.DB, rdb *redis.Client, registry *erp.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		reportDLQ := int64(-1)
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueReports); err == nil {
			reportDLQ = n
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":         status == http.StatusOK,
			"db":         dbStatus,
			"redis":      redisStatus,
			"report_dlq": reportDLQ, // -1 when the backlog could not be read
			"erp":        registry.Status(),
		})
	}
}
