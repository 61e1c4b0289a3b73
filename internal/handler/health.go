package handler

import (
	"context"
	"net/http"
	"time"

	"zerostress/internal/infra"
	"zerostress/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the external API breaker
// state; never exposes credentials or internals. zs is nil when keys and
// payments are stored locally.
func Health(db *gorm.DB, rdb *redis.Client, zs *infra.ZSClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		remoteStatus := "disabled"
		if zs != nil {
			remoteStatus = zs.Breaker().State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":      status == http.StatusOK,
			"service": "zerostress",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"db":      dbStatus,
			"redis":   redisStatus,
			"remote":  remoteStatus,
		}
		if redisStatus == "connected" {
			if n, err := worker.DLQLength(ctx, rdb, worker.QueueCierre); err == nil {
				body["dlq_cierre"] = n
			}
		}
		c.JSON(status, body)
	}
}
