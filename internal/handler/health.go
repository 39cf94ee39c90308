package handler

import (
	"context"
	"net/http"
	"time"

	"recovr/internal/infra"
	"recovr/internal/kvstore"
	"recovr/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Health returns a JSON health check response.
// Checks store and Redis connectivity and reports the assistant breaker and
// dead-letter depths; never exposes credentials or internals.
// rdb and cb may be nil when those integrations are not configured.
func Health(store kvstore.Store, rdb *redis.Client, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		if store.Ping(ctx) != nil {
			storeStatus = "error"
		}

		body := gin.H{"store": storeStatus}
		healthy := storeStatus == "connected"

		if rdb != nil {
			redisStatus := "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
				healthy = false
			}
			body["redis"] = redisStatus
			if depths, err := worker.DLQDepths(ctx, rdb); err == nil {
				body["dead_letters"] = depths
			}
		}
		if cb != nil {
			snap := cb.Snapshot()
			body["assistant"] = gin.H{"breaker": snap.State, "failures": snap.Failures}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = healthy
		c.JSON(status, body)
	}
}
