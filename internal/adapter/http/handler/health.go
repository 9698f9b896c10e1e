package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker verifies one backing dependency.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthCheck handles GET /health. It pings every registered dependency and
// reports 503 when any is down.
func HealthCheck(checkers ...HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checkers))
		for _, checker := range checkers {
			if err := checker.Check(ctx); err != nil {
				deps[checker.Name] = "down: " + err.Error()
				status = http.StatusServiceUnavailable
			} else {
				deps[checker.Name] = "up"
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":       state,
			"dependencies": deps,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}
