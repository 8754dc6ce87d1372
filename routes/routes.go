package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stock-alerts/config"
	"stock-alerts/services/monitor"
)

// SetupRoutes wires the operational HTTP surface: liveness, last-cycle
// status and a manual cycle trigger. There is no configuration UI.
func SetupRoutes(router *gin.Engine, tracker *monitor.Tracker, cfg config.Config) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "stock-alerts monitoring service",
		})
	})

	// Liveness probe.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/status", func(c *gin.Context) {
		resp := gin.H{
			"tickers":          cfg.Tickers,
			"threshold_pct":    cfg.ThresholdPct,
			"interval_minutes": cfg.Monitor.IntervalMinutes,
			"running":          tracker.Running(),
		}
		if last, ok := tracker.Last(); ok {
			resp["last_cycle"] = last
		}
		c.JSON(http.StatusOK, resp)
	})

	// Manual trigger; refused while a cycle is already running.
	router.POST("/run", func(c *gin.Context) {
		result, ok := tracker.Run(c.Request.Context())
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"error": "a cycle is already running"})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}
