package monitor

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/compostlab/soilmon/internal/model"
	"github.com/compostlab/soilmon/internal/services/ingest"
	"github.com/compostlab/soilmon/internal/services/store"
)

// AlertNotifier forwards battery alerts to an external endpoint. Optional.
type AlertNotifier interface {
	Forward(a model.BatteryAlert) error
}

type RouterConfig struct {
	IngestToken       string
	DashboardUser     string
	DashboardPassword string
}

// NewRouter builds the HTTP boundary: device endpoints behind the ingest
// token, dashboard API behind basic auth, plus /metrics and /healthz.
func NewRouter(svc *Service, notifier AlertNotifier, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	device := r.Group("/", ingestTokenAuth(cfg.IngestToken))
	device.POST("/submit", handleSubmit(svc))
	device.POST("/alert", handleAlert(notifier))

	api := r.Group("/api", basicAuth(cfg.DashboardUser, cfg.DashboardPassword))
	api.GET("/data", handleData(svc))
	api.GET("/stats", handleStats(svc))
	api.GET("/debug", handleDebug(svc))
	api.GET("/health", handleHealth(svc))

	return r
}

// ingestTokenAuth requires the device token header, compared in constant
// time like every other secret here.
func ingestTokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Ingest-Token")
		if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Valid ingest token required"})
			return
		}
		c.Next()
	}
}

func basicAuth(user, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(password)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="Soil Monitor"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

func handleSubmit(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p model.IngestPayload
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		id, err := svc.Ingest(c.Request.Context(), p)
		switch {
		case errors.Is(err, ingest.ErrNoValidTemperature):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "No valid temperature data"})
		case errors.Is(err, store.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "storage unavailable"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		default:
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Data recorded successfully", "reading_id": id})
		}
	}
}

func handleAlert(notifier AlertNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var a model.BatteryAlert
		if err := c.ShouldBindJSON(&a); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		slog.Warn("battery alert", "type", a.Alert, "voltage", a.Battery, "message", a.Message)
		if notifier != nil {
			if err := notifier.Forward(a); err != nil {
				slog.Error("alert forward failed", "err", err)
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"message":         "Alert received",
			"alert_type":      a.Alert,
			"battery_voltage": a.Battery,
		})
	}
}

func handleData(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		hours := queryInt(c, "hours", 24)
		limit := queryInt(c, "limit", 1000)
		rows, err := svc.RecentReadings(c.Request.Context(), hours, limit)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func handleStats(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		hours := queryInt(c, "hours", 24)
		stats, err := svc.Statistics(c.Request.Context(), hours)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func handleDebug(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := svc.LatestDiagnostics(c.Request.Context())
		if errors.Is(err, store.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No debug data available"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

func handleHealth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := svc.Health(c.Request.Context())
		if !h.StorageReachable {
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().Format(time.RFC3339),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"database":       "connected",
			"total_readings": h.TotalReadings,
			"timestamp":      time.Now().Format(time.RFC3339),
		})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
