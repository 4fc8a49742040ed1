package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"semantic-plagiarism/internal/ai"
	"semantic-plagiarism/internal/bootstrap"
	rabbitmqClient "semantic-plagiarism/internal/platform/rabbitmq"
	redisClient "semantic-plagiarism/internal/platform/redis"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Disabled bool   `json:"disabled,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Plagiarism Detection API is running"})
}

// Health is the liveness probe.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Check reports every dependency and answers 503 when an enabled one is down.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ(ctx)
	embedderStatus := h.checkEmbedder(ctx)

	allOK := redisStatus.OK && rmqStatus.OK && embedderStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"redis":    redisStatus,
			"rabbitmq": rmqStatus,
			"embedder": embedderStatus,
		},
	})
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if err := redisClient.Ping(ctx, h.app.Redis); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ(ctx context.Context) dependencyStatus {
	if !h.app.Config.RabbitMQ.Enabled {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if err := rabbitmqClient.Check(ctx, h.app.MQConn); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkEmbedder(ctx context.Context) dependencyStatus {
	if h.app.Embedder == nil {
		return dependencyStatus{OK: false, Message: "embedder not configured"}
	}
	if p, ok := h.app.Embedder.(ai.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return dependencyStatus{OK: false, Message: err.Error()}
		}
	}
	return dependencyStatus{OK: true, Message: h.app.Embedder.Name()}
}
