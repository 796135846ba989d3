package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DependencyCheck проверяет доступность одной внешней зависимости.
type DependencyCheck func(ctx context.Context) error

// HealthHandler отвечает за эндпоинты живости сервиса.
type HealthHandler struct {
	checks map[string]DependencyCheck
	logger *zap.Logger
}

// NewHealthHandler создает HealthHandler с именованными проверками
// зависимостей (postgres, redis, rabbitmq).
func NewHealthHandler(checks map[string]DependencyCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger.Named("HealthHandler"),
	}
}

// RegisterRoutes регистрирует эндпоинты здоровья.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)
	router.GET("/health/services", h.services)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// services опрашивает зависимости. Сервис остается "ok", даже когда
// зависимость лежит: деградированные ходы все равно обслуживаются.
func (h *HealthHandler) services(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	statuses := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Dependency health check failed",
				zap.String("dependency", name), zap.Error(err))
			statuses[name] = "down"
			continue
		}
		statuses[name] = "up"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"services": statuses,
	})
}
