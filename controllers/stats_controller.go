package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/miniblog/config"
	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/utils"
)

// StatsController reports store health and aggregate counts.
type StatsController struct {
	store  repository.Store
	driver string
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(store repository.Store, driver string) *StatsController {
	return &StatsController{store: store, driver: driver}
}

// Health answers 200 when the store responds and 503 otherwise.
func (s *StatsController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(pingCtx); err != nil {
		utils.Sugar.Warnf("health check failed: %v", err)
		ctx.JSON(503, gin.H{"status": "error", "database": "disconnected"})
		return
	}
	database := "connected"
	if s.driver == config.DriverFile {
		database = "file"
	}
	ctx.JSON(200, gin.H{"status": "ok", "database": database})
}

// GetStats returns account, post, comment and like counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.store.Stats(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"stats": st})
}
