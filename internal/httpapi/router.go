// Package httpapi exposes the engine over HTTP.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptd/internal/logger"
)

type RouterConfig struct {
	LearnerHandler *LearnerHandler
	Logger         *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))

	r.GET("/healthcheck", HealthCheck)

	api := r.Group("/api")
	if h := cfg.LearnerHandler; h != nil {
		learners := api.Group("/learners/:learnerID")
		learners.POST("/attempts", h.RecordAttempt)
		learners.GET("/graph", h.Graph)
		learners.GET("/weak-areas", h.WeakAreas)
		learners.GET("/weak-nodes", h.WeakNodes)
		learners.GET("/profile", h.Profile)
		learners.GET("/next-task", h.NextTask)
		learners.GET("/sessions/:nodeID", h.Session)
		learners.POST("/snapshots", h.SaveSnapshot)
		learners.POST("/replay", h.Replay)

		api.GET("/reports/struggling", h.Struggling)
	}
	return r
}
