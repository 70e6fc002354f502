package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(log))
	r.Use(Metrics())

	r.GET("/api/ping", h.Ping)
	v1 := r.Group("/api/v1")
	{
		v1.GET("/model", h.GetModel)
		v1.POST("/model", h.UploadModel)
		v1.POST("/detect", h.Detect)

		v1.POST("/sessions", h.CreateSession)
		v1.POST("/sessions/:id/map", h.MapSession)
		v1.POST("/sessions/:id/classify", h.ClassifySession)
		v1.POST("/sessions/:id/feedback", h.SubmitFeedback)
		v1.POST("/sessions/:id/save", h.SaveRoute)
		v1.DELETE("/sessions/:id", h.ReleaseSession)

		v1.GET("/users/:uid/routes", h.UserRoutes)
	}
	return r
}
