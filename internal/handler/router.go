package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Upload *UploadHandler
	QA     *QAHandler
	Stats  *StatsHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/", deps.Stats.Root)
	api.GET("/health", deps.Stats.Health)
	api.GET("/stats", deps.Stats.Stats)

	api.POST("/upload", deps.Upload.Upload)
	api.POST("/clear", deps.Upload.Clear)
	api.POST("/ask", deps.QA.Ask)
}
