package router

import (
	"tune-log/internal/handler"
	"tune-log/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(svcCtx *service.ServiceContext) *gin.Engine {
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 初始化handlers
	runHandler := handler.NewRunHandler(svcCtx)

	// API路由
	api := r.Group("/api")
	{
		runs := api.Group("/runs")
		{
			runs.POST("/execute", runHandler.ExecuteRun)
			runs.GET("", runHandler.ListRuns)
			runs.GET("/best", runHandler.BestRun)
			runs.GET("/diff", runHandler.DiffRuns)
			runs.GET("/stats", runHandler.GetStats)
			runs.GET("/report", runHandler.GetReport)
			runs.GET("/:id", runHandler.GetRun)
		}
	}

	return r
}
