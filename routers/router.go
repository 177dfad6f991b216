package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/snigdhareddy482/fibo-continuity-director/routers/api"
)

func InitRouter() *gin.Engine {
	r := gin.Default()
	r.Static("/static", "./static")
	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", api.CreateProject)
		v1.GET("/projects", api.ListProjects)
		v1.GET("/projects/:project_id", api.GetProject)
		v1.DELETE("/projects/:project_id", api.DeleteProject)
		v1.POST("/projects/:project_id/generate", api.GenerateSequence)
		v1.POST("/projects/:project_id/continuity", api.ApplyContinuity)
		v1.POST("/projects/:project_id/style", api.ExtractStyle)
		v1.GET("/projects/:project_id/shots", api.GetShots)
		v1.POST("/projects/:project_id/shots/:ordinal/refine", api.RefineShot)
		v1.POST("/projects/:project_id/shots/:ordinal/edit", api.EditShot)
		v1.POST("/projects/:project_id/export/grid", api.ExportGrid)
		v1.POST("/script/parse", api.ParseScript)
		v1.POST("/director/suggest", api.SuggestDirection)
		v1.GET("/tasks/:task_id", api.GetTaskStatus)
		v1.POST("/tasks/:task_id/cancel", api.CancelTask)
	}
	r.GET("/tasks/:task_id/wss", api.TaskProgressWebSocket)
	return r
}
