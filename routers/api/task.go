package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
	"github.com/snigdhareddy482/fibo-continuity-director/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 查询任务状态：GET /v1/api/tasks/:task_id
func GetTaskStatus(c *gin.Context) {
	taskID := c.Param("task_id")
	t, err := models.GetTaskByID(models.GormDB, taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// 取消任务：POST /v1/api/tasks/:task_id/cancel
// 取消只在分镜之间生效，当前正在生成的分镜会跑完并落账
func CancelTask(c *gin.Context) {
	taskID := c.Param("task_id")
	t, err := models.GetTaskByID(models.GormDB, taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found: " + err.Error()})
		return
	}
	if t.Status != models.TaskStatusPending && t.Status != models.TaskStatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "任务已结束，无法取消", "status": t.Status})
		return
	}

	cancelled := service.CancelRunTask(taskID)
	_ = t.UpdateStatus(models.GormDB, models.TaskStatusCancelled, "cancelled by user")
	c.JSON(http.StatusOK, gin.H{
		"task_id":     taskID,
		"cancelled":   true,
		"was_running": cancelled,
	})
}

// 任务进度 WebSocket 推送（以数据库为来源：先读取 DB，然后循环轮询 DB 并推送）
func TaskProgressWebSocket(c *gin.Context) {
	taskID := c.Param("task_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WebSocket升级失败"})
		return
	}
	defer conn.Close()

	// 先从 DB 读取当前任务状态并推送
	t, err := models.GetTaskByID(models.GormDB, taskID)
	if err != nil {
		conn.WriteJSON(map[string]interface{}{"error": "task not found: " + err.Error()})
		return
	}
	_ = conn.WriteJSON(t)

	// 轮询 DB 并推送差异（每秒查询一次直到任务结束）
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prevStatus := t.Status
	prevProgress := t.Progress

	for range ticker.C {
		cur, err := models.GetTaskByID(models.GormDB, taskID)
		if err != nil {
			continue
		}

		if cur.Status != prevStatus || cur.Progress != prevProgress {
			if err := conn.WriteJSON(cur); err != nil {
				break
			}
			prevStatus = cur.Status
			prevProgress = cur.Progress
		}

		if cur.Status == models.TaskStatusSuccess ||
			cur.Status == models.TaskStatusFailed ||
			cur.Status == models.TaskStatusCancelled {
			_ = conn.WriteJSON(cur)
			break
		}
	}
}
