package api

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
	"github.com/snigdhareddy482/fibo-continuity-director/service"
)

// 分镜结果列表：GET /v1/api/projects/:project_id/shots
// 返回每个分镜的状态 / 得分 / 失败原因（用户可读），不含图片字节
func GetShots(c *gin.Context) {
	projectID := c.Param("project_id")
	store := service.NewStore()

	snapshot, err := store.LoadProject(projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}

	type shotView struct {
		Ordinal       int     `json:"ordinal"`
		Role          string  `json:"role"`
		Description   string  `json:"description"`
		Status        string  `json:"status"`
		Score         float64 `json:"score"`
		Outlier       bool    `json:"outlier"`
		UsedReference bool    `json:"usedReference"`
		Refined       bool    `json:"refined"`
		ImagePath     string  `json:"imagePath,omitempty"`
		ImageURL      string  `json:"imageUrl,omitempty"`
		Error         string  `json:"error,omitempty"`
		Hint          string  `json:"hint,omitempty"` // 失败时给用户的提示
	}

	views := make([]shotView, 0, len(snapshot.Plan.Shots))
	for _, shot := range snapshot.Plan.Shots {
		v := shotView{
			Ordinal:     shot.Ordinal,
			Role:        shot.Role,
			Description: shot.Description,
			Status:      "pending",
		}
		if res, ok := snapshot.Results[shot.Ordinal]; ok {
			v.Status = res.Status
			v.Score = res.Score
			v.Outlier = res.Outlier
			v.UsedReference = res.UsedReference
			v.Refined = res.Refined
			v.ImagePath = res.ImagePath
			v.ImageURL = res.ImageURL
			v.Error = res.Error
			if !res.Succeeded() {
				v.Hint = service.FriendlyMessage(res.FailureKind)
			}
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{"shots": views})
}

// 重生单个分镜：POST /v1/api/projects/:project_id/shots/:ordinal/refine
// edits 只覆盖提供的字段，其余分镜的结果保持不变
func RefineShot(c *gin.Context) {
	projectID := c.Param("project_id")
	ordinal, err := strconv.Atoi(c.Param("ordinal"))
	if err != nil || ordinal < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的分镜序号: " + c.Param("ordinal")})
		return
	}

	var req struct {
		Edits         models.ShotEdits `json:"edits"`
		ReferencePath string           `json:"reference_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := service.NewStore()
	snapshot, err := store.LoadProject(projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}
	if _, ok := snapshot.Plan.ShotByOrdinal(ordinal); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "分镜不存在: " + c.Param("ordinal")})
		return
	}

	task := models.Task{
		ID:        uuid.NewString(),
		ProjectId: projectID,
		Type:      models.TaskTypeRefineShot,
		Status:    models.TaskStatusPending,
		Message:   "分镜重生任务已创建...",
		Parameters: models.TaskParameters{
			Refine: &models.RefineParams{
				Ordinal:       ordinal,
				Edits:         req.Edits,
				ReferencePath: req.ReferencePath,
			},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := models.CreateTask(models.GormDB, &task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建任务失败: " + err.Error()})
		return
	}
	if err := service.EnqueueTask(task.ID); err != nil {
		log.Printf("任务入队失败: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID})
}

// 导出 contact sheet 网格图：POST /v1/api/projects/:project_id/export/grid
// 同步执行：拼图较快，不走任务队列
func ExportGrid(c *gin.Context) {
	projectID := c.Param("project_id")
	store := service.NewStore()

	snapshot, err := store.LoadProject(projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}

	// 按分镜序号排列，没跑完的位置留占位格
	results := make([]models.GenerationResult, 0, len(snapshot.Plan.Shots))
	for _, shot := range snapshot.Plan.Shots {
		if res, ok := snapshot.Results[shot.Ordinal]; ok {
			results = append(results, res)
		} else {
			results = append(results, models.GenerationResult{Ordinal: shot.Ordinal})
		}
	}

	grid, err := service.ExportGrid(results)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出网格图失败: " + err.Error()})
		return
	}

	gridPath := filepath.Join(store.Root, projectID, "grid.png")
	if err := os.WriteFile(gridPath, grid, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "写入网格图失败: " + err.Error()})
		return
	}

	resp := gin.H{"grid_path": gridPath}
	if service.MinioClient != nil {
		if url, err := service.UploadGridExport(projectID, grid); err == nil {
			resp["grid_url"] = url
		} else {
			log.Printf("网格图上传失败: %v", err)
		}
	}
	c.JSON(http.StatusOK, resp)
}
