package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
	"github.com/snigdhareddy482/fibo-continuity-director/models"
	"github.com/snigdhareddy482/fibo-continuity-director/service"
)

// 创建项目：规划分镜 -> 落盘 -> 创建 run_sequence 任务并入队
func CreateProject(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		Brief     string `json:"brief"`
		Mode      string `json:"mode"`
		ShotCount int    `json:"shot_count"`
		UseArc    bool   `json:"use_arc"`
		// 为 true 时把 brief 当剧本全文解析，按场景展开分镜
		UseScript bool `json:"use_script"`
		// 为 true 时只生成规划，不自动开始生成序列
		PlanOnly bool `json:"plan_only"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Brief == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brief 不能为空"})
		return
	}

	// 默认分镜数量（剧本模式下分镜数由场景数决定，shot_count 只做上限）
	if req.ShotCount <= 0 && !req.UseScript {
		req.ShotCount = config.AppConfig.Planner.DefaultShotCount
	}

	var planner service.Planner = service.TemplatePlanner{}
	switch {
	case req.UseScript:
		planner = service.ScriptPlanner{}
	case req.UseArc:
		planner = service.ArcPlanner{}
	}
	plan, err := planner.Plan(req.Brief, req.Mode, req.ShotCount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "规划分镜失败: " + err.Error()})
		return
	}
	plan.ProjectID = service.SafeProjectID(req.Brief)

	name := req.Name
	if name == "" {
		name = plan.Title
	}
	if name == "" {
		name = req.Brief
	}
	session := service.NewSession(name, plan)
	store := service.NewStore()
	if err := store.SaveProject(plan.ProjectID, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建项目失败: " + err.Error()})
		return
	}

	resp := gin.H{
		"project_id": plan.ProjectID,
		"plan":       plan,
	}
	if !req.PlanOnly {
		task := models.Task{
			ID:        uuid.NewString(),
			ProjectId: plan.ProjectID,
			Type:      models.TaskTypeRunSequence,
			Status:    models.TaskStatusPending,
			Progress:  0,
			Message:   "项目已创建, 等待生成分镜序列...",
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
		resp["task_id"] = task.ID
	}
	c.JSON(http.StatusOK, resp)
}

// 项目列表
func ListProjects(c *gin.Context) {
	store := service.NewStore()
	summaries, err := store.ListProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取项目列表失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": summaries})
}

// 获取项目详情
func GetProject(c *gin.Context) {
	projectID := c.Param("project_id")
	store := service.NewStore()

	snapshot, err := store.LoadProject(projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		if errors.Is(err, service.ErrCorruptProject) {
			c.JSON(http.StatusConflict, gin.H{"error": "项目数据损坏: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}

	// 获取最近任务（如果有）
	var recentTask *models.Task
	if t, err := models.GetLatestTaskByProject(models.GormDB, projectID); err == nil {
		recentTask = t
	}

	c.JSON(http.StatusOK, gin.H{
		"project_detail": snapshot,
		"recent_task":    recentTask,
	})
}

// 删除项目
func DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")

	// 在删除前取消该项目正在运行的任务
	tasks, err := models.ListTasksByProject(models.GormDB, projectID)
	if err == nil {
		for _, t := range tasks {
			if t.Status != models.TaskStatusProcessing {
				continue
			}
			if service.CancelRunTask(t.ID) {
				log.Printf("Cancelled run for task %s before project delete", t.ID)
			}
			_ = t.UpdateStatus(models.GormDB, models.TaskStatusCancelled, "cancelled due to project delete")
		}
	}

	store := service.NewStore()
	if err := store.DeleteProject(projectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除项目失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"deleteAt": time.Now(),
		"message":  "项目已删除",
	})
}

// 重新生成整个序列：POST /v1/api/projects/:project_id/generate
func GenerateSequence(c *gin.Context) {
	projectID := c.Param("project_id")
	store := service.NewStore()
	if _, err := store.LoadProject(projectID); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}

	task := models.Task{
		ID:        uuid.NewString(),
		ProjectId: projectID,
		Type:      models.TaskTypeRunSequence,
		Status:    models.TaskStatusPending,
		Message:   "序列生成任务已创建...",
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

// 变更连续性契约：POST /v1/api/projects/:project_id/continuity
// 契约变更意味着既有结果全部作废，任务会从 shot 0 重跑整个序列
func ApplyContinuity(c *gin.Context) {
	projectID := c.Param("project_id")
	var req struct {
		Continuity    models.ContinuityMap `json:"continuity"`
		ReferencePath string               `json:"reference_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := service.NewStore()
	if _, err := store.LoadProject(projectID); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}

	task := models.Task{
		ID:        uuid.NewString(),
		ProjectId: projectID,
		Type:      models.TaskTypeApplyContinuity,
		Status:    models.TaskStatusPending,
		Message:   "契约变更任务已创建, 将重跑整个序列...",
		Parameters: models.TaskParameters{
			Continuity: &models.ContinuityParams{
				Map:           req.Continuity,
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
