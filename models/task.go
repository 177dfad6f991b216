package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// 任务状态（系统内统一使用）
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusSuccess    = "finished"
	TaskStatusFailed     = "failed"
	// cancelled: 任务被用户取消（序列运行在分镜之间检查取消标记）
	TaskStatusCancelled = "cancelled"

	// 三种核心任务类型
	TaskTypeRunSequence     = "run_sequence"     // 全序列生成
	TaskTypeRefineShot      = "refine_shot"      // 单分镜重生
	TaskTypeApplyContinuity = "apply_continuity" // 契约变更 -> 丢弃结果全量重跑
)

type Task struct {
	ID         string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectId  string         `json:"projectId"`
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Progress   int            `json:"progress"`
	Message    string         `json:"message"`
	Parameters TaskParameters `gorm:"type:json" json:"parameters"`
	Error      string         `json:"error"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type TaskParameters struct {
	Refine     *RefineParams     `json:"refine,omitempty"`
	Continuity *ContinuityParams `json:"continuity,omitempty"`
}

// RefineParams 单分镜重生参数
type RefineParams struct {
	Ordinal int       `json:"ordinal"`
	Edits   ShotEdits `json:"edits"`
	// 调用方指定的参考图（项目目录内的相对路径），为空则用项目既有参考
	ReferencePath string `json:"referencePath,omitempty"`
}

// ContinuityParams apply_continuity 的新契约；
// ReferencePath 非空时先从该参考图提取风格再合并
type ContinuityParams struct {
	Map           ContinuityMap `json:"map"`
	ReferencePath string        `json:"referencePath,omitempty"`
}

// 实现 driver.Valuer 接口: Go Struct -> JSON String (存入数据库)
func (p TaskParameters) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// 实现 sql.Scanner 接口: JSON String -> Go Struct (从数据库读取)
func (p *TaskParameters) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("Failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, p)
}

func (t *Task) UpdateStatus(db *gorm.DB, status string, errMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	switch status {
	case TaskStatusProcessing:
		updates["started_at"] = time.Now()
	case TaskStatusSuccess, TaskStatusFailed, TaskStatusCancelled:
		updates["finished_at"] = time.Now()
	}
	if err := db.Model(t).Updates(updates).Error; err != nil {
		log.Printf("更新任务状态失败 %s: %v", t.ID, err)
		return err
	}
	return nil
}

// UpdateProgress 按分镜进度更新（0-100），message 为当前分镜描述
func (t *Task) UpdateProgress(db *gorm.DB, progress int, message string) error {
	return db.Model(t).Updates(map[string]interface{}{
		"progress":   progress,
		"message":    message,
		"updated_at": time.Now(),
	}).Error
}

func GetTaskByID(db *gorm.DB, taskID string) (*Task, error) {
	var task Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// GetLatestTaskByProject 项目最近一次任务（详情页展示用）
func GetLatestTaskByProject(db *gorm.DB, projectID string) (*Task, error) {
	var task Task
	err := db.Where("project_id = ?", projectID).Order("created_at DESC").First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// 强制指定表名为 "task"
func (Task) TableName() string {
	return "task"
}
