package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
)

const (
	TypeDirectorTask = "director:run"
)

type TaskPayload struct {
	TaskID string `json:"task_id"`
}

var QueueClient *asynq.Client

// InitQueue 初始化
func InitQueue() {
	QueueClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	})
}

// EnqueueTask 通用的导演任务入队接口
func EnqueueTask(taskID string) error {
	payload, err := json.Marshal(TaskPayload{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypeDirectorTask, payload,
		asynq.MaxRetry(0),             // 生成失败不自动重试，由用户显式重新发起
		asynq.Timeout(30*time.Minute), // 整个序列逐镜生成，设置较长超时
		asynq.Retention(24*time.Hour), // 任务结果在 Redis 保留时间
	)

	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	log.Printf("[Queue] Task Enqueued: ID=%s, TaskID=%s", taskID, info.ID)
	return nil
}
