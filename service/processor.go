package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// 运行中序列的取消注册表（taskID -> cancelFunc）
var runCancelRegistry = struct {
	sync.RWMutex
	m map[string]context.CancelFunc
}{
	m: make(map[string]context.CancelFunc),
}

// RegisterRunCancel 注册运行的 cancelFunc（由 HandleDirectorTask 在开始生成时调用）
func RegisterRunCancel(taskID string, cancel context.CancelFunc) {
	runCancelRegistry.Lock()
	defer runCancelRegistry.Unlock()
	runCancelRegistry.m[taskID] = cancel
}

// UnregisterRunCancel 注销 cancelFunc（运行结束时调用）
func UnregisterRunCancel(taskID string) {
	runCancelRegistry.Lock()
	defer runCancelRegistry.Unlock()
	delete(runCancelRegistry.m, taskID)
}

// CancelRunTask 外部调用以取消正在运行的序列，返回是否实际找到并取消。
// 取消只在分镜之间生效，当前正在生成的分镜会跑完并落账。
func CancelRunTask(taskID string) bool {
	runCancelRegistry.Lock()
	defer runCancelRegistry.Unlock()
	if cancel, ok := runCancelRegistry.m[taskID]; ok {
		cancel()
		delete(runCancelRegistry.m, taskID)
		return true
	}
	return false
}

// Processor 处理队列任务
type Processor struct {
	DB        *gorm.DB
	Store     *Store
	Gen       Generator
	Validator Validator
}

func NewProcessor(db *gorm.DB) *Processor {
	return &Processor{
		DB:        db,
		Store:     NewStore(),
		Gen:       NewFiboClient(),
		Validator: NewValidator(),
	}
}

// StartProcessor 启动任务消费者
func (p *Processor) StartProcessor(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDirectorTask, p.HandleDirectorTask)

	log.Printf("Starting Task Processor with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run server: %v", err)
		}
	}()
}

// HandleDirectorTask 核心处理逻辑
func (p *Processor) HandleDirectorTask(ctx context.Context, t *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	task, err := models.GetTaskByID(p.DB, payload.TaskID)
	if err != nil {
		return fmt.Errorf("task not found: %v", err)
	}
	return p.processTask(ctx, task)
}

func (p *Processor) processTask(ctx context.Context, task *models.Task) error {
	// 入队后、开跑前被取消的任务直接跳过，不能把状态翻回 processing
	if task.Status == models.TaskStatusCancelled {
		log.Printf("Task %s already cancelled, skipping", task.ID)
		return nil
	}

	log.Printf("Processing Task: %s | Type: %s", task.ID, task.Type)
	if err := task.UpdateStatus(p.DB, models.TaskStatusProcessing, ""); err != nil {
		log.Printf("UpdateStatus processing failed: %v", err)
	}

	session, err := p.Store.RestoreSession(task.ProjectId)
	if err != nil {
		log.Printf("恢复项目会话失败: %v", err)
		task.UpdateStatus(p.DB, models.TaskStatusFailed, fmt.Sprintf("load project failed: %v", err))
		return nil // 业务失败，不重试
	}

	engine := NewEngine(p.Gen, p.Validator)
	total := len(session.Plan.Shots)
	engine.OnProgress = func(index, total, ordinal int) {
		progress := 0
		if total > 0 {
			progress = index * 100 / total
		}
		task.UpdateProgress(p.DB, progress, fmt.Sprintf("正在生成分镜 %d/%d", ordinal+1, total))
	}

	// 为运行创建可取消的子上下文并注册 cancel（外部 API 可通过 CancelRunTask 取消）
	runCtx, cancel := context.WithCancel(ctx)
	RegisterRunCancel(task.ID, cancel)
	defer UnregisterRunCancel(task.ID)

	var runErr error
	switch task.Type {
	case models.TaskTypeRunSequence:
		_, runErr = engine.RunSequence(runCtx, session)

	case models.TaskTypeRefineShot:
		params := task.Parameters.Refine
		if params == nil {
			task.UpdateStatus(p.DB, models.TaskStatusFailed, "missing refine parameters")
			return nil
		}
		var reference []byte
		if params.ReferencePath != "" {
			reference, err = p.readProjectFile(task.ProjectId, params.ReferencePath)
			if err != nil {
				task.UpdateStatus(p.DB, models.TaskStatusFailed, fmt.Sprintf("read reference failed: %v", err))
				return nil
			}
		}
		_, runErr = engine.RefineShot(runCtx, session, params.Ordinal, params.Edits, reference)

	case models.TaskTypeApplyContinuity:
		params := task.Parameters.Continuity
		if params == nil {
			task.UpdateStatus(p.DB, models.TaskStatusFailed, "missing continuity parameters")
			return nil
		}
		cm := params.Map
		if params.ReferencePath != "" {
			// 从参考图提取风格指纹，再合并进新契约
			refImg, err := p.readProjectFile(task.ProjectId, params.ReferencePath)
			if err != nil {
				task.UpdateStatus(p.DB, models.TaskStatusFailed, fmt.Sprintf("read reference failed: %v", err))
				return nil
			}
			dna, err := ExtractStyleDNA(refImg)
			if err != nil {
				task.UpdateStatus(p.DB, models.TaskStatusFailed, fmt.Sprintf("style extraction failed: %v", err))
				return nil
			}
			cm = dna.ApplyToContinuity(cm)
		}
		_, runErr = engine.ApplyContinuity(runCtx, session, cm)

	default:
		task.UpdateStatus(p.DB, models.TaskStatusFailed, fmt.Sprintf("unknown task type: %s", task.Type))
		return nil
	}

	// 无论成败都先落盘，部分结果同样有价值
	if err := p.Store.SaveProject(task.ProjectId, session); err != nil {
		log.Printf("保存项目失败: %v", err)
		task.UpdateStatus(p.DB, models.TaskStatusFailed, fmt.Sprintf("save project failed: %v", err))
		return nil
	}
	p.publishImages(task.ProjectId, session)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Printf("任务 %s 已取消", task.ID)
			task.UpdateStatus(p.DB, models.TaskStatusCancelled, "")
			return nil
		}
		task.UpdateStatus(p.DB, models.TaskStatusFailed, runErr.Error())
		return nil
	}

	failed := 0
	for _, r := range session.OrderedResults() {
		if !r.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		task.UpdateProgress(p.DB, 100, fmt.Sprintf("完成，%d/%d 分镜失败", failed, total))
	} else {
		task.UpdateProgress(p.DB, 100, "全部分镜生成完成")
	}
	task.UpdateStatus(p.DB, models.TaskStatusSuccess, "")
	log.Printf("Task %s completed successfully", task.ID)
	return nil
}

// publishImages 把成功的分镜图上传 MinIO 并回写签名 URL，再补一次落盘。
// 上传失败只记日志，本地文件是权威副本。
func (p *Processor) publishImages(projectID string, session *ProjectSession) {
	if MinioClient == nil {
		return
	}
	changed := false
	for ordinal, res := range session.Results {
		if !res.Succeeded() || len(res.Image) == 0 {
			continue
		}
		url, err := UploadShotImage(projectID, ordinal, res.Image)
		if err != nil {
			log.Printf("分镜 %d 上传失败: %v", ordinal, err)
			continue
		}
		res.ImageURL = url
		session.Results[ordinal] = res
		changed = true
	}
	if changed {
		if err := p.Store.SaveProject(projectID, session); err != nil {
			log.Printf("回写图片 URL 失败: %v", err)
		}
	}
}

// readProjectFile 读取项目目录内的文件，路径只取文件名以防越界
func (p *Processor) readProjectFile(projectID, name string) ([]byte, error) {
	path := filepath.Join(p.Store.Root, projectID, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败 %s: %w", path, err)
	}
	return data, nil
}
