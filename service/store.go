package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

const planFileName = "project.json"

// Store 项目快照存储：每个项目一个目录，
// 目录内是一份 project.json（计划 + 结果元数据）和每个分镜一张 shot_NNN.png。
// 保存是整体覆盖，不做增量合并。
type Store struct {
	Root string
}

func NewStore() *Store {
	return &Store{Root: config.AppConfig.Storage.OutputDir}
}

func (s *Store) projectDir(projectID string) string {
	return filepath.Join(s.Root, projectID)
}

// ShotImagePath 某个分镜图片在项目目录内的落盘路径
func (s *Store) ShotImagePath(projectID string, ordinal int) string {
	return filepath.Join(s.projectDir(projectID), fmt.Sprintf("shot_%03d.png", ordinal))
}

// SaveProject 幂等保存：同一 projectID 重复调用整体覆盖旧快照
func (s *Store) SaveProject(projectID string, session *ProjectSession) error {
	dir := s.projectDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建项目目录失败: %w", err)
	}

	// 先清掉旧的分镜图，避免残留已被覆盖/删除的序号
	stale, _ := filepath.Glob(filepath.Join(dir, "shot_*.png"))
	for _, f := range stale {
		_ = os.Remove(f)
	}

	snapshot := models.PersistedProject{
		Name:      session.Name,
		Plan:      session.Plan,
		Results:   make(map[int]models.GenerationResult, len(session.Results)),
		UpdatedAt: time.Now(),
	}
	// 保留首次保存时间
	if prev, err := s.readSnapshot(projectID); err == nil && !prev.CreatedAt.IsZero() {
		snapshot.CreatedAt = prev.CreatedAt
	} else {
		snapshot.CreatedAt = snapshot.UpdatedAt
	}

	for ordinal, r := range session.Results {
		if len(r.Image) > 0 {
			path := s.ShotImagePath(projectID, ordinal)
			if err := os.WriteFile(path, r.Image, 0o644); err != nil {
				return fmt.Errorf("写入分镜图片失败: %w", err)
			}
			r.ImagePath = filepath.Base(path)
		}
		snapshot.Results[ordinal] = r
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化项目快照失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, planFileName), data, 0o644); err != nil {
		return fmt.Errorf("写入项目快照失败: %w", err)
	}
	log.Printf("项目已保存: %s (%d 个结果)", projectID, len(snapshot.Results))
	return nil
}

func (s *Store) readSnapshot(projectID string) (*models.PersistedProject, error) {
	data, err := os.ReadFile(filepath.Join(s.projectDir(projectID), planFileName))
	if err != nil {
		return nil, err
	}
	var snapshot models.PersistedProject
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LoadProject 读取快照并把分镜图片加载回内存，返回可直接续跑的项目状态
func (s *Store) LoadProject(projectID string) (*models.PersistedProject, error) {
	dir := s.projectDir(projectID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	snapshot, err := s.readSnapshot(projectID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptProject, projectID, err)
	}
	if snapshot.Results == nil {
		snapshot.Results = make(map[int]models.GenerationResult)
	}

	for ordinal, r := range snapshot.Results {
		if r.ImagePath == "" {
			continue
		}
		img, err := os.ReadFile(filepath.Join(dir, r.ImagePath))
		if err != nil {
			// 图片文件丢了只影响该分镜的预览/续跑参考，不算整体损坏
			log.Printf("读取分镜图片失败 %s/%s: %v", projectID, r.ImagePath, err)
			continue
		}
		r.Image = img
		snapshot.Results[ordinal] = r
	}
	return snapshot, nil
}

// RestoreSession 把持久化快照还原成引擎会话（参考图取 shot 0 的成功输出）
func (s *Store) RestoreSession(projectID string) (*ProjectSession, error) {
	snapshot, err := s.LoadProject(projectID)
	if err != nil {
		return nil, err
	}
	session := &ProjectSession{
		Name:    snapshot.Name,
		Plan:    snapshot.Plan,
		Results: snapshot.Results,
	}
	if r, ok := snapshot.Results[0]; ok && r.Succeeded() {
		session.Reference = r.Image
	}
	return session, nil
}

// DeleteProject 删除整个项目目录
func (s *Store) DeleteProject(projectID string) error {
	dir := s.projectDir(projectID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return os.RemoveAll(dir)
}

// ListProjects 遍历存储目录生成轻量项目摘要。
// 不加载图片；单个损坏的快照跳过，不影响其他项目；空目录返回空切片。
func (s *Store) ListProjects() ([]models.ProjectSummary, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.ProjectSummary{}, nil
		}
		return nil, fmt.Errorf("读取存储目录失败: %w", err)
	}

	summaries := []models.ProjectSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snapshot, err := s.readSnapshot(entry.Name())
		if err != nil {
			// 损坏或缺失的快照：列表阶段静默跳过，Load 时才报 CorruptProject
			continue
		}
		summaries = append(summaries, models.ProjectSummary{
			ProjectID:    entry.Name(),
			Name:         snapshot.Name,
			Mode:         snapshot.Plan.Mode,
			ShotCount:    len(snapshot.Plan.Shots),
			LastModified: snapshot.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastModified.After(summaries[j].LastModified)
	})
	return summaries, nil
}
