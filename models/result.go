package models

import "time"

const (
	ResultStatusSuccess = "success"
	ResultStatusFailed  = "failed"
)

// 生成失败类别。Auth / InvalidRequest 不可重试，
// 其余由调用方决定是否手动重新触发（默认不自动重试）。
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureAuth           FailureKind = "auth_error"
	FailureRateLimited    FailureKind = "rate_limited"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureServer         FailureKind = "server_error"
	FailureTimeout        FailureKind = "timeout"
	FailureNetwork        FailureKind = "network_error"
)

// Retriable 是否允许调用方重新触发该类失败
func (k FailureKind) Retriable() bool {
	switch k {
	case FailureAuth, FailureInvalidRequest:
		return false
	}
	return true
}

// UnscoredContinuity 校验器的哨兵值：任一图片缺失/无法解码时返回，
// 不视为错误，也永远不会被标记为 outlier。
const UnscoredContinuity = -1.0

// GenerationResult 单个分镜的生成结果，按 Ordinal 唯一，
// 重新生成 / refine 时原地覆盖。
type GenerationResult struct {
	Ordinal       int         `json:"ordinal"`
	Status        string      `json:"status"`
	FailureKind   FailureKind `json:"failureKind,omitempty"`
	Error         string      `json:"error,omitempty"`
	Image         []byte      `json:"-"`
	ImagePath     string      `json:"imagePath,omitempty"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	Score         float64     `json:"score"`
	Outlier       bool        `json:"outlier"`
	UsedReference bool        `json:"usedReference"`
	Refined       bool        `json:"refined,omitempty"`
	GeneratedAt   time.Time   `json:"generatedAt"`
}

// Succeeded 该分镜是否生成成功
func (r GenerationResult) Succeeded() bool {
	return r.Status == ResultStatusSuccess
}

// SequenceOutcome 一次完整序列运行的结果：每个分镜一条，按序号排列
type SequenceOutcome struct {
	Results []GenerationResult `json:"results"`
	Failed  int                `json:"failed"`
}

// PersistedProject 落盘快照：计划 + 结果元数据 + 项目元信息。
// 图片字节不进 JSON，以 shot_NNN.png 文件形式存在项目目录下。
type PersistedProject struct {
	Name      string                   `json:"name"`
	Plan      ProjectPlan              `json:"plan"`
	Results   map[int]GenerationResult `json:"results"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// ProjectSummary 列表页用的轻量摘要，不加载图片
type ProjectSummary struct {
	ProjectID    string    `json:"projectId"`
	Name         string    `json:"name"`
	Mode         string    `json:"mode"`
	ShotCount    int       `json:"shotCount"`
	LastModified time.Time `json:"lastModified"`
}
