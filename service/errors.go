package service

import (
	"errors"
	"fmt"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

var (
	// ErrInvalidShotSpec 分镜缺少必要的提示词内容，本地错误，不可重试
	ErrInvalidShotSpec = errors.New("invalid shot spec")
	// ErrProjectNotFound 项目 id 在存储目录中不存在
	ErrProjectNotFound = errors.New("project not found")
	// ErrCorruptProject 单个项目快照损坏（不影响其他项目的加载/列举）
	ErrCorruptProject = errors.New("corrupt project snapshot")
	// ErrShotNotFound 分镜序号超出计划范围
	ErrShotNotFound = errors.New("shot not found in plan")
)

// GenError 生成服务返回的结构化失败，Kind 供上层区分处理
type GenError struct {
	Kind    models.FailureKind
	Message string
}

func (e *GenError) Error() string {
	return fmt.Sprintf("generation failed (%s): %s", e.Kind, e.Message)
}

// FailureKindOf 从 error 中提取失败类别；非 GenError 一律按网络错误处理
func FailureKindOf(err error) models.FailureKind {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return models.FailureNetwork
}

// FriendlyMessage 把失败类别翻译成给用户看的提示
// （展示层用，core 内部只传 Kind）
func FriendlyMessage(kind models.FailureKind) string {
	switch kind {
	case models.FailureAuth:
		return "API key invalid or expired. Please check your FIBO API key."
	case models.FailureInvalidRequest:
		return "Invalid request format. The prompt may contain unsupported content."
	case models.FailureRateLimited:
		return "Rate limit exceeded. Please wait a moment and try again."
	case models.FailureServer:
		return "API server error. Please try again later."
	case models.FailureTimeout:
		return "Request timed out. The server may be busy."
	case models.FailureNetwork:
		return "Network error. Please check your connection and try again."
	}
	return "Generation failed."
}
