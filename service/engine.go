package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// ProjectSession 单个逻辑会话持有的项目状态，由调用方显式传入每次引擎调用。
// 引擎自身不保存任何跨调用状态。
type ProjectSession struct {
	Name      string
	Plan      models.ProjectPlan
	Results   map[int]models.GenerationResult
	Reference []byte // 已确立的角色参考图（通常是 shot 0 的成功输出）
}

func NewSession(name string, plan models.ProjectPlan) *ProjectSession {
	return &ProjectSession{
		Name:    name,
		Plan:    plan,
		Results: make(map[int]models.GenerationResult),
	}
}

// OrderedResults 按序号排列的结果切片
func (s *ProjectSession) OrderedResults() []models.GenerationResult {
	out := make([]models.GenerationResult, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// Engine 序列引擎：严格按序号逐个生成，单个分镜失败不中断整个序列。
type Engine struct {
	Gen       Generator
	Validator Validator

	// 进度回调（任务进度 / WebSocket 推送用），可为 nil
	OnProgress func(index, total, ordinal int)
}

func NewEngine(gen Generator, v Validator) *Engine {
	return &Engine{Gen: gen, Validator: v}
}

// RunSequence 完整跑一遍分镜序列。
// shot 0 的成功输出会成为后续分镜的参考图（角色/风格连贯）；
// shot 0 失败则后续全部退化为纯文本生成，序列继续而不是中止。
// ctx 取消只在分镜之间生效，已记录的结果不受影响。
func (e *Engine) RunSequence(ctx context.Context, session *ProjectSession) (models.SequenceOutcome, error) {
	if err := session.Plan.Validate(); err != nil {
		return models.SequenceOutcome{}, err
	}

	total := len(session.Plan.Shots)
	log.Printf("开始生成序列: project=%s shots=%d", session.Plan.ProjectID, total)

	for i, shot := range session.Plan.Shots {
		// 取消检查只发生在分镜之间
		if err := ctx.Err(); err != nil {
			return e.outcome(session), err
		}
		if e.OnProgress != nil {
			e.OnProgress(i, total, shot.Ordinal)
		}

		result := e.generateShot(ctx, session, shot, session.Reference)
		// 第一镜成功即确立参考图（除非调用方预先提供了参考）
		if shot.Ordinal == 0 && result.Succeeded() && len(session.Reference) == 0 {
			session.Reference = result.Image
			log.Printf("shot 0 输出已确立为角色参考图")
		}
		session.Results[shot.Ordinal] = result
	}

	out := e.outcome(session)
	log.Printf("序列完成: project=%s 失败 %d/%d", session.Plan.ProjectID, out.Failed, total)
	return out, nil
}

// RefineShot 只重生一个分镜：当前契约 + 分镜 spec + 调用方 edits。
// 参考图优先用调用方提供的，否则用项目既有参考；只覆盖该分镜的结果。
func (e *Engine) RefineShot(ctx context.Context, session *ProjectSession, ordinal int, edits models.ShotEdits, reference []byte) (models.GenerationResult, error) {
	shot, ok := session.Plan.ShotByOrdinal(ordinal)
	if !ok {
		return models.GenerationResult{}, fmt.Errorf("%w: ordinal %d", ErrShotNotFound, ordinal)
	}
	shot = edits.Apply(shot)

	ref := reference
	if len(ref) == 0 {
		ref = session.Reference
	}

	result := e.generateShot(ctx, session, shot, ref)
	result.Refined = true
	if ordinal == 0 && result.Succeeded() {
		session.Reference = result.Image
	}
	session.Results[ordinal] = result
	return result, nil
}

// ApplyContinuity 契约变更：丢弃全部既有结果，从 shot 0 重跑整个序列
func (e *Engine) ApplyContinuity(ctx context.Context, session *ProjectSession, cm models.ContinuityMap) (models.SequenceOutcome, error) {
	session.Plan.Continuity = cm.Normalize()
	session.Results = make(map[int]models.GenerationResult)
	session.Reference = nil
	return e.RunSequence(ctx, session)
}

// generateShot 单个分镜的 构建 -> 生成 -> 校验 流程
func (e *Engine) generateShot(ctx context.Context, session *ProjectSession, shot models.ShotSpec, reference []byte) models.GenerationResult {
	result := models.GenerationResult{
		Ordinal:     shot.Ordinal,
		Score:       models.UnscoredContinuity,
		GeneratedAt: time.Now(),
	}

	payload, err := BuildRequest(session.Plan.Continuity, shot, reference)
	if err != nil {
		result.Status = models.ResultStatusFailed
		result.FailureKind = models.FailureInvalidRequest
		result.Error = err.Error()
		return result
	}
	result.UsedReference = payload.ImageConditioned()

	img, err := e.Gen.Generate(ctx, payload)
	if err != nil {
		kind := FailureKindOf(err)
		log.Printf("分镜 %d 生成失败 (%s): %v", shot.Ordinal, kind, err)
		result.Status = models.ResultStatusFailed
		result.FailureKind = kind
		result.Error = err.Error()
		return result
	}

	result.Status = models.ResultStatusSuccess
	result.Image = img

	// 对照参考图打连贯性分；分低只打标记，不阻止落账
	ref := reference
	if len(ref) == 0 && shot.Ordinal == 0 {
		ref = img // 第一镜对照自身，得分恒为 1.0
	}
	result.Score = e.Validator.Score(ref, img)
	result.Outlier = e.Validator.IsOutlier(result.Score)
	if result.Outlier {
		log.Printf("分镜 %d 连贯性异常: score=%.3f", shot.Ordinal, result.Score)
	}
	return result
}

func (e *Engine) outcome(session *ProjectSession) models.SequenceOutcome {
	results := session.OrderedResults()
	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	return models.SequenceOutcome{Results: results, Failed: failed}
}
