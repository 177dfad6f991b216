package service

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// fakeGenerator 按 ordinal 返回预设结果，并记录收到的请求
type fakeGenerator struct {
	calls   []RequestPayload
	respond func(p RequestPayload) ([]byte, error)
}

func (f *fakeGenerator) Generate(_ context.Context, p RequestPayload) ([]byte, error) {
	f.calls = append(f.calls, p)
	return f.respond(p)
}

func testPlan(numShots int) models.ProjectPlan {
	shots := make([]models.ShotSpec, numShots)
	for i := range shots {
		shots[i] = models.ShotSpec{Ordinal: i, Description: "shot description"}
	}
	return models.ProjectPlan{
		ProjectID:  "p1",
		Title:      "test",
		Brief:      "brief",
		Mode:       models.ModeStoryboard,
		Continuity: models.DefaultContinuityMap(),
		Shots:      shots,
	}
}

func TestRunSequenceAllSuccess(t *testing.T) {
	img := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 16, 16)
	gen := &fakeGenerator{respond: func(RequestPayload) ([]byte, error) { return img, nil }}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(3))

	outcome, err := engine.RunSequence(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Failed)
	require.Len(t, outcome.Results, 3)
	for i, r := range outcome.Results {
		assert.Equal(t, i, r.Ordinal)
		assert.True(t, r.Succeeded())
	}
	// 首镜确立参考图，后续全部 image-to-image
	assert.False(t, gen.calls[0].ImageConditioned())
	assert.True(t, gen.calls[1].ImageConditioned())
	assert.True(t, gen.calls[2].ImageConditioned())
	assert.Equal(t, img, session.Reference)
	// 首镜对照自身，得分恒为 1.0
	assert.InDelta(t, 1.0, outcome.Results[0].Score, 1e-9)
}

func TestRunSequenceShotZeroFailureDropsReference(t *testing.T) {
	img := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 16, 16)
	gen := &fakeGenerator{respond: func(p RequestPayload) ([]byte, error) {
		if p.Structured.Ordinal == 0 {
			return nil, &GenError{Kind: models.FailureServer, Message: "boom"}
		}
		return img, nil
	}}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(3))

	outcome, err := engine.RunSequence(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, models.FailureServer, outcome.Results[0].FailureKind)
	// 没有参考图，后续退化为纯文本生成，但序列继续
	assert.True(t, outcome.Results[1].Succeeded())
	assert.True(t, outcome.Results[2].Succeeded())
	assert.False(t, gen.calls[1].ImageConditioned())
	assert.False(t, gen.calls[2].ImageConditioned())
	assert.Nil(t, session.Reference)
}

func TestRunSequenceMidFailureContinues(t *testing.T) {
	img := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 16, 16)
	gen := &fakeGenerator{respond: func(p RequestPayload) ([]byte, error) {
		if p.Structured.Ordinal == 1 {
			return nil, &GenError{Kind: models.FailureRateLimited, Message: "429"}
		}
		return img, nil
	}}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(4))

	outcome, err := engine.RunSequence(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, models.FailureRateLimited, outcome.Results[1].FailureKind)
	// 失败镜之后的分镜照常生成，仍然带参考图
	assert.True(t, outcome.Results[2].Succeeded())
	assert.True(t, gen.calls[2].ImageConditioned())
}

func TestRunSequenceCancelBetweenShots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	img := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 16, 16)
	gen := &fakeGenerator{respond: func(p RequestPayload) ([]byte, error) {
		if p.Structured.Ordinal == 0 {
			cancel() // 当前分镜跑完，取消在下一镜之前生效
		}
		return img, nil
	}}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(3))

	outcome, err := engine.RunSequence(ctx, session)
	assert.ErrorIs(t, err, context.Canceled)
	// 已落账的结果保留
	require.Len(t, outcome.Results, 1)
	assert.True(t, outcome.Results[0].Succeeded())
	assert.Len(t, gen.calls, 1)
}

func TestRefineShotOnlyTouchesOneOrdinal(t *testing.T) {
	imgA := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 16, 16)
	imgB := solidPNG(t, color.RGBA{R: 60, G: 120, B: 200, A: 255}, 16, 16)
	gen := &fakeGenerator{respond: func(RequestPayload) ([]byte, error) { return imgA, nil }}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(3))

	_, err := engine.RunSequence(context.Background(), session)
	require.NoError(t, err)
	before1 := session.Results[1]

	gen.respond = func(RequestPayload) ([]byte, error) { return imgB, nil }
	newFraming := models.FramingCloseUp
	result, err := engine.RefineShot(context.Background(), session, 2,
		models.ShotEdits{Framing: &newFraming}, nil)
	require.NoError(t, err)

	assert.True(t, result.Refined)
	assert.Equal(t, imgB, session.Results[2].Image)
	// edits 只作用于本次请求
	lastCall := gen.calls[len(gen.calls)-1]
	assert.Equal(t, models.FramingCloseUp, lastCall.Structured.Framing)
	// 其余分镜不受影响
	assert.Equal(t, before1, session.Results[1])
	assert.Equal(t, imgA, session.Results[0].Image)
}

func TestRefineShotUnknownOrdinal(t *testing.T) {
	gen := &fakeGenerator{respond: func(RequestPayload) ([]byte, error) { return nil, nil }}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(2))

	_, err := engine.RefineShot(context.Background(), session, 7, models.ShotEdits{}, nil)
	assert.ErrorIs(t, err, ErrShotNotFound)
}

func TestApplyContinuityDiscardsAndReruns(t *testing.T) {
	img := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 16, 16)
	gen := &fakeGenerator{respond: func(RequestPayload) ([]byte, error) { return img, nil }}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	session := NewSession("test", testPlan(2))

	_, err := engine.RunSequence(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, gen.calls, 2)

	newCM := models.ContinuityMap{LensMM: 85.0}
	outcome, err := engine.ApplyContinuity(context.Background(), session, newCM)
	require.NoError(t, err)

	// 全量重跑：再来 2 次调用，新契约生效且缺省字段被补全
	assert.Len(t, gen.calls, 4)
	assert.Equal(t, 85.0, session.Plan.Continuity.LensMM)
	assert.NotEmpty(t, session.Plan.Continuity.LightingSetup)
	assert.Len(t, outcome.Results, 2)
	// 重跑后首镜请求不带旧参考图
	assert.False(t, gen.calls[2].ImageConditioned())
}

func TestGenerateShotInvalidSpecFailsInPlace(t *testing.T) {
	gen := &fakeGenerator{respond: func(RequestPayload) ([]byte, error) {
		t.Fatal("generator should not be called for invalid spec")
		return nil, nil
	}}
	engine := NewEngine(gen, Validator{Threshold: 0.85})
	plan := testPlan(1)
	plan.Shots[0].Description = ""
	session := NewSession("test", plan)

	outcome, err := engine.RunSequence(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, models.FailureInvalidRequest, outcome.Results[0].FailureKind)
}
