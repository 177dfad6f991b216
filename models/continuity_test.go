package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsZeroFields(t *testing.T) {
	cm := ContinuityMap{LensMM: 85.0}.Normalize()

	assert.Equal(t, 85.0, cm.LensMM)
	assert.Equal(t, 5200, cm.ColorTemperatureK)
	assert.Equal(t, "three_point", cm.LightingSetup)
	assert.NotEmpty(t, cm.Palette)
	assert.Equal(t, ColorDepth16Bit, cm.ColorDepth)
	assert.Equal(t, ModeStoryboard, cm.Mode)
}

func TestNormalizeKeepsFilledFields(t *testing.T) {
	in := ContinuityMap{
		LensMM:            24.0,
		ColorTemperatureK: 6500,
		LightingSetup:     "natural",
		Palette:           []string{"#000000"},
		ColorDepth:        ColorDepthHDR,
		Mode:              ModeProduct,
	}
	assert.Equal(t, in, in.Normalize())
}

func TestPlanValidateOrdinals(t *testing.T) {
	plan := ProjectPlan{Shots: []ShotSpec{
		{Ordinal: 0}, {Ordinal: 1}, {Ordinal: 2},
	}}
	assert.NoError(t, plan.Validate())

	plan.Shots[1].Ordinal = 5
	assert.Error(t, plan.Validate())

	// 空计划合法（规划阶段之前的状态）
	empty := ProjectPlan{}
	assert.NoError(t, empty.Validate())
}

func TestShotByOrdinal(t *testing.T) {
	plan := ProjectPlan{Shots: []ShotSpec{
		{Ordinal: 0, Role: "a"}, {Ordinal: 1, Role: "b"},
	}}

	shot, ok := plan.ShotByOrdinal(1)
	require.True(t, ok)
	assert.Equal(t, "b", shot.Role)

	_, ok = plan.ShotByOrdinal(2)
	assert.False(t, ok)
	_, ok = plan.ShotByOrdinal(-1)
	assert.False(t, ok)
}

func TestShotEditsApplyPartial(t *testing.T) {
	base := ShotSpec{
		Ordinal:     3,
		Description: "original",
		Framing:     FramingWide,
		CameraAngle: AngleEyeLevel,
	}

	framing := FramingCloseUp
	delta := "storm clouds"
	edited := ShotEdits{Framing: &framing, PromptDelta: &delta}.Apply(base)

	// 提供的字段覆盖，未提供的保持原值
	assert.Equal(t, FramingCloseUp, edited.Framing)
	assert.Equal(t, "storm clouds", edited.PromptDelta)
	assert.Equal(t, "original", edited.Description)
	assert.Equal(t, AngleEyeLevel, edited.CameraAngle)
	assert.Equal(t, 3, edited.Ordinal)

	// 原始 spec 不被修改
	assert.Equal(t, FramingWide, base.Framing)
}
