package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

func TestBuildRequestRejectsEmptyPrompt(t *testing.T) {
	cm := models.DefaultContinuityMap()

	_, err := BuildRequest(cm, models.ShotSpec{Ordinal: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidShotSpec)

	_, err = BuildRequest(cm, models.ShotSpec{Ordinal: 1, Description: "   "}, nil)
	assert.ErrorIs(t, err, ErrInvalidShotSpec)

	_, err = BuildRequest(cm, models.ShotSpec{Ordinal: -1, Description: "x"}, nil)
	assert.ErrorIs(t, err, ErrInvalidShotSpec)
}

func TestBuildRequestShotOverridesWin(t *testing.T) {
	cm := models.DefaultContinuityMap()
	shot := models.ShotSpec{
		Ordinal:         2,
		Description:     "A knight by the gate",
		Framing:         models.FramingCloseUp,
		CameraAngle:     models.AngleDutch,
		CompositionRule: "centered",
	}

	payload, err := BuildRequest(cm, shot, nil)
	require.NoError(t, err)
	assert.Equal(t, models.FramingCloseUp, payload.Structured.Framing)
	assert.Equal(t, models.AngleDutch, payload.Structured.CameraAngle)
	assert.Equal(t, "centered", payload.Structured.CompositionRule)
	// 契约字段原样透传
	assert.Equal(t, cm.LensMM, payload.Structured.LensMM)
	assert.Equal(t, cm.ColorTemperatureK, payload.Structured.ColorTemperatureK)
}

func TestBuildRequestDefaults(t *testing.T) {
	cm := models.DefaultContinuityMap()
	shot := models.ShotSpec{Ordinal: 0, Description: "A knight by the gate"}

	payload, err := BuildRequest(cm, shot, nil)
	require.NoError(t, err)
	assert.Equal(t, models.FramingMedium, payload.Structured.Framing)
	assert.Equal(t, models.AngleEyeLevel, payload.Structured.CameraAngle)
	assert.Equal(t, "rule_of_thirds", payload.Structured.CompositionRule)
}

func TestBuildRequestPromptContent(t *testing.T) {
	cm := models.DefaultContinuityMap()
	shot := models.ShotSpec{
		Ordinal:     0,
		Description: "A knight by the gate",
		PromptDelta: "rain pouring down",
	}

	payload, err := BuildRequest(cm, shot, nil)
	require.NoError(t, err)
	// 描述在最前
	assert.True(t, strings.HasPrefix(payload.Prompt, "A knight by the gate"))
	assert.Contains(t, payload.Prompt, "rain pouring down")
	assert.Contains(t, payload.Prompt, "50mm lens")
	assert.Contains(t, payload.Prompt, "5200K color temperature")
	assert.Contains(t, payload.Prompt, "16-bit color depth")
}

func TestBuildRequestReferenceConditioning(t *testing.T) {
	cm := models.DefaultContinuityMap()
	shot := models.ShotSpec{Ordinal: 1, Description: "x"}

	p1, err := BuildRequest(cm, shot, nil)
	require.NoError(t, err)
	assert.False(t, p1.ImageConditioned())

	p2, err := BuildRequest(cm, shot, []byte{0x89, 0x50})
	require.NoError(t, err)
	assert.True(t, p2.ImageConditioned())
}
