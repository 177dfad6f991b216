package service

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

func TestExtractStyleDNAWarmImage(t *testing.T) {
	warm := solidPNG(t, color.RGBA{R: 230, G: 140, B: 60, A: 255}, 64, 64)
	dna, err := ExtractStyleDNA(warm)
	require.NoError(t, err)

	assert.Equal(t, "warm", dna.Warmth)
	assert.NotEmpty(t, dna.Palette)
	// 纯色图合并为单一主色
	assert.Len(t, dna.Palette, 1)
}

func TestExtractStyleDNACoolDarkImage(t *testing.T) {
	cool := solidPNG(t, color.RGBA{R: 20, G: 30, B: 80, A: 255}, 64, 64)
	dna, err := ExtractStyleDNA(cool)
	require.NoError(t, err)

	assert.Equal(t, "cool", dna.Warmth)
	assert.Equal(t, "dark", dna.Brightness)
}

func TestExtractStyleDNABadInput(t *testing.T) {
	_, err := ExtractStyleDNA([]byte("garbage"))
	assert.Error(t, err)
}

func TestApplyToContinuityKeepsLens(t *testing.T) {
	dna := StyleDNA{
		Palette: []string{"#AA5522", "#112233"},
		Warmth:  "warm",
	}
	cm := models.ContinuityMap{LensMM: 85.0, LightingSetup: "soft_box"}

	out := dna.ApplyToContinuity(cm)
	// 只动色彩相关字段
	assert.Equal(t, 85.0, out.LensMM)
	assert.Equal(t, "soft_box", out.LightingSetup)
	assert.Equal(t, 3500, out.ColorTemperatureK)
	assert.Equal(t, dna.Palette, out.Palette)
}
