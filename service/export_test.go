package service

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

func TestExportGridDimensions(t *testing.T) {
	img := solidPNG(t, color.RGBA{R: 200, G: 120, B: 60, A: 255}, 64, 64)
	results := make([]models.GenerationResult, 6)
	for i := range results {
		results[i] = models.GenerationResult{
			Ordinal: i,
			Status:  models.ResultStatusSuccess,
			Image:   img,
		}
	}

	data, err := ExportGrid(results)
	require.NoError(t, err)

	sheet, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	// 6 张图 -> 3 列 2 行
	wantW := 3*gridThumbWidth + 4*gridPadding
	wantH := 2*gridThumbHeight + 3*gridPadding
	assert.Equal(t, wantW, sheet.Bounds().Dx())
	assert.Equal(t, wantH, sheet.Bounds().Dy())
}

func TestExportGridFailedShotsGetFiller(t *testing.T) {
	img := solidPNG(t, color.RGBA{R: 255, A: 255}, 32, 32)
	results := []models.GenerationResult{
		{Ordinal: 0, Status: models.ResultStatusSuccess, Image: img},
		{Ordinal: 1, Status: models.ResultStatusFailed},
	}

	data, err := ExportGrid(results)
	require.NoError(t, err)

	sheet, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// 第二个格子中心是深色占位
	cx := gridPadding + gridThumbWidth + gridPadding + gridThumbWidth/2
	cy := gridPadding + gridThumbHeight/2
	r, g, b, _ := sheet.At(cx, cy).RGBA()
	assert.Equal(t, uint32(gridFiller.R)*0x101, r)
	assert.Equal(t, uint32(gridFiller.G)*0x101, g)
	assert.Equal(t, uint32(gridFiller.B)*0x101, b)
}

func TestExportGridEmpty(t *testing.T) {
	_, err := ExportGrid(nil)
	assert.Error(t, err)
}

func TestGridColumns(t *testing.T) {
	assert.Equal(t, 1, gridColumns(1))
	assert.Equal(t, 2, gridColumns(2))
	assert.Equal(t, 2, gridColumns(4))
	assert.Equal(t, 3, gridColumns(9))
	assert.Equal(t, 4, gridColumns(10))
}
