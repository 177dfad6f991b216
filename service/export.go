package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"

	"golang.org/x/image/draw"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

const (
	gridThumbWidth  = 320
	gridThumbHeight = 180
	gridPadding     = 12
)

var (
	gridBackground = color.RGBA{R: 30, G: 20, B: 50, A: 255}
	gridFiller     = color.RGBA{R: 18, G: 12, B: 30, A: 255}
)

// ExportGrid 把一组分镜结果拼成 contact sheet 网格图，返回 PNG 字节。
// 失败或缺图的分镜用深色占位格填充，保持序号位置不变。
func ExportGrid(results []models.GenerationResult) ([]byte, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("没有可导出的分镜")
	}
	cols := gridColumns(len(results))
	rows := (len(results) + cols - 1) / cols

	width := cols*gridThumbWidth + (cols+1)*gridPadding
	height := rows*gridThumbHeight + (rows+1)*gridPadding
	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(gridBackground), image.Point{}, draw.Src)

	for i, res := range results {
		col := i % cols
		row := i / cols
		x0 := gridPadding + col*(gridThumbWidth+gridPadding)
		y0 := gridPadding + row*(gridThumbHeight+gridPadding)
		cell := image.Rect(x0, y0, x0+gridThumbWidth, y0+gridThumbHeight)

		if !res.Succeeded() || len(res.Image) == 0 {
			draw.Draw(sheet, cell, image.NewUniform(gridFiller), image.Point{}, draw.Src)
			continue
		}
		src, _, err := image.Decode(bytes.NewReader(res.Image))
		if err != nil {
			log.Printf("分镜 %d 解码失败，使用占位格: %v", res.Ordinal, err)
			draw.Draw(sheet, cell, image.NewUniform(gridFiller), image.Point{}, draw.Src)
			continue
		}
		draw.ApproxBiLinear.Scale(sheet, cell, src, src.Bounds(), draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sheet); err != nil {
		return nil, fmt.Errorf("编码网格图失败: %w", err)
	}
	return buf.Bytes(), nil
}

func gridColumns(count int) int {
	switch {
	case count <= 2:
		return count
	case count <= 4:
		return 2
	case count <= 9:
		return 3
	default:
		return 4
	}
}
