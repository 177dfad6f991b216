package service

import (
	"bytes"
	"fmt"
	"image"
	"sort"

	"golang.org/x/image/draw"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// StyleDNA 参考图的风格指纹：主色板 + 冷暖/亮度/饱和度分类。
// 用于从已有图片反推连续性参数（镜头保持不变，只调整色彩相关字段）。
type StyleDNA struct {
	Palette    []string `json:"palette"`
	Warmth     string   `json:"warmth"`     // warm | neutral | cool
	Brightness string   `json:"brightness"` // dark | medium | bright
	Saturation string   `json:"saturation"` // muted | moderate | vivid
}

const (
	dnaSampleSize   = 64
	paletteMaxSize  = 5
	colorMergeRange = 30 // 每通道差值小于该值视为同色
)

// ExtractStyleDNA 从图片字节中提取风格指纹。
func ExtractStyleDNA(img []byte) (StyleDNA, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return StyleDNA{}, fmt.Errorf("解码参考图失败: %w", err)
	}
	small := image.NewRGBA(image.Rect(0, 0, dnaSampleSize, dnaSampleSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	type bucket struct {
		r, g, b float64
		count   int
	}
	var buckets []*bucket
	var sumSat, sumVal, sumWarm float64
	total := 0

	for y := 0; y < dnaSampleSize; y++ {
		for x := 0; x < dnaSampleSize; x++ {
			off := small.PixOffset(x, y)
			r := float64(small.Pix[off])
			g := float64(small.Pix[off+1])
			b := float64(small.Pix[off+2])

			_, s, v := rgbToHSV(r/255, g/255, b/255)
			sumSat += s
			sumVal += v
			sumWarm += (r - b) / 255
			total++

			merged := false
			for _, bk := range buckets {
				mean := float64(bk.count)
				if abs(r-bk.r/mean) < colorMergeRange &&
					abs(g-bk.g/mean) < colorMergeRange &&
					abs(b-bk.b/mean) < colorMergeRange {
					bk.r += r
					bk.g += g
					bk.b += b
					bk.count++
					merged = true
					break
				}
			}
			if !merged {
				buckets = append(buckets, &bucket{r: r, g: g, b: b, count: 1})
			}
		}
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].count > buckets[j].count })
	palette := make([]string, 0, paletteMaxSize)
	for _, bk := range buckets {
		if len(palette) == paletteMaxSize {
			break
		}
		n := float64(bk.count)
		palette = append(palette, fmt.Sprintf("#%02X%02X%02X",
			int(bk.r/n), int(bk.g/n), int(bk.b/n)))
	}

	n := float64(total)
	dna := StyleDNA{Palette: palette}
	switch warm := sumWarm / n; {
	case warm > 0.08:
		dna.Warmth = "warm"
	case warm < -0.08:
		dna.Warmth = "cool"
	default:
		dna.Warmth = "neutral"
	}
	switch val := sumVal / n; {
	case val < 0.35:
		dna.Brightness = "dark"
	case val > 0.7:
		dna.Brightness = "bright"
	default:
		dna.Brightness = "medium"
	}
	switch sat := sumSat / n; {
	case sat < 0.2:
		dna.Saturation = "muted"
	case sat > 0.55:
		dna.Saturation = "vivid"
	default:
		dna.Saturation = "moderate"
	}
	return dna, nil
}

// ApplyToContinuity 把风格指纹写回连续性参数。只覆盖色彩相关字段，
// 镜头焦距和布光方案保留原值。
func (d StyleDNA) ApplyToContinuity(cm models.ContinuityMap) models.ContinuityMap {
	out := cm.Normalize()
	if len(d.Palette) > 0 {
		out.Palette = append([]string(nil), d.Palette...)
	}
	switch d.Warmth {
	case "warm":
		out.ColorTemperatureK = 3500
	case "cool":
		out.ColorTemperatureK = 6500
	case "neutral":
		out.ColorTemperatureK = 5500
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
