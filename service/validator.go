package service

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

const (
	// 色相 x 饱和度分桶数；粗粒度指纹足够做连贯性判断
	hueBuckets = 12
	satBuckets = 4

	// 比较前统一缩到 64x64，降低解码尺寸差异的影响
	fingerprintSize = 64
)

// Validator 连贯性校验器：比较两张图的色彩分布指纹。
// 纯函数、无状态，阈值在构造时固定。
type Validator struct {
	Threshold float64
}

func NewValidator() Validator {
	return Validator{Threshold: config.AppConfig.Validator.ContinuityThreshold}
}

// Score 0.0 = 完全不同，1.0 = 分布一致；
// 任一图缺失或解码失败返回 UnscoredContinuity 哨兵值，不报错。
// 对称：Score(a,b) == Score(b,a)；自比较恒为 1.0。
func (v Validator) Score(reference, candidate []byte) float64 {
	refHist, ok := colorFingerprint(reference)
	if !ok {
		return models.UnscoredContinuity
	}
	candHist, ok := colorFingerprint(candidate)
	if !ok {
		return models.UnscoredContinuity
	}

	// 直方图交集：归一化后 Σ min(a_i, b_i)，天然落在 [0,1]
	score := 0.0
	for i := range refHist {
		if refHist[i] < candHist[i] {
			score += refHist[i]
		} else {
			score += candHist[i]
		}
	}
	return score
}

// IsOutlier 低于阈值视为连贯性异常；unscored 无法判定，不算 outlier
func (v Validator) IsOutlier(score float64) bool {
	if score == models.UnscoredContinuity {
		return false
	}
	return score < v.Threshold
}

// colorFingerprint 解码 -> 缩放 -> hue/sat 分桶直方图（归一化）
func colorFingerprint(data []byte) ([hueBuckets * satBuckets]float64, bool) {
	var hist [hueBuckets * satBuckets]float64
	if len(data) == 0 {
		return hist, false
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return hist, false
	}

	small := image.NewRGBA(image.Rect(0, 0, fingerprintSize, fingerprintSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)

	total := 0.0
	for y := 0; y < fingerprintSize; y++ {
		for x := 0; x < fingerprintSize; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			h, s, _ := rgbToHSV(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)

			hi := int(h / 360.0 * hueBuckets)
			if hi >= hueBuckets {
				hi = hueBuckets - 1
			}
			si := int(s * satBuckets)
			if si >= satBuckets {
				si = satBuckets - 1
			}
			hist[hi*satBuckets+si]++
			total++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist, true
}

// rgbToHSV 输入 [0,1]，输出 h ∈ [0,360) s,v ∈ [0,1]
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}

	v = max
	delta := max - min
	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		return 0, s, v
	}

	switch max {
	case r:
		h = 60 * ((g - b) / delta)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
