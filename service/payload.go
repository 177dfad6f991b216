package service

import (
	"fmt"
	"strings"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// RequestPayload 发往生成服务的单次请求。
// Structured 保留合并后的结构化参数，便于日志与排查；
// API 本身只强制要求 Prompt。
type RequestPayload struct {
	Prompt         string           `json:"prompt"`
	NegativePrompt string           `json:"negative_prompt,omitempty"`
	AspectRatio    string           `json:"aspect_ratio,omitempty"`
	ReferenceImage []byte           `json:"-"`
	Structured     StructuredParams `json:"structured_params"`
}

// StructuredParams ContinuityMap 与 ShotSpec 合并后的完整参数集。
// 分镜覆盖项（framing / angle / composition）优先，其余契约字段原样透传。
type StructuredParams struct {
	Ordinal           int      `json:"ordinal"`
	Role              string   `json:"role,omitempty"`
	LensMM            float64  `json:"lens_mm"`
	ColorTemperatureK int      `json:"color_temperature_k"`
	LightingSetup     string   `json:"lighting_setup"`
	Palette           []string `json:"palette"`
	ColorDepth        string   `json:"color_depth"`
	Mode              string   `json:"mode"`
	Framing           string   `json:"framing"`
	CameraAngle       string   `json:"camera_angle"`
	CompositionRule   string   `json:"composition_rule"`
}

// ImageConditioned 是否带参考图（image-to-image）
func (p RequestPayload) ImageConditioned() bool {
	return len(p.ReferenceImage) > 0
}

// BuildRequest 把契约和分镜合并成一次生成请求。
// 纯函数，无副作用；提示词内容为空时返回 ErrInvalidShotSpec。
func BuildRequest(cm models.ContinuityMap, shot models.ShotSpec, referenceImage []byte) (RequestPayload, error) {
	if shot.Ordinal < 0 {
		return RequestPayload{}, fmt.Errorf("%w: ordinal %d", ErrInvalidShotSpec, shot.Ordinal)
	}
	if strings.TrimSpace(shot.Description) == "" && strings.TrimSpace(shot.PromptDelta) == "" {
		return RequestPayload{}, fmt.Errorf("%w: 分镜 %d 没有描述文本", ErrInvalidShotSpec, shot.Ordinal)
	}

	cm = cm.Normalize()

	merged := StructuredParams{
		Ordinal:           shot.Ordinal,
		Role:              shot.Role,
		LensMM:            cm.LensMM,
		ColorTemperatureK: cm.ColorTemperatureK,
		LightingSetup:     cm.LightingSetup,
		Palette:           append([]string(nil), cm.Palette...),
		ColorDepth:        cm.ColorDepth,
		Mode:              cm.Mode,
		Framing:           shot.Framing,
		CameraAngle:       shot.CameraAngle,
		CompositionRule:   shot.CompositionRule,
	}
	if merged.Framing == "" {
		merged.Framing = models.FramingMedium
	}
	if merged.CameraAngle == "" {
		merged.CameraAngle = models.AngleEyeLevel
	}
	if merged.CompositionRule == "" {
		merged.CompositionRule = "rule_of_thirds"
	}

	return RequestPayload{
		Prompt:         flattenPrompt(merged, shot),
		Structured:     merged,
		ReferenceImage: referenceImage,
	}, nil
}

// flattenPrompt 把结构化参数拼成富文本提示词。
// API 只保证支持 prompt 字段，全部信息都要进提示词。
func flattenPrompt(p StructuredParams, shot models.ShotSpec) string {
	attrs := []string{}

	// 描述在最前（角色一致性依赖描述先出现）
	if shot.Description != "" {
		attrs = append(attrs, shot.Description)
	}
	if shot.PromptDelta != "" {
		attrs = append(attrs, shot.PromptDelta)
	}

	attrs = append(attrs,
		fmt.Sprintf("%gmm lens", p.LensMM),
		fmt.Sprintf("%s angle", p.CameraAngle),
		fmt.Sprintf("%s framing", p.Framing),
		fmt.Sprintf("%s composition", p.CompositionRule),
		fmt.Sprintf("%s lighting", p.LightingSetup),
		fmt.Sprintf("%dK color temperature", p.ColorTemperatureK),
	)
	if len(p.Palette) > 0 {
		attrs = append(attrs, "Palette: "+strings.Join(p.Palette, " "))
	}

	switch p.ColorDepth {
	case models.ColorDepthHDR:
		attrs = append(attrs, "HDR high dynamic range")
	case models.ColorDepth16Bit:
		attrs = append(attrs, "HDR high dynamic range", "16-bit color depth, professional color grading")
	}

	return strings.Join(attrs, ", ")
}
