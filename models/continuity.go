package models

import "fmt"

// 全局视觉契约的枚举值
const (
	ModeStoryboard = "storyboard"
	ModeProduct    = "product"

	ColorDepthStandard = "standard"
	ColorDepthHDR      = "hdr"
	ColorDepth16Bit    = "16bit"
)

const (
	FramingWide           = "wide"
	FramingMedium         = "medium"
	FramingCloseUp        = "close_up"
	FramingExtremeCloseUp = "extreme_closeup"

	AngleLowAngle  = "low_angle"
	AngleEyeLevel  = "eye_level"
	AngleHighAngle = "high_angle"
	AngleDutch     = "dutch"
)

// ContinuityMap 项目级视觉契约：整个分镜序列共享的镜头/光线/色彩参数。
// 所有字段必须有值，零值会在 Normalize 中被默认值补齐，
// 不允许半填充的 ContinuityMap 进入生成请求。
type ContinuityMap struct {
	LensMM            float64  `json:"lensMm"`
	ColorTemperatureK int      `json:"colorTemperatureK"`
	LightingSetup     string   `json:"lightingSetup"`
	Palette           []string `json:"palette"`
	ColorDepth        string   `json:"colorDepth"`
	Mode              string   `json:"mode"`
}

// DefaultContinuityMap 对应 storyboard 模式的默认契约
func DefaultContinuityMap() ContinuityMap {
	return ContinuityMap{
		LensMM:            50.0,
		ColorTemperatureK: 5200,
		LightingSetup:     "three_point",
		Palette:           []string{"#cc8855", "#886644", "#443322"},
		ColorDepth:        ColorDepth16Bit,
		Mode:              ModeStoryboard,
	}
}

// Normalize 把零值字段补成默认值，返回补齐后的副本
func (m ContinuityMap) Normalize() ContinuityMap {
	def := DefaultContinuityMap()
	if m.LensMM <= 0 {
		m.LensMM = def.LensMM
	}
	if m.ColorTemperatureK <= 0 {
		m.ColorTemperatureK = def.ColorTemperatureK
	}
	if m.LightingSetup == "" {
		m.LightingSetup = def.LightingSetup
	}
	if len(m.Palette) == 0 {
		m.Palette = append([]string(nil), def.Palette...)
	}
	if m.ColorDepth == "" {
		m.ColorDepth = def.ColorDepth
	}
	if m.Mode == "" {
		m.Mode = def.Mode
	}
	return m
}

// ShotSpec 单个分镜：对 ContinuityMap 的局部覆盖 + 镜头描述。
// ShotSpec 不持有全局状态的拷贝，只记录与契约不同的部分。
type ShotSpec struct {
	Ordinal         int    `json:"ordinal"`
	Role            string `json:"role"`
	Description     string `json:"description"`
	Framing         string `json:"framing"`
	CameraAngle     string `json:"cameraAngle"`
	CompositionRule string `json:"compositionRule"`
	PromptDelta     string `json:"promptDelta,omitempty"`
}

// ProjectPlan 项目聚合：契约 + 有序分镜列表
type ProjectPlan struct {
	ProjectID  string        `json:"projectId"`
	Title      string        `json:"title"`
	Brief      string        `json:"brief"`
	Mode       string        `json:"mode"`
	Continuity ContinuityMap `json:"continuity"`
	Shots      []ShotSpec    `json:"shots"`
}

// Validate 检查分镜序号从 0 开始连续且不重复
func (p *ProjectPlan) Validate() error {
	for i, s := range p.Shots {
		if s.Ordinal != i {
			return fmt.Errorf("shot ordinal 不连续: 位置 %d 的序号为 %d", i, s.Ordinal)
		}
	}
	return nil
}

// ShotByOrdinal 按序号查找分镜
func (p *ProjectPlan) ShotByOrdinal(ordinal int) (ShotSpec, bool) {
	if ordinal < 0 || ordinal >= len(p.Shots) {
		return ShotSpec{}, false
	}
	return p.Shots[ordinal], true
}

// ShotEdits refine 时调用方提供的可选修改项，nil 表示保持原值
type ShotEdits struct {
	Role            *string `json:"role,omitempty"`
	Description     *string `json:"description,omitempty"`
	Framing         *string `json:"framing,omitempty"`
	CameraAngle     *string `json:"cameraAngle,omitempty"`
	CompositionRule *string `json:"compositionRule,omitempty"`
	PromptDelta     *string `json:"promptDelta,omitempty"`
}

// Apply 把 edits 套用到 spec 的副本上，原 spec 不变
func (e ShotEdits) Apply(spec ShotSpec) ShotSpec {
	if e.Role != nil {
		spec.Role = *e.Role
	}
	if e.Description != nil {
		spec.Description = *e.Description
	}
	if e.Framing != nil {
		spec.Framing = *e.Framing
	}
	if e.CameraAngle != nil {
		spec.CameraAngle = *e.CameraAngle
	}
	if e.CompositionRule != nil {
		spec.CompositionRule = *e.CompositionRule
	}
	if e.PromptDelta != nil {
		spec.PromptDelta = *e.PromptDelta
	}
	return spec
}
