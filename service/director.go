package service

import (
	"fmt"
	"strings"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// AI 导演：分析场景描述，给出镜头/光线/色彩/构图的参数建议，
// 每项建议附带理由。建议可以合并进 ContinuityMap 或单个分镜。

// CameraSuggestion 镜头建议
type CameraSuggestion struct {
	LensMM     float64 `json:"lensMm"`
	FOVDegrees float64 `json:"fovDegrees"`
	Angle      string  `json:"angle"`
	Movement   string  `json:"movement"`
	Reason     string  `json:"reason"`
}

// LightingSuggestion 光线建议
type LightingSuggestion struct {
	Setup         string  `json:"setup"`
	KeyDirection  string  `json:"keyDirection"`
	FillIntensity float64 `json:"fillIntensity"`
	BackIntensity float64 `json:"backIntensity"`
	TemperatureK  int     `json:"temperatureK"`
	Reason        string  `json:"reason"`
}

// ColorSuggestion 色彩建议
type ColorSuggestion struct {
	Palette  string `json:"palette"`
	HDR      bool   `json:"hdr"`
	BitDepth string `json:"bitDepth"`
	Reason   string `json:"reason"`
}

// CompositionSuggestion 构图建议
type CompositionSuggestion struct {
	Rule            string `json:"rule"`
	SubjectPosition string `json:"subjectPosition"`
	DepthOfField    string `json:"depthOfField"`
	Reason          string `json:"reason"`
}

// DirectorSuggestions 一个场景的完整导演建议
type DirectorSuggestions struct {
	Camera       CameraSuggestion      `json:"camera"`
	Lighting     LightingSuggestion    `json:"lighting"`
	Color        ColorSuggestion       `json:"color"`
	Composition  CompositionSuggestion `json:"composition"`
	SceneType    string                `json:"sceneType"`
	Mood         string                `json:"mood"`
	OverallNotes string                `json:"overallNotes"`
}

// 场景类型关键词，顺序即同分时的优先级
var sceneTypeKeywords = []struct {
	sceneType string
	keywords  []string
}{
	{"action", []string{"fight", "chase", "run", "battle", "explosion", "crash", "jump", "fast"}},
	{"romantic", []string{"love", "kiss", "embrace", "romantic", "tender", "intimate", "couple"}},
	{"dramatic", []string{"tense", "conflict", "confrontation", "emotional", "intense", "dark"}},
	{"comedy", []string{"funny", "laugh", "humor", "joke", "silly", "light-hearted"}},
	{"horror", []string{"scary", "dark", "shadow", "monster", "fear", "creepy", "haunted"}},
	{"establishing", []string{"city", "landscape", "building", "environment", "street", "location"}},
	{"portrait", []string{"person", "character", "face", "portrait", "headshot", "close-up"}},
	{"product", []string{"product", "item", "object", "display", "showcase", "merchandise"}},
}

var moodKeywords = []struct {
	mood     string
	keywords []string
}{
	{"warm", []string{"sunset", "golden", "cozy", "warm", "orange", "firelight", "summer"}},
	{"cold", []string{"winter", "ice", "cold", "blue", "moonlight", "night", "steel"}},
	{"neutral", []string{"daylight", "office", "studio", "clean", "professional"}},
	{"dramatic", []string{"contrast", "shadow", "moody", "cinematic", "noir"}},
	{"dreamy", []string{"soft", "ethereal", "fantasy", "dream", "magical", "glow"}},
}

// DetectSceneType 按关键词命中数给场景分类，无命中返回 general
func DetectSceneType(description string) string {
	lower := strings.ToLower(description)
	best, bestScore := "general", 0
	for _, entry := range sceneTypeKeywords {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.sceneType, score
		}
	}
	return best
}

// DetectMood 识别氛围基调，无命中返回 neutral
func DetectMood(description string) string {
	lower := strings.ToLower(description)
	best, bestScore := "neutral", 0
	for _, entry := range moodKeywords {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.mood, score
		}
	}
	return best
}

var cameraPresets = map[string]CameraSuggestion{
	"action": {24.0, 70.0, "dynamic", "tracking",
		"Wide lens captures action scope; dynamic angle adds energy"},
	"romantic": {85.0, 25.0, "eye_level", "slow_dolly",
		"Portrait lens creates intimate bokeh; eye-level connects emotionally"},
	"dramatic": {35.0, 50.0, "low_angle", "static",
		"Low angle adds power; 35mm balances intimacy with context"},
	"horror": {18.0, 85.0, "dutch", "handheld",
		"Ultra-wide distorts reality; dutch angle creates unease"},
	"establishing": {24.0, 70.0, "high_angle", "crane",
		"Wide establishing shot shows environment scale and context"},
	"portrait": {85.0, 25.0, "eye_level", "static",
		"Classic portrait lens; flattering compression and bokeh"},
	"product": {100.0, 20.0, "slightly_above", "static",
		"Macro-range lens for crisp detail; slight elevation shows form"},
	"general": {35.0, 50.0, "eye_level", "static",
		"Versatile 35mm approximates natural human vision"},
}

func suggestCamera(sceneType string) CameraSuggestion {
	if preset, ok := cameraPresets[sceneType]; ok {
		return preset
	}
	return cameraPresets["general"]
}

func suggestLighting(sceneType, mood string) LightingSuggestion {
	var base LightingSuggestion
	switch mood {
	case "warm":
		base = LightingSuggestion{"golden_hour", "side", 0.6, 0.4, 3200,
			"Warm temperature (3200K) creates golden hour feel; side key for dimension"}
	case "cold":
		base = LightingSuggestion{"moonlight", "top_back", 0.3, 0.7, 6500,
			"Cool temperature (6500K) for moonlit/cold atmosphere; rim light emphasis"}
	case "dramatic":
		base = LightingSuggestion{"chiaroscuro", "side", 0.2, 0.5, 4500,
			"High contrast chiaroscuro; low fill creates dramatic shadows"}
	case "dreamy":
		base = LightingSuggestion{"soft_diffused", "front_soft", 0.8, 0.3, 5000,
			"Diffused soft light for dreamy/ethereal quality; minimal shadows"}
	default:
		base = LightingSuggestion{"studio_soft", "front_45", 0.5, 0.3, 5500,
			"Balanced studio lighting; 5500K daylight standard"}
	}

	// 场景类型对基调的覆盖
	switch sceneType {
	case "horror":
		base.FillIntensity = 0.1
		base.KeyDirection = "bottom"
		base.Reason = "Uplighting for horror; extreme shadows create fear"
	case "product":
		base.FillIntensity = 0.7
		base.Setup = "product_three_point"
		base.Reason = "Even product lighting; high fill eliminates harsh shadows"
	}
	return base
}

var colorPairs = map[string]ColorSuggestion{
	"action/warm":       {"orange_teal", true, models.ColorDepth16Bit, "Action blockbuster palette; HDR for explosion highlights"},
	"action/cold":       {"steel_blue", true, models.ColorDepth16Bit, "Cold action aesthetic; 16-bit for dynamic range"},
	"romantic/warm":     {"rose_gold", true, models.ColorDepth16Bit, "Romantic warmth; HDR preserves skin tone gradients"},
	"dramatic/dramatic": {"noir_contrast", true, models.ColorDepth16Bit, "High contrast noir; 16-bit for shadow detail"},
	"horror/cold":       {"desaturated_cyan", true, models.ColorDepth16Bit, "Horror color shift; near-monochrome coldness"},
	"product/neutral":   {"clean_white", true, models.ColorDepth16Bit, "Clean product backdrop; 16-bit for material accuracy"},
	"establishing/warm": {"golden_hour", true, models.ColorDepth16Bit, "Cinematic golden hour; wide color gamut"},
}

func suggestColor(sceneType, mood string) ColorSuggestion {
	if s, ok := colorPairs[sceneType+"/"+mood]; ok {
		return s
	}
	return ColorSuggestion{"teal_orange", true, models.ColorDepth16Bit,
		"Cinematic teal-orange; industry standard look"}
}

var compositionPresets = map[string]CompositionSuggestion{
	"action": {"dynamic_diagonal", "off_center", "deep",
		"Diagonal lines add motion; deep DOF shows action context"},
	"romantic": {"rule_of_thirds", "thirds_intersection", "shallow",
		"Thirds creates balance; shallow DOF isolates couple"},
	"dramatic": {"golden_ratio", "golden_point", "shallow",
		"Golden ratio for visual power; bokeh for focus"},
	"portrait": {"centered", "center", "shallow",
		"Centered for portrait impact; creamy background blur"},
	"product": {"centered", "center", "medium",
		"Product centered for attention; medium DOF shows detail"},
	"establishing": {"rule_of_thirds", "lower_third", "deep",
		"Thirds for landscape; deep DOF for environment detail"},
}

func suggestComposition(sceneType string) CompositionSuggestion {
	if preset, ok := compositionPresets[sceneType]; ok {
		return preset
	}
	return CompositionSuggestion{"rule_of_thirds", "thirds_intersection", "medium",
		"Classic rule of thirds for balanced composition"}
}

// AnalyzeScene 入口：场景描述 -> 带理由的完整参数建议
func AnalyzeScene(description string) DirectorSuggestions {
	sceneType := DetectSceneType(description)
	mood := DetectMood(description)

	return DirectorSuggestions{
		Camera:      suggestCamera(sceneType),
		Lighting:    suggestLighting(sceneType, mood),
		Color:       suggestColor(sceneType, mood),
		Composition: suggestComposition(sceneType),
		SceneType:   sceneType,
		Mood:        mood,
		OverallNotes: fmt.Sprintf(
			"Scene detected as '%s' with '%s' mood. Recommended setup tunes the controllable generation parameters for this scene.",
			sceneType, mood),
	}
}

// ApplyToContinuity 把镜头/光线建议合并进契约副本，调色板保持原样
func (s DirectorSuggestions) ApplyToContinuity(cm models.ContinuityMap) models.ContinuityMap {
	cm.LensMM = s.Camera.LensMM
	cm.ColorTemperatureK = s.Lighting.TemperatureK
	cm.LightingSetup = s.Lighting.Setup
	return cm
}

// ApplyToShot 把机位/构图建议套用到单个分镜的副本上
func (s DirectorSuggestions) ApplyToShot(spec models.ShotSpec) models.ShotSpec {
	spec.CameraAngle = normalizeAngle(s.Camera.Angle)
	spec.CompositionRule = s.Composition.Rule
	spec.PromptDelta = fmt.Sprintf("%s lighting, %s depth of field, %s camera movement",
		s.Lighting.Setup, s.Composition.DepthOfField, s.Camera.Movement)
	return spec
}

// 建议里的机位名收敛到契约枚举值
func normalizeAngle(angle string) string {
	switch angle {
	case "low_angle":
		return models.AngleLowAngle
	case "high_angle", "slightly_above":
		return models.AngleHighAngle
	case "dutch", "dynamic":
		return models.AngleDutch
	default:
		return models.AngleEyeLevel
	}
}
