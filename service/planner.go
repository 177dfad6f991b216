package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// Planner brief -> ProjectPlan。接口化之后真正的 LLM 规划器
// 可以作为同一能力的替换实现接入，core 不需要改动。
type Planner interface {
	Plan(brief, mode string, numShots int) (models.ProjectPlan, error)
}

// TemplatePlanner 确定性模板规划器：按模式选一套镜头模板展开。
type TemplatePlanner struct{}

type shotTemplate struct {
	role        string
	description string
	framing     string
	cameraAngle string
	composition string
}

var storyboardTemplates = []shotTemplate{
	{"Wide hero introduction", "Wide establishing shot setting the scene with street background and atmosphere, showing the full environment.", models.FramingWide, models.AngleLowAngle, "wide_establishing"},
	{"Medium character affirmation", "Medium shot focusing on the main subject with clear expression and interaction, tighter crop on character.", models.FramingMedium, models.AngleEyeLevel, "centered"},
	{"POV transition", "Over-the-shoulder perspective looking at the point of interest, adding depth.", models.FramingMedium, models.AngleEyeLevel, "rule_of_thirds"},
	{"Emotional close-up", "Close-up on the subject's face or key detail, emotional and expressive focus.", models.FramingCloseUp, models.AngleEyeLevel, "golden_ratio"},
	{"Hero power shot", "Low angle shot looking up at the subject, creating a sense of power and importance.", models.FramingMedium, models.AngleLowAngle, "rule_of_thirds"},
	{"Context overview", "High angle view providing environmental context and scale.", models.FramingWide, models.AngleHighAngle, "rule_of_thirds"},
	{"Dynamic action", "Dynamic dutch angle adding energy and visual interest.", models.FramingMedium, models.AngleDutch, "rule_of_thirds"},
	{"Detail emphasis", "Extreme close-up on a key detail or expression.", models.FramingExtremeCloseUp, models.AngleEyeLevel, "centered"},
}

var productTemplates = []shotTemplate{
	{"Hero shot", "Hero shot of the product, fully lit, on a clean background.", models.FramingMedium, models.AngleEyeLevel, "centered"},
	{"Detail shot", "Close-up detail shot emphasizing texture and material quality.", models.FramingCloseUp, models.AngleEyeLevel, "centered"},
	{"Lifestyle context", "The product placed in a stylized environment context.", models.FramingWide, models.AngleEyeLevel, "rule_of_thirds"},
	{"Packaging shot", "The product alongside its packaging, elegant arrangement.", models.FramingMedium, models.AngleEyeLevel, "centered"},
	{"Top-down flat lay", "Top-down flat lay view of the product elements.", models.FramingMedium, models.AngleHighAngle, "centered"},
}

// 两种模式各自的默认契约
func continuityForMode(mode string) models.ContinuityMap {
	if mode == models.ModeProduct {
		return models.ContinuityMap{
			LensMM:            85.0,
			ColorTemperatureK: 5500,
			LightingSetup:     "soft_box",
			Palette:           []string{"#f5f5f0", "#d8d8d6", "#2a2a2a"},
			ColorDepth:        models.ColorDepth16Bit,
			Mode:              models.ModeProduct,
		}
	}
	return models.ContinuityMap{
		LensMM:            35.0,
		ColorTemperatureK: 4500,
		LightingSetup:     "cinematic",
		Palette:           []string{"#0f4c5c", "#e36414", "#fb8b24"}, // teal & orange
		ColorDepth:        models.ColorDepth16Bit,
		Mode:              models.ModeStoryboard,
	}
}

func (TemplatePlanner) Plan(brief, mode string, numShots int) (models.ProjectPlan, error) {
	if numShots <= 0 {
		return models.ProjectPlan{}, fmt.Errorf("无效的分镜数量: %d", numShots)
	}
	if mode != models.ModeProduct {
		mode = models.ModeStoryboard
	}

	templates := storyboardTemplates
	if mode == models.ModeProduct {
		templates = productTemplates
	}

	shots := make([]models.ShotSpec, 0, numShots)
	for i := 0; i < numShots; i++ {
		t := templates[i%len(templates)]
		shots = append(shots, models.ShotSpec{
			Ordinal:         i,
			Role:            t.role,
			Description:     mergeBrief(t.description, brief),
			Framing:         t.framing,
			CameraAngle:     t.cameraAngle,
			CompositionRule: t.composition,
		})
	}

	return models.ProjectPlan{
		ProjectID:  uuid.NewString(),
		Title:      titleFromBrief(brief, mode),
		Brief:      brief,
		Mode:       mode,
		Continuity: continuityForMode(mode),
		Shots:      shots,
	}, nil
}

// mergeBrief 把 brief 合进分镜描述。
// [CHARACTER: ...] 前缀的角色描述要放在最前面，角色一致性依赖它先出现。
func mergeBrief(base, brief string) string {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return base
	}
	if strings.HasPrefix(brief, "[CHARACTER:") {
		if end := strings.Index(brief, "]"); end != -1 {
			character := strings.TrimSpace(brief[len("[CHARACTER:"):end])
			remaining := strings.TrimSpace(brief[end+1:])
			return fmt.Sprintf("%s. %s Scene: %s", character, base, remaining)
		}
	}
	return fmt.Sprintf("%s Context: %s", base, brief)
}

// titleFromBrief 取 brief 前几个词做项目标题，空 brief 退回模式名
func titleFromBrief(brief, mode string) string {
	words := strings.Fields(projectIDCleaner.ReplaceAllString(brief, ""))
	if len(words) == 0 {
		return mode + " sequence"
	}
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

var projectIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// SafeProjectID 从 brief 生成文件系统安全的项目 id：
// 取前几个词小写下划线连接，再拼一段短 UUID 后缀
func SafeProjectID(brief string) string {
	cleaned := projectIDCleaner.ReplaceAllString(brief, "")
	words := strings.Fields(cleaned)
	if len(words) > 5 {
		words = words[:5]
	}
	prefix := strings.ToLower(strings.Join(words, "_"))
	if prefix == "" {
		prefix = "project"
	}
	return prefix + "_" + uuid.NewString()[:8]
}
