package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// ArcPlanner 三幕式叙事规划器：根据 brief 识别故事主题，
// 按 设置/冲突/解决 ≈ 25%/50%/25% 分配节拍，再映射成分镜。
// 与 TemplatePlanner 同为 Planner 的实现，storyboard 模式下的加强版。
type ArcPlanner struct{}

type storyBeat struct {
	title       string
	description string
	emotion     string
	shotType    string
}

type arcTemplate struct {
	setup         []storyBeat
	confrontation []storyBeat
	resolution    []storyBeat
}

var arcTemplates = map[string]arcTemplate{
	"hero's journey": {
		setup: []storyBeat{
			{"The Ordinary World", "Character in their normal environment", "neutral", "wide_establishing"},
			{"Call to Adventure", "Something disrupts the status quo", "hopeful", "medium_character"},
		},
		confrontation: []storyBeat{
			{"Crossing the Threshold", "Character commits to the journey", "tense", "low_angle_hero"},
			{"Tests and Allies", "Challenges and new relationships", "hopeful", "over_the_shoulder"},
			{"The Ordeal", "Major crisis or confrontation", "fearful", "dutch_angle"},
		},
		resolution: []storyBeat{
			{"The Reward", "Character gains what they sought", "triumphant", "close_up"},
			{"The Return", "Character returns transformed", "joyful", "wide_establishing"},
		},
	},
	"rise and fall": {
		setup: []storyBeat{
			{"Humble Beginnings", "Start from nothing", "neutral", "wide_establishing"},
			{"First Success", "Initial breakthrough", "hopeful", "medium_character"},
		},
		confrontation: []storyBeat{
			{"Growing Ambition", "Reaching for more", "hopeful", "low_angle_hero"},
			{"Peak of Power", "Highest point", "triumphant", "extreme_closeup"},
			{"The Fall Begins", "Cracks appear", "tense", "dutch_angle"},
		},
		resolution: []storyBeat{
			{"Rock Bottom", "Complete collapse", "melancholy", "high_angle_context"},
			{"Reflection", "Finding meaning", "neutral", "close_up"},
		},
	},
	"love story": {
		setup: []storyBeat{
			{"Two Worlds", "Characters in separate lives", "neutral", "wide_establishing"},
			{"The Meeting", "First encounter", "hopeful", "medium_character"},
		},
		confrontation: []storyBeat{
			{"Growing Connection", "Relationship develops", "joyful", "over_the_shoulder"},
			{"The Obstacle", "Something threatens the bond", "tense", "close_up"},
			{"Separation", "Time apart", "melancholy", "wide_establishing"},
		},
		resolution: []storyBeat{
			{"Realization", "Understanding true feelings", "hopeful", "close_up"},
			{"Reunion", "Coming back together", "joyful", "medium_character"},
		},
	},
	"mystery": {
		setup: []storyBeat{
			{"The Discovery", "Something unusual found", "neutral", "wide_establishing"},
			{"First Clue", "Initial investigation", "hopeful", "close_up"},
		},
		confrontation: []storyBeat{
			{"Deep Dive", "Uncovering more", "tense", "over_the_shoulder"},
			{"Red Herring", "False lead", "fearful", "dutch_angle"},
			{"The Reveal", "Truth begins to emerge", "tense", "extreme_closeup"},
		},
		resolution: []storyBeat{
			{"Confrontation", "Facing the truth", "tense", "low_angle_hero"},
			{"Resolution", "Mystery solved", "triumphant", "medium_character"},
		},
	},
	"product showcase": {
		setup: []storyBeat{
			{"The Problem", "Pain point visualization", "neutral", "wide_establishing"},
			{"Discovery", "Finding the product", "hopeful", "medium_character"},
		},
		confrontation: []storyBeat{
			{"Features", "Product capabilities", "neutral", "close_up"},
			{"In Action", "Product being used", "joyful", "over_the_shoulder"},
			{"Results", "Transformation shown", "triumphant", "medium_character"},
		},
		resolution: []storyBeat{
			{"Hero Shot", "Product in glory", "triumphant", "low_angle_hero"},
			{"Call to Action", "Final appeal", "hopeful", "close_up"},
		},
	},
}

var themeKeywords = map[string][]string{
	"hero's journey":   {"hero", "journey", "adventure", "quest", "destiny", "overcome"},
	"rise and fall":    {"rise", "fall", "ambition", "power", "corruption", "greed"},
	"love story":       {"love", "romance", "heart", "relationship", "couple", "together"},
	"mystery":          {"mystery", "clue", "detective", "secret", "hidden", "discover"},
	"product showcase": {"product", "feature", "benefit", "solution", "demo", "showcase"},
}

// 情绪 -> 机位/色温
var emotionVisuals = map[string]struct {
	angle string
	tempK int
}{
	"neutral":    {models.AngleEyeLevel, 5500},
	"hopeful":    {models.AngleLowAngle, 4500},
	"tense":      {models.AngleLowAngle, 4000},
	"triumphant": {models.AngleLowAngle, 3500},
	"melancholy": {models.AngleHighAngle, 6500},
	"fearful":    {models.AngleDutch, 6000},
	"joyful":     {models.AngleEyeLevel, 4000},
}

var shotTypeFraming = map[string]string{
	"wide_establishing":  models.FramingWide,
	"medium_character":   models.FramingMedium,
	"close_up":           models.FramingCloseUp,
	"extreme_closeup":    models.FramingExtremeCloseUp,
	"over_the_shoulder":  models.FramingMedium,
	"low_angle_hero":     models.FramingMedium,
	"high_angle_context": models.FramingWide,
	"dutch_angle":        models.FramingMedium,
}

// DetectTheme 从 brief 的关键词打分选主题，默认英雄之旅
func DetectTheme(brief string) string {
	lower := strings.ToLower(brief)
	best, bestScore := "hero's journey", 0
	for theme, keywords := range themeKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = theme, score
		}
	}
	return best
}

func (ArcPlanner) Plan(brief, mode string, numShots int) (models.ProjectPlan, error) {
	if numShots <= 0 {
		return models.ProjectPlan{}, fmt.Errorf("无效的分镜数量: %d", numShots)
	}
	theme := DetectTheme(brief)
	if mode == models.ModeProduct {
		theme = "product showcase"
	}
	tmpl := arcTemplates[theme]

	setupCount := numShots / 4
	if setupCount < 1 {
		setupCount = 1
	}
	resolutionCount := numShots / 4
	if resolutionCount < 1 {
		resolutionCount = 1
	}
	// 极短序列：铺垫优先，收束让位
	if setupCount+resolutionCount > numShots {
		resolutionCount = numShots - setupCount
	}
	confrontationCount := numShots - setupCount - resolutionCount

	beats := make([]storyBeat, 0, numShots)
	for i := 0; i < setupCount; i++ {
		beats = append(beats, tmpl.setup[i%len(tmpl.setup)])
	}
	for i := 0; i < confrontationCount; i++ {
		beats = append(beats, tmpl.confrontation[i%len(tmpl.confrontation)])
	}
	for i := 0; i < resolutionCount; i++ {
		beats = append(beats, tmpl.resolution[i%len(tmpl.resolution)])
	}

	shots := make([]models.ShotSpec, 0, len(beats))
	for i, beat := range beats {
		visuals := emotionVisuals[beat.emotion]
		framing, ok := shotTypeFraming[beat.shotType]
		if !ok {
			framing = models.FramingMedium
		}
		desc := beat.description
		if strings.TrimSpace(brief) != "" {
			desc = fmt.Sprintf("%s. %s", beat.description, brief)
		}
		shots = append(shots, models.ShotSpec{
			Ordinal:         i,
			Role:            beat.title,
			Description:     desc,
			Framing:         framing,
			CameraAngle:     visuals.angle,
			CompositionRule: "rule_of_thirds",
			PromptDelta:     fmt.Sprintf("%s mood, %dK color temperature", beat.emotion, visuals.tempK),
		})
	}

	if mode != models.ModeProduct {
		mode = models.ModeStoryboard
	}
	return models.ProjectPlan{
		ProjectID:  uuid.NewString(),
		Title:      theme,
		Brief:      brief,
		Mode:       mode,
		Continuity: continuityForMode(mode),
		Shots:      shots,
	}, nil
}
