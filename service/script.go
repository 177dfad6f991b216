package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// 剧本解析：标准剧本格式 (INT./EXT. 场景标题、全大写角色提示、动作行)
// -> 结构化场景，再按场景展开成分镜序列。剧本直接出分镜的专业工作流。

// SceneHeading 场景标题行解析结果
type SceneHeading struct {
	IntExt    string `json:"intExt"`
	Location  string `json:"location"`
	TimeOfDay string `json:"timeOfDay"`
	RawText   string `json:"rawText"`
}

// DialogueLine 一句台词
type DialogueLine struct {
	Character string `json:"character"`
	Line      string `json:"line"`
}

// ScriptScene 剧本中的一个完整场景
type ScriptScene struct {
	SceneNumber int            `json:"sceneNumber"`
	Heading     SceneHeading   `json:"heading"`
	Actions     []string       `json:"actions"`
	Dialogue    []DialogueLine `json:"dialogue"`
	Characters  []string       `json:"characters"`
}

// Description 合成用于生成图像的场景描述
func (s *ScriptScene) Description() string {
	parts := []string{s.Heading.Location}
	if len(s.Actions) > 0 {
		first := s.Actions[0]
		if len(first) > 200 {
			first = first[:200]
		}
		parts = append(parts, first)
	}
	if len(s.Characters) > 0 {
		parts = append(parts, "Characters: "+strings.Join(s.Characters, ", "))
	}
	return strings.Join(parts, ". ")
}

var (
	sceneHeadingPattern = regexp.MustCompile(
		`(?i)^(INT\.|EXT\.|INT/EXT\.|I/E\.)\s*(.+?)(?:\s*[-–—]\s*|\s+)(DAY|NIGHT|DAWN|DUSK|MORNING|EVENING|LATER|CONTINUOUS|SAME)?\.?\s*$`)
	characterCuePattern  = regexp.MustCompile(`^([A-Z][A-Z\s.'\-]+)(?:\s*\(([^)]+)\))?\s*$`)
	parentheticalPattern = regexp.MustCompile(`^\([^)]+\)$`)
)

// 时段 -> 光线基调
var timeLighting = map[string]struct {
	TempK int
	Mood  string
}{
	"DAY":     {5500, "bright"},
	"NIGHT":   {4000, "dark"},
	"DAWN":    {3500, "warm_soft"},
	"DUSK":    {3200, "golden"},
	"MORNING": {5000, "fresh"},
	"EVENING": {4000, "warm"},
}

// 常见场地 -> 推荐镜头序列
var locationShots = []struct {
	keyword string
	shots   []string
}{
	{"office", []string{"medium_character", "over_the_shoulder", "wide_establishing"}},
	{"street", []string{"wide_establishing", "tracking", "medium_character"}},
	{"bedroom", []string{"close_up", "medium_character", "intimate"}},
	{"restaurant", []string{"two_shot", "over_the_shoulder", "wide_establishing"}},
	{"car", []string{"close_up", "over_the_shoulder", "dashboard"}},
	{"forest", []string{"wide_establishing", "tracking", "low_angle_hero"}},
	{"beach", []string{"wide_establishing", "silhouette", "close_up"}},
	{"rooftop", []string{"wide_establishing", "dramatic", "low_angle_hero"}},
}

// 动作行关键词 -> 镜头类型，顺序即优先级
var actionShotKeywords = []struct {
	shotType string
	keywords []string
}{
	{"close_up", []string{"face", "eyes", "hand", "detail", "looks at", "stares"}},
	{"wide_establishing", []string{"enters", "walks into", "arrives", "exterior", "landscape"}},
	{"medium_character", []string{"stands", "sits", "talks", "speaks", "responds"}},
	{"over_the_shoulder", []string{"faces", "confronts", "conversation", "dialogue"}},
	{"tracking", []string{"runs", "chases", "follows", "moves through", "walks along"}},
	{"low_angle_hero", []string{"rises", "stands tall", "powerful", "dominates"}},
	{"high_angle_context", []string{"looks down", "from above", "aerial", "overlook"}},
}

// 全大写但不是角色名的常见剧本指令
var nonCharacterCues = map[string]bool{
	"THE": true, "AND": true, "BUT": true, "ACTION": true,
	"CUT TO": true, "FADE IN": true, "FADE OUT": true,
}

// ParseScript 把剧本文本解析成按出现顺序排列的场景列表
func ParseScript(scriptText string) []ScriptScene {
	var scenes []ScriptScene
	var current *ScriptScene
	lines := strings.Split(strings.TrimSpace(scriptText), "\n")
	sceneNum := 0

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		if m := sceneHeadingPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				scenes = append(scenes, *current)
			}
			sceneNum++
			timeOfDay := m[3]
			if timeOfDay == "" {
				timeOfDay = "DAY"
			}
			current = &ScriptScene{
				SceneNumber: sceneNum,
				Heading: SceneHeading{
					IntExt:    strings.TrimSuffix(strings.ToUpper(m[1]), "."),
					Location:  strings.TrimSpace(m[2]),
					TimeOfDay: strings.ToUpper(timeOfDay),
					RawText:   line,
				},
			}
			i++
			continue
		}

		// 标题之前出现正文时兜一个默认场景
		if current == nil {
			sceneNum++
			current = &ScriptScene{
				SceneNumber: sceneNum,
				Heading:     SceneHeading{IntExt: "INT", Location: "UNKNOWN", TimeOfDay: "DAY"},
			}
		}

		// 角色提示行：全大写短行，可带 (语气) 括注
		if m := characterCuePattern.FindStringSubmatch(line); m != nil && len(line) < 40 {
			character := strings.TrimSpace(m[1])
			if !nonCharacterCues[character] {
				if !containsString(current.Characters, character) {
					current.Characters = append(current.Characters, character)
				}
				// 后续非空行是这名角色的台词，括注行跳过
				i++
				for i < len(lines) {
					next := strings.TrimSpace(lines[i])
					if next == "" {
						break
					}
					if parentheticalPattern.MatchString(next) {
						i++
						continue
					}
					if sceneHeadingPattern.MatchString(next) || characterCuePattern.MatchString(next) {
						break
					}
					current.Dialogue = append(current.Dialogue, DialogueLine{Character: character, Line: next})
					i++
				}
				continue
			}
		}

		current.Actions = append(current.Actions, line)
		i++
	}

	if current != nil {
		scenes = append(scenes, *current)
	}
	return scenes
}

// SuggestShotFromAction 从动作描述推断镜头类型
func SuggestShotFromAction(action string) string {
	lower := strings.ToLower(action)
	for _, entry := range actionShotKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.shotType
			}
		}
	}
	return "medium_character"
}

// ScriptSummary 剧本概览：场景/角色/场地统计
type ScriptSummary struct {
	TotalScenes int      `json:"totalScenes"`
	Characters  []string `json:"characters"`
	Locations   []string `json:"locations"`
	Interior    int      `json:"interior"`
	Exterior    int      `json:"exterior"`
}

func SummarizeScript(scenes []ScriptScene) ScriptSummary {
	charSet := map[string]bool{}
	locSet := map[string]bool{}
	summary := ScriptSummary{TotalScenes: len(scenes)}
	for _, s := range scenes {
		for _, c := range s.Characters {
			charSet[c] = true
		}
		locSet[s.Heading.Location] = true
		switch s.Heading.IntExt {
		case "INT":
			summary.Interior++
		case "EXT":
			summary.Exterior++
		}
	}
	for c := range charSet {
		summary.Characters = append(summary.Characters, c)
	}
	for l := range locSet {
		summary.Locations = append(summary.Locations, l)
	}
	sort.Strings(summary.Characters)
	sort.Strings(summary.Locations)
	return summary
}

// 每个场景最多展开的分镜数
const maxShotsPerScene = 3

// ScriptPlanner 剧本规划器：brief 即剧本全文，按场景展开分镜。
// numShots > 0 时作为总数上限，<= 0 表示由剧本长度决定。
type ScriptPlanner struct{}

func (ScriptPlanner) Plan(brief, mode string, numShots int) (models.ProjectPlan, error) {
	scenes := ParseScript(brief)
	if len(scenes) == 0 {
		return models.ProjectPlan{}, fmt.Errorf("剧本中未解析出任何场景")
	}
	if mode != models.ModeProduct {
		mode = models.ModeStoryboard
	}

	var shots []models.ShotSpec
	for _, scene := range scenes {
		lighting, ok := timeLighting[scene.Heading.TimeOfDay]
		if !ok {
			lighting = timeLighting["DAY"]
		}

		suggested := []string{"wide_establishing", "medium_character", "close_up"}
		locationLower := strings.ToLower(scene.Heading.Location)
		for _, entry := range locationShots {
			if strings.Contains(locationLower, entry.keyword) {
				suggested = entry.shots
				break
			}
		}

		count := maxShotsPerScene
		if len(suggested) < count {
			count = len(suggested)
		}
		for i := 0; i < count; i++ {
			shotType := suggested[i%len(suggested)]
			shots = append(shots, models.ShotSpec{
				Ordinal:         len(shots),
				Role:            strings.ReplaceAll(shotType, "_", " "),
				Description:     scriptShotDescription(scene, i),
				Framing:         framingForShotType(shotType),
				CameraAngle:     angleForShotType(shotType),
				CompositionRule: "rule_of_thirds",
				PromptDelta:     fmt.Sprintf("%s lighting, %dK color temperature", lighting.Mood, lighting.TempK),
			})
		}
	}

	if numShots > 0 && len(shots) > numShots {
		shots = shots[:numShots]
	}

	title := scenes[0].Heading.Location
	if title == "" || title == "UNKNOWN" {
		title = "screenplay"
	}
	return models.ProjectPlan{
		ProjectID:  uuid.NewString(),
		Title:      title,
		Brief:      brief,
		Mode:       mode,
		Continuity: continuityForMode(mode),
		Shots:      shots,
	}, nil
}

func scriptShotDescription(scene ScriptScene, shotIndex int) string {
	parts := []string{
		fmt.Sprintf("%s. %s.", scene.Heading.IntExt, scene.Heading.Location),
		fmt.Sprintf("Time: %s.", scene.Heading.TimeOfDay),
	}
	if len(scene.Actions) > 0 {
		if shotIndex < len(scene.Actions) {
			parts = append(parts, scene.Actions[shotIndex])
		} else {
			parts = append(parts, scene.Actions[0])
		}
	}
	if len(scene.Characters) > 0 {
		featured := scene.Characters
		if len(featured) > 2 {
			featured = featured[:2]
		}
		parts = append(parts, "Featuring: "+strings.Join(featured, ", "))
	}
	return strings.Join(parts, " ")
}

func framingForShotType(shotType string) string {
	if f, ok := shotTypeFraming[shotType]; ok {
		return f
	}
	return models.FramingMedium
}

func angleForShotType(shotType string) string {
	switch shotType {
	case "low_angle_hero", "dramatic":
		return models.AngleLowAngle
	case "high_angle_context", "dashboard":
		return models.AngleHighAngle
	default:
		return models.AngleEyeLevel
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
