package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

const sampleScreenplay = `
INT. COFFEE SHOP - DAY

ANNA, 30s, sits alone at a corner table, nursing a cold coffee.

The door chimes. DAVID, 35, enters, scanning the room.

DAVID
(nervous)
Anna?

ANNA
You came.

They share an awkward silence.

EXT. CITY STREET - NIGHT

Anna walks alone under streetlights.

She pauses at a corner, looking back.
`

func TestParseScriptScenes(t *testing.T) {
	scenes := ParseScript(sampleScreenplay)
	require.Len(t, scenes, 2)

	first := scenes[0]
	assert.Equal(t, 1, first.SceneNumber)
	assert.Equal(t, "INT", first.Heading.IntExt)
	assert.Equal(t, "COFFEE SHOP", first.Heading.Location)
	assert.Equal(t, "DAY", first.Heading.TimeOfDay)
	// 角色按提示行出现顺序记录
	assert.Equal(t, []string{"DAVID", "ANNA"}, first.Characters)
	require.Len(t, first.Dialogue, 2)
	assert.Equal(t, "DAVID", first.Dialogue[0].Character)
	assert.Equal(t, "Anna?", first.Dialogue[0].Line)
	assert.Equal(t, "You came.", first.Dialogue[1].Line)
	// 括注行不算台词
	for _, d := range first.Dialogue {
		assert.NotEqual(t, "(nervous)", d.Line)
	}

	second := scenes[1]
	assert.Equal(t, "EXT", second.Heading.IntExt)
	assert.Equal(t, "CITY STREET", second.Heading.Location)
	assert.Equal(t, "NIGHT", second.Heading.TimeOfDay)
	assert.Len(t, second.Actions, 2)
}

func TestParseScriptWithoutHeading(t *testing.T) {
	scenes := ParseScript("A man waits by the window.")
	require.Len(t, scenes, 1)
	assert.Equal(t, "UNKNOWN", scenes[0].Heading.Location)
	assert.Equal(t, "DAY", scenes[0].Heading.TimeOfDay)
	assert.Len(t, scenes[0].Actions, 1)
}

func TestParseScriptEmpty(t *testing.T) {
	assert.Empty(t, ParseScript(""))
	assert.Empty(t, ParseScript("   \n\n  "))
}

func TestSceneDescription(t *testing.T) {
	scenes := ParseScript(sampleScreenplay)
	require.NotEmpty(t, scenes)
	desc := scenes[0].Description()
	assert.Contains(t, desc, "COFFEE SHOP")
	assert.Contains(t, desc, "Characters: DAVID, ANNA")
}

func TestSuggestShotFromAction(t *testing.T) {
	assert.Equal(t, "close_up", SuggestShotFromAction("She stares at the old photograph."))
	assert.Equal(t, "wide_establishing", SuggestShotFromAction("He arrives at the mansion."))
	assert.Equal(t, "tracking", SuggestShotFromAction("The dog chases the mailman."))
	assert.Equal(t, "medium_character", SuggestShotFromAction("Something unremarkable."))
}

func TestSummarizeScript(t *testing.T) {
	summary := SummarizeScript(ParseScript(sampleScreenplay))
	assert.Equal(t, 2, summary.TotalScenes)
	assert.Equal(t, []string{"ANNA", "DAVID"}, summary.Characters)
	assert.Equal(t, []string{"CITY STREET", "COFFEE SHOP"}, summary.Locations)
	assert.Equal(t, 1, summary.Interior)
	assert.Equal(t, 1, summary.Exterior)
}

func TestScriptPlannerPlan(t *testing.T) {
	plan, err := ScriptPlanner{}.Plan(sampleScreenplay, models.ModeStoryboard, 0)
	require.NoError(t, err)
	require.NoError(t, plan.Validate())
	// 两个场景，每场景最多 3 个分镜
	assert.Len(t, plan.Shots, 6)
	assert.Equal(t, "COFFEE SHOP", plan.Title)
	assert.Equal(t, models.ModeStoryboard, plan.Mode)

	first := plan.Shots[0]
	assert.Contains(t, first.Description, "INT. COFFEE SHOP.")
	assert.Contains(t, first.Description, "Featuring: DAVID, ANNA")
	assert.Contains(t, first.PromptDelta, "5500K color temperature")

	// 夜景分镜带低色温光线基调
	night := plan.Shots[3]
	assert.Contains(t, night.Description, "Time: NIGHT.")
	assert.Contains(t, night.PromptDelta, "4000K color temperature")
}

func TestScriptPlannerCapsShotCount(t *testing.T) {
	plan, err := ScriptPlanner{}.Plan(sampleScreenplay, models.ModeStoryboard, 4)
	require.NoError(t, err)
	assert.Len(t, plan.Shots, 4)
	require.NoError(t, plan.Validate())
}

func TestScriptPlannerRejectsEmptyScript(t *testing.T) {
	_, err := ScriptPlanner{}.Plan("", models.ModeStoryboard, 0)
	assert.Error(t, err)
}
