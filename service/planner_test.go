package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

func TestTemplatePlannerOrdinalsContiguous(t *testing.T) {
	plan, err := TemplatePlanner{}.Plan("a brave knight", models.ModeStoryboard, 12)
	require.NoError(t, err)
	require.Len(t, plan.Shots, 12)
	require.NoError(t, plan.Validate())
	for i, shot := range plan.Shots {
		assert.Equal(t, i, shot.Ordinal)
		assert.NotEmpty(t, shot.Description)
	}
}

func TestTemplatePlannerModeContinuity(t *testing.T) {
	sb, err := TemplatePlanner{}.Plan("a brave knight", models.ModeStoryboard, 3)
	require.NoError(t, err)
	assert.Equal(t, models.ModeStoryboard, sb.Mode)
	assert.Equal(t, 35.0, sb.Continuity.LensMM)

	pr, err := TemplatePlanner{}.Plan("a new watch", models.ModeProduct, 3)
	require.NoError(t, err)
	assert.Equal(t, models.ModeProduct, pr.Mode)
	assert.Equal(t, 85.0, pr.Continuity.LensMM)
	assert.Equal(t, "soft_box", pr.Continuity.LightingSetup)
}

func TestTemplatePlannerSetsTitle(t *testing.T) {
	plan, err := TemplatePlanner{}.Plan("a lone astronaut drifting past Jupiter's moons", models.ModeStoryboard, 3)
	require.NoError(t, err)
	assert.Equal(t, "a lone astronaut drifting past Jupiters", plan.Title)

	empty, err := TemplatePlanner{}.Plan("", models.ModeProduct, 3)
	require.NoError(t, err)
	assert.Equal(t, "product sequence", empty.Title)
}

func TestTemplatePlannerRejectsZeroShots(t *testing.T) {
	_, err := TemplatePlanner{}.Plan("brief", models.ModeStoryboard, 0)
	assert.Error(t, err)
}

func TestTemplatePlannerCharacterBrief(t *testing.T) {
	brief := "[CHARACTER: a knight in silver armor] storming the castle gate"
	plan, err := TemplatePlanner{}.Plan(brief, models.ModeStoryboard, 2)
	require.NoError(t, err)
	for _, shot := range plan.Shots {
		// 角色描述放在最前，场景拼在后面
		assert.True(t, strings.HasPrefix(shot.Description, "a knight in silver armor"))
		assert.Contains(t, shot.Description, "storming the castle gate")
	}
}

func TestArcPlannerBeatDistribution(t *testing.T) {
	plan, err := ArcPlanner{}.Plan("a hero on a quest to overcome destiny", models.ModeStoryboard, 8)
	require.NoError(t, err)
	require.Len(t, plan.Shots, 8)
	require.NoError(t, plan.Validate())
	assert.Equal(t, "hero's journey", plan.Title)

	// 三幕式：首镜是铺垫，末镜是收束
	assert.Equal(t, "The Ordinary World", plan.Shots[0].Role)
	assert.NotEmpty(t, plan.Shots[7].Role)
}

func TestArcPlannerThemeDetection(t *testing.T) {
	assert.Equal(t, "love story", DetectTheme("two hearts falling in love"))
	assert.Equal(t, "mystery", DetectTheme("a detective follows a hidden clue"))
	assert.Equal(t, "hero's journey", DetectTheme("nothing matches here"))
}

func TestArcPlannerProductModeForcesShowcase(t *testing.T) {
	plan, err := ArcPlanner{}.Plan("a mystery clue detective story", models.ModeProduct, 4)
	require.NoError(t, err)
	assert.Equal(t, "product showcase", plan.Title)
	assert.Equal(t, models.ModeProduct, plan.Mode)
}

func TestSafeProjectID(t *testing.T) {
	id := SafeProjectID("A Brave Knight! Rides at Dawn, again")
	assert.True(t, strings.HasPrefix(id, "a_brave_knight_rides_at_"))

	// 空 brief 也要能生成合法 id
	id = SafeProjectID("!!!")
	assert.True(t, strings.HasPrefix(id, "project_"))

	// 两次生成不相同（uuid 后缀）
	assert.NotEqual(t, SafeProjectID("same brief"), SafeProjectID("same brief"))
}
