package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
	"github.com/snigdhareddy482/fibo-continuity-director/service"
)

// 剧本解析预览：POST /v1/api/script/parse
// 只做解析和统计，不落盘。要基于剧本建项目走 POST /projects + use_script
func ParseScript(c *gin.Context) {
	var req struct {
		Script string `json:"script"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Script == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "script 不能为空"})
		return
	}

	scenes := service.ParseScript(req.Script)
	if len(scenes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "剧本中未解析出任何场景"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scenes":  scenes,
		"summary": service.SummarizeScript(scenes),
	})
}

// AI 导演建议：POST /v1/api/director/suggest
// 传 continuity 时额外返回合并了建议的契约预览
func SuggestDirection(c *gin.Context) {
	var req struct {
		Description string                `json:"description"`
		Continuity  *models.ContinuityMap `json:"continuity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description 不能为空"})
		return
	}

	suggestions := service.AnalyzeScene(req.Description)
	resp := gin.H{"suggestions": suggestions}
	if req.Continuity != nil {
		resp["continuity"] = suggestions.ApplyToContinuity(req.Continuity.Normalize())
	}
	c.JSON(http.StatusOK, resp)
}
