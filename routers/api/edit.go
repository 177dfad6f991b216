package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snigdhareddy482/fibo-continuity-director/models"
	"github.com/snigdhareddy482/fibo-continuity-director/service"
)

// 编辑单个分镜图片：POST /v1/api/projects/:project_id/shots/:ordinal/edit
// 同步调用编辑接口，成功后覆盖该分镜的图片文件并重新打分落盘。
// op: remove_background | fill | erase | expand | enhance
func EditShot(c *gin.Context) {
	projectID := c.Param("project_id")
	ordinal, err := strconv.Atoi(c.Param("ordinal"))
	if err != nil || ordinal < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的分镜序号: " + c.Param("ordinal")})
		return
	}

	var req struct {
		Op          string `json:"op"`
		Prompt      string `json:"prompt"`       // fill 用
		MaskBase64  string `json:"mask"`         // fill / erase 用
		AspectRatio string `json:"aspect_ratio"` // expand 用
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store := service.NewStore()
	session, err := store.RestoreSession(projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}
	res, ok := session.Results[ordinal]
	if !ok || !res.Succeeded() || len(res.Image) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("分镜 %d 还没有可编辑的图片", ordinal)})
		return
	}

	var mask []byte
	if req.MaskBase64 != "" {
		mask, err = base64.StdEncoding.DecodeString(req.MaskBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mask 不是合法的 base64"})
			return
		}
	}

	client := service.NewFiboClient()
	ctx := c.Request.Context()
	var edited []byte
	switch req.Op {
	case "remove_background":
		edited, err = client.RemoveBackground(ctx, res.Image)
	case "fill":
		if len(mask) == 0 || req.Prompt == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fill 需要 mask 和 prompt"})
			return
		}
		edited, err = client.GenerativeFill(ctx, res.Image, mask, req.Prompt)
	case "erase":
		if len(mask) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "erase 需要 mask"})
			return
		}
		edited, err = client.EraseObject(ctx, res.Image, mask)
	case "expand":
		edited, err = client.ExpandImage(ctx, res.Image, req.AspectRatio)
	case "enhance":
		edited, err = client.EnhanceImage(ctx, res.Image)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知的编辑操作: " + req.Op})
		return
	}
	if err != nil {
		kind := service.FailureKindOf(err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
			"hint":  service.FriendlyMessage(kind),
		})
		return
	}

	// 覆盖该分镜的图片并重新打分
	res.Image = edited
	validator := service.NewValidator()
	ref := session.Reference
	if ordinal == 0 || len(ref) == 0 {
		ref = edited
	}
	res.Score = validator.Score(ref, edited)
	res.Outlier = validator.IsOutlier(res.Score)
	session.Results[ordinal] = res
	if ordinal == 0 {
		session.Reference = edited
	}

	if err := store.SaveProject(projectID, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存项目失败: " + err.Error()})
		return
	}

	resp := gin.H{
		"ordinal": ordinal,
		"op":      req.Op,
		"score":   res.Score,
		"outlier": res.Outlier,
		"path":    filepath.Join(store.Root, projectID, fmt.Sprintf("shot_%03d.png", ordinal)),
	}
	if service.MinioClient != nil {
		if url, uerr := service.UploadShotImage(projectID, ordinal, edited); uerr == nil {
			resp["image_url"] = url
		}
	}
	c.JSON(http.StatusOK, resp)
}

// 提取参考图风格：POST /v1/api/projects/:project_id/style
// 上传一张参考图（multipart 字段 image），返回风格指纹，不修改项目
func ExtractStyle(c *gin.Context) {
	projectID := c.Param("project_id")
	store := service.NewStore()
	if _, err := store.LoadProject(projectID); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目未找到: " + projectID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取项目失败: " + err.Error()})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 image 文件"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "打开上传文件失败: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取上传文件失败: " + err.Error()})
		return
	}

	dna, err := service.ExtractStyleDNA(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 参考图存进项目目录，后续 apply_continuity 可通过 reference_path 引用
	refPath := filepath.Join(store.Root, projectID, "reference.png")
	if err := os.WriteFile(refPath, data, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存参考图失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"style":          dna,
		"reference_path": "reference.png",
		"continuity":     dna.ApplyToContinuity(models.DefaultContinuityMap()),
	})
}
