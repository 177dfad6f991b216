package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
	"github.com/snigdhareddy482/fibo-continuity-director/models"
)

// Generator 生成服务边界：提交请求，阻塞直到拿到图片字节或结构化失败。
// 序列引擎只依赖这个接口，测试里用假实现替换。
type Generator interface {
	Generate(ctx context.Context, payload RequestPayload) ([]byte, error)
}

// FiboClient Bria FIBO API 客户端。
// 同步响应直接取图；异步响应（返回 status_url）进入有界轮询。
type FiboClient struct {
	APIURL      string
	APIKey      string
	EditAPIBase string

	// 轮询节奏可注入，测试时换成极小值即可，不依赖真实时钟
	PollInterval time.Duration
	MaxWait      time.Duration

	AspectRatio    string
	NegativePrompt string

	HTTP *http.Client
}

func NewFiboClient() *FiboClient {
	cfg := config.AppConfig.Fibo
	return &FiboClient{
		APIURL:         cfg.APIURL,
		APIKey:         cfg.APIKey,
		EditAPIBase:    cfg.EditAPIBase,
		PollInterval:   time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		MaxWait:        time.Duration(cfg.MaxWaitSec) * time.Second,
		AspectRatio:    cfg.AspectRatio,
		NegativePrompt: cfg.NegativePrompt,
		HTTP:           &http.Client{},
	}
}

func (c *FiboClient) headers(req *http.Request) {
	// FIBO curl 示例用的是 api_token 头而不是 Authorization
	req.Header.Set("api_token", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// Generate 单次生成调用，带上限等待；不做自动重试
func (c *FiboClient) Generate(ctx context.Context, payload RequestPayload) ([]byte, error) {
	if c.APIKey == "" || c.APIURL == "" {
		return nil, &GenError{Kind: models.FailureAuth, Message: "FIBO api key/url 未配置"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.MaxWait)
	defer cancel()

	apiPayload := map[string]interface{}{
		"prompt": payload.Prompt,
	}
	neg := payload.NegativePrompt
	if neg == "" {
		neg = c.NegativePrompt
	}
	if neg != "" {
		apiPayload["negative_prompt"] = neg
	}
	ar := payload.AspectRatio
	if ar == "" {
		ar = c.AspectRatio
	}
	if ar != "" {
		apiPayload["aspect_ratio"] = ar
	}
	// Inspire Mode：带参考图则转为 image-to-image
	if payload.ImageConditioned() {
		apiPayload["image_url"] = dataURI(payload.ReferenceImage)
	}

	data, err := c.postJSON(ctx, c.APIURL, apiPayload)
	if err != nil {
		return nil, err
	}

	imageURL := extractImageURL(data)
	if imageURL == "" {
		// 异步响应：拿 status_url 去轮询
		if statusURL, ok := data["status_url"].(string); ok && statusURL != "" {
			data, err = c.pollForResult(ctx, statusURL)
			if err != nil {
				return nil, err
			}
			imageURL = extractImageURL(data)
		}
	}
	if imageURL == "" {
		return nil, &GenError{Kind: models.FailureServer, Message: "响应中没有图片 URL"}
	}

	return c.download(ctx, imageURL)
}

// pollForResult 轮询 status_url 直到终态或超出等待上限
func (c *FiboClient) pollForResult(ctx context.Context, statusURL string) (map[string]interface{}, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, &GenError{Kind: models.FailureTimeout, Message: "轮询超时: " + ctx.Err().Error()}
		case <-ticker.C:
			data, err := c.getJSON(ctx, statusURL)
			if err != nil {
				// 单次轮询网络抖动不算终态，继续等下一个 tick
				log.Printf("轮询失败(重试中): %v", err)
				continue
			}
			// 有图直接返回，不管 status 字段写的什么
			if extractImageURL(data) != "" {
				return data, nil
			}
			status, _ := data["status"].(string)
			switch status {
			case "completed", "succeeded", "ready", "done", "success", "finished":
				return data, nil
			case "failed", "error":
				return nil, &GenError{Kind: models.FailureServer, Message: fmt.Sprintf("生成失败: %v", data)}
			}
			// processing / pending / queued / 未知状态继续轮询
		}
	}
}

func (c *FiboClient) postJSON(ctx context.Context, url string, body map[string]interface{}) (map[string]interface{}, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &GenError{Kind: models.FailureInvalidRequest, Message: "marshal request failed: " + err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &GenError{Kind: models.FailureInvalidRequest, Message: err.Error()}
	}
	c.headers(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}
	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &GenError{Kind: models.FailureServer, Message: "decode response failed: " + err.Error()}
	}
	return data, nil
}

func (c *FiboClient) getJSON(ctx context.Context, url string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &GenError{Kind: models.FailureInvalidRequest, Message: err.Error()}
	}
	c.headers(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}
	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &GenError{Kind: models.FailureServer, Message: "decode response failed: " + err.Error()}
	}
	return data, nil
}

func (c *FiboClient) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &GenError{Kind: models.FailureInvalidRequest, Message: err.Error()}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}
	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenError{Kind: models.FailureNetwork, Message: "下载图片失败: " + err.Error()}
	}
	return img, nil
}

// classifyStatus HTTP 状态码 -> 失败类别
func classifyStatus(resp *http.Response) *GenError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &GenError{Kind: models.FailureAuth, Message: msg}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &GenError{Kind: models.FailureRateLimited, Message: msg}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &GenError{Kind: models.FailureInvalidRequest, Message: msg}
	default:
		return &GenError{Kind: models.FailureServer, Message: msg}
	}
}

func classifyTransportError(ctx context.Context, err error) *GenError {
	if ctx.Err() != nil {
		return &GenError{Kind: models.FailureTimeout, Message: err.Error()}
	}
	return &GenError{Kind: models.FailureNetwork, Message: err.Error()}
}

// extractImageURL 兼容多种响应结构提取图片地址：
// result.image_url / image_url / images[0].url / images[0]
func extractImageURL(data map[string]interface{}) string {
	if result, ok := data["result"].(map[string]interface{}); ok {
		if u, ok := result["image_url"].(string); ok && u != "" {
			return u
		}
	}
	if u, ok := data["image_url"].(string); ok && u != "" {
		return u
	}
	if images, ok := data["images"].([]interface{}); ok && len(images) > 0 {
		switch first := images[0].(type) {
		case map[string]interface{}:
			if u, ok := first["url"].(string); ok {
				return u
			}
		case string:
			return first
		}
	}
	return ""
}

func dataURI(img []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
}

// ============================================================================
// Bria V1 图像编辑接口（背景移除 / 局部重绘 / 擦除 / 扩图 / 增强）
// ============================================================================

func (c *FiboClient) editRequest(ctx context.Context, path string, body map[string]interface{}) ([]byte, error) {
	if c.APIKey == "" {
		return nil, &GenError{Kind: models.FailureAuth, Message: "FIBO api key 未配置"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.MaxWait)
	defer cancel()

	data, err := c.postJSON(ctx, c.EditAPIBase+path, body)
	if err != nil {
		return nil, err
	}
	if statusURL, ok := data["status_url"].(string); ok && statusURL != "" {
		data, err = c.pollForResult(ctx, statusURL)
		if err != nil {
			return nil, err
		}
	}
	imageURL := extractImageURL(data)
	if imageURL == "" {
		if u, ok := data["result_url"].(string); ok {
			imageURL = u
		}
	}
	if imageURL == "" {
		return nil, &GenError{Kind: models.FailureServer, Message: "编辑接口没有返回结果图"}
	}
	return c.download(ctx, imageURL)
}

// RemoveBackground Bria RMBG 背景移除
func (c *FiboClient) RemoveBackground(ctx context.Context, image []byte) ([]byte, error) {
	return c.editRequest(ctx, "/background/remove", map[string]interface{}{
		"image": dataURI(image),
	})
}

// GenerativeFill 蒙版区域 AI 填充（inpainting）
func (c *FiboClient) GenerativeFill(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	return c.editRequest(ctx, "/eraser/replace", map[string]interface{}{
		"image":  dataURI(image),
		"mask":   dataURI(mask),
		"prompt": prompt,
	})
}

// EraseObject 擦除蒙版内物体并智能补全
func (c *FiboClient) EraseObject(ctx context.Context, image, mask []byte) ([]byte, error) {
	return c.editRequest(ctx, "/eraser", map[string]interface{}{
		"image": dataURI(image),
		"mask":  dataURI(mask),
	})
}

// ExpandImage 向外扩展画幅（outpainting）
func (c *FiboClient) ExpandImage(ctx context.Context, image []byte, aspectRatio string) ([]byte, error) {
	if aspectRatio == "" {
		aspectRatio = c.AspectRatio
	}
	return c.editRequest(ctx, "/image/expand", map[string]interface{}{
		"image":        dataURI(image),
		"aspect_ratio": aspectRatio,
	})
}

// EnhanceImage 画质增强与放大
func (c *FiboClient) EnhanceImage(ctx context.Context, image []byte) ([]byte, error) {
	return c.editRequest(ctx, "/image/enhance", map[string]interface{}{
		"image": dataURI(image),
	})
}
