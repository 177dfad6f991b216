package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`

	// FIBO 生图服务（Bria API）
	Fibo struct {
		APIURL         string `yaml:"api_url"`
		APIKey         string `yaml:"api_key"`
		EditAPIBase    string `yaml:"edit_api_base"`
		PollIntervalMS int    `yaml:"poll_interval_ms"` // 轮询间隔
		MaxWaitSec     int    `yaml:"max_wait_sec"`     // 单次生成最长等待
		AspectRatio    string `yaml:"aspect_ratio"`
		NegativePrompt string `yaml:"negative_prompt"`
	} `yaml:"fibo"`

	Storage struct {
		OutputDir string `yaml:"output_dir"` // 项目快照根目录
	} `yaml:"storage"`

	Validator struct {
		// 连贯性得分阈值，低于该值标记为 outlier
		ContinuityThreshold float64 `yaml:"continuity_threshold"`
	} `yaml:"validator"`

	Planner struct {
		DefaultShotCount int `yaml:"default_shot_count"`
	} `yaml:"planner"`

	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
}

var AppConfig *Config

func InitConfig() {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		log.Fatalf("配置文件读取失败: %v", err)
	}
	defer f.Close()
	decoder := yaml.NewDecoder(f)
	AppConfig = &Config{}
	if err := decoder.Decode(AppConfig); err != nil {
		log.Fatalf("配置文件解析失败: %v", err)
	}
	ApplyDefaults(AppConfig)
}

// ApplyDefaults 填充未配置项的默认值，保证下游不用再判空
func ApplyDefaults(c *Config) {
	if c.Fibo.APIURL == "" {
		c.Fibo.APIURL = "https://engine.prod.bria-api.com/v2/image/generate"
	}
	if c.Fibo.EditAPIBase == "" {
		c.Fibo.EditAPIBase = "https://engine.prod.bria-api.com/v1"
	}
	if c.Fibo.PollIntervalMS <= 0 {
		c.Fibo.PollIntervalMS = 1000
	}
	if c.Fibo.MaxWaitSec <= 0 {
		c.Fibo.MaxWaitSec = 120
	}
	if c.Fibo.AspectRatio == "" {
		c.Fibo.AspectRatio = "16:9"
	}
	if c.Fibo.NegativePrompt == "" {
		c.Fibo.NegativePrompt = "blurry, low quality, distortion, watermark, text, signature, bad anatomy, deformed"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Validator.ContinuityThreshold <= 0 {
		c.Validator.ContinuityThreshold = 0.85
	}
	if c.Planner.DefaultShotCount <= 0 {
		c.Planner.DefaultShotCount = 5
	}
}
