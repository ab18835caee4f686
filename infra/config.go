package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 代表 config.yml 的結構
type Config struct {
	App struct {
		AppVersion         string `yaml:"app_version"`
		Timezone           string `yaml:"timezone"`             // 店家時區，例如 Asia/Kolkata
		DefaultCountryCode string `yaml:"default_country_code"` // 建單預設國碼
		DraftTTLHours      int    `yaml:"draft_ttl_hours"`      // 草稿保存時數
		IDMaxAttempts      int    `yaml:"id_max_attempts"`      // 產生 ID 時的碰撞重試次數
	} `yaml:"app"`
	MongoDB struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongodb"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	JWT struct {
		SecretKey    string `yaml:"secret_key"`
		ExpiresHours int    `yaml:"expires_hours"`
	} `yaml:"jwt"`
	Discord struct {
		BotToken  string `yaml:"bot_token"`
		ChannelID string `yaml:"channel_id"` // 通知頻道，空值則不發送
	} `yaml:"discord"`
	Uploads struct {
		Dir       string `yaml:"dir"`
		BaseURL   string `yaml:"base_url"`
		Thumbnail bool   `yaml:"thumbnail"` // 是否產生 webp 縮圖
	} `yaml:"uploads"`
	Otel struct {
		Enabled         bool   `yaml:"enabled"`
		Environment     string `yaml:"environment"`
		OTLPEndpoint    string `yaml:"otlp_endpoint"` // 空值時讀取 OTEL_EXPORTER_OTLP_ENDPOINT
		DevelopmentMode bool   `yaml:"development_mode"`
	} `yaml:"otel"`
	CustomerRetry struct {
		MaxAttempts  int `yaml:"max_attempts"`
		DelaySeconds int `yaml:"delay_seconds"`
	} `yaml:"customer_retry"`
}

var AppConfig Config

// LoadConfig 讀取設定檔，path 為空時使用 config.yml
func LoadConfig(path string) error {
	if path == "" {
		path = "config.yml"
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&AppConfig); err != nil {
		return fmt.Errorf("解析設定檔失敗: %w", err)
	}
	AppConfig.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Timezone == "" {
		c.App.Timezone = "Asia/Kolkata"
	}
	if c.App.DefaultCountryCode == "" {
		c.App.DefaultCountryCode = "+91"
	}
	if c.App.DraftTTLHours <= 0 {
		c.App.DraftTTLHours = 24
	}
	if c.App.IDMaxAttempts <= 0 {
		c.App.IDMaxAttempts = 5
	}
	if c.JWT.ExpiresHours <= 0 {
		c.JWT.ExpiresHours = 24
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.BaseURL == "" {
		c.Uploads.BaseURL = "/uploads"
	}
	if c.Otel.OTLPEndpoint == "" {
		c.Otel.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if c.Otel.OTLPEndpoint == "" {
		c.Otel.OTLPEndpoint = "localhost:4317"
	}
	if c.Otel.Environment == "" {
		c.Otel.Environment = "development"
	}
	if c.CustomerRetry.MaxAttempts <= 0 {
		c.CustomerRetry.MaxAttempts = 5
	}
	if c.CustomerRetry.DelaySeconds <= 0 {
		c.CustomerRetry.DelaySeconds = 10
	}
}

// ShopLocation 回傳店家時區，無法載入時退回 UTC
func (c *Config) ShopLocation() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DraftTTL 草稿在 Redis 的保存時間
func (c *Config) DraftTTL() time.Duration {
	return time.Duration(c.App.DraftTTLHours) * time.Hour
}
