package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// ClassifierConfig 睡眠分期推理服务配置
type ClassifierConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryCount     int    `yaml:"retry_count"`
}

// StagingConfig 分期任务配置
type StagingConfig struct {
	RequestTopic       string   `yaml:"request_topic"`
	ResultTopic        string   `yaml:"result_topic"`
	ResultStream       string   `yaml:"result_stream"`
	ResultCachePrefix  string   `yaml:"result_cache_prefix"`
	ResultCacheTTL     int      `yaml:"result_cache_ttl"` // 秒
	DefaultRefChannels []string `yaml:"default_ref_channels"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config EEG 分期服务配置
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Staging    StagingConfig    `yaml:"staging"`
	Log        LogConfig        `yaml:"log"`
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Load 加载配置
//
// 优先级（低到高）：内置默认值 < CONFIG_FILE 指定的 YAML 文件 < 环境变量
func Load() (*Config, error) {
	cfg := defaults()

	// 可选的 YAML 配置文件
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// 环境变量覆盖
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)

	cfg.Classifier.BaseURL = getEnv("CLASSIFIER_BASE_URL", cfg.Classifier.BaseURL)
	cfg.Classifier.TimeoutSeconds = getEnvInt("CLASSIFIER_TIMEOUT", cfg.Classifier.TimeoutSeconds)
	cfg.Classifier.RetryCount = getEnvInt("CLASSIFIER_RETRY_COUNT", cfg.Classifier.RetryCount)

	cfg.Staging.RequestTopic = getEnv("STAGING_REQUEST_TOPIC", cfg.Staging.RequestTopic)
	cfg.Staging.ResultTopic = getEnv("STAGING_RESULT_TOPIC", cfg.Staging.ResultTopic)
	cfg.Staging.ResultStream = getEnv("STAGING_RESULT_STREAM", cfg.Staging.ResultStream)
	cfg.Staging.ResultCachePrefix = getEnv("STAGING_RESULT_CACHE_PREFIX", cfg.Staging.ResultCachePrefix)
	cfg.Staging.ResultCacheTTL = getEnvInt("STAGING_RESULT_CACHE_TTL", cfg.Staging.ResultCacheTTL)
	if refs := os.Getenv("STAGING_DEFAULT_REF_CHANNELS"); refs != "" {
		cfg.Staging.DefaultRefChannels = splitChannels(refs)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "owlrd"
	cfg.Database.SSLMode = "disable"

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Password = ""
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = "mqtt://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-eegstaging"
	cfg.MQTT.Username = "wisefido"
	cfg.MQTT.Password = ""
	cfg.MQTT.QoS = 1

	cfg.Classifier.BaseURL = "http://localhost:8090"
	cfg.Classifier.TimeoutSeconds = 60
	cfg.Classifier.RetryCount = 3

	cfg.Staging.RequestTopic = "eeg/staging/request"
	cfg.Staging.ResultTopic = "eeg/staging/result"
	cfg.Staging.ResultStream = "eegstaging:result:stream"
	cfg.Staging.ResultCachePrefix = "eegstaging:result:"
	cfg.Staging.ResultCacheTTL = 3600
	cfg.Staging.DefaultRefChannels = []string{"M1", "M2"}

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// splitChannels 解析逗号分隔的通道名列表，如 "M1,M2"
func splitChannels(s string) []string {
	parts := strings.Split(s, ",")
	channels := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			channels = append(channels, name)
		}
	}
	return channels
}
