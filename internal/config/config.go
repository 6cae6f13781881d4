// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充，供 main 使用。
var Conf Config

// DefaultPersonaPrompt 是固定的人设与简洁性约束，作为每轮 prompt 的第一条 system 消息。
const DefaultPersonaPrompt = "You are ArguMentor, an AI debate partner. Take a clear position that challenges the user's argument, " +
	"support it with reasoning and concrete examples, and stay respectful. " +
	"Keep every reply brief: no more than three short paragraphs and under 150 words."

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 存储会话存储与 Redis 的配置。
type DatabaseConfig struct {
	// Driver 取值 mysql 或 sqlite。
	Driver string      `mapstructure:"driver"`
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用 Redis。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储补全服务相关的配置。
type LLMConfig struct {
	APIKey    string          `mapstructure:"api_key"`
	BaseURL   string          `mapstructure:"base_url"`
	Model     string          `mapstructure:"model"`
	MaxTokens int             `mapstructure:"max_tokens"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	Prompt    LLMPromptConfig `mapstructure:"prompt"`
}

// LLMPromptConfig 配置系统提示。
type LLMPromptConfig struct {
	Persona string `mapstructure:"persona"`
}

// KafkaConfig 存储对话日志（turn journal）的 Kafka 配置。Brokers 为空时不启用 Kafka。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// BrokerList 将逗号分隔的 broker 地址拆分为列表。
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Enabled 表示是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool {
	return len(k.BrokerList()) > 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "argumentor.db")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.prompt.persona", DefaultPersonaPrompt)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "argumentor-turns")
	v.SetDefault("kafka.group_id", "argumentor-journal")
}

// 部署环境中沿用的变量名。
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"llm.api_key":  {"ARGUMENTOR_LLM_API_KEY", "OPENAI_API_KEY"},
		"database.dsn": {"ARGUMENTOR_DATABASE_DSN", "DATABASE_DSN"},
		"server.port":  {"ARGUMENTOR_SERVER_PORT", "PORT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("绑定环境变量 %s 失败: %w", key, err)
		}
	}
	return nil
}

// Load 读取 .env（如果存在）、YAML 配置文件（如果存在）和环境变量，返回合并后的配置。
// configPath 为空或文件不存在时只使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 文件失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARGUMENTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("无法访问配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置中不能由默认值兜底的部分。
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("不支持的 database.driver: %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn 不能为空")
	}
	if strings.ContainsAny(c.Server.Port, " :") {
		return fmt.Errorf("无效的 server.port: %q", c.Server.Port)
	}
	return nil
}

// Init 加载配置到全局变量 Conf，失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
