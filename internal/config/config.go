// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	Redis    RedisConfig    `mapstructure:"redis"`    // Redis 配置
	JWT      JWTConfig      `mapstructure:"jwt"`      // JWT 配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	LLM      LLMConfig      `mapstructure:"llm"`      // 大模型服务配置
	Chat     ChatConfig     `mapstructure:"chat"`     // 对话编排配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`          // 监听端口，默认 8080
	Mode         string        `mapstructure:"mode"`          // 运行模式: debug / release
	CORS         []string      `mapstructure:"cors"`          // CORS 允许的域名
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 读超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 写超时（需覆盖一次完整的 LLM 调用）
}

// DatabaseConfig 关系型数据库连接配置
// Driver 支持 mysql 和 postgres
type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`         // 驱动: mysql / postgres
	Host         string        `mapstructure:"host"`           // 数据库主机地址
	Port         int           `mapstructure:"port"`           // 数据库端口
	Username     string        `mapstructure:"username"`       // 数据库用户名
	Password     string        `mapstructure:"password"`       // 数据库密码
	Database     string        `mapstructure:"database"`       // 数据库名称
	Charset      string        `mapstructure:"charset"`        // 字符集（仅 mysql）
	SSLMode      string        `mapstructure:"sslmode"`        // SSL 模式（仅 postgres）
	MaxIdleConns int           `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int           `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int           `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
	QueryTimeout time.Duration `mapstructure:"query_timeout"`  // 单次数据库操作超时
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`      // Redis 主机地址
	Port     int    `mapstructure:"port"`      // Redis 端口
	Username string `mapstructure:"username"`  // Redis 用户名
	Password string `mapstructure:"password"`  // Redis 密码
	DB       int    `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int    `mapstructure:"pool_size"` // 连接池大小
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`         // JWT 签名密钥，至少32字符
	AccessExpire  time.Duration `mapstructure:"access_expire"`  // Access Token 过期时间
	RefreshExpire time.Duration `mapstructure:"refresh_expire"` // Refresh Token 过期时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// LLMConfig 大模型（OpenAI 兼容接口）配置
type LLMConfig struct {
	APIKey              string        `mapstructure:"api_key"`              // API Key
	BaseURL             string        `mapstructure:"base_url"`             // 接口地址，为空时使用官方地址
	ChatModel           string        `mapstructure:"chat_model"`           // 角色回复使用的模型
	AnalysisModel       string        `mapstructure:"analysis_model"`       // 好感度分析使用的模型
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`      // 单次请求超时
	MaxRetries          int           `mapstructure:"max_retries"`          // SDK 自动重试次数
	ReplyMaxTokens      int64         `mapstructure:"reply_max_tokens"`     // 回复最大 token 数，0 表示不限制
	ReplyTemperature    float64       `mapstructure:"reply_temperature"`    // 回复采样温度
	AnalysisMaxTokens   int64         `mapstructure:"analysis_max_tokens"`  // 分析最大 token 数
	AnalysisTemperature float64       `mapstructure:"analysis_temperature"` // 分析采样温度
}

// ChatConfig 对话编排配置
type ChatConfig struct {
	HistoryLimit        int           `mapstructure:"history_limit"`         // 构建提示词时读取的历史条数
	DefaultHistoryLimit int           `mapstructure:"default_history_limit"` // 历史接口默认条数
	MaxHistoryLimit     int           `mapstructure:"max_history_limit"`     // 历史接口最大条数
	StrictReply         bool          `mapstructure:"strict_reply"`          // 回复生成失败时是否直接返回 503
	FallbackReply       string        `mapstructure:"fallback_reply"`        // 回复生成失败时的固定回复
	LockTTL             time.Duration `mapstructure:"lock_ttl"`              // 同一 persona/character 对话锁的过期时间
	LockWait            time.Duration `mapstructure:"lock_wait"`             // 等待对话锁的最长时间
}

// Load 从指定路径加载配置文件
// 支持环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	// 例如: DATABASE_HOST -> database.host
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查配置是否可用
// release 模式下要求 JWT 密钥至少 32 字节
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret must be at least 32 bytes in release mode")
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Chat.HistoryLimit <= 0 {
		return errors.New("chat.history_limit must be positive")
	}
	if c.Chat.MaxHistoryLimit < c.Chat.DefaultHistoryLimit {
		return errors.New("chat.max_history_limit must not be less than chat.default_history_limit")
	}
	return nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// 数据库配置
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST", "DB_HOST")
	v.BindEnv("database.port", "DATABASE_PORT", "DB_PORT")
	v.BindEnv("database.username", "DATABASE_USERNAME", "DB_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD", "DB_PASSWORD")
	v.BindEnv("database.database", "DATABASE_DATABASE", "DB_NAME")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT 配置
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// 大模型配置
	v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")

	// 数据库默认配置
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "mingling")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_lifetime", 3600)
	v.SetDefault("database.query_timeout", "5s")

	// Redis 默认配置
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)

	// JWT 默认配置
	v.SetDefault("jwt.access_expire", "168h")
	v.SetDefault("jwt.refresh_expire", "720h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// 大模型默认配置
	v.SetDefault("llm.chat_model", "gpt-3.5-turbo")
	v.SetDefault("llm.analysis_model", "gpt-3.5-turbo")
	v.SetDefault("llm.request_timeout", "30s")
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.reply_max_tokens", 0)
	v.SetDefault("llm.reply_temperature", 0.8)
	v.SetDefault("llm.analysis_max_tokens", 150)
	v.SetDefault("llm.analysis_temperature", 0.3)

	// 对话默认配置
	v.SetDefault("chat.history_limit", 10)
	v.SetDefault("chat.default_history_limit", 50)
	v.SetDefault("chat.max_history_limit", 200)
	v.SetDefault("chat.strict_reply", false)
	v.SetDefault("chat.fallback_reply", "Sorry, I can't reply right now. Please try again in a moment.")
	v.SetDefault("chat.lock_ttl", "90s")
	v.SetDefault("chat.lock_wait", "5s")
}
