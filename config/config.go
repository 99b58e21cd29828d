package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"pillsync"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"pillsync"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"pysc"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 提醒策略配置
	ReminderDueWindowMinutes  int    `env:"REMINDER_DUE_WINDOW_MINUTES" envDefault:"2"`  // 到点判定窗口（±分钟）
	ReminderMissedAfterMin    int    `env:"REMINDER_MISSED_AFTER_MINUTES" envDefault:"30"` // 超过该分钟数仍未确认即判漏服
	ReminderSnoozeMinutes     int    `env:"REMINDER_SNOOZE_MINUTES" envDefault:"15"`
	ReminderTickSeconds       int    `env:"REMINDER_TICK_SECONDS" envDefault:"60"` // 会话轮询间隔
	ReminderSweepTimeoutSec   int    `env:"REMINDER_SWEEP_TIMEOUT_SECONDS" envDefault:"120"`
	ReminderSessionIdleMin    int    `env:"REMINDER_SESSION_IDLE_MINUTES" envDefault:"30"` // 会话无心跳自动关闭
	ReminderMaxCaregivers     int    `env:"REMINDER_MAX_CAREGIVERS" envDefault:"5"`
	SweepOperatorToken        string `env:"SWEEP_OPERATOR_TOKEN"` // 外部调度器调用 sweep 端点的共享令牌

	// Firebase 配置（FCM 推送 + 照片存储）
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseStorageBucket   string `env:"FIREBASE_STORAGE_BUCKET"`

	// OCR 服务配置
	OCREndpoint       string `env:"OCR_ENDPOINT"`
	OCRTimeoutSeconds int    `env:"OCR_TIMEOUT_SECONDS" envDefault:"15"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		// token.Init 会在 server 启动时硬失败，这里只提醒
		log.Printf("WARN: JWT_SECRET is not set, authenticated endpoints will not work")
	}

	if Cfg.ReminderDueWindowMinutes <= 0 {
		log.Fatal("REMINDER_DUE_WINDOW_MINUTES must be positive")
	}

	if Cfg.ReminderMissedAfterMin <= Cfg.ReminderDueWindowMinutes {
		log.Fatal("REMINDER_MISSED_AFTER_MINUTES must be greater than REMINDER_DUE_WINDOW_MINUTES")
	}

	if Cfg.FirebaseCredentialsFile == "" {
		log.Printf("WARN: FIREBASE_CREDENTIALS_FILE is not set, push delivery and photo upload will not work")
	}

	if Cfg.OCREndpoint == "" {
		log.Printf("WARN: OCR_ENDPOINT is not set, every verification photo will be treated as unrecognized")
	}

	if Cfg.SweepOperatorToken == "" {
		log.Printf("WARN: SWEEP_OPERATOR_TOKEN is not set, the sweep endpoint will reject all callers")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DueWindow 到点判定窗口（±）
func (c *Config) DueWindow() time.Duration {
	return time.Duration(c.ReminderDueWindowMinutes) * time.Minute
}

// MissedAfter 过点多久仍为 pending 即判定漏服
func (c *Config) MissedAfter() time.Duration {
	return time.Duration(c.ReminderMissedAfterMin) * time.Minute
}

func (c *Config) SnoozeDuration() time.Duration {
	return time.Duration(c.ReminderSnoozeMinutes) * time.Minute
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.ReminderTickSeconds) * time.Second
}
