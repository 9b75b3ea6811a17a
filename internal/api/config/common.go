package config

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logstash LogstashConfig `mapstructure:"logstash"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 消息存储配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// ChatConfig 聊天引擎配置
type ChatConfig struct {
	// OperatorEmail 唯一授权的运营者邮箱，收件箱仅对该身份开放
	OperatorEmail string `mapstructure:"operator_email"`
	// TypingDebounceMs typing 标志自动清除窗口（毫秒），默认 2000
	TypingDebounceMs int `mapstructure:"typing_debounce_ms"`
	// PresenceTTLSec 在线标志兜底过期时间（秒）
	PresenceTTLSec int `mapstructure:"presence_ttl_sec"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// NotifyConfig 通知投递配置
type NotifyConfig struct {
	Topic      string `mapstructure:"topic"`
	GroupID    string `mapstructure:"group_id"`
	WebhookURL string `mapstructure:"webhook_url"`
	ServerKey  string `mapstructure:"server_key"`
}

// LogstashConfig 日志上报配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}
