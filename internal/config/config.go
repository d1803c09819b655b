package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FeedConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type TemporalConfig struct {
	HostPort     string `mapstructure:"host_port"`
	Namespace    string `mapstructure:"namespace"`
	TaskQueue    string `mapstructure:"task_queue"`
	ReminderCron string `mapstructure:"reminder_cron"`
}

type FirebaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
}

type RealtimeConfig struct {
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Config struct {
	DatabaseURL    string         `mapstructure:"database_url"`
	ServerPort     string         `mapstructure:"server_port"`
	JWTSecret      string         `mapstructure:"jwt_secret"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Feed           FeedConfig     `mapstructure:"feed"`
	Temporal       TemporalConfig `mapstructure:"temporal"`
	Firebase       FirebaseConfig `mapstructure:"firebase"`
	Realtime       RealtimeConfig `mapstructure:"realtime"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	config, err := LoadFrom(".", "./config")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return config
}

// LoadFrom reads config.yaml from the first matching search path. Values can
// be overridden by TIPBOARD_* environment variables, e.g.
// TIPBOARD_REDIS_ADDR for redis.addr.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("tipboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(config.JWTSecret) == "" {
		return nil, fmt.Errorf("jwt_secret must be set")
	}
	if strings.TrimSpace(config.DatabaseURL) == "" {
		return nil, fmt.Errorf("database_url must be set")
	}
	if config.Feed.CacheTTL <= 0 {
		return nil, fmt.Errorf("feed.cache_ttl must be positive, got %s", config.Feed.CacheTTL)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// AutomaticEnv only resolves keys viper already knows about, so every
	// overridable key needs a default.
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("feed.cache_ttl", 24*time.Hour)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "TIPBOARD_NOTIFICATIONS")
	v.SetDefault("temporal.reminder_cron", "0 8 * * 1")
	v.SetDefault("firebase.enabled", false)
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.topic_prefix", "user-")
	v.SetDefault("realtime.send_buffer", 16)
	v.SetDefault("realtime.write_timeout", 10*time.Second)
}
