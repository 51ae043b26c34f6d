package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers selectable through STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store         StoreConfig
	Database      DatabaseConfig
	Mongo         MongoConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Security      SecurityConfig
	Log           LogConfig
	Workflow      WorkflowConfig
	Cron          CronConfig
	Notifications NotificationsConfig
	Letters       LettersConfig
	Stats         StatsConfig
}

// StoreConfig selects the persistence backend for requests and notifications.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// MongoConfig configures the document store driver.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig drives the security header middleware.
type SecurityConfig struct {
	ForceHTTPS bool
	SSLHost    string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// WorkflowConfig tunes the service request approval pipeline.
type WorkflowConfig struct {
	AutoApproveAfter    time.Duration
	EstimatedCompletion time.Duration
	ProofCodePrefix     string
}

// CronConfig governs the auto-escalation trigger endpoint and in-process schedule.
type CronConfig struct {
	Secret   string
	Enabled  bool
	Schedule string
}

// NotificationsConfig controls delivery retries and the Kafka event stream.
type NotificationsConfig struct {
	RetryWorkers  int
	RetryAttempts int
	RetryDelay    time.Duration
	KafkaEnabled  bool
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaClientID string
}

// LettersConfig describes the printed letterhead and download link signing.
type LettersConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
	VillageName     string
	DistrictName    string
	RegencyName     string
	VillageHeadName string
}

// StatsConfig tunes caching of aggregated request statistics.
type StatsConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Mongo = MongoConfig{
		URI:            v.GetString("MONGO_URI"),
		Database:       v.GetString("MONGO_DATABASE"),
		ConnectTimeout: parseDuration(v.GetString("MONGO_CONNECT_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Security = SecurityConfig{
		ForceHTTPS: v.GetBool("FORCE_HTTPS"),
		SSLHost:    v.GetString("SSL_HOST"),
	}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	cfg.Workflow = WorkflowConfig{
		AutoApproveAfter:    parseDuration(v.GetString("AUTO_APPROVE_AFTER"), 72*time.Hour),
		EstimatedCompletion: parseDuration(v.GetString("ESTIMATED_COMPLETION"), 7*24*time.Hour),
		ProofCodePrefix:     v.GetString("PROOF_CODE_PREFIX"),
	}

	cfg.Cron = CronConfig{
		Secret:   v.GetString("CRON_SECRET"),
		Enabled:  v.GetBool("ENABLE_CRON_SCHEDULER"),
		Schedule: v.GetString("CRON_AUTO_APPROVE_SCHEDULE"),
	}

	cfg.Notifications = NotificationsConfig{
		RetryWorkers:  v.GetInt("NOTIFICATION_RETRY_WORKERS"),
		RetryAttempts: v.GetInt("NOTIFICATION_RETRY_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 2*time.Second),
		KafkaEnabled:  v.GetBool("ENABLE_KAFKA_EVENTS"),
		KafkaBrokers:  splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:    v.GetString("KAFKA_NOTIFICATION_TOPIC"),
		KafkaClientID: v.GetString("KAFKA_CLIENT_ID"),
	}

	cfg.Letters = LettersConfig{
		SignedURLSecret: v.GetString("LETTERS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("LETTERS_SIGNED_URL_TTL"), 24*time.Hour),
		VillageName:     v.GetString("VILLAGE_NAME"),
		DistrictName:    v.GetString("DISTRICT_NAME"),
		RegencyName:     v.GetString("REGENCY_NAME"),
		VillageHeadName: v.GetString("VILLAGE_HEAD_NAME"),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "desa_layanan")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "desa_layanan")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("FORCE_HTTPS", false)
	v.SetDefault("SSL_HOST", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	v.SetDefault("AUTO_APPROVE_AFTER", "72h")
	v.SetDefault("ESTIMATED_COMPLETION", "168h")
	v.SetDefault("PROOF_CODE_PREFIX", "BKT")

	v.SetDefault("CRON_SECRET", "")
	v.SetDefault("ENABLE_CRON_SCHEDULER", false)
	v.SetDefault("CRON_AUTO_APPROVE_SCHEDULE", "0 0 * * * *")

	v.SetDefault("NOTIFICATION_RETRY_WORKERS", 1)
	v.SetDefault("NOTIFICATION_RETRY_ATTEMPTS", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "2s")
	v.SetDefault("ENABLE_KAFKA_EVENTS", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_NOTIFICATION_TOPIC", "desa.layanan.notifications")
	v.SetDefault("KAFKA_CLIENT_ID", "desa-layanan-api")

	v.SetDefault("LETTERS_SIGNED_URL_SECRET", "dev_letters_secret")
	v.SetDefault("LETTERS_SIGNED_URL_TTL", "24h")
	v.SetDefault("VILLAGE_NAME", "Desa Sukamaju")
	v.SetDefault("DISTRICT_NAME", "Kecamatan Sukamaju")
	v.SetDefault("REGENCY_NAME", "Kabupaten Sukamaju")
	v.SetDefault("VILLAGE_HEAD_NAME", "")

	v.SetDefault("STATS_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
