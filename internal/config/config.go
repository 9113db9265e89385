package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"user-service/internal/util"
)

// Config holds all runtime configuration, loaded once from the environment.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	Cloudinary    CloudinaryConfig
	KMS           KMSConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	Auth          AuthConfig
	OTP           OTPConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers []string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type ElasticsearchConfig struct {
	URL          string
	Username     string
	Password     string
	ProfileIndex string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type HashingConfig struct {
	Argon2MemoryCost   int
	Argon2TimeCost     int
	Argon2Parallelism  int
	PepperRotationDays int
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration
}

type OTPConfig struct {
	Expiry time.Duration
}

var (
	globalConfig *Config
	loadOnce     sync.Once
)

// LoadConfig reads configuration from the environment. A .env file is
// honored when present so local runs need no exported variables.
func LoadConfig() *Config {
	loadOnce.Do(func() {
		_ = godotenv.Load()

		cfg := &Config{
			Environment: util.GetEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Host:         util.GetEnv("SERVER_HOST", "0.0.0.0"),
				Port:         util.GetEnvInt("SERVER_PORT", 8080),
				TLSPort:      util.GetEnvInt("SERVER_TLS_PORT", 8443),
				ReadTimeout:  util.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: util.GetEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  util.GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
				EnableTLS:    util.GetEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     util.GetEnvBool("SERVER_AUTO_CERT", false),
				Domain:       util.GetEnv("SERVER_DOMAIN", "localhost"),
				CertFile:     util.GetEnv("SERVER_CERT_FILE", ""),
				KeyFile:      util.GetEnv("SERVER_KEY_FILE", ""),
				AutoCertDir:  util.GetEnv("SERVER_AUTOCERT_DIR", "/var/cache/autocert"),
				Email:        util.GetEnv("SERVER_ACME_EMAIL", ""),
			},
			Logging: LoggingConfig{
				Level:  util.GetEnv("LOG_LEVEL", "info"),
				Format: util.GetEnv("LOG_FORMAT", "console"),
			},
			Scylla: ScyllaConfig{
				Nodes:    splitAndTrim(util.GetEnv("SCYLLA_NODES", "127.0.0.1:9042")),
				Keyspace: util.GetEnv("SCYLLA_KEYSPACE", "user_service"),
				Username: util.GetEnv("SCYLLA_USERNAME", ""),
				Password: util.GetEnv("SCYLLA_PASSWORD", ""),
			},
			Redis: RedisConfig{
				URL:      util.GetEnv("REDIS_URL", "redis://127.0.0.1:6379"),
				Password: util.GetEnv("REDIS_PASSWORD", ""),
				DB:       util.GetEnvInt("REDIS_DB", 0),
				PoolSize: util.GetEnvInt("REDIS_POOL_SIZE", 50),
			},
			Kafka: KafkaConfig{
				Brokers: splitAndTrim(util.GetEnv("KAFKA_BROKERS", "127.0.0.1:9092")),
			},
			Clickhouse: ClickhouseConfig{
				URL:      util.GetEnv("CLICKHOUSE_URL", "http://127.0.0.1:8123"),
				Database: util.GetEnv("CLICKHOUSE_DATABASE", "user_audit"),
				Username: util.GetEnv("CLICKHOUSE_USERNAME", "default"),
				Password: util.GetEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:          util.GetEnv("ELASTICSEARCH_URL", "http://127.0.0.1:9200"),
				Username:     util.GetEnv("ELASTICSEARCH_USERNAME", ""),
				Password:     util.GetEnv("ELASTICSEARCH_PASSWORD", ""),
				ProfileIndex: util.GetEnv("ELASTICSEARCH_PROFILE_INDEX", "user-profiles"),
			},
			Cloudinary: CloudinaryConfig{
				CloudName: util.GetEnv("CLOUDINARY_CLOUD_NAME", ""),
				APIKey:    util.GetEnv("CLOUDINARY_API_KEY", ""),
				APISecret: util.GetEnv("CLOUDINARY_API_SECRET", ""),
				Folder:    util.GetEnv("CLOUDINARY_FOLDER", "profile-photos"),
			},
			KMS: KMSConfig{
				Enabled: util.GetEnvBool("KMS_ENABLED", false),
				KeyID:   util.GetEnv("KMS_KEY_ID", ""),
				Region:  util.GetEnv("KMS_REGION", "ap-south-1"),
			},
			Hashing: HashingConfig{
				Argon2MemoryCost:   util.GetEnvInt("ARGON2_MEMORY_COST", 65536),
				Argon2TimeCost:     util.GetEnvInt("ARGON2_TIME_COST", 3),
				Argon2Parallelism:  util.GetEnvInt("ARGON2_PARALLELISM", 2),
				PepperRotationDays: util.GetEnvInt("PEPPER_ROTATION_DAYS", 30),
			},
			Bucketing: BucketingConfig{
				UserBuckets:  util.GetEnvInt("USER_BUCKETS", 256),
				EventBuckets: util.GetEnvInt("EVENT_BUCKETS", 64),
			},
			Auth: AuthConfig{
				JWTSecret:      util.GetEnv("JWT_SECRET", "dev-only-secret"),
				AccessTokenTTL: util.GetEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
				SessionTTL:     util.GetEnvDuration("SESSION_TTL", 7*24*time.Hour),
			},
			OTP: OTPConfig{
				Expiry: util.GetEnvDuration("OTP_EXPIRY", 5*time.Minute),
			},
		}

		if err := cfg.validate(); err != nil {
			panic(fmt.Sprintf("invalid configuration: %v", err))
		}

		globalConfig = cfg
	})

	return globalConfig
}

// Get returns the loaded configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		return LoadConfig()
	}
	return globalConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) validate() error {
	if len(c.Scylla.Nodes) == 0 {
		return fmt.Errorf("at least one scylla node is required")
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "dev-only-secret" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.KMS.Enabled && c.KMS.KeyID == "" {
			return fmt.Errorf("KMS_KEY_ID is required when KMS is enabled")
		}
		if c.Cloudinary.CloudName == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME is required in production")
		}
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
