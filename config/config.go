package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Values come from the environment (optionally via a .env file) with
// simple defaults suitable for local development.
type Config struct {
	ServerAddr string // HTTP listen address, e.g. ":8080"

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// CDNBaseURL is prepended to object keys to build public playback URLs.
	// Defaults to the MinIO endpoint when unset.
	CDNBaseURL string

	JWTSecret      string
	TokenExpiresIn time.Duration

	// 元数据提取服务
	ExtractorURL     string
	ExtractorTimeout time.Duration

	// 批量摄取流水线
	PresignExpiry    time.Duration // 预签名上传凭证有效期
	UploadTimeout    time.Duration // 单个文件直传超时
	MaxIngestFileMB  int64         // 单文件大小上限（MB）
	IngestSessionTTL time.Duration // 空闲批次会话的回收时间

	// 日志
	LogLevel string
	LogPath  string // 为空时仅输出到控制台
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as time.Duration or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	minioEndpoint := getEnv("MINIO_ENDPOINT", "127.0.0.1:9000")

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "bside"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库

		MinioEndpoint:  minioEndpoint,
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "bside"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		CDNBaseURL: getEnv("CDN_BASE_URL", "http://"+minioEndpoint),

		JWTSecret:      getEnv("JWT_SECRET", "bside-dev-secret"),
		TokenExpiresIn: getEnvDuration("TOKEN_EXPIRES_IN", 72*time.Hour),

		ExtractorURL:     getEnv("EXTRACTOR_URL", "http://127.0.0.1:9090/extract"),
		ExtractorTimeout: getEnvDuration("EXTRACTOR_TIMEOUT", 15*time.Second),

		PresignExpiry:    getEnvDuration("PRESIGN_EXPIRY", 15*time.Minute),
		UploadTimeout:    getEnvDuration("UPLOAD_TIMEOUT", 5*time.Minute),
		MaxIngestFileMB:  int64(getEnvInt("MAX_INGEST_FILE_MB", 100)),
		IngestSessionTTL: getEnvDuration("INGEST_SESSION_TTL", 2*time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
