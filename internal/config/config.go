package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port              string
	GinMode           string
	MongoURI          string
	MongoDatabase     string
	RedisURL          string
	StorageBackend    string // minio, s3 or local
	S3Bucket          string
	AWSRegion         string
	AWSAccessKeyID    string
	AWSSecretKey      string
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOUseSSL       bool
	LocalUploadDir    string
	PublicBaseURL     string
	MaxFileSize       int64
	MaxPhotosPerBatch int
	AllowedImageExts  []string
	RequestTimeout    time.Duration
	MatchCacheTTL     time.Duration
	PairLockTTL       time.Duration
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "datingluck"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "local"),
		S3Bucket:          getEnv("S3_BUCKET", "datingluck-photos"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:    getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		MinIOEndpoint:     getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:    getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey:    getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOUseSSL:       getBoolEnv("MINIO_USE_SSL", false),
		LocalUploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:8080"),
		MaxFileSize:       getInt64Env("MAX_FILE_SIZE", 5*1024*1024), // 5MB
		MaxPhotosPerBatch: getIntEnv("MAX_PHOTOS_PER_BATCH", 6),
		AllowedImageExts:  []string{".jpeg", ".jpg", ".png", ".gif"},
		RequestTimeout:    getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),
		MatchCacheTTL:     getDurationEnv("MATCH_CACHE_TTL", 24*time.Hour),
		PairLockTTL:       getDurationEnv("PAIR_LOCK_TTL", 5*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
