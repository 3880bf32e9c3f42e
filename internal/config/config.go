package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var defaultOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
	"http://localhost:5173",
}

type Config struct {
	Host string
	Port string

	ManifestPath string
	OrtLibPath   string // empty means the onnxruntime default lookup

	CORSOrigins    []string
	MaxUploadBytes int64
	MaxImagePixels int           // width*height allowed before decoding
	CacheTTL       time.Duration // 0 disables the result cache

	LogLevel        string
	AppEnv          string
	ShutdownTimeout time.Duration
}

// Load reads the process configuration from the environment, after merging
// a .env file from the working directory if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, err
	}
	maxPixels, err := strconv.Atoi(getEnv("MAX_IMAGE_PIXELS", "40000000"))
	if err != nil {
		return nil, err
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "0s"))
	if err != nil {
		return nil, err
	}
	shutdown, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:            getEnv("HOST", "localhost"),
		Port:            getEnv("PORT", "8000"),
		ManifestPath:    getEnv("MODELS_MANIFEST", "models.yaml"),
		OrtLibPath:      getEnv("ORT_LIB", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", strings.Join(defaultOrigins, ","))),
		MaxUploadBytes:  maxUpload,
		MaxImagePixels:  maxPixels,
		CacheTTL:        cacheTTL,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AppEnv:          getEnv("APP_ENV", "production"),
		ShutdownTimeout: shutdown,
	}, nil
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// NewLogger builds the process logger. Development mode switches to the
// console encoder.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.AppEnv == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	return zc.Build(zap.AddCaller())
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
