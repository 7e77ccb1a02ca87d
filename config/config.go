package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Convert ConvertConfig
	Cache   CacheConfig
	App     AppConfig
}

type ServerConfig struct {
	Port        string
	BaseURL     string
	URLPath     string
	StaticDir   string
	Token       string
	CORSOrigins []string
}

type ConvertConfig struct {
	DotBin     string
	ServerRoot string
	RateLimit  float64
	RateBurst  int
}

type CacheConfig struct {
	RedisURL   string
	TTLSeconds int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			BaseURL:     getEnv("BASE_URL", "/"),
			URLPath:     getEnv("URL_PATH", "jlab-ext-example"),
			StaticDir:   getEnv("JLAB_SERVER_EXAMPLE_STATIC_DIR", defaultStaticDir()),
			Token:       getEnv("JUPYTER_TOKEN", ""),
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		},
		Convert: ConvertConfig{
			DotBin:     getEnv("DOT_BIN", "dot"),
			ServerRoot: getEnv("SERVER_ROOT", ""),
			RateLimit:  getEnvAsFloat("CONVERT_RATE_LIMIT", 5),
			RateBurst:  getEnvAsInt("CONVERT_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			RedisURL:   getEnv("REDIS_URL", ""),
			TTLSeconds: getEnvAsInt("SNIFF_CACHE_TTL_SECONDS", 86400),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if strings.Trim(c.Server.URLPath, "/") == "" {
		return fmt.Errorf("URL_PATH is required")
	}

	if c.Convert.RateLimit < 0 {
		return fmt.Errorf("CONVERT_RATE_LIMIT must not be negative")
	}

	if c.Convert.ServerRoot != "" && !filepath.IsAbs(c.Convert.ServerRoot) {
		return fmt.Errorf("SERVER_ROOT must be an absolute path")
	}

	return nil
}

// defaultStaticDir is the static/ directory shipped next to the executable.
func defaultStaticDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "static"
	}
	return filepath.Join(filepath.Dir(exe), "static")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
