package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr   string `yaml:"http_addr"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	JWTSecret  string `yaml:"jwt_secret"`

	// DevMode skips auth; history entries fall back to the "system" actor.
	DevMode bool `yaml:"dev_mode"`

	OpenAIKey         string        `yaml:"openai_key"`
	SummarizerModel   string        `yaml:"summarizer_model"`
	SummarizerTimeout time.Duration `yaml:"-"`

	SummarizerTimeoutSeconds int `yaml:"summarizer_timeout_seconds"`
}

// LoadConfig reads env vars (with .env support). When LIFESTORY_CONFIG points
// at a YAML file, values from that file override the environment.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8000"),
		DBUser:                   getEnv("DB_USER", ""),
		DBPassword:               getEnv("DB_PASSWORD", ""),
		DBHost:                   getEnv("DB_HOST", ""),
		DBPort:                   getEnv("DB_PORT", ""),
		DBName:                   getEnv("DB_NAME", ""),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		DevMode:                  getEnv("DEV_MODE", "") == "true",
		OpenAIKey:                getEnv("OPENAI_API_KEY", ""),
		SummarizerModel:          getEnv("SUMMARIZER_MODEL", "gpt-4o-mini"),
		SummarizerTimeoutSeconds: getEnvInt("SUMMARIZER_TIMEOUT_SECONDS", 30),
	}

	if path := os.Getenv("LIFESTORY_CONFIG"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	cfg.SummarizerTimeout = time.Duration(cfg.SummarizerTimeoutSeconds) * time.Second

	return cfg
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
