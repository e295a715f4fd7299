package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Validate ValidateConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
	InboxDir    string
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Backends        []string // ranked, e.g. "tesseract,httpocr"
	ConfidenceFloor float32
	Timeout         time.Duration
	Attempts        int
	TesseractBin    string
	PdftoppmBin     string
	TessdataDir     string
	DPI             int
	MaxPages        int
	HTTPEndpoint    string
	HTTPAPIKey      string
	Preprocess      bool
}

// LLMConfig holds structured-extraction configuration
type LLMConfig struct {
	Provider    string // openai | ollama | anthropic
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	Attempts    int
}

// ValidateConfig holds anomaly-detection thresholds
type ValidateConfig struct {
	PriceDeviationWarn float64
	PriceDeviationHigh float64
}

// PipelineConfig holds orchestration configuration
type PipelineConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// LoadConfig loads configuration from a .env file (if present) and
// environment variables. Environment always wins over the file.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
			InboxDir:    getEnv("INBOX_DIR", ""),
		},
		OCR: OCRConfig{
			Backends:        getEnvAsList("OCR_BACKENDS", []string{"tesseract"}),
			ConfidenceFloor: getEnvAsFloat32("OCR_CONFIDENCE_FLOOR", 0.4),
			Timeout:         getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
			Attempts:        getEnvAsInt("OCR_ATTEMPTS", 2),
			TesseractBin:    getEnv("TESSERACT_BIN", "tesseract"),
			PdftoppmBin:     getEnv("PDFTOPPM_BIN", "pdftoppm"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			DPI:             getEnvAsInt("OCR_DPI", 300),
			MaxPages:        getEnvAsInt("OCR_MAX_PAGES", 0),
			HTTPEndpoint:    getEnv("OCR_HTTP_ENDPOINT", ""),
			HTTPAPIKey:      getEnv("OCR_HTTP_API_KEY", ""),
			Preprocess:      getEnvAsBool("OCR_PREPROCESS", true),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			Attempts:    getEnvAsInt("LLM_ATTEMPTS", 2),
		},
		Validate: ValidateConfig{
			PriceDeviationWarn: getEnvAsFloat64("PRICE_DEVIATION_WARN", 0.05),
			PriceDeviationHigh: getEnvAsFloat64("PRICE_DEVIATION_HIGH", 0.20),
		},
		Pipeline: PipelineConfig{
			Workers:    getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:  getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			JobTimeout: getEnvAsDuration("PIPELINE_JOB_TIMEOUT", 3*time.Minute),
		},
	}
}

// Check verifies the loaded configuration is usable.
func (c *Config) Check() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if len(c.OCR.Backends) == 0 {
		return NewAppError("CONFIG_ERROR", "OCR_BACKENDS must name at least one backend", ErrInvalidInput)
	}
	if c.LLM.Provider == "" {
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
