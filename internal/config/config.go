package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr         string
	DataPath           string
	AssetDir           string
	PhrasebookPath     string
	CanvasWidth        float64
	CanvasHeight       float64
	HistoryLimit       int
	MaxUploadSizeBytes int64
	LogLevel           string
	LogFormat          string
	ProposerBaseURL    string
	ProposerAPIKey     string
	ProposerModel      string
	ProposerTimeoutSec int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		DataPath:           getEnv("DATA_PATH", "./data/state.json"),
		AssetDir:           getEnv("ASSET_DIR", "./data/assets"),
		PhrasebookPath:     getEnv("PHRASEBOOK_PATH", "./data/phrasebook.txt"),
		CanvasWidth:        getEnvFloat("CANVAS_WIDTH", 1080),
		CanvasHeight:       getEnvFloat("CANVAS_HEIGHT", 1080),
		HistoryLimit:       getEnvInt("HISTORY_LIMIT", 100),
		MaxUploadSizeBytes: getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 8*1024*1024),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		ProposerBaseURL:    strings.TrimRight(getEnv("PROPOSER_BASE_URL", "https://api.openai.com/v1"), "/"),
		ProposerAPIKey:     getEnv("PROPOSER_API_KEY", ""),
		ProposerModel:      getEnv("PROPOSER_MODEL", "gpt-4o-mini"),
		ProposerTimeoutSec: getEnvInt("PROPOSER_TIMEOUT_SEC", 12),
	}

	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return Config{}, errors.New("canvas width/height must be > 0")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, errors.New("history limit must be > 0")
	}
	if cfg.MaxUploadSizeBytes <= 0 {
		return Config{}, errors.New("max upload size must be > 0")
	}
	if cfg.ProposerTimeoutSec <= 0 {
		return Config{}, errors.New("proposer timeout sec must be > 0")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, errors.New("log level must be debug, info, warn or error")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, errors.New("log format must be text or json")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}
