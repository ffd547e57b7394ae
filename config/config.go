package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	EventsMemory = "memory"
	EventsRedis  = "redis"
)

type Config struct {
	Addr string

	QuestAPIURL     string
	QuestAPITimeout time.Duration
	QuestAPIRate    float64
	QuestAPIBurst   int

	RedisURL      string
	EventsBackend string

	CORSOrigins []string

	RiddleReward decimal.Decimal
	QuizReward   decimal.Decimal

	ToastTTL         time.Duration
	SimulatedLatency time.Duration
	TokenTTL         time.Duration

	LogDebug bool
	LogTrace bool
}

func Load() (*Config, error) {
	godotenv.Load("questhub.env")

	cfg := &Config{
		Addr: getEnvString("QUESTHUB_ADDR", ":9000"),

		QuestAPIURL:     getEnvString("QUEST_API_URL", "http://localhost:8000"),
		QuestAPITimeout: time.Duration(getEnvInt("QUEST_API_TIMEOUT_SECONDS", 10)) * time.Second,
		QuestAPIRate:    getEnvFloat("QUEST_API_RATE", 10),
		QuestAPIBurst:   getEnvInt("QUEST_API_BURST", 5),

		RedisURL:      getEnvString("REDIS_URL", ""),
		EventsBackend: strings.ToLower(getEnvString("EVENTS_BACKEND", EventsMemory)),

		CORSOrigins: getEnvStringSlice("CORS_ORIGINS", []string{"*"}),

		ToastTTL:         time.Duration(getEnvInt("TOAST_TTL_MS", 5000)) * time.Millisecond,
		SimulatedLatency: time.Duration(getEnvInt("SIMULATED_LATENCY_MS", 0)) * time.Millisecond,
		TokenTTL:         time.Duration(getEnvInt("TOKEN_TTL_MINUTES", 24*60)) * time.Minute,

		LogDebug: getEnvBool("LOG_DEBUG", false),
		LogTrace: getEnvBool("LOG_TRACE", false),
	}

	var err error
	if cfg.RiddleReward, err = getEnvDecimal("RIDDLE_REWARD", "10"); err != nil {
		return nil, err
	}
	if cfg.QuizReward, err = getEnvDecimal("QUIZ_REWARD", "5"); err != nil {
		return nil, err
	}

	switch cfg.EventsBackend {
	case EventsMemory:
	case EventsRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("EVENTS_BACKEND=redis requires REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("unknown EVENTS_BACKEND %q", cfg.EventsBackend)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := getEnvString(key, defaultValue)
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%s must be a positive number, got %q", key, value)
	}
	return d, nil
}
