package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            string
	RedisAddr       string
	WorkerCount     int
	SharedAudioPath string
	OpenAIAPIKey    string
	WhisperModel    string
	WebServerURL    string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("SERVICE_PORT", "8001"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		WorkerCount:     getEnvAsInt("MAX_CONCURRENT_JOBS", 3),
		SharedAudioPath: getEnv("SHARED_AUDIO_PATH", "/app/shared_audio"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		WhisperModel:    getEnv("WHISPER_MODEL", "whisper-1"),
		WebServerURL:    getEnv("WEB_SERVER_URL", "http://localhost:8000"),
	}
}

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
