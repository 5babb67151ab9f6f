package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Переменные окружения
const (
	EnvWebSocketURL      = "WEBSOCKET_URL"
	EnvTokenAPIURL       = "TOKEN_API_URL"
	EnvPlayerName        = "PLAYER_NAME"
	EnvPlayerFace        = "PLAYER_FACE"
	EnvTickRate          = "TICK_RATE"
	EnvReconnectAttempts = "RECONNECT_ATTEMPTS"
)

const (
	DefaultWebSocketURL = "ws://localhost:8765"
	DefaultTickRate     = 60
)

// Config содержит настройки клиентской сессии
type Config struct {
	WebSocketURL string
	TokenAPIURL  string // пустая строка отключает сервис токенов
	PlayerName   string
	PlayerFace   string
	TickRate     int
	Tuning       Tuning
}

// Load загружает .env (если он есть) и переменные окружения поверх значений по умолчанию
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("[Config] .env не загружен, используем окружение процесса: %v", err)
	}

	cfg := &Config{
		WebSocketURL: DefaultWebSocketURL,
		TickRate:     DefaultTickRate,
		Tuning:       DefaultTuning(),
	}

	if v, err := GetEnvVariable(EnvWebSocketURL); err == nil {
		cfg.WebSocketURL = v
	}
	if v, err := GetEnvVariable(EnvTokenAPIURL); err == nil {
		cfg.TokenAPIURL = v
	}
	if v, err := GetEnvVariable(EnvPlayerName); err == nil {
		cfg.PlayerName = v
	}
	if v, err := GetEnvVariable(EnvPlayerFace); err == nil {
		cfg.PlayerFace = v
	}

	if v, err := GetEnvVariable(EnvTickRate); err == nil {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid %s %q", EnvTickRate, v)
		}
		cfg.TickRate = rate
	}

	if v, err := GetEnvVariable(EnvReconnectAttempts); err == nil {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts < 0 {
			return nil, fmt.Errorf("invalid %s %q", EnvReconnectAttempts, v)
		}
		cfg.Tuning.Network.MaxAttempts = attempts
	}

	return cfg, nil
}

// GetEnvVariable возвращает непустое значение переменной окружения
func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s", v)
	}
	return b, nil
}
