package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"ethglobaltaipei/backend/internal/config"
	"ethglobaltaipei/backend/internal/transport/ws"
)

func main() {
	var (
		envFile   = flag.String("env", ".env", "Файл с переменными окружения")
		serverURL = flag.String("url", "", "URL WebSocket релея (по умолчанию WEBSOCKET_URL)")
		limit     = flag.Int("n", 10, "Сколько снимков прочитать")
		timeout   = flag.Duration("timeout", 30*time.Second, "Максимальное время ожидания")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	if *serverURL != "" {
		cfg.WebSocketURL = *serverURL
	}

	network := cfg.Tuning.Network
	snapshots := make(chan ws.GameState, 16)

	// Только менеджер соединения: клиент ничего не отправляет и лишь смотрит на состав
	manager := ws.NewConnectionManager(ws.Options{
		URL: cfg.WebSocketURL,
		Backoff: ws.Backoff{
			Base:        network.BaseDelay,
			Max:         network.MaxDelay,
			MaxAttempts: network.MaxAttempts,
		},
		ReadLimit: network.ReadLimit,
		OnStateChange: func(from, to ws.State) {
			log.Printf("Соединение: %s -> %s", from, to)
		},
	})
	manager.OnUpdate(func(state ws.GameState) {
		select {
		case snapshots <- state:
		default:
		}
	})

	log.Printf("Подключение к %s", cfg.WebSocketURL)
	manager.Connect()
	defer manager.Disconnect()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	deadline := time.After(*timeout)

	for i := 0; i < *limit; {
		select {
		case state := <-snapshots:
			i++
			ids := make([]string, 0, len(state))
			for id, player := range state {
				label := id
				if player.Name != "" {
					label += "(" + player.Name + ")"
				}
				ids = append(ids, label)
			}
			log.Printf("SNAPSHOT %d: участников %d [%s]", i, len(state), strings.Join(ids, ", "))

		case <-deadline:
			log.Printf("Время ожидания истекло")
			i = *limit

		case <-interrupt:
			log.Printf("Прервано")
			i = *limit
		}
	}

	stats := manager.Stats()
	log.Printf("Тест завершен: получено %d, отброшено %d", stats.Received, stats.Dropped)
}
