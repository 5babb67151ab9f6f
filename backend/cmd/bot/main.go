package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"time"

	"ethglobaltaipei/backend/internal/avatar"
	"ethglobaltaipei/backend/internal/config"
	"ethglobaltaipei/backend/internal/game"
	"ethglobaltaipei/backend/internal/transport/ws"
)

// Bot безголовый игрок: ввод генерируется паттерном движения
type Bot struct {
	ID        string
	Pattern   string
	Duration  time.Duration
	FireEvery time.Duration // 0 отключает стрельбу

	mu         sync.Mutex
	startTime  time.Time
	lastFire   time.Time
	targetYaw  float64
	nextTarget time.Time
}

// NewBot создает нового бота
func NewBot(id, pattern string, duration, fireEvery time.Duration) *Bot {
	now := time.Now()
	return &Bot{
		ID:        id,
		Pattern:   pattern,
		Duration:  duration,
		FireEvery: fireEvery,
		startTime: now,
		lastFire:  now,
	}
}

// Sample реализует avatar.InputSource; вызывается раз в тик
func (b *Bot) Sample() avatar.Input {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	var in avatar.Input

	switch b.Pattern {
	case "circle":
		in = b.circleInput(now)
	case "linear":
		in = b.linearInput(now)
	default: // "random"
		in = b.randomInput(now)
	}

	if b.FireEvery > 0 && now.Sub(b.lastFire) >= b.FireEvery {
		in.Fire = true
		b.lastFire = now
	}
	return in
}

// randomInput меняет направление на случайное каждые 1-3 секунды
func (b *Bot) randomInput(now time.Time) avatar.Input {
	if now.After(b.nextTarget) {
		b.targetYaw = rand.Float64() * 2 * math.Pi
		b.nextTarget = now.Add(time.Second + time.Duration(rand.Float64()*2*float64(time.Second)))
	}
	return avatar.Input{Forward: true, Yaw: b.targetYaw}
}

// circleInput плавно поворачивает камеру, аватар идет по кругу
func (b *Bot) circleInput(now time.Time) avatar.Input {
	elapsed := now.Sub(b.startTime).Seconds()
	return avatar.Input{Forward: true, Yaw: elapsed * 0.5}
}

// linearInput движение вперед-назад по оси Z
func (b *Bot) linearInput(now time.Time) avatar.Input {
	elapsed := now.Sub(b.startTime).Seconds()
	direction := math.Sin(elapsed * 0.3) // Медленное колебание
	return avatar.Input{Forward: direction >= 0, Backward: direction < 0}
}

// PrintStats выводит статистику сессии бота
func (b *Bot) PrintStats(session *game.Session) {
	stats := session.Stats()
	duration := time.Since(b.startTime)

	log.Printf("[Bot %s] Статистика:", b.ID)
	log.Printf("  Время работы: %v", duration.Round(time.Millisecond))
	log.Printf("  Тиков: %d", stats.Tick)
	log.Printf("  Соединение: %s (попыток: %d)", stats.Connection.State, stats.Connection.Attempts)
	log.Printf("  Сообщений отправлено: %d (потеряно имитацией: %d), снимков получено: %d, отброшено: %d",
		stats.Connection.Sent, stats.Connection.SimulatedLoss, stats.Connection.Received, stats.Connection.Dropped)
	log.Printf("  Участников в таблице: %d %v", stats.Peers, stats.PeerIDs)
	log.Printf("  Выстрелов: %d, попаданий: %d, исчезло: %d",
		stats.Combat.Fired, stats.Combat.Hits, stats.Combat.Expired)
	log.Printf("  Аватар: здоровье %d, позиция (%.1f, %.1f, %.1f)",
		stats.Avatar.Health, stats.Avatar.Position.X(), stats.Avatar.Position.Y(), stats.Avatar.Position.Z())
	if stats.Connection.Sent > 0 {
		log.Printf("  Частота отправки: %.2f сообщений/сек", float64(stats.Connection.Sent)/duration.Seconds())
	}
}

func main() {
	// Флаги командной строки
	var (
		envFile   = flag.String("env", ".env", "Файл с переменными окружения")
		serverURL = flag.String("url", "", "URL WebSocket релея (по умолчанию WEBSOCKET_URL)")
		name      = flag.String("name", "", "Имя игрока (по умолчанию PLAYER_NAME или bot1)")
		face      = flag.String("face", "", "Лицо аватара: ana, john, juan, yuki, barto, anna")
		pattern   = flag.String("pattern", "random", "Паттерн движения (random, circle, linear)")
		duration  = flag.Duration("duration", 30*time.Second, "Длительность работы бота")
		fireEvery = flag.Duration("fire", time.Second, "Интервал между выстрелами, 0 отключает стрельбу")
		network   = flag.String("network", "none", "Профиль сети (none, mobile_3g, mobile_4g, wifi_poor, high_latency, unstable)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("[Bot] Ошибка конфигурации: %v", err)
	}
	if *serverURL != "" {
		cfg.WebSocketURL = *serverURL
	}
	if *name != "" {
		cfg.PlayerName = *name
	}
	if cfg.PlayerName == "" {
		cfg.PlayerName = "bot1"
	}
	if *face != "" {
		cfg.PlayerFace = *face
	}

	simulation, err := ws.SimulationProfile(*network)
	if err != nil {
		log.Fatalf("[Bot] %v", err)
	}

	bot := NewBot(cfg.PlayerName, *pattern, *duration, *fireEvery)
	logger := log.New(os.Stdout, "", log.LstdFlags)

	session, err := game.NewSession(game.SessionOptions{
		Config:  cfg,
		Input:   bot,
		Logger:  logger,
		Network: simulation,
	})
	if err != nil {
		log.Fatalf("[Bot %s] Ошибка создания сессии: %v", bot.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), bot.Duration)
	defer cancel()

	// Обработка сигналов для корректного завершения
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case <-c:
			log.Printf("[Bot %s] Получен сигнал прерывания, завершение работы...", bot.ID)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := session.Start(ctx); err != nil {
		log.Fatalf("[Bot %s] Ошибка запуска: %v", bot.ID, err)
	}

	<-ctx.Done()
	session.Stop()

	log.Printf("[Bot %s] Завершение работы", bot.ID)
	bot.PrintStats(session)
}
