package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Имена счетчиков
const (
	CounterShots       = "shots"
	CounterHits        = "hits"
	CounterExpired     = "expired"
	CounterRemoteShots = "remote_shots"
	CounterDeaths      = "deaths"
	CounterRespawns    = "respawns"
	CounterDamage      = "damage_taken"
	CounterSnapshots   = "snapshots"
	CounterDropped     = "dropped_messages"
	CounterSendErrors  = "send_errors"
	CounterStateChange = "connection_changes"
)

// Vector3 структура для 3D вектора
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func fromVec(v mgl64.Vec3) Vector3 {
	return Vector3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// AvatarSample снимок локального аватара за тик
type AvatarSample struct {
	Timestamp int64   `json:"timestamp"` // Время в миллисекундах
	Tick      uint64  `json:"tick"`
	Name      string  `json:"name"`
	Position  Vector3 `json:"position"`
	Velocity  Vector3 `json:"velocity"`
	Speed     float64 `json:"speed"`
	Health    int     `json:"health"`
	Dead      bool    `json:"dead"`
	Connected bool    `json:"connected"`
	Peers     int     `json:"peers"`
}

// TelemetryManager управляет сбором и выводом телеметрии
type TelemetryManager struct {
	enabled    bool
	data       []AvatarSample
	mutex      sync.RWMutex
	maxEntries int
	logger     *log.Logger

	// Счетчики за интервал и за все время
	counters      map[string]int
	totals        map[string]int
	lastPrint     time.Time
	printInterval time.Duration
	clock         func() time.Time
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(logger *log.Logger) *TelemetryManager {
	if logger == nil {
		logger = log.Default()
	}
	return &TelemetryManager{
		enabled:       true,
		data:          make([]AvatarSample, 0),
		maxEntries:    200, // Храним последние 200 записей
		logger:        logger,
		counters:      make(map[string]int),
		totals:        make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 2 * time.Second,
		clock:         time.Now,
	}
}

// SetPrintInterval меняет период вывода сводки
func (tm *TelemetryManager) SetPrintInterval(interval time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.printInterval = interval
}

// LogAvatar записывает состояние аватара
func (tm *TelemetryManager) LogAvatar(tick uint64, name string, position, velocity mgl64.Vec3, health int, dead, connected bool, peers int) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	tm.data = append(tm.data, AvatarSample{
		Timestamp: tm.clock().UnixMilli(),
		Tick:      tick,
		Name:      name,
		Position:  fromVec(position),
		Velocity:  fromVec(velocity),
		Speed:     velocity.Len(),
		Health:    health,
		Dead:      dead,
		Connected: connected,
		Peers:     peers,
	})

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[len(tm.data)-tm.maxEntries:]
	}
}

// Count увеличивает счетчик на delta
func (tm *TelemetryManager) Count(name string, delta int) {
	if delta == 0 {
		return
	}
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}
	tm.counters[name] += delta
	tm.totals[name] += delta
}

// Total значение счетчика за все время
func (tm *TelemetryManager) Total(name string) int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.totals[name]
}

// Samples копия буфера снимков
func (tm *TelemetryManager) Samples() []AvatarSample {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return append([]AvatarSample(nil), tm.data...)
}

// PrintSummary выводит сводку, если прошел интервал. Возвращает true, если вывод был.
func (tm *TelemetryManager) PrintSummary() bool {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return false
	}

	now := tm.clock()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return false
	}

	tm.logger.Println("🔬 [Telemetry] ===== ТЕЛЕМЕТРИЯ КЛИЕНТА =====")
	tm.logger.Printf("📊 [Telemetry] Всего записей: %d", len(tm.data))

	names := make([]string, 0, len(tm.counters))
	for name := range tm.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tm.logger.Printf("📈 [Telemetry] %s: %d (всего %d)", name, tm.counters[name], tm.totals[name])
	}

	if n := len(tm.data); n > 0 {
		last := tm.data[n-1]
		tm.logger.Printf("🎮 [Telemetry] %s [тик %d]:", last.Name, last.Tick)
		tm.logger.Printf("   📍 Позиция: (%.2f, %.2f, %.2f)", last.Position.X, last.Position.Y, last.Position.Z)
		tm.logger.Printf("   🏃 Скорость: (%.2f, %.2f, %.2f) |%.2f|", last.Velocity.X, last.Velocity.Y, last.Velocity.Z, last.Speed)
		tm.logger.Printf("   ❤️  Здоровье: %d, мертв: %t, онлайн: %t, участников: %d", last.Health, last.Dead, last.Connected, last.Peers)
	}

	tm.counters = make(map[string]int)
	tm.lastPrint = now

	tm.logger.Println("🔬 [Telemetry] ===================================")
	return true
}

// GetTelemetryJSON возвращает телеметрию в JSON формате
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	jsonData, err := json.MarshalIndent(struct {
		Samples []AvatarSample `json:"samples"`
		Totals  map[string]int `json:"totals"`
	}{tm.data, tm.totals}, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonData), nil
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Printf("🔬 [Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// Clear очищает все данные телеметрии
func (tm *TelemetryManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = make([]AvatarSample, 0)
	tm.counters = make(map[string]int)
	tm.totals = make(map[string]int)
}
