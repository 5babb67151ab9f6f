package avatar

import (
	"fmt"
	"time"

	"ethglobaltaipei/backend/internal/config"
)

// LifeState состояние здоровья аватара
type LifeState int

const (
	Alive LifeState = iota
	Dead
)

func (s LifeState) String() string {
	switch s {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("life(%d)", int(s))
	}
}

// Health конечный автомат Alive(health) / Dead(since, respawnAt).
// Время передается явно: это время симуляции, которое копит тик.
type Health struct {
	config    config.HealthConfig
	state     LifeState
	health    int
	since     time.Duration
	respawnAt time.Duration
	deaths    int
	respawns  int
}

// NewHealth создает живого аватара с полным здоровьем
func NewHealth(cfg config.HealthConfig) *Health {
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = 100
	}
	return &Health{
		config: cfg,
		state:  Alive,
		health: cfg.MaxHealth,
	}
}

// ApplyDamage применяет подтвержденное попадание.
// Возвращает true ровно на переходе Alive -> Dead. В состоянии Dead ничего не делает.
func (h *Health) ApplyDamage(amount int, now time.Duration) bool {
	if h.state == Dead || amount <= 0 {
		return false
	}

	h.health -= amount
	if h.health > 0 {
		return false
	}

	h.health = 0
	h.state = Dead
	h.since = now
	h.respawnAt = now + h.config.RespawnDelay
	h.deaths++
	return true
}

// Advance возрождает аватара, если время пришло. Возвращает true на переходе Dead -> Alive.
func (h *Health) Advance(now time.Duration) bool {
	if h.state != Dead || now < h.respawnAt {
		return false
	}
	h.state = Alive
	h.health = h.config.MaxHealth
	h.respawns++
	return true
}

func (h *Health) State() LifeState { return h.state }

func (h *Health) Value() int { return h.health }

func (h *Health) IsDead() bool { return h.state == Dead }

// RespawnAt время возрождения; имеет смысл только в состоянии Dead
func (h *Health) RespawnAt() time.Duration { return h.respawnAt }

// DiedAt время последней смерти
func (h *Health) DiedAt() time.Duration { return h.since }

func (h *Health) Deaths() int { return h.deaths }

func (h *Health) Respawns() int { return h.respawns }
