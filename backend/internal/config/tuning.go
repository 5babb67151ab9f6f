package config

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// MovementConfig содержит настройки движения аватара и камеры
type MovementConfig struct {
	Impulse         float64 // Множитель скорости при активном вводе
	IdleDamping     float64 // Затухание горизонтальной скорости за тик без ввода
	CameraSmoothing float64 // Коэффициент экспоненциального сглаживания камеры
	CameraHeight    float64 // Вертикальное смещение камеры над телом
}

// HealthConfig содержит настройки здоровья и возрождения
type HealthConfig struct {
	MaxHealth    int
	DamageAmount int
	RespawnDelay time.Duration
	SpawnPoint   mgl64.Vec3
}

// CombatConfig содержит настройки снарядов
type CombatConfig struct {
	FireCooldown    time.Duration
	ProjectileSpeed float64 // единиц в секунду
	MaxDistance     float64 // дальность, после которой снаряд исчезает
	SpawnOffset     float64 // высота появления снаряда над телом
	HitRadius       float64
}

// NetworkConfig содержит настройки соединения с релеем
type NetworkConfig struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadLimit    int64
}

// Tuning объединяет все игровые константы
type Tuning struct {
	Movement MovementConfig
	Health   HealthConfig
	Combat   CombatConfig
	Network  NetworkConfig
}

// DefaultTuning возвращает настройки по умолчанию
func DefaultTuning() Tuning {
	return Tuning{
		Movement: MovementConfig{
			Impulse:         15.0,
			IdleDamping:     0.8,
			CameraSmoothing: 0.2,
			CameraHeight:    1.5,
		},
		Health: HealthConfig{
			MaxHealth:    100,
			DamageAmount: 20,
			RespawnDelay: 3 * time.Second,
			SpawnPoint:   mgl64.Vec3{0, 3, 0}, // Стартовая позиция как на релее
		},
		Combat: CombatConfig{
			FireCooldown:    500 * time.Millisecond,
			ProjectileSpeed: 30.0,
			MaxDistance:     100.0,
			SpawnOffset:     1.5,
			HitRadius:       1.0,
		},
		Network: NetworkConfig{
			BaseDelay:    time.Second,
			MaxDelay:     10 * time.Second,
			MaxAttempts:  8,
			WriteTimeout: 2 * time.Second,
			ReadLimit:    1 << 20, // 1MB
		},
	}
}
