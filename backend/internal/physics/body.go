package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Body физическое тело, которым управляет контроллер аватара.
// Решатель столкновений находится вне ядра, здесь нужен только этот контракт.
type Body interface {
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	LinearVelocity() mgl64.Vec3
	SetLinearVelocity(v mgl64.Vec3)
	ApplyImpulse(impulse mgl64.Vec3)
	Step(dt float64)
}

// KinematicBody простое тело без вращения: гравитация, затухание и плоская земля
type KinematicBody struct {
	mu       sync.RWMutex
	config   Config
	position mgl64.Vec3
	velocity mgl64.Vec3
	grounded bool
}

// NewKinematicBody создает тело в заданной точке
func NewKinematicBody(config Config, position mgl64.Vec3) *KinematicBody {
	if config.Mass <= 0 {
		config.Mass = 1
	}
	return &KinematicBody{
		config:   config,
		position: position,
	}
}

func (b *KinematicBody) Position() mgl64.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.position
}

// SetPosition переносит тело и обнуляет скорость
func (b *KinematicBody) SetPosition(p mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = p
	b.velocity = mgl64.Vec3{}
	b.grounded = false
}

func (b *KinematicBody) LinearVelocity() mgl64.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.velocity
}

func (b *KinematicBody) SetLinearVelocity(v mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.velocity = v
}

// ApplyImpulse меняет скорость на impulse/mass
func (b *KinematicBody) ApplyImpulse(impulse mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.velocity = b.velocity.Add(impulse.Mul(1 / b.config.Mass))
}

// Grounded стоит ли тело на земле после последнего шага
func (b *KinematicBody) Grounded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.grounded
}

// Step интегрирует тело на dt секунд (полунеявный Эйлер)
func (b *KinematicBody) Step(dt float64) {
	if dt <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.velocity = b.velocity.Add(b.config.Gravity.Mul(dt))
	if b.config.LinearDamping > 0 {
		b.velocity = b.velocity.Mul(1 / (1 + dt*b.config.LinearDamping))
	}
	b.position = b.position.Add(b.velocity.Mul(dt))

	floor := b.config.GroundHeight + b.config.HalfHeight
	b.grounded = false
	if b.position.Y() <= floor {
		b.position[1] = floor
		if b.velocity.Y() < 0 {
			b.velocity[1] = 0
		}
		b.grounded = true
	}
}
