package avatar

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"ethglobaltaipei/backend/internal/config"
	"ethglobaltaipei/backend/internal/physics"
)

// State снимок локального аватара; принадлежит только контроллеру
type State struct {
	Position  mgl64.Vec3
	RotationY float64
	Health    int
	IsDead    bool
	Name      string
	Face      string
}

// Controller управляет локальным аватаром: движение, камера, здоровье
type Controller struct {
	mu        sync.RWMutex
	movement  config.MovementConfig
	healthCfg config.HealthConfig
	body      physics.Body
	input     InputSource
	camera    *Camera
	health    *Health
	name      string
	face      string
	rotationY float64
	logger    *log.Logger
}

// NewController создает контроллер и ставит тело в точку появления
func NewController(tuning config.Tuning, body physics.Body, input InputSource, name, face string, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	body.SetPosition(tuning.Health.SpawnPoint)

	return &Controller{
		movement:  tuning.Movement,
		healthCfg: tuning.Health,
		body:      body,
		input:     input,
		camera:    NewCamera(tuning.Health.SpawnPoint, tuning.Movement.CameraSmoothing, tuning.Movement.CameraHeight),
		health:    NewHealth(tuning.Health),
		name:      name,
		face:      face,
		logger:    logger,
	}
}

// Update выполняет один тик: возрождение, опрос ввода, движение,
// шаг физики и камера. Возвращает снимок ввода этого тика.
func (c *Controller) Update(dt float64, now time.Duration) Input {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.health.Advance(now) {
		c.body.SetPosition(c.healthCfg.SpawnPoint)
		c.logger.Printf("[Avatar] %s возродился со здоровьем %d", c.name, c.health.Value())
	}

	// Ввод опрашивается один раз, чтобы все решения тика видели одно и то же
	var in Input
	if c.input != nil {
		in = c.input.Sample()
	}
	c.camera.SetView(in.Yaw, in.Pitch)

	if c.health.IsDead() {
		in.Forward, in.Backward, in.Left, in.Right, in.Fire = false, false, false, false, false
		c.body.SetPosition(c.healthCfg.SpawnPoint)
	} else {
		c.applyMovement(in, dt)
		c.body.Step(dt)
	}

	c.camera.Follow(c.body.Position())
	return in
}

func (c *Controller) applyMovement(in Input, dt float64) {
	forward, right := c.camera.Basis()

	var move mgl64.Vec3
	if in.Forward {
		move = move.Add(forward)
	}
	if in.Backward {
		move = move.Sub(forward)
	}
	if in.Right {
		move = move.Add(right)
	}
	if in.Left {
		move = move.Sub(right)
	}

	velocity := c.body.LinearVelocity()

	// Противоположные клавиши гасят друг друга: это тоже отсутствие движения
	if move.Len() > 1e-9 {
		move = move.Normalize().Mul(c.movement.Impulse)

		// Горизонтальная скорость задается вводом, вертикальная остается физике
		c.body.SetLinearVelocity(mgl64.Vec3{move.X(), velocity.Y(), move.Z()})
		c.body.ApplyImpulse(mgl64.Vec3{move.X() * dt, 0, move.Z() * dt})

		c.rotationY = math.Atan2(move.X(), move.Z())
		return
	}

	c.body.SetLinearVelocity(mgl64.Vec3{
		velocity.X() * c.movement.IdleDamping,
		velocity.Y(),
		velocity.Z() * c.movement.IdleDamping,
	})
}

// ApplyDamage применяет подтвержденное попадание по локальному аватару.
// Возвращает true, если попадание убило аватара.
func (c *Controller) ApplyDamage(amount int, now time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.health.ApplyDamage(amount, now) {
		if !c.health.IsDead() {
			c.logger.Printf("[Avatar] %s получил урон %d, здоровье %d", c.name, amount, c.health.Value())
		}
		return false
	}

	c.body.SetPosition(c.healthCfg.SpawnPoint)
	c.logger.Printf("[Avatar] %s погиб, возрождение через %v", c.name, c.healthCfg.RespawnDelay)
	return true
}

// State возвращает копию состояния аватара
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Position:  c.body.Position(),
		RotationY: c.rotationY,
		Health:    c.health.Value(),
		IsDead:    c.health.IsDead(),
		Name:      c.name,
		Face:      c.face,
	}
}

// Velocity текущая скорость тела
func (c *Controller) Velocity() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.body.LinearVelocity()
}

// ViewDirection направление взгляда последнего тика
func (c *Controller) ViewDirection() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.camera.ViewDirection()
}

// CameraPosition позиция камеры
func (c *Controller) CameraPosition() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.camera.Position
}

// LifeCounters число смертей и возрождений за сессию
func (c *Controller) LifeCounters() (deaths, respawns int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health.Deaths(), c.health.Respawns()
}
