package combat

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Projectile снаряд с постоянной скоростью без гравитации
type Projectile struct {
	ID        string
	Owner     string // id участника для удаленных снарядов, пусто для своих
	Remote    bool
	Spawn     mgl64.Vec3
	Position  mgl64.Vec3
	Direction mgl64.Vec3 // единичный вектор
	SpawnedAt time.Duration
}

// advance сдвигает снаряд и возвращает пройденное от точки появления расстояние
func (p *Projectile) advance(speed, dt float64) float64 {
	p.Position = p.Position.Add(p.Direction.Mul(speed * dt))
	return p.Position.Sub(p.Spawn).Len()
}

// EventKind тип завершающего события снаряда
type EventKind int

const (
	EventHit EventKind = iota
	EventExpire
)

func (k EventKind) String() string {
	switch k {
	case EventHit:
		return "hit"
	case EventExpire:
		return "expire"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event единственное завершающее событие снаряда: попадание или истечение дальности
type Event struct {
	Kind       EventKind
	Projectile Projectile
	PeerID     string  // участник, в позицию которого попал снаряд
	Distance   float64 // до участника при попадании, пройденное расстояние при истечении
}
