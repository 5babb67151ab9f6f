package physics

import "github.com/go-gl/mathgl/mgl64"

// Config содержит настройки тела аватара
type Config struct {
	// Gravity - ускорение свободного падения
	Gravity mgl64.Vec3

	// Mass - масса тела, делитель импульса
	Mass float64

	// LinearDamping - затухание линейной скорости в секунду
	LinearDamping float64

	// GroundHeight - высота земли
	GroundHeight float64

	// HalfHeight - расстояние от центра капсулы до ее нижней точки
	HalfHeight float64
}

// DefaultConfig возвращает конфигурацию по умолчанию: капсула 0.5/0.5 массой 1
func DefaultConfig() Config {
	return Config{
		Gravity:       mgl64.Vec3{0, -9.81, 0},
		Mass:          1.0,
		LinearDamping: 0.95,
		GroundHeight:  0.0,
		HalfHeight:    1.0,
	}
}
