package avatar

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	worldForward = mgl64.Vec3{0, 0, -1}
	worldRight   = mgl64.Vec3{1, 0, 0}
)

// maxPitch не дает камере перевернуться через вертикаль
const maxPitch = math.Pi/2 - 0.01

// Camera следует за телом с экспоненциальным сглаживанием
type Camera struct {
	Position  mgl64.Vec3
	Yaw       float64
	Pitch     float64
	smoothing float64
	height    float64
}

// NewCamera создает камеру над точкой появления
func NewCamera(start mgl64.Vec3, smoothing, height float64) *Camera {
	return &Camera{
		Position:  start.Add(mgl64.Vec3{0, height, 0}),
		smoothing: smoothing,
		height:    height,
	}
}

// SetView задает направление взгляда
func (c *Camera) SetView(yaw, pitch float64) {
	c.Yaw = yaw
	c.Pitch = mgl64.Clamp(pitch, -maxPitch, maxPitch)
}

// Follow сдвигает камеру к телу, вызывается раз за тик
func (c *Camera) Follow(target mgl64.Vec3) {
	goal := target.Add(mgl64.Vec3{0, c.height, 0})
	c.Position = c.Position.Add(goal.Sub(c.Position).Mul(c.smoothing))
}

// Basis горизонтальные векторы вперед и вправо, зависят только от рыскания
func (c *Camera) Basis() (forward, right mgl64.Vec3) {
	yaw := mgl64.Rotate3DY(c.Yaw)
	return yaw.Mul3x1(worldForward), yaw.Mul3x1(worldRight)
}

// ViewDirection единичный вектор взгляда с учетом наклона
func (c *Camera) ViewDirection() mgl64.Vec3 {
	view := mgl64.Rotate3DY(c.Yaw).Mul3(mgl64.Rotate3DX(c.Pitch))
	return view.Mul3x1(worldForward).Normalize()
}
