package avatar

// Input снимок управления за один тик
type Input struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Fire     bool

	// Yaw и Pitch задают направление взгляда камеры в радианах.
	// Yaw = 0 смотрит вдоль -Z.
	Yaw   float64
	Pitch float64
}

// Moving есть ли хотя бы одно направление
func (in Input) Moving() bool {
	return in.Forward || in.Backward || in.Left || in.Right
}

// InputSource опрашивается контроллером ровно один раз за тик
type InputSource interface {
	Sample() Input
}

// InputFunc адаптер функции к InputSource
type InputFunc func() Input

func (f InputFunc) Sample() Input {
	return f()
}
