package avatar

import (
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"ethglobaltaipei/backend/internal/config"
	"ethglobaltaipei/backend/internal/physics"
)

// fakeBody запоминает вызовы и не двигается сам
type fakeBody struct {
	position mgl64.Vec3
	velocity mgl64.Vec3
	impulses []mgl64.Vec3
	steps    int
}

func (b *fakeBody) Position() mgl64.Vec3           { return b.position }
func (b *fakeBody) LinearVelocity() mgl64.Vec3     { return b.velocity }
func (b *fakeBody) SetLinearVelocity(v mgl64.Vec3) { b.velocity = v }
func (b *fakeBody) Step(dt float64)                { b.steps++ }

func (b *fakeBody) SetPosition(p mgl64.Vec3) {
	b.position = p
	b.velocity = mgl64.Vec3{}
}

func (b *fakeBody) ApplyImpulse(impulse mgl64.Vec3) {
	b.impulses = append(b.impulses, impulse)
	b.velocity = b.velocity.Add(impulse)
}

type countingInput struct {
	input Input
	calls int
}

func (c *countingInput) Sample() Input {
	c.calls++
	return c.input
}

const dt = 1.0 / 60.0

func newTestController(body physics.Body, input InputSource) *Controller {
	return NewController(config.DefaultTuning(), body, input, "tester", "/faces/ana.png", log.New(io.Discard, "", 0))
}

func TestController_ForwardMovementPreservesVerticalVelocity(t *testing.T) {
	body := &fakeBody{}
	input := &countingInput{input: Input{Forward: true}}
	c := newTestController(body, input)
	body.velocity = mgl64.Vec3{2, 5, 3}

	c.Update(dt, 0)

	want := mgl64.Vec3{0, 5, -15 - 15*dt}
	if !body.velocity.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("Expected velocity %v, got %v", want, body.velocity)
	}
	if len(body.impulses) != 1 || !body.impulses[0].ApproxEqualThreshold(mgl64.Vec3{0, 0, -15 * dt}, 1e-9) {
		t.Errorf("Expected one impulse of dir*dt, got %v", body.impulses)
	}
	if rot := c.State().RotationY; math.Abs(math.Abs(rot)-math.Pi) > 1e-9 {
		t.Errorf("Expected facing pi when moving along -Z, got %f", rot)
	}
	if body.steps != 1 {
		t.Errorf("Expected one physics step, got %d", body.steps)
	}
}

func TestController_DiagonalInputIsNormalized(t *testing.T) {
	body := &fakeBody{}
	c := newTestController(body, &countingInput{input: Input{Forward: true, Right: true}})

	c.Update(dt, 0)

	horizontal := mgl64.Vec3{body.velocity.X(), 0, body.velocity.Z()}
	if speed := horizontal.Len(); math.Abs(speed-15*(1+dt)) > 1e-9 {
		t.Errorf("Expected horizontal speed %f, got %f", 15*(1+dt), speed)
	}
	if rot := c.State().RotationY; math.Abs(rot-3*math.Pi/4) > 1e-9 {
		t.Errorf("Expected facing 3pi/4, got %f", rot)
	}
}

func TestController_MovementIsCameraRelative(t *testing.T) {
	body := &fakeBody{}
	// Камера повернута на 90 градусов: вперед теперь -X
	c := newTestController(body, &countingInput{input: Input{Forward: true, Yaw: math.Pi / 2}})

	c.Update(dt, 0)

	if body.velocity.X() >= -14 || math.Abs(body.velocity.Z()) > 1e-9 {
		t.Errorf("Expected movement along -X, got %v", body.velocity)
	}
}

func TestController_IdleDampingAndFacingHold(t *testing.T) {
	body := &fakeBody{}
	input := &countingInput{input: Input{Right: true}}
	c := newTestController(body, input)

	c.Update(dt, 0)
	facing := c.State().RotationY
	if math.Abs(facing-math.Pi/2) > 1e-9 {
		t.Fatalf("Expected facing pi/2, got %f", facing)
	}

	input.input = Input{}
	body.velocity = mgl64.Vec3{10, -2, 10}
	c.Update(dt, 0)

	want := mgl64.Vec3{8, -2, 8}
	if !body.velocity.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("Expected damped velocity %v, got %v", want, body.velocity)
	}
	if c.State().RotationY != facing {
		t.Errorf("Facing must hold while idle: %f -> %f", facing, c.State().RotationY)
	}
}

func TestController_OpposingKeysCancel(t *testing.T) {
	body := &fakeBody{}
	c := newTestController(body, &countingInput{input: Input{Left: true, Right: true}})
	body.velocity = mgl64.Vec3{5, 0, 0}

	c.Update(dt, 0)

	if math.Abs(body.velocity.X()-4) > 1e-9 {
		t.Errorf("Expected idle damping when keys cancel, got %v", body.velocity)
	}
}

func TestController_SamplesInputOncePerTick(t *testing.T) {
	input := &countingInput{input: Input{Forward: true, Fire: true}}
	c := newTestController(&fakeBody{}, input)

	for i := 0; i < 5; i++ {
		c.Update(dt, time.Duration(i)*time.Millisecond)
	}
	if input.calls != 5 {
		t.Errorf("Expected 5 samples for 5 ticks, got %d", input.calls)
	}
}

func TestController_DeathAndRespawn(t *testing.T) {
	tuning := config.DefaultTuning()
	body := &fakeBody{}
	input := &countingInput{input: Input{Forward: true, Fire: true}}
	c := newTestController(body, input)

	c.Update(dt, 0)
	if body.position == tuning.Health.SpawnPoint && body.velocity == (mgl64.Vec3{}) {
		t.Fatal("Expected movement before death")
	}
	body.position = mgl64.Vec3{10, 1, 10}

	hits := 0
	for !c.State().IsDead {
		hits++
		c.ApplyDamage(tuning.Health.DamageAmount, time.Second)
	}
	if hits != 5 {
		t.Errorf("Expected death after 5 hits, got %d", hits)
	}
	if body.position != tuning.Health.SpawnPoint {
		t.Errorf("Expected body at spawn after death, got %v", body.position)
	}

	// Мертвый аватар не двигается и не стреляет
	in := c.Update(dt, 2*time.Second)
	if in.Fire || in.Moving() {
		t.Errorf("Input must be ignored while dead, got %+v", in)
	}
	if body.position != tuning.Health.SpawnPoint {
		t.Errorf("Body must be held at spawn while dead, got %v", body.position)
	}
	if c.ApplyDamage(tuning.Health.DamageAmount, 2*time.Second) {
		t.Error("Damage while dead must be ignored")
	}

	c.Update(dt, time.Second+tuning.Health.RespawnDelay)
	state := c.State()
	if state.IsDead || state.Health != tuning.Health.MaxHealth {
		t.Errorf("Expected respawn with full health, got %+v", state)
	}
	if deaths, respawns := c.LifeCounters(); deaths != 1 || respawns != 1 {
		t.Errorf("Expected 1 death and 1 respawn, got %d/%d", deaths, respawns)
	}
}

func TestController_CameraFollowsBody(t *testing.T) {
	tuning := config.DefaultTuning()
	body := physics.NewKinematicBody(physics.DefaultConfig(), mgl64.Vec3{})
	c := newTestController(body, &countingInput{})

	before := c.CameraPosition()
	c.Update(dt, 0)
	after := c.CameraPosition()

	goal := body.Position().Add(mgl64.Vec3{0, tuning.Movement.CameraHeight, 0})
	want := before.Add(goal.Sub(before).Mul(tuning.Movement.CameraSmoothing))
	if !after.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("Expected camera at %v, got %v", want, after)
	}
}

func TestController_WithKinematicBodySettlesOnGround(t *testing.T) {
	body := physics.NewKinematicBody(physics.DefaultConfig(), mgl64.Vec3{})
	c := newTestController(body, &countingInput{input: Input{Forward: true}})

	for i := 0; i < 120; i++ {
		c.Update(dt, time.Duration(i)*time.Second/60)
	}

	state := c.State()
	if state.Position.Z() > -10 {
		t.Errorf("Expected avatar to travel along -Z, got %v", state.Position)
	}
	if !body.Grounded() {
		t.Error("Expected avatar to land on the ground")
	}
}
