package game

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// recordingSystem записывает порядок вызовов
type recordingSystem struct {
	name     string
	priority int
	calls    *[]string
	deltas   []time.Duration
	err      error
	panicMsg string
}

func (rs *recordingSystem) Update(deltaTime time.Duration) error {
	*rs.calls = append(*rs.calls, rs.name)
	rs.deltas = append(rs.deltas, deltaTime)
	if rs.panicMsg != "" {
		panic(rs.panicMsg)
	}
	return rs.err
}

func (rs *recordingSystem) GetName() string  { return rs.name }
func (rs *recordingSystem) GetPriority() int { return rs.priority }

func createTestTicker() *Ticker {
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	return NewTicker(60, logger)
}

func TestTicker_SystemsRunInPriorityOrder(t *testing.T) {
	ticker := createTestTicker()
	var calls []string

	ticker.RegisterSystem(&recordingSystem{name: "network", priority: 30, calls: &calls})
	ticker.RegisterSystem(&recordingSystem{name: "avatar", priority: 10, calls: &calls})
	ticker.RegisterSystem(&recordingSystem{name: "combat", priority: 20, calls: &calls})

	ticker.Step(16 * time.Millisecond)

	want := []string{"avatar", "combat", "network"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("Ожидали порядок %v, получили %v", want, calls)
	}
	if !reflect.DeepEqual(ticker.Systems(), want) {
		t.Errorf("Systems() = %v, want %v", ticker.Systems(), want)
	}
}

func TestTicker_StepAdvancesSimTime(t *testing.T) {
	ticker := createTestTicker()
	var calls []string
	system := &recordingSystem{name: "avatar", priority: 10, calls: &calls}
	ticker.RegisterSystem(system)

	ticker.Step(10 * time.Millisecond)
	ticker.Step(20 * time.Millisecond)

	if ticker.GetTickCount() != 2 {
		t.Errorf("Ожидали 2 тика, получили %d", ticker.GetTickCount())
	}
	if ticker.SimTime() != 30*time.Millisecond {
		t.Errorf("Ожидали время симуляции 30ms, получили %v", ticker.SimTime())
	}
	if !reflect.DeepEqual(system.deltas, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}) {
		t.Errorf("Unexpected deltas: %v", system.deltas)
	}
}

func TestTicker_ErrorsAndPanicsAreRecorded(t *testing.T) {
	ticker := createTestTicker()
	var calls []string

	ticker.RegisterSystem(&recordingSystem{name: "failing", priority: 1, calls: &calls, err: errors.New("boom")})
	ticker.RegisterSystem(&recordingSystem{name: "panicking", priority: 2, calls: &calls, panicMsg: "crash"})
	ticker.RegisterSystem(&recordingSystem{name: "healthy", priority: 3, calls: &calls})

	ticker.Step(time.Millisecond)
	ticker.Step(time.Millisecond)

	// Паника одной системы не останавливает остальные
	if len(calls) != 6 {
		t.Fatalf("Ожидали 6 вызовов, получили %d: %v", len(calls), calls)
	}

	monitor := ticker.PerformanceMonitor()
	for name, wantErrors := range map[string]uint64{"failing": 2, "panicking": 2, "healthy": 0} {
		stats, ok := monitor.SystemStats(name)
		if !ok {
			t.Fatalf("Нет метрик для системы %s", name)
		}
		if stats.Errors != wantErrors {
			t.Errorf("%s: ожидали %d ошибок, получили %d", name, wantErrors, stats.Errors)
		}
	}

	healthy, _ := monitor.SystemStats("healthy")
	if healthy.TotalExecutions != 2 {
		t.Errorf("Ожидали 2 выполнения, получили %d", healthy.TotalExecutions)
	}
}

func TestTicker_StartStop(t *testing.T) {
	ticker := createTestTicker()
	var calls []string
	ticker.RegisterSystem(&recordingSystem{name: "avatar", priority: 10, calls: &calls})

	if err := ticker.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	// Повторный запуск ничего не делает
	if err := ticker.Start(context.Background()); err != nil {
		t.Fatalf("Second Start() error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticker.GetTickCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ticker.Stop()
	ticks := ticker.GetTickCount()
	if ticks < 3 {
		t.Fatalf("Ожидали хотя бы 3 тика, получили %d", ticks)
	}
	if ticker.IsRunning() {
		t.Error("Ticker must not be running after Stop")
	}

	time.Sleep(50 * time.Millisecond)
	if ticker.GetTickCount() != ticks {
		t.Error("Тики продолжаются после Stop")
	}
	ticker.Stop()

	stats := ticker.GetStats()
	if stats["tick_count"].(uint64) != ticks || stats["systems_count"].(int) != 1 {
		t.Errorf("Unexpected stats: %v", stats)
	}
}

func TestGameMetricsSystem_LogsSystemStats(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	ticker := NewTicker(60, logger)
	if ticker.TickDuration() != time.Second/60 {
		t.Errorf("TickDuration() = %v, want %v", ticker.TickDuration(), time.Second/60)
	}

	var calls []string
	ticker.RegisterSystem(&recordingSystem{name: "avatar", priority: 10, calls: &calls, err: errors.New("boom")})

	now := time.Now()
	metrics := NewGameMetricsSystem(ticker, logger)
	metrics.clock = func() time.Time { return now }
	metrics.lastMetricsLog = now
	ticker.RegisterSystem(metrics)

	buf.Reset()
	ticker.Step(tickDelta)
	if strings.Contains(buf.String(), "[GameMetrics]") {
		t.Fatalf("Метрики не должны логироваться до истечения интервала: %s", buf.String())
	}

	now = now.Add(31 * time.Second)
	ticker.Step(tickDelta)

	output := buf.String()
	if !strings.Contains(output, "[GameMetrics] TPS") {
		t.Errorf("Нет общей строки метрик: %s", output)
	}
	if !strings.Contains(output, "avatar: ") || !strings.Contains(output, "ошибок 2") {
		t.Errorf("Нет метрик системы avatar: %s", output)
	}
	if !strings.Contains(output, "GameMetricsSystem: ") {
		t.Errorf("Нет метрик самой системы метрик: %s", output)
	}

	systems, ok := ticker.GetStats()["systems"].(map[string]interface{})
	if !ok || len(systems) != 2 {
		t.Errorf("GetStats() must include per-system metrics, got %v", systems)
	}
}
