package ws

import (
	"fmt"
	"time"
)

// NetworkSimulation - настройки для имитации сетевых условий на исходящих сообщениях
type NetworkSimulation struct {
	Enabled         bool          // Включена ли имитация
	BaseLatency     time.Duration // Базовая задержка
	LatencyVariance time.Duration // Вариация задержки (jitter)
	PacketLoss      float64       // Процент потери пакетов (0.0 - 1.0)
}

// plan решает судьбу одного сообщения: потерять или отправить с задержкой.
// random возвращает числа в [0, 1).
func (sim NetworkSimulation) plan(random func() float64) (lost bool, delay time.Duration) {
	if !sim.Enabled {
		return false, 0
	}

	// Имитация потери пакетов
	if sim.PacketLoss > 0 && random() < sim.PacketLoss {
		return true, 0
	}

	delay = sim.BaseLatency
	if sim.LatencyVariance > 0 {
		variance := time.Duration(random() * float64(sim.LatencyVariance))
		if random() < 0.5 {
			variance = -variance
		}
		delay += variance
	}
	if delay < 0 {
		delay = 0
	}
	return false, delay
}

// SimulationProfile возвращает предустановленный профиль сети; "" и "none" выключают имитацию
func SimulationProfile(profile string) (NetworkSimulation, error) {
	switch profile {
	case "", "none":
		return NetworkSimulation{}, nil
	case "mobile_3g":
		return NetworkSimulation{
			Enabled:         true,
			BaseLatency:     100 * time.Millisecond,
			LatencyVariance: 50 * time.Millisecond,
			PacketLoss:      0.02, // 2%
		}, nil
	case "mobile_4g":
		return NetworkSimulation{
			Enabled:         true,
			BaseLatency:     50 * time.Millisecond,
			LatencyVariance: 20 * time.Millisecond,
			PacketLoss:      0.01, // 1%
		}, nil
	case "wifi_poor":
		return NetworkSimulation{
			Enabled:         true,
			BaseLatency:     80 * time.Millisecond,
			LatencyVariance: 40 * time.Millisecond,
			PacketLoss:      0.03, // 3%
		}, nil
	case "high_latency":
		return NetworkSimulation{
			Enabled:         true,
			BaseLatency:     200 * time.Millisecond,
			LatencyVariance: 100 * time.Millisecond,
			PacketLoss:      0.05, // 5%
		}, nil
	case "unstable":
		return NetworkSimulation{
			Enabled:         true,
			BaseLatency:     60 * time.Millisecond,
			LatencyVariance: 80 * time.Millisecond,
			PacketLoss:      0.04, // 4%
		}, nil
	default:
		return NetworkSimulation{}, fmt.Errorf("unknown network profile %q", profile)
	}
}
