package game

import (
	"log"
	"sort"
	"time"

	"ethglobaltaipei/backend/internal/avatar"
	"ethglobaltaipei/backend/internal/combat"
	"ethglobaltaipei/backend/internal/peers"
	"ethglobaltaipei/backend/internal/telemetry"
	"ethglobaltaipei/backend/internal/transport/ws"
)

// Frame данные, которые системы передают друг другу в пределах одного тика
type Frame struct {
	Input         avatar.Input
	Shot          *ws.ShootingEvent
	RemoteSpawned int
	Events        []combat.Event
}

// StateSender отправляет состояние аватара; *ws.ConnectionManager реализует его
type StateSender interface {
	Send(state ws.PlayerState) error
	IsConnected() bool
}

// HitHandler получает подтвержденные попадания
type HitHandler func(event combat.Event, now time.Duration)

// AvatarSystem опрашивает ввод и двигает локального аватара
type AvatarSystem struct {
	name       string
	priority   int
	controller *avatar.Controller
	frame      *Frame
	ticker     *Ticker
}

// NewAvatarSystem создает систему аватара
func NewAvatarSystem(controller *avatar.Controller, frame *Frame, ticker *Ticker) *AvatarSystem {
	return &AvatarSystem{
		name:       "AvatarSystem",
		priority:   10, // Ввод и движение первыми
		controller: controller,
		frame:      frame,
		ticker:     ticker,
	}
}

// Update выполняет тик аватара и начинает новый кадр
func (as *AvatarSystem) Update(deltaTime time.Duration) error {
	*as.frame = Frame{}
	as.frame.Input = as.controller.Update(deltaTime.Seconds(), as.ticker.SimTime())
	return nil
}

func (as *AvatarSystem) GetName() string  { return as.name }
func (as *AvatarSystem) GetPriority() int { return as.priority }

// CombatSystem стреляет, показывает чужие выстрелы, двигает снаряды и проверяет попадания
type CombatSystem struct {
	name       string
	priority   int
	manager    *combat.Manager
	controller *avatar.Controller
	peers      *peers.Table
	frame      *Frame
	ticker     *Ticker
	onHit      HitHandler
	logger     *log.Logger
}

// NewCombatSystem создает боевую систему
func NewCombatSystem(manager *combat.Manager, controller *avatar.Controller, table *peers.Table, frame *Frame, ticker *Ticker, onHit HitHandler, logger *log.Logger) *CombatSystem {
	return &CombatSystem{
		name:       "CombatSystem",
		priority:   20, // После движения, чтобы снаряд появился из новой позиции
		manager:    manager,
		controller: controller,
		peers:      table,
		frame:      frame,
		ticker:     ticker,
		onHit:      onHit,
		logger:     logger,
	}
}

// Update обрабатывает выстрел этого тика и завершающие события снарядов
func (cs *CombatSystem) Update(deltaTime time.Duration) error {
	now := cs.ticker.SimTime()

	if cs.frame.Input.Fire {
		state := cs.controller.State()
		if !state.IsDead {
			cs.frame.Shot = cs.manager.Fire(now, state.Position, cs.controller.ViewDirection())
		}
	}

	cs.frame.RemoteSpawned = cs.manager.SyncRemote(now, cs.peers.All())

	cs.frame.Events = cs.manager.Advance(deltaTime.Seconds())
	for _, event := range cs.frame.Events {
		if event.Kind != combat.EventHit {
			continue
		}
		cs.logger.Printf("[Combat] Снаряд %s попал в позицию участника %s (%.2f)",
			event.Projectile.ID, event.PeerID, event.Distance)
		if cs.onHit != nil {
			cs.onHit(event, now)
		}
	}

	return nil
}

func (cs *CombatSystem) GetName() string  { return cs.name }
func (cs *CombatSystem) GetPriority() int { return cs.priority }

// NetworkSyncSystem отправляет состояние аватара раз в тик, пока соединение открыто
type NetworkSyncSystem struct {
	name       string
	priority   int
	sender     StateSender
	controller *avatar.Controller
	frame      *Frame
	ticker     *Ticker
	telemetry  *telemetry.TelemetryManager
	logger     *log.Logger
	clock      func() time.Time
}

// NewNetworkSyncSystem создает систему сетевой синхронизации
func NewNetworkSyncSystem(sender StateSender, controller *avatar.Controller, frame *Frame, ticker *Ticker, tm *telemetry.TelemetryManager, logger *log.Logger) *NetworkSyncSystem {
	return &NetworkSyncSystem{
		name:       "NetworkSyncSystem",
		priority:   30, // Отправляем после движения и стрельбы
		sender:     sender,
		controller: controller,
		frame:      frame,
		ticker:     ticker,
		telemetry:  tm,
		logger:     logger,
		clock:      time.Now,
	}
}

// Update отправляет состояние; без соединения отправка молча пропускается
func (nss *NetworkSyncSystem) Update(deltaTime time.Duration) error {
	if !nss.sender.IsConnected() {
		return nil
	}

	state := nss.controller.State()
	message := ws.PlayerState{
		Position:   ws.FromVec3(state.Position),
		Rotation:   ws.Rotation{Y: state.RotationY},
		Face:       state.Face,
		Name:       state.Name,
		Health:     state.Health,
		LastUpdate: nss.clock().UTC(),
		Shooting:   nss.frame.Shot,
	}

	if err := nss.sender.Send(message); err != nil {
		nss.telemetry.Count(telemetry.CounterSendErrors, 1)
		return nil
	}

	if nss.ticker.GetTickCount()%600 == 0 { // Каждые 10 секунд при 60 TPS
		nss.logger.Printf("[NetworkSyncSystem] Отправлено состояние: (%.1f, %.1f, %.1f), здоровье %d",
			message.Position.X, message.Position.Y, message.Position.Z, message.Health)
	}
	return nil
}

func (nss *NetworkSyncSystem) GetName() string  { return nss.name }
func (nss *NetworkSyncSystem) GetPriority() int { return nss.priority }

// TelemetrySystem записывает снимок аватара и счетчики событий тика
type TelemetrySystem struct {
	name       string
	priority   int
	telemetry  *telemetry.TelemetryManager
	controller *avatar.Controller
	sender     StateSender
	peers      *peers.Table
	frame      *Frame
	ticker     *Ticker

	lastDeaths   int
	lastRespawns int
}

// NewTelemetrySystem создает систему телеметрии
func NewTelemetrySystem(tm *telemetry.TelemetryManager, controller *avatar.Controller, sender StateSender, table *peers.Table, frame *Frame, ticker *Ticker) *TelemetrySystem {
	return &TelemetrySystem{
		name:       "TelemetrySystem",
		priority:   90,
		telemetry:  tm,
		controller: controller,
		sender:     sender,
		peers:      table,
		frame:      frame,
		ticker:     ticker,
	}
}

// Update собирает телеметрию тика
func (ts *TelemetrySystem) Update(deltaTime time.Duration) error {
	state := ts.controller.State()
	ts.telemetry.LogAvatar(ts.ticker.GetTickCount(), state.Name, state.Position, ts.controller.Velocity(),
		state.Health, state.IsDead, ts.sender.IsConnected(), ts.peers.Len())

	if ts.frame.Shot != nil {
		ts.telemetry.Count(telemetry.CounterShots, 1)
	}
	ts.telemetry.Count(telemetry.CounterRemoteShots, ts.frame.RemoteSpawned)
	for _, event := range ts.frame.Events {
		if event.Projectile.Remote {
			continue
		}
		switch event.Kind {
		case combat.EventHit:
			ts.telemetry.Count(telemetry.CounterHits, 1)
		case combat.EventExpire:
			ts.telemetry.Count(telemetry.CounterExpired, 1)
		}
	}

	deaths, respawns := ts.controller.LifeCounters()
	ts.telemetry.Count(telemetry.CounterDeaths, deaths-ts.lastDeaths)
	ts.telemetry.Count(telemetry.CounterRespawns, respawns-ts.lastRespawns)
	ts.lastDeaths, ts.lastRespawns = deaths, respawns

	ts.telemetry.PrintSummary()
	return nil
}

func (ts *TelemetrySystem) GetName() string  { return ts.name }
func (ts *TelemetrySystem) GetPriority() int { return ts.priority }

// GameMetricsSystem система сбора метрик игрового цикла
type GameMetricsSystem struct {
	name     string
	priority int
	ticker   *Ticker
	logger   *log.Logger
	clock    func() time.Time

	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGameMetricsSystem создает новую систему сбора метрик
func NewGameMetricsSystem(ticker *Ticker, logger *log.Logger) *GameMetricsSystem {
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        200, // Метрики в самом конце
		ticker:          ticker,
		logger:          logger,
		clock:           time.Now,
		lastMetricsLog:  time.Now(),
		metricsInterval: 30 * time.Second,
	}
}

// Update логирует метрики не чаще metricsInterval
func (gms *GameMetricsSystem) Update(deltaTime time.Duration) error {
	now := gms.clock()
	if now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	stats := gms.ticker.GetStats()
	gms.logger.Printf("[GameMetrics] TPS: %.1f/%d, Тиков: %d, Время тика: %v (цель %v)",
		stats["actual_tps"], stats["target_tps"], stats["tick_count"], stats["average_tick_time"], gms.ticker.TickDuration())

	if actualTPS := stats["actual_tps"].(float64); stats["is_running"].(bool) && actualTPS < float64(stats["target_tps"].(int))*0.9 {
		gms.logger.Printf("[GameMetrics] ПРЕДУПРЕЖДЕНИЕ: TPS снижен до %.1f", actualTPS)
	}

	systems, _ := stats["systems"].(map[string]interface{})
	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		metrics, ok := systems[name].(map[string]interface{})
		if !ok {
			continue
		}
		gms.logger.Printf("[GameMetrics]   %s: среднее %v, максимум %v, выполнений %d, ошибок %d",
			name, metrics["average_time"], metrics["max_time"], metrics["total_executions"], metrics["errors"])
	}

	return nil
}

func (gms *GameMetricsSystem) GetName() string  { return gms.name }
func (gms *GameMetricsSystem) GetPriority() int { return gms.priority }
