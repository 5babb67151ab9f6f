package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ethglobaltaipei/backend/internal/avatar"
	"ethglobaltaipei/backend/internal/combat"
	"ethglobaltaipei/backend/internal/config"
	"ethglobaltaipei/backend/internal/peers"
	"ethglobaltaipei/backend/internal/physics"
	"ethglobaltaipei/backend/internal/telemetry"
	"ethglobaltaipei/backend/internal/token"
	"ethglobaltaipei/backend/internal/transport/ws"
)

// tokenPollInterval период опроса статуса токена после входа
const tokenPollInterval = 2 * time.Second

// SessionOptions зависимости сессии; пустые поля получают значения по умолчанию
type SessionOptions struct {
	Config    *config.Config
	Input     avatar.InputSource
	Body      physics.Body
	Dialer    ws.Dialer
	Scheduler ws.Scheduler
	Token     *token.Client
	Logger    *log.Logger
	Network   ws.NetworkSimulation // имитация плохой сети для исходящих сообщений
}

// SessionStats сводка состояния сессии
type SessionStats struct {
	Tick       uint64
	SimTime    time.Duration
	Connection ws.ConnectionStats
	Peers      int
	PeerIDs    []string
	Avatar     avatar.State
	Combat     combat.Stats
}

// Session владеет всеми компонентами клиента и связывает их между собой
type Session struct {
	config *config.Config
	logger *log.Logger

	conn      *ws.ConnectionManager
	peers     *peers.Table
	avatar    *avatar.Controller
	combat    *combat.Manager
	telemetry *telemetry.TelemetryManager
	ticker    *Ticker
	token     *token.Client
	frame     *Frame

	mu          sync.Mutex
	started     bool
	cancelToken context.CancelFunc
	tokenDone   chan struct{}
}

// NewSession собирает сессию и регистрирует системы игрового цикла
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("session config is required")
	}
	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	name := strings.TrimSpace(cfg.PlayerName)
	if name == "" {
		name = "player"
	}
	face, err := avatar.ResolveFace(cfg.PlayerFace)
	if err != nil {
		return nil, fmt.Errorf("player face: %w", err)
	}

	body := opts.Body
	if body == nil {
		body = physics.NewKinematicBody(physics.DefaultConfig(), cfg.Tuning.Health.SpawnPoint)
	}

	tokenClient := opts.Token
	if tokenClient == nil && cfg.TokenAPIURL != "" {
		tokenClient = token.NewClient(cfg.TokenAPIURL, nil, logger)
	}

	s := &Session{
		config:    cfg,
		logger:    logger,
		peers:     peers.NewTable(),
		telemetry: telemetry.NewTelemetryManager(logger),
		ticker:    NewTicker(cfg.TickRate, logger),
		token:     tokenClient,
		frame:     &Frame{},
	}

	network := cfg.Tuning.Network
	s.conn = ws.NewConnectionManager(ws.Options{
		URL:       cfg.WebSocketURL,
		Dialer:    opts.Dialer,
		Scheduler: opts.Scheduler,
		Backoff: ws.Backoff{
			Base:        network.BaseDelay,
			Max:         network.MaxDelay,
			MaxAttempts: network.MaxAttempts,
		},
		WriteTimeout:  network.WriteTimeout,
		ReadLimit:     network.ReadLimit,
		Logger:        logger,
		OnStateChange: s.handleStateChange,
		Simulation:    opts.Network,
	})
	s.conn.OnUpdate(s.handleSnapshot)

	s.avatar = avatar.NewController(cfg.Tuning, body, opts.Input, name, face, logger)
	s.combat = combat.NewManager(cfg.Tuning.Combat, s.peers, logger)

	s.ticker.RegisterSystem(NewAvatarSystem(s.avatar, s.frame, s.ticker))
	s.ticker.RegisterSystem(NewCombatSystem(s.combat, s.avatar, s.peers, s.frame, s.ticker, s.handleHit, logger))
	s.ticker.RegisterSystem(NewNetworkSyncSystem(s.conn, s.avatar, s.frame, s.ticker, s.telemetry, logger))
	s.ticker.RegisterSystem(NewTelemetrySystem(s.telemetry, s.avatar, s.conn, s.peers, s.frame, s.ticker))
	s.ticker.RegisterSystem(NewGameMetricsSystem(s.ticker, logger))

	return s, nil
}

// handleSnapshot перезаписывает таблицу участников снимком релея
func (s *Session) handleSnapshot(snapshot ws.GameState) {
	applied := s.peers.ApplySnapshot(snapshot)
	s.telemetry.Count(telemetry.CounterSnapshots, 1)
	if applied > 0 && s.ticker.GetTickCount()%300 == 0 {
		s.logger.Printf("[Session] Получен снимок: %d участников, в таблице %d", applied, s.peers.Len())
	}
}

// handleHit применяет урон к локальному аватару: попадание решает наблюдатель
func (s *Session) handleHit(event combat.Event, now time.Duration) {
	amount := s.config.Tuning.Health.DamageAmount
	before := s.avatar.State().Health
	if s.avatar.ApplyDamage(amount, now) {
		s.logger.Printf("[Session] Аватар погиб от снаряда %s", event.Projectile.ID)
	}
	if after := s.avatar.State().Health; after < before {
		s.telemetry.Count(telemetry.CounterDamage, before-after)
	}
}

func (s *Session) handleStateChange(from, to ws.State) {
	s.telemetry.Count(telemetry.CounterStateChange, 1)
	s.logger.Printf("[Session] Соединение: %s -> %s", from, to)
}

// Start подключается к релею, запускает вход в сервис токенов и игровой цикл
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.Connect(ctx)
	return s.ticker.Start(ctx)
}

// Connect подключается к релею и запускает вход в сервис токенов без игрового цикла.
// Используется, когда тики выполняются через Step.
func (s *Session) Connect(ctx context.Context) {
	s.conn.Connect()
	s.joinToken(ctx)
}

// joinToken запускает фоновый вход в сервис токенов; ошибки не влияют на игру
func (s *Session) joinToken(ctx context.Context) {
	if !s.token.Enabled() {
		return
	}

	s.mu.Lock()
	if s.tokenDone != nil {
		s.mu.Unlock()
		return
	}
	tokenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancelToken = cancel
	s.tokenDone = done
	s.mu.Unlock()

	name := s.avatar.State().Name
	go func() {
		defer close(done)

		if _, err := s.token.Join(tokenCtx, name, ""); err != nil {
			s.logger.Printf("[Session] Сервис токенов недоступен: %v", err)
			return
		}
		record, err := s.token.WaitForToken(tokenCtx, name, tokenPollInterval)
		if err != nil {
			if tokenCtx.Err() == nil {
				s.logger.Printf("[Session] Токен не получен: %v", err)
			}
			return
		}
		s.logger.Printf("[Session] Токен %s (%s) готов: %s", record.Name, record.Symbol, record.Address)
	}()
}

// Stop останавливает цикл, закрывает соединение и прерывает вход в сервис токенов
func (s *Session) Stop() {
	s.ticker.Stop()
	s.conn.Disconnect()

	s.mu.Lock()
	cancel, done := s.cancelToken, s.tokenDone
	s.cancelToken, s.tokenDone = nil, nil
	s.started = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Step выполняет один тик синхронно
func (s *Session) Step(dt time.Duration) {
	s.ticker.Step(dt)
}

// Stats возвращает сводку сессии
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Tick:       s.ticker.GetTickCount(),
		SimTime:    s.ticker.SimTime(),
		Connection: s.conn.Stats(),
		Peers:      s.peers.Len(),
		PeerIDs:    s.peers.IDs(),
		Avatar:     s.avatar.State(),
		Combat:     s.combat.Stats(),
	}
}

func (s *Session) Connection() *ws.ConnectionManager      { return s.conn }
func (s *Session) Peers() *peers.Table                    { return s.peers }
func (s *Session) Avatar() *avatar.Controller             { return s.avatar }
func (s *Session) Combat() *combat.Manager                { return s.combat }
func (s *Session) Telemetry() *telemetry.TelemetryManager { return s.telemetry }
func (s *Session) Ticker() *Ticker                        { return s.ticker }
