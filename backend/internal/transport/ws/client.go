package ws

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State состояние менеджера соединения
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dialer устанавливает WebSocket соединение. *websocket.Dialer реализует этот интерфейс.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// UpdateCallback получает каждый успешно разобранный снимок
type UpdateCallback func(GameState)

// StateChangeFunc вызывается после каждого перехода, вне блокировки менеджера
type StateChangeFunc func(from, to State)

// Options параметры менеджера соединения
type Options struct {
	URL           string
	Dialer        Dialer
	Scheduler     Scheduler
	Backoff       Backoff
	WriteTimeout  time.Duration
	ReadLimit     int64
	Logger        *log.Logger
	OnStateChange StateChangeFunc
	Simulation    NetworkSimulation
}

// ConnectionStats счетчики менеджера соединения
type ConnectionStats struct {
	State            State
	Attempts         int
	Exhausted        bool
	PendingReconnect bool
	Sent             uint64
	Received         uint64
	Dropped          uint64
	SimulatedLoss    uint64
}

type transition struct {
	from, to State
}

// ConnectionManager владеет единственным соединением с релеем.
// Одновременно существует не больше одного открытого соединения
// и не больше одного таймера переподключения.
type ConnectionManager struct {
	url           string
	dialer        Dialer
	scheduler     Scheduler
	backoff       Backoff
	writeTimeout  time.Duration
	readLimit     int64
	logger        *log.Logger
	onStateChange StateChangeFunc
	random        func() float64

	mu         sync.Mutex
	state      State
	writer     *SafeWriter
	timer      Timer
	cancelDial context.CancelFunc
	attempts   int
	exhausted  bool
	generation uint64
	onUpdate   UpdateCallback
	pending    []transition
	simulation NetworkSimulation

	sent          uint64
	received      uint64
	dropped       uint64
	simulatedLoss uint64
}

// NewConnectionManager создает менеджер в состоянии Disconnected
func NewConnectionManager(opts Options) *ConnectionManager {
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &ConnectionManager{
		url:           opts.URL,
		dialer:        opts.Dialer,
		scheduler:     opts.Scheduler,
		backoff:       opts.Backoff,
		writeTimeout:  opts.WriteTimeout,
		readLimit:     opts.ReadLimit,
		logger:        opts.Logger,
		onStateChange: opts.OnStateChange,
		random:        rand.Float64,
		state:         StateDisconnected,
		simulation:    opts.Simulation,
	}
}

// Connect начинает подключение. Ничего не делает, если соединение открыто,
// подключение уже идет, ждет таймер переподключения или попытки исчерпаны.
func (m *ConnectionManager) Connect() {
	m.mu.Lock()
	m.connectLocked()
	m.unlockAndNotify()
}

func (m *ConnectionManager) connectLocked() {
	if m.state == StateConnecting || m.state == StateConnected || m.timer != nil {
		return
	}
	if m.exhausted {
		return
	}

	m.generation++
	generation := m.generation

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.setStateLocked(StateConnecting)

	m.logger.Printf("[ConnectionManager] Подключение к игровому серверу %s", m.url)
	go m.dial(ctx, cancel, generation)
}

func (m *ConnectionManager) dial(ctx context.Context, cancel context.CancelFunc, generation uint64) {
	conn, _, err := m.dialer.DialContext(ctx, m.url, nil)
	cancel()

	m.mu.Lock()
	if generation != m.generation {
		// Disconnect во время рукопожатия: это соединение не должно стать живым
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	m.cancelDial = nil

	if err != nil {
		m.logger.Printf("[ConnectionManager] Ошибка подключения - мультиплеер недоступен: %v", err)
		m.handleDropLocked()
		m.unlockAndNotify()
		return
	}

	if m.readLimit > 0 {
		conn.SetReadLimit(m.readLimit)
	}
	writer := NewSafeWriter(conn, m.writeTimeout)
	m.writer = writer
	m.attempts = 0
	m.setStateLocked(StateConnected)
	m.unlockAndNotify()

	m.logger.Printf("[ConnectionManager] Подключено к игровому серверу")
	go m.readLoop(writer)
}

func (m *ConnectionManager) readLoop(writer *SafeWriter) {
	for {
		messageType, data, err := writer.ReadMessage()
		if err != nil {
			m.mu.Lock()
			if m.writer != writer {
				// Соединение закрыто намеренно
				m.mu.Unlock()
				return
			}
			m.writer = nil
			m.logger.Printf("[ConnectionManager] Соединение с игровым сервером потеряно: %v", err)
			m.handleDropLocked()
			m.unlockAndNotify()
			writer.Close()
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		state, err := DecodeGameState(data)
		if err != nil {
			m.mu.Lock()
			m.dropped++
			m.mu.Unlock()
			m.logger.Printf("[ConnectionManager] ПРЕДУПРЕЖДЕНИЕ: отброшен некорректный снимок: %v", err)
			continue
		}

		m.mu.Lock()
		callback := m.onUpdate
		m.received++
		m.mu.Unlock()

		if callback != nil {
			callback(state)
		}
	}
}

// handleDropLocked переводит менеджер в Disconnected и планирует переподключение, если попытки остались
func (m *ConnectionManager) handleDropLocked() {
	m.setStateLocked(StateDisconnected)

	if m.backoff.Exhausted(m.attempts) {
		m.exhausted = true
		m.logger.Printf("[ConnectionManager] Достигнут лимит попыток переподключения (%d) - мультиплеер отключен", m.backoff.MaxAttempts)
		return
	}

	delay := m.backoff.Delay(m.attempts)
	m.attempts++
	generation := m.generation

	m.logger.Printf("[ConnectionManager] Попытка переподключения %d/%d через %v", m.attempts, m.backoff.MaxAttempts, delay)
	m.timer = m.scheduler.AfterFunc(delay, func() {
		m.reconnect(generation)
	})
	m.setStateLocked(StateReconnecting)
}

func (m *ConnectionManager) reconnect(generation uint64) {
	m.mu.Lock()
	if generation != m.generation || m.timer == nil {
		// Таймер отменен через Disconnect
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.setStateLocked(StateDisconnected)
	m.connectLocked()
	m.unlockAndNotify()
}

// Disconnect отменяет таймер, закрывает соединение и сбрасывает счетчик попыток.
// Безопасен в любом состоянии, повторный вызов ничего не меняет.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	m.generation++

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}

	writer := m.writer
	m.writer = nil
	m.attempts = 0
	m.exhausted = false
	m.setStateLocked(StateDisconnected)
	m.unlockAndNotify()

	if writer != nil {
		writer.Close()
		m.logger.Printf("[ConnectionManager] Отключено от игрового сервера")
	}
}

// Send отправляет состояние, если соединение открыто. Без соединения
// вызов молча ничего не делает: сообщения не копятся в очереди.
func (m *ConnectionManager) Send(state PlayerState) error {
	m.mu.Lock()
	writer := m.writer
	open := m.state == StateConnected
	sim := m.simulation
	m.mu.Unlock()

	if !open || writer == nil {
		return nil
	}

	data, err := EncodePlayerState(state)
	if err != nil {
		return err
	}

	lost, delay := sim.plan(m.random)
	if lost {
		m.mu.Lock()
		m.simulatedLoss++
		m.mu.Unlock()
		return nil
	}
	if delay > 0 {
		// Запись из таймера; после закрытия соединения она просто завершится ошибкой
		m.scheduler.AfterFunc(delay, func() {
			m.write(writer, data)
		})
		return nil
	}

	return m.write(writer, data)
}

func (m *ConnectionManager) write(writer *SafeWriter, data []byte) error {
	if err := writer.WriteMessage(websocket.TextMessage, data); err != nil {
		m.logger.Printf("[ConnectionManager] Ошибка отправки состояния: %v", err)
		return fmt.Errorf("send state: %w", err)
	}

	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
	return nil
}

// SetNetworkSimulation меняет имитацию сетевых условий для следующих отправок
func (m *ConnectionManager) SetNetworkSimulation(sim NetworkSimulation) {
	m.mu.Lock()
	m.simulation = sim
	m.mu.Unlock()

	m.logger.Printf("[NetworkSim] Настройки обновлены: Enabled=%v, BaseLatency=%v, Variance=%v, PacketLoss=%.2f%%",
		sim.Enabled, sim.BaseLatency, sim.LatencyVariance, sim.PacketLoss*100)
}

// GetNetworkSimulation возвращает текущие настройки имитации
func (m *ConnectionManager) GetNetworkSimulation() NetworkSimulation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simulation
}

// OnUpdate регистрирует единственного подписчика; повторная регистрация заменяет предыдущего
func (m *ConnectionManager) OnUpdate(callback UpdateCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = callback
}

// IsConnected отражает только открытость транспорта
func (m *ConnectionManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// State возвращает текущее состояние
func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats возвращает счетчики менеджера
func (m *ConnectionManager) Stats() ConnectionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ConnectionStats{
		State:            m.state,
		Attempts:         m.attempts,
		Exhausted:        m.exhausted,
		PendingReconnect: m.timer != nil,
		Sent:             m.sent,
		Received:         m.received,
		Dropped:          m.dropped,
		SimulatedLoss:    m.simulatedLoss,
	}
}

func (m *ConnectionManager) setStateLocked(to State) {
	if m.state == to {
		return
	}
	m.pending = append(m.pending, transition{from: m.state, to: to})
	m.state = to
}

// unlockAndNotify снимает блокировку и сообщает о накопленных переходах
func (m *ConnectionManager) unlockAndNotify() {
	pending := m.pending
	m.pending = nil
	hook := m.onStateChange
	m.mu.Unlock()

	if hook == nil {
		return
	}
	for _, t := range pending {
		hook(t.from, t.to)
	}
}
