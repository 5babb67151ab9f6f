package combat

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	uuid "github.com/satori/go.uuid"

	"ethglobaltaipei/backend/internal/config"
	"ethglobaltaipei/backend/internal/transport/ws"
)

// PeerSource источник позиций удаленных участников; *peers.Table реализует его
type PeerSource interface {
	All() map[string]ws.PlayerState
}

// Stats счетчики боевой системы
type Stats struct {
	Fired        uint64
	Ignored      uint64
	Hits         uint64
	Expired      uint64
	RemoteSpawns uint64
	Active       int
	ActiveRemote int
}

// Manager ведет жизненный цикл снарядов и проверяет попадания.
//
// Попадания решает каждый наблюдатель сам: свой снаряд, долетевший до
// позиции любого участника, считается подтвержденным попаданием на этом
// клиенте. Удаленные снаряды только отображаются и никогда не попадают.
type Manager struct {
	config config.CombatConfig
	peers  PeerSource
	logger *log.Logger

	mu       sync.Mutex
	local    []*Projectile
	remote   []*Projectile
	lastShot map[string]int64 // id участника -> timestamp последнего показанного выстрела
	lastFire time.Duration
	hasFired bool
	stats    Stats

	clock func() time.Time
	newID func() string
}

// NewManager создает менеджер снарядов
func NewManager(cfg config.CombatConfig, peers PeerSource, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		config:   cfg,
		peers:    peers,
		logger:   logger,
		lastShot: make(map[string]int64),
		clock:    time.Now,
		newID: func() string {
			return uuid.NewV4().String()
		},
	}
}

// Fire пытается выстрелить. Запрос внутри окна перезарядки молча
// игнорируется; при успехе возвращается событие для исходящего сообщения.
func (m *Manager) Fire(now time.Duration, body, viewDir mgl64.Vec3) *ws.ShootingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasFired && now-m.lastFire < m.config.FireCooldown {
		m.stats.Ignored++
		return nil
	}
	if viewDir.Len() < 1e-9 || !finiteVec(viewDir) {
		m.stats.Ignored++
		return nil
	}

	direction := viewDir.Normalize()
	spawn := body.Add(mgl64.Vec3{0, m.config.SpawnOffset, 0})

	m.local = append(m.local, &Projectile{
		ID:        m.newID(),
		Spawn:     spawn,
		Position:  spawn,
		Direction: direction,
		SpawnedAt: now,
	})
	m.lastFire = now
	m.hasFired = true
	m.stats.Fired++

	return &ws.ShootingEvent{
		IsShooting: true,
		Direction:  ws.FromVec3(direction),
		Timestamp:  m.clock().UnixMilli(),
	}
}

// SyncRemote создает визуальные снаряды для выстрелов участников из снимка.
// Релей может повторять одно и то же состояние, поэтому выстрел с уже
// показанным timestamp пропускается. Состояние без выстрела сбрасывает
// запомненный timestamp участника, иначе выстрелы без timestamp (0)
// после первого никогда бы не показывались.
func (m *Manager) SyncRemote(now time.Duration, snapshot map[string]ws.PlayerState) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	spawned := 0
	for peerID, state := range snapshot {
		shot := state.Shooting
		if shot == nil || !shot.IsShooting {
			delete(m.lastShot, peerID)
			continue
		}
		if last, seen := m.lastShot[peerID]; seen && last == shot.Timestamp {
			continue
		}
		m.lastShot[peerID] = shot.Timestamp

		direction := shot.Direction.Vec()
		if direction.Len() < 1e-9 {
			continue
		}
		spawn := state.Position.Vec().Add(mgl64.Vec3{0, m.config.SpawnOffset, 0})
		m.remote = append(m.remote, &Projectile{
			ID:        m.newID(),
			Owner:     peerID,
			Remote:    true,
			Spawn:     spawn,
			Position:  spawn,
			Direction: direction.Normalize(),
			SpawnedAt: now,
		})
		m.stats.RemoteSpawns++
		spawned++
	}
	return spawned
}

// Advance двигает все снаряды на dt и возвращает завершающие события тика.
// Снаряд, достигший дальности, исчезает без попадания.
func (m *Manager) Advance(dt float64) []Event {
	var peers map[string]ws.PlayerState
	if m.peers != nil {
		peers = m.peers.All()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var events []Event

	alive := m.local[:0]
	for _, p := range m.local {
		traveled := p.advance(m.config.ProjectileSpeed, dt)
		if traveled >= m.config.MaxDistance {
			events = append(events, Event{Kind: EventExpire, Projectile: *p, Distance: traveled})
			m.stats.Expired++
			continue
		}
		if peerID, distance, hit := m.nearestWithin(p.Position, peers); hit {
			events = append(events, Event{Kind: EventHit, Projectile: *p, PeerID: peerID, Distance: distance})
			m.stats.Hits++
			continue
		}
		alive = append(alive, p)
	}
	clearTail(m.local, len(alive))
	m.local = alive

	remaining := m.remote[:0]
	for _, p := range m.remote {
		traveled := p.advance(m.config.ProjectileSpeed, dt)
		if traveled >= m.config.MaxDistance {
			events = append(events, Event{Kind: EventExpire, Projectile: *p, Distance: traveled})
			continue
		}
		remaining = append(remaining, p)
	}
	clearTail(m.remote, len(remaining))
	m.remote = remaining

	return events
}

func (m *Manager) nearestWithin(position mgl64.Vec3, peers map[string]ws.PlayerState) (string, float64, bool) {
	bestID := ""
	best := math.Inf(1)
	for id, peer := range peers {
		distance := position.Sub(peer.Position.Vec()).Len()
		if distance < m.config.HitRadius && (distance < best || (distance == best && id < bestID)) {
			bestID = id
			best = distance
		}
	}
	return bestID, best, bestID != ""
}

// Projectiles копии активных снарядов: сначала свои, затем удаленные
func (m *Manager) Projectiles() []Projectile {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Projectile, 0, len(m.local)+len(m.remote))
	for _, p := range m.local {
		result = append(result, *p)
	}
	for _, p := range m.remote {
		result = append(result, *p)
	}
	return result
}

// Stats возвращает счетчики
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.Active = len(m.local)
	stats.ActiveRemote = len(m.remote)
	return stats
}

// clearTail обнуляет хвост среза после фильтрации на месте
func clearTail(s []*Projectile, n int) {
	for i := n; i < len(s); i++ {
		s[i] = nil
	}
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
