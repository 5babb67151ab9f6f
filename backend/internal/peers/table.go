package peers

import (
	"sort"
	"sync"

	"ethglobaltaipei/backend/internal/transport/ws"
)

// Table хранит последнее известное состояние каждого удаленного участника.
//
// Снимок перезаписывает записи целиком. Участники, пропавшие из снимка,
// не удаляются: полноту списка гарантирует релей.
type Table struct {
	mu     sync.RWMutex
	selfID string
	peers  map[string]ws.PlayerState
}

// NewTable создает пустую таблицу
func NewTable() *Table {
	return &Table{
		peers: make(map[string]ws.PlayerState),
	}
}

// SetSelf задает id локального клиента. Его запись сразу удаляется
// и больше никогда не попадает в таблицу.
func (t *Table) SetSelf(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selfID = id
	if id != "" {
		delete(t.peers, id)
	}
}

// ApplySnapshot вставляет или перезаписывает каждую запись снимка и
// возвращает число примененных записей
func (t *Table) ApplySnapshot(snapshot ws.GameState) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	applied := 0
	for id, state := range snapshot {
		if id == "" || (t.selfID != "" && id == t.selfID) {
			continue
		}
		t.peers[id] = clone(state)
		applied++
	}
	return applied
}

// Get возвращает копию записи участника
func (t *Table) Get(id string) (ws.PlayerState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, exists := t.peers[id]
	if !exists {
		return ws.PlayerState{}, false
	}
	return clone(state), true
}

// All возвращает копию всех записей
func (t *Table) All() map[string]ws.PlayerState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ws.PlayerState, len(t.peers))
	for id, state := range t.peers {
		result[id] = clone(state)
	}
	return result
}

// Len число известных участников
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// IDs отсортированный список id участников
func (t *Table) IDs() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.peers))
	for id := range t.peers {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func clone(state ws.PlayerState) ws.PlayerState {
	if state.Shooting != nil {
		shooting := *state.Shooting
		state.Shooting = &shooting
	}
	return state
}
