package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// testRelay повторяет контракт релея: назначает id соединению, хранит
// последнее состояние и отвечает отправителю снимком остальных участников
type testRelay struct {
	server *httptest.Server

	mu      sync.Mutex
	nextID  int
	clients map[string]*SafeWriter
	states  map[string]PlayerState
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()

	r := &testRelay{
		clients: make(map[string]*SafeWriter),
		states:  make(map[string]PlayerState),
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.server.Close)
	return r
}

func (r *testRelay) URL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *testRelay) handle(w http.ResponseWriter, req *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	writer := NewSafeWriter(conn, time.Second)

	r.mu.Lock()
	r.nextID++
	clientID := fmt.Sprintf("client-%d", r.nextID)
	r.clients[clientID] = writer
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.clients, clientID)
		delete(r.states, clientID)
		r.mu.Unlock()
		writer.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		state, err := DecodePlayerState(data)
		if err != nil {
			continue
		}

		r.mu.Lock()
		r.states[clientID] = state
		others := make(GameState)
		for id, s := range r.states {
			if id != clientID {
				others[id] = s
			}
		}
		r.mu.Unlock()

		if len(others) > 0 {
			if data, err := json.Marshal(others); err == nil {
				writer.WriteMessage(websocket.TextMessage, data)
			}
		}
	}
}

func (r *testRelay) clientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *testRelay) stateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// broadcastRaw отправляет произвольные байты всем подключенным клиентам
func (r *testRelay) broadcastRaw(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, writer := range r.clients {
		writer.WriteMessage(websocket.TextMessage, data)
	}
}

// closeAll обрывает все соединения со стороны сервера
func (r *testRelay) closeAll() {
	r.mu.Lock()
	writers := make([]*SafeWriter, 0, len(r.clients))
	for _, writer := range r.clients {
		writers = append(writers, writer)
	}
	r.mu.Unlock()

	for _, writer := range writers {
		writer.Close()
	}
}

// waitFor опрашивает условие до таймаута
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
