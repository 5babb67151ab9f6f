package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestServer(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	return wsConn
}

func TestSafeWriter_WriteMessage_Concurrency(t *testing.T) {
	received := make(chan []string, 1)

	wsConn := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Читаем все сообщения, убеждаемся, что все дошли корректно
		var msgs []string
		for i := 0; i < 10; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msgs = append(msgs, string(msg))
		}
		received <- msgs
	})
	defer wsConn.Close()

	writer := NewSafeWriter(wsConn, time.Second)

	// Запускаем 10 горутин, каждая отправляет свое сообщение
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			time.Sleep(time.Duration(id) * time.Millisecond)

			data, err := EncodePlayerState(PlayerState{Name: fmt.Sprintf("player-%d", id), Health: 100})
			if err != nil {
				t.Errorf("Error encoding message: %v", err)
				return
			}

			if err := writer.WriteMessage(websocket.TextMessage, data); err != nil {
				t.Errorf("Error writing message: %v", err)
			}
		}(i)
	}
	wg.Wait()

	select {
	case msgs := <-received:
		if len(msgs) != 10 {
			t.Fatalf("Expected 10 messages, got %d", len(msgs))
		}
		uniq := make(map[string]struct{})
		for _, msg := range msgs {
			uniq[msg] = struct{}{}
		}
		if len(uniq) != 10 {
			t.Errorf("Expected 10 unique messages, got %d", len(uniq))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server to read messages")
	}
}

func TestSafeWriter_Close(t *testing.T) {
	closeCode := make(chan int, 1)

	wsConn := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, _, err = conn.ReadMessage()
		if closeErr, ok := err.(*websocket.CloseError); ok {
			closeCode <- closeErr.Code
			return
		}
		closeCode <- -1
	})

	writer := NewSafeWriter(wsConn, time.Second)
	if err := writer.Close(); err != nil {
		t.Errorf("Error closing connection: %v", err)
	}
	// Повторное закрытие возвращает тот же результат
	if err := writer.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}

	// Попытка записи в закрытое соединение должна вернуть ошибку
	if err := writer.WriteMessage(websocket.TextMessage, []byte(`"test"`)); err == nil {
		t.Error("Expected error when writing to closed connection, got nil")
	}

	select {
	case code := <-closeCode:
		if code != websocket.CloseNormalClosure {
			t.Errorf("Expected close code %d, got %d", websocket.CloseNormalClosure, code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for close frame")
	}
}
