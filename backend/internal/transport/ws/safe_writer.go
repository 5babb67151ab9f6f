package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SafeWriter обеспечивает потокобезопасную запись в WebSocket соединение.
// gorilla/websocket допускает только одного писателя одновременно.
type SafeWriter struct {
	conn         *websocket.Conn
	mutex        sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

// NewSafeWriter создает новый экземпляр SafeWriter; writeTimeout 0 отключает дедлайн записи
func NewSafeWriter(conn *websocket.Conn, writeTimeout time.Duration) *SafeWriter {
	return &SafeWriter{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// WriteMessage потокобезопасно записывает сообщение в WebSocket соединение
func (w *SafeWriter) WriteMessage(messageType int, data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	return w.conn.WriteMessage(messageType, data)
}

// ReadMessage читает сообщение из WebSocket соединения (небезопасно для параллельного чтения)
func (w *SafeWriter) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

// Close отправляет close-фрейм и закрывает соединение; повторные вызовы безопасны
func (w *SafeWriter) Close() error {
	w.closeOnce.Do(func() {
		// WriteControl и Close можно вызывать параллельно с остальными методами
		deadline := time.Now().Add(time.Second)
		if w.writeTimeout > 0 {
			deadline = time.Now().Add(w.writeTimeout)
		}
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, message, deadline)

		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}
