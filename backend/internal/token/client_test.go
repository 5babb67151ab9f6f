package token

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", server.Client(), log.New(io.Discard, "", 0))
}

func TestClient_Join(t *testing.T) {
	var got joinRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/token" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Invalid request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message":"Token creation initiated","holder":{"id":"player_1","address":"0xabc"}}`)
	})

	resp, err := client.Join(context.Background(), "yuki", "")
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if got.PlayerName != "yuki" || got.PlayerAddress != "" {
		t.Errorf("Unexpected request payload: %+v", got)
	}
	if resp.Holder.ID != "player_1" || resp.Holder.Address != "0xabc" {
		t.Errorf("Unexpected holder: %+v", resp.Holder)
	}
}

func TestClient_JoinStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Failed to create token and holder"}`, http.StatusInternalServerError)
	})

	_, err := client.Join(context.Background(), "yuki", "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", statusErr.StatusCode)
	}
}

func TestClient_Disabled(t *testing.T) {
	client := NewClient("", nil, nil)
	if client.Enabled() {
		t.Error("Client without URL must be disabled")
	}
	if _, err := client.Join(context.Background(), "ana", ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
	if _, err := client.ListTokens(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestClient_WaitForToken(t *testing.T) {
	var polls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token/status" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		switch polls.Add(1) {
		case 1:
			io.WriteString(w, `[{"id":"1","name":"ana Token","symbol":"ANA","address":"0x1"}]`)
		case 2:
			http.Error(w, "temporary", http.StatusBadGateway)
		default:
			io.WriteString(w, `[{"id":"1","name":"ana Token","symbol":"ANA","address":"0x1"},{"id":"2","name":"yuki Token","symbol":"YUKI","address":"0x2"}]`)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	record, err := client.WaitForToken(ctx, "yuki", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForToken() error: %v", err)
	}
	if record.Symbol != "YUKI" || record.Address != "0x2" {
		t.Errorf("Unexpected record: %+v", record)
	}
	if n := polls.Load(); n != 3 {
		t.Errorf("Expected 3 polls, got %d", n)
	}
}

func TestClient_WaitForTokenContextCancel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.WaitForToken(ctx, "juan", 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
