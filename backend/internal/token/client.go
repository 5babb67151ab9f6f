package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

var (
	ErrDisabled = errors.New("token service disabled")
	ErrNotFound = errors.New("token not found")
)

// StatusError ответ сервиса с кодом, отличным от 2xx
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Holder аккаунт владельца токена
type Holder struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// JoinResponse ответ POST /api/token; сам токен создается в фоне
type JoinResponse struct {
	Message string `json:"message"`
	Holder  Holder `json:"holder"`
}

// Record запись из списка токенов
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type joinRequest struct {
	PlayerName    string `json:"playerName"`
	PlayerAddress string `json:"playerAddress,omitempty"`
}

// Client клиент сервиса выдачи токенов игрокам
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient создает клиента; пустой baseURL отключает сервис
func NewClient(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Enabled задан ли адрес сервиса
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// TokenName имя токена, которое сервис дает игроку
func TokenName(playerName string) string {
	return playerName + " Token"
}

// Join запрашивает создание токена для игрока
func (c *Client) Join(ctx context.Context, playerName, playerAddress string) (*JoinResponse, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, err := json.Marshal(joinRequest{PlayerName: playerName, PlayerAddress: playerAddress})
	if err != nil {
		return nil, fmt.Errorf("encode join request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create join request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp JoinResponse
	if err := c.do(req, "join", &resp); err != nil {
		return nil, err
	}

	c.logger.Printf("[Token] Создание токена запущено для %s, holder %s", playerName, resp.Holder.ID)
	return &resp, nil
}

// ListTokens возвращает все токены сервиса
func (c *Client) ListTokens(ctx context.Context) ([]Record, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/token/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}

	var records []Record
	if err := c.do(req, "status", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FindToken ищет токен игрока в текущем списке
func (c *Client) FindToken(ctx context.Context, playerName string) (*Record, error) {
	records, err := c.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	name := TokenName(playerName)
	for i := range records {
		if records[i].Name == name {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// WaitForToken опрашивает список, пока не появится токен игрока или не закончится ctx.
// Ошибки отдельных опросов логируются и не прерывают ожидание.
func (c *Client) WaitForToken(ctx context.Context, playerName string, interval time.Duration) (*Record, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		record, err := c.FindToken(ctx, playerName)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, ErrNotFound) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Printf("[Token] Ошибка проверки статуса токена: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
