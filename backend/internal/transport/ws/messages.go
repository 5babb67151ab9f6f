package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	minHealth     = 0
	maxHealth     = 100
	defaultHealth = maxHealth // старые релеи не пересылают здоровье
)

var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// Форматы lastUpdate: JS toISOString и python datetime.isoformat без зоны
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Сырые структуры с указателями, чтобы отличать отсутствующие поля от нулевых
type rawVec3 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type rawRotation struct {
	Y *float64 `json:"y"`
}

type rawShooting struct {
	IsShooting *bool    `json:"isShooting"`
	Direction  *rawVec3 `json:"direction"`
	Timestamp  *float64 `json:"timestamp"`
}

type rawPlayerState struct {
	Version    *int         `json:"v"`
	Position   *rawVec3     `json:"position"`
	Rotation   *rawRotation `json:"rotation"`
	Face       *string      `json:"face"`
	Name       *string      `json:"name"`
	Health     *float64     `json:"health"`
	LastUpdate *string      `json:"lastUpdate"`
	Shooting   *rawShooting `json:"shooting"`
}

// EncodePlayerState сериализует исходящее состояние с тегом версии
func EncodePlayerState(state PlayerState) ([]byte, error) {
	state.Version = ProtocolVersion
	if state.Health < minHealth || state.Health > maxHealth {
		return nil, fmt.Errorf("%w: health %d out of range", ErrInvalidMessage, state.Health)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("error encoding player state: %w", err)
	}
	return data, nil
}

// DecodePlayerState разбирает и проверяет одно состояние игрока
func DecodePlayerState(data []byte) (PlayerState, error) {
	var raw rawPlayerState
	if err := json.Unmarshal(data, &raw); err != nil {
		return PlayerState{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return raw.validate()
}

// DecodeGameState разбирает снимок от релея. Любое нарушение схемы
// отбрасывает сообщение целиком.
func DecodeGameState(data []byte) (GameState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: snapshot must be a JSON object", ErrInvalidMessage)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	state := make(GameState, len(entries))
	for clientID, entry := range entries {
		if clientID == "" {
			return nil, fmt.Errorf("%w: empty client id", ErrInvalidMessage)
		}

		var raw rawPlayerState
		if err := json.Unmarshal(entry, &raw); err != nil {
			return nil, fmt.Errorf("%w: client %s: %v", ErrInvalidMessage, clientID, err)
		}

		player, err := raw.validate()
		if err != nil {
			return nil, fmt.Errorf("client %s: %w", clientID, err)
		}
		state[clientID] = player
	}

	return state, nil
}

func (r *rawPlayerState) validate() (PlayerState, error) {
	if r.Version != nil && *r.Version != ProtocolVersion {
		return PlayerState{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *r.Version)
	}

	position, err := r.Position.vec("position")
	if err != nil {
		return PlayerState{}, err
	}

	if r.Rotation == nil || r.Rotation.Y == nil || !finite(*r.Rotation.Y) {
		return PlayerState{}, fmt.Errorf("%w: rotation.y missing", ErrInvalidMessage)
	}

	state := PlayerState{
		Version:  ProtocolVersion,
		Position: position,
		Rotation: Rotation{Y: *r.Rotation.Y},
		Health:   defaultHealth,
	}

	if r.Face != nil {
		state.Face = *r.Face
	}
	if r.Name != nil {
		state.Name = *r.Name
	}

	if r.Health != nil {
		if !finite(*r.Health) {
			return PlayerState{}, fmt.Errorf("%w: health is not a number", ErrInvalidMessage)
		}
		state.Health = clampHealth(int(math.Round(*r.Health)))
	}

	if r.LastUpdate != nil {
		state.LastUpdate = parseTimestamp(*r.LastUpdate)
	}

	if r.Shooting != nil {
		if r.Shooting.IsShooting == nil {
			return PlayerState{}, fmt.Errorf("%w: shooting.isShooting missing", ErrInvalidMessage)
		}
		direction, err := r.Shooting.Direction.vec("shooting.direction")
		if err != nil {
			return PlayerState{}, err
		}
		shooting := &ShootingEvent{
			IsShooting: *r.Shooting.IsShooting,
			Direction:  direction,
		}
		if r.Shooting.Timestamp != nil {
			shooting.Timestamp = int64(*r.Shooting.Timestamp)
		}
		state.Shooting = shooting
	}

	return state, nil
}

func (v *rawVec3) vec(field string) (Vec3, error) {
	if v == nil || v.X == nil || v.Y == nil || v.Z == nil {
		return Vec3{}, fmt.Errorf("%w: %s missing", ErrInvalidMessage, field)
	}
	if !finite(*v.X) || !finite(*v.Y) || !finite(*v.Z) {
		return Vec3{}, fmt.Errorf("%w: %s is not finite", ErrInvalidMessage, field)
	}
	return Vec3{X: *v.X, Y: *v.Y, Z: *v.Z}, nil
}

func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func clampHealth(health int) int {
	if health < minHealth {
		return minHealth
	}
	if health > maxHealth {
		return maxHealth
	}
	return health
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
