package ws

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ProtocolVersion версия схемы сообщений клиент <-> релей
const ProtocolVersion = 1

// Vec3 трехмерный вектор в формате провода
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FromVec3 переводит вектор mathgl в формат провода
func FromVec3(v mgl64.Vec3) Vec3 {
	return Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// Vec возвращает вектор mathgl
func (v Vec3) Vec() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Rotation поворот аватара, передается только рыскание
type Rotation struct {
	Y float64 `json:"y"`
}

// ShootingEvent присутствует только в сообщении того тика, когда был выстрел
type ShootingEvent struct {
	IsShooting bool  `json:"isShooting"`
	Direction  Vec3  `json:"direction"`
	Timestamp  int64 `json:"timestamp"` // unix миллисекунды
}

// PlayerState состояние аватара, которое клиент отправляет каждый тик.
// Релей пересылает его остальным участникам в том же виде.
type PlayerState struct {
	Version    int            `json:"v"`
	Position   Vec3           `json:"position"`
	Rotation   Rotation       `json:"rotation"`
	Face       string         `json:"face,omitempty"`
	Name       string         `json:"name,omitempty"`
	Health     int            `json:"health"`
	LastUpdate time.Time      `json:"lastUpdate"`
	Shooting   *ShootingEvent `json:"shooting,omitempty"`
}

// GameState полный список участников, известный релею: id клиента -> состояние
type GameState map[string]PlayerState
