package avatar

import (
	"testing"
	"time"

	"ethglobaltaipei/backend/internal/config"
)

func testHealthConfig(damage int) config.HealthConfig {
	cfg := config.DefaultTuning().Health
	cfg.DamageAmount = damage
	return cfg
}

func TestHealth_DiesAfterExactHits(t *testing.T) {
	tests := []struct {
		damage int
		hits   int
	}{
		{damage: 20, hits: 5},
		{damage: 30, hits: 4},
		{damage: 34, hits: 3},
		{damage: 100, hits: 1},
		{damage: 150, hits: 1},
	}

	for _, tt := range tests {
		h := NewHealth(testHealthConfig(tt.damage))
		deaths := 0
		for i := 1; i <= tt.hits+3; i++ {
			if h.ApplyDamage(tt.damage, time.Duration(i)*time.Millisecond) {
				deaths++
				if i != tt.hits {
					t.Errorf("damage %d: expected death on hit %d, got hit %d", tt.damage, tt.hits, i)
				}
			}
			if h.Value() < 0 || h.Value() > 100 {
				t.Fatalf("damage %d: health out of bounds: %d", tt.damage, h.Value())
			}
		}
		if deaths != 1 {
			t.Errorf("damage %d: expected exactly 1 death, got %d", tt.damage, deaths)
		}
		if !h.IsDead() || h.Value() != 0 {
			t.Errorf("damage %d: expected Dead with 0 health, got %s/%d", tt.damage, h.State(), h.Value())
		}
	}
}

func TestHealth_DamageWhileDeadIsIgnored(t *testing.T) {
	h := NewHealth(testHealthConfig(100))
	if !h.ApplyDamage(100, time.Second) {
		t.Fatal("Expected lethal hit")
	}
	respawnAt := h.RespawnAt()

	if h.ApplyDamage(100, 2*time.Second) {
		t.Error("Damage while dead must not cause a second death")
	}
	if h.RespawnAt() != respawnAt {
		t.Errorf("Respawn must not be rescheduled: %v -> %v", respawnAt, h.RespawnAt())
	}
	if h.Deaths() != 1 {
		t.Errorf("Expected 1 death, got %d", h.Deaths())
	}
}

func TestHealth_RespawnAfterDelay(t *testing.T) {
	cfg := testHealthConfig(50)
	h := NewHealth(cfg)

	h.ApplyDamage(50, 0)
	h.ApplyDamage(50, time.Second)
	if h.DiedAt() != time.Second {
		t.Errorf("Expected death at 1s, got %v", h.DiedAt())
	}

	if h.Advance(time.Second + cfg.RespawnDelay - time.Millisecond) {
		t.Error("Respawn must not happen before the delay")
	}
	if !h.Advance(time.Second + cfg.RespawnDelay) {
		t.Fatal("Expected respawn exactly at the deadline")
	}
	if h.State() != Alive || h.Value() != cfg.MaxHealth {
		t.Errorf("Expected Alive with %d health, got %s/%d", cfg.MaxHealth, h.State(), h.Value())
	}
	if h.Advance(time.Hour) {
		t.Error("Advance while alive must be a no-op")
	}
	if h.Respawns() != 1 {
		t.Errorf("Expected 1 respawn, got %d", h.Respawns())
	}
}

func TestHealth_IgnoresNonPositiveDamage(t *testing.T) {
	h := NewHealth(testHealthConfig(20))
	h.ApplyDamage(0, 0)
	h.ApplyDamage(-20, 0)
	if h.Value() != 100 {
		t.Errorf("Expected health 100, got %d", h.Value())
	}
}
