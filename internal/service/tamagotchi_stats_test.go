package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestApplyFeed(t *testing.T) {
	tests := []struct {
		name                                string
		hunger, happiness, health, nutrition int
		wantHunger, wantHappiness, wantHealth int
	}{
		{"onboarding apple", 50, 50, 100, 10, 40, 55, 100},
		{"hunger floors at zero", 0, 50, 80, 10, 0, 55, 85},
		{"happiness caps at hundred", 50, 98, 80, 10, 40, 100, 80},
		{"health regen below threshold", 35, 50, 80, 10, 25, 55, 85},
		{"no regen at threshold", 50, 50, 80, 20, 30, 60, 80},
		{"health caps at hundred", 20, 50, 98, 10, 10, 55, 100},
		{"odd nutrition halves down", 50, 50, 80, 9, 41, 54, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hunger, happiness, health := applyFeed(tt.hunger, tt.happiness, tt.health, tt.nutrition)
			assert.Equal(t, tt.wantHunger, hunger, "hunger")
			assert.Equal(t, tt.wantHappiness, happiness, "happiness")
			assert.Equal(t, tt.wantHealth, health, "health")
		})
	}
}

// TestApplyFeedBoundsProperty checks that feeding keeps every stat in
// [0,100] whatever the starting stats and nutrition are.
func TestApplyFeedBoundsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hunger := rapid.IntRange(0, 100).Draw(rt, "hunger")
		happiness := rapid.IntRange(0, 100).Draw(rt, "happiness")
		health := rapid.IntRange(0, 100).Draw(rt, "health")
		nutrition := rapid.IntRange(1, 100).Draw(rt, "nutrition")

		h, ha, he := applyFeed(hunger, happiness, health, nutrition)
		for name, v := range map[string]int{"hunger": h, "happiness": ha, "health": he} {
			if v < 0 || v > 100 {
				rt.Fatalf("%s out of range: %d", name, v)
			}
		}

		// Feeding never raises hunger and never lowers happiness or health
		if h > hunger {
			rt.Fatalf("hunger rose from %d to %d", hunger, h)
		}
		if ha < happiness {
			rt.Fatalf("happiness fell from %d to %d", happiness, ha)
		}
		if he < health {
			rt.Fatalf("health fell from %d to %d", health, he)
		}
	})
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, float64(0), progressPercent(decimal.Zero, decimal.NewFromInt(1000)))
	assert.Equal(t, float64(50), progressPercent(decimal.NewFromInt(500), decimal.NewFromInt(1000)))
	assert.Equal(t, float64(100), progressPercent(decimal.NewFromInt(1000), decimal.NewFromInt(1000)))
	assert.Equal(t, float64(100), progressPercent(decimal.NewFromInt(2000), decimal.NewFromInt(1000)))
}

func TestGoalBonusIsFlooredTenth(t *testing.T) {
	tests := []struct {
		target string
		bonus  string
	}{
		{"1000", "100"},
		{"999", "99"},
		{"15.5", "1"},
		{"9", "0"},
	}
	for _, tt := range tests {
		target := decimal.RequireFromString(tt.target)
		bonus := target.Mul(goalBonusRate).Floor()
		assert.Equal(t, tt.bonus, bonus.String(), "target %s", tt.target)
	}
}
