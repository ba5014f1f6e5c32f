package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pump-sentinel-sol/internal/sentinel/types"
)

func TestPolicy_CooldownSameCategory(t *testing.T) {
	p := NewPolicy(Config{CooldownSeconds: 900})
	t0 := time.Now()

	assert.True(t, p.Emit(types.CategoryActive, t0))
	assert.False(t, p.Emit(types.CategoryActive, t0.Add(10*time.Second)))
	assert.False(t, p.Emit(types.CategoryActive, t0.Add(899*time.Second)))
	assert.True(t, p.Emit(types.CategoryActive, t0.Add(900*time.Second)))
}

func TestPolicy_CategoryChangeBypassesCooldown(t *testing.T) {
	p := NewPolicy(Config{CooldownSeconds: 900})
	t0 := time.Now()

	assert.True(t, p.Emit(types.CategoryActive, t0))

	// different category right away: allowed, the switch itself is signal
	assert.True(t, p.Emit(types.CategoryPump, t0.Add(5*time.Second)))

	// switching back is also a category change
	assert.True(t, p.Emit(types.CategoryActive, t0.Add(10*time.Second)))

	// repeating the now-current category hits its cooldown again
	assert.False(t, p.Emit(types.CategoryActive, t0.Add(20*time.Second)))
}

func TestPolicy_FirstEmissionAlwaysAllowed(t *testing.T) {
	p := NewPolicy(Config{CooldownSeconds: 900})

	assert.True(t, p.ShouldEmit(types.CategoryHolderPattern, time.Now()))
}

func TestPolicy_ShouldEmitDoesNotRecord(t *testing.T) {
	p := NewPolicy(Config{CooldownSeconds: 900})
	t0 := time.Now()

	assert.True(t, p.ShouldEmit(types.CategoryActive, t0))
	assert.True(t, p.ShouldEmit(types.CategoryActive, t0))

	p.Record(types.CategoryActive, t0)
	assert.False(t, p.ShouldEmit(types.CategoryActive, t0.Add(time.Second)))
}

func TestPolicy_DefaultCooldown(t *testing.T) {
	p := NewPolicy(Config{})
	t0 := time.Now()

	assert.True(t, p.Emit(types.CategoryActive, t0))
	assert.False(t, p.Emit(types.CategoryActive, t0.Add(14*time.Minute)))
	assert.True(t, p.Emit(types.CategoryActive, t0.Add(15*time.Minute)))
}
