package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDistance(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.Zero(t, CalculateDistance(28.6139, 77.2090, 28.6139, 77.2090))
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		distance := CalculateDistance(0, 0, 0, 1)
		assert.InDelta(t, 111.19, distance, 0.1)
	})

	t.Run("symmetric", func(t *testing.T) {
		forward := CalculateDistance(28.6139, 77.2090, 19.0760, 72.8777)
		reverse := CalculateDistance(19.0760, 72.8777, 28.6139, 77.2090)
		assert.InDelta(t, forward, reverse, 1e-9)
	})

	t.Run("delhi to mumbai is roughly 1150km", func(t *testing.T) {
		distance := CalculateDistance(28.6139, 77.2090, 19.0760, 72.8777)
		assert.InDelta(t, 1150, distance, 20)
	})
}

func TestIsWithinRadius(t *testing.T) {
	assert.True(t, IsWithinRadius(0, 0, 0, 0.5, 60))
	assert.False(t, IsWithinRadius(0, 0, 0, 1, 60))
}

func TestDispatchETAMinutes(t *testing.T) {
	tests := []struct {
		name       string
		distanceKM float64
		want       int
	}{
		{"short hop clamps to the floor", 1.2, 5},
		{"exactly at the floor", 2.5, 5},
		{"ten kilometers", 10.0, 20},
		{"rounds to nearest minute", 3.7, 7},
		{"zero distance", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DispatchETAMinutes(tt.distanceKM))
		})
	}
}
