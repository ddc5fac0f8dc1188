package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnotsToKmh(t *testing.T) {
	assert.Equal(t, 185, KnotsToKmh(100))
	assert.Equal(t, 92, KnotsToKmh(50))
	assert.Equal(t, 0, KnotsToKmh(0))
}

func TestMsToKmh(t *testing.T) {
	assert.Equal(t, 36, MsToKmh(10))
	assert.Equal(t, 117, MsToKmh(32.5))
	assert.Equal(t, 0, MsToKmh(0))
}

func TestMphToKmh(t *testing.T) {
	assert.Equal(t, 160, MphToKmh(100))
	assert.Equal(t, 96, MphToKmh(60))
}

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"western hemisphere", -30, 330},
		{"date line west", -179.5, 180.5},
		{"eastern unchanged", 125.0, 125.0},
		{"zero unchanged", 0, 0},
		{"just west of meridian", -0.5, 359.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLongitude(tt.in)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
		})
	}
}

func TestSignedLongitude(t *testing.T) {
	assert.InDelta(t, -30.0, SignedLongitude(330), 1e-9)
	assert.InDelta(t, 125.0, SignedLongitude(125), 1e-9)
	assert.InDelta(t, -180.0, SignedLongitude(180), 1e-9)
	assert.InDelta(t, 0.0, SignedLongitude(0), 1e-9)
}
