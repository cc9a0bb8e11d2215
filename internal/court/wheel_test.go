package court

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/reckless-court/internal/errors"
)

// seqRand replays fixed values
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func TestWheelRejectsEmptyList(t *testing.T) {
	w := NewWheel(&seqRand{vals: []float64{0.5}}, 0, 0)

	_, err := w.Spin(nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestWheelSpinArithmetic(t *testing.T) {
	tests := []struct {
		name      string
		turns     float64
		residual  float64
		n         int
		wantIndex int
		wantTurns int
	}{
		{"first section", 0, 0, 4, 0, 5},
		{"max turns", 0.9999, 0.1, 4, 0, 9},
		{"second of two", 0.5, 0.5, 2, 1, 7},
		{"last section edge", 0.2, 0.999999, 3, 2, 6},
		{"single candidate", 0.7, 0.42, 1, 0, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWheel(&seqRand{vals: []float64{tt.turns, tt.residual}}, DefaultMinTurns, 0)
			items := make([]string, tt.n)
			for i := range items {
				items[i] = string(rune('A' + i))
			}

			res, err := w.Spin(items)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIndex, res.Index)
			assert.Equal(t, items[tt.wantIndex], res.Sentence)
			assert.Equal(t, tt.wantTurns, res.Turns)
			assert.GreaterOrEqual(t, res.Turns, 5)
			assert.LessOrEqual(t, res.Turns, 9)
			assert.InDelta(t, float64(tt.wantTurns)*360+tt.residual*360, res.Rotation, 1e-9)
			assert.Equal(t, DefaultSpinDuration.Milliseconds(), res.DurationMS)
		})
	}
}

func TestWheelFairness(t *testing.T) {
	const draws = 10000
	items := []string{"A", "B", "C", "D", "E"}
	w := NewWheel(rand.New(rand.NewPCG(1, 2)), 0, 0)

	counts := make([]int, len(items))
	for range draws {
		res, err := w.Spin(items)
		require.NoError(t, err)
		counts[res.Index]++
	}

	expected := 1.0 / float64(len(items))
	for i, c := range counts {
		freq := float64(c) / draws
		assert.LessOrEqual(t, math.Abs(freq-expected), 0.02, "candidate %d drawn with frequency %.3f", i, freq)
	}
}
