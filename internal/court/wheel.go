package court

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/tphakala/reckless-court/internal/errors"
)

const (
	// DefaultMinTurns is the least number of full turns per spin
	DefaultMinTurns = 5
	// turnSpread is how many whole-turn counts a spin can draw from
	turnSpread = 5
	// DefaultSpinDuration is the animation length reported to clients
	DefaultSpinDuration = 4 * time.Second
)

// Rand is the randomness source of the wheel. Float64 returns a value in [0,1).
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// SpinResult is the outcome of one wheel spin
type SpinResult struct {
	Index      int     `json:"index"`
	Sentence   string  `json:"sentence"`
	Rotation   float64 `json:"rotation"` // degrees, for the client animation
	Turns      int     `json:"turns"`
	DurationMS int64   `json:"durationMs"`
}

// Wheel picks a sentence by simulated rotation. Every section spans
// 360/N degrees, so each sentence is equally likely.
type Wheel struct {
	rand     Rand
	minTurns int
	duration time.Duration
}

// NewWheel creates a wheel. A nil r uses math/rand/v2; minTurns <= 0 uses DefaultMinTurns.
func NewWheel(r Rand, minTurns int, duration time.Duration) *Wheel {
	if r == nil {
		r = globalRand{}
	}
	if minTurns <= 0 {
		minTurns = DefaultMinTurns
	}
	if duration <= 0 {
		duration = DefaultSpinDuration
	}
	return &Wheel{rand: r, minTurns: minTurns, duration: duration}
}

// Spin draws a sentence from sentences
func (w *Wheel) Spin(sentences []string) (SpinResult, error) {
	n := len(sentences)
	if n == 0 {
		return SpinResult{}, errors.StateError("the wheel has no sentences; add at least one first")
	}

	turns := w.minTurns + int(w.rand.Float64()*turnSpread)
	residual := w.rand.Float64() * 360
	rotation := float64(turns)*360 + residual

	normalized := math.Mod(math.Mod(rotation, 360)+360, 360)
	section := 360 / float64(n)
	index := min(int(math.Floor(normalized/section)), n-1)

	return SpinResult{
		Index:      index,
		Sentence:   sentences[index],
		Rotation:   rotation,
		Turns:      turns,
		DurationMS: w.duration.Milliseconds(),
	}, nil
}
