package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ludobackend/internal/domain"
)

type fixedRNG struct {
	vals []float64
	i    int
}

func (f *fixedRNG) Float64() float64 {
	if len(f.vals) == 0 {
		return 0.5
	}
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return v
}

func baseTokens() map[domain.Color][]domain.Token {
	mk := func(c domain.Color) []domain.Token {
		toks := make([]domain.Token, 4)
		for i := range toks {
			toks[i] = domain.Token{ID: i, Color: c, Position: -1, Status: domain.TokenBase, Steps: 0}
		}
		return toks
	}
	return map[domain.Color][]domain.Token{
		domain.ColorRed:    mk(domain.ColorRed),
		domain.ColorYellow: mk(domain.ColorYellow),
	}
}

func TestRoll_NeverThrowsAndStaysInRange(t *testing.T) {
	req := RollRequest{
		Tokens:        baseTokens(),
		CurrentColor:  domain.ColorRed,
		Controlled:    []domain.Color{domain.ColorRed},
		Sides:         []Side{{ID: "red", Colors: []domain.Color{domain.ColorRed}}, {ID: "yellow", Colors: []domain.Color{domain.ColorYellow}}},
		CurrentSideID: "red",
		RNG:           &fixedRNG{vals: []float64{0.4}},
	}
	for i := 0; i < 50; i++ {
		res := Roll(req)
		assert.GreaterOrEqual(t, res.Face, 1)
		assert.LessOrEqual(t, res.Face, 6)
	}
}

func TestRoll_ParticipationGuaranteeForcesSix(t *testing.T) {
	req := RollRequest{
		Tokens:        baseTokens(),
		CurrentColor:  domain.ColorRed,
		Controlled:    []domain.Color{domain.ColorRed},
		Sides:         []Side{{ID: "red", Colors: []domain.Color{domain.ColorRed}}},
		CurrentSideID: "red",
		Momentum:      &PlayerMomentum{TurnsAllTokensInBase: 20, TurnsSinceSix: 0},
		RNG:           &fixedRNG{vals: []float64{0.1}},
	}
	res := Roll(req)
	assert.Equal(t, 6, res.Face)
	assert.True(t, res.Forced)
}

func TestNormalizeWithFloor_SumsToOne(t *testing.T) {
	w := [6]float64{1, 2, 3, 4, 5, 6}
	probs := normalizeWithFloor(w, 0.05)
	total := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.05-1e-9)
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestUniformFallback_InRange(t *testing.T) {
	rng := &fixedRNG{vals: []float64{0, 0.99, 0.5}}
	for i := 0; i < 3; i++ {
		f := UniformFallback(rng)
		assert.GreaterOrEqual(t, f, 1)
		assert.LessOrEqual(t, f, 6)
	}
}
