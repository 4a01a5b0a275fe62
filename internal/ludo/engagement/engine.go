// Package engagement implements the context-aware weighted dice generator:
// it preserves the appearance of a fair die while biasing outcomes toward
// pacing, comeback, and anti-frustration goals. The engine never throws;
// every public entry point falls back to a uniform cryptographic roll on any
// internal failure, per §4.3's explicit propagation policy.
package engagement

import (
	"crypto/rand"
	"math"
	"math/big"

	"ludobackend/internal/domain"
)

// RNG returns a uniform float64 in [0,1). Production uses CryptoRNG; tests
// inject a deterministic stub.
type RNG interface {
	Float64() float64
}

// CryptoRNG is the production RNG, backed by crypto/rand.
type CryptoRNG struct{}

func (CryptoRNG) Float64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0.5
	}
	return float64(n.Int64()) / float64(1<<53)
}

// UniformFallback rolls a fair die with the given RNG. Used whenever the
// weighted pipeline cannot run.
func UniformFallback(rng RNG) int {
	if rng == nil {
		rng = CryptoRNG{}
	}
	return 1 + int(rng.Float64()*6)
}

// RollRequest bundles every input the pipeline reads for one roll.
type RollRequest struct {
	Tokens        map[domain.Color][]domain.Token
	CurrentColor  domain.Color
	Controlled    []domain.Color
	Sides         []Side
	CurrentSideID string
	Momentum      *PlayerMomentum
	Director      *StoryDirectorState
	Force         *ForceState
	Profile       Profile
	RNG           RNG
	ElapsedSeconds float64
}

// RollResult is the sampled face plus bookkeeping the coordinator needs to
// feed back into momentum/force state.
type RollResult struct {
	Face   int
	Forced bool
}

// Roll runs the full pipeline. On any panic/invalid input it recovers and
// falls back to a uniform roll, per the engine's never-throw contract.
func Roll(req RollRequest) (result RollResult) {
	defer func() {
		if r := recover(); r != nil {
			result = RollResult{Face: UniformFallback(req.RNG)}
		}
	}()

	if req.Tokens == nil || len(req.Controlled) == 0 {
		return RollResult{Face: UniformFallback(req.RNG)}
	}
	if req.Momentum == nil {
		req.Momentum = &PlayerMomentum{}
	}
	if req.Director == nil {
		req.Director = &StoryDirectorState{Phase: "start"}
	}
	if req.Force == nil {
		req.Force = &ForceState{}
	}
	if req.RNG == nil {
		req.RNG = CryptoRNG{}
	}
	profile := req.Profile
	if profile.ForceAtTurnsSinceSix == 0 {
		profile = DefaultProfile
	}

	rc := buildRankContext(req.Tokens, req.Sides, req.CurrentSideID)
	faces := buildFaceContext(req.Tokens, req.Controlled, rc, req.Momentum.RevengeTargetColors)

	req.Force.RollCounter++

	allInBase := allTokensInBase(req.Tokens, req.Controlled)

	// Force short-circuits: progressive six pity and the participation
	// guarantee can skip weighting entirely, subject to the force limiter.
	if forced, ok := checkForcedSix(req.Momentum, req.Force, allInBase, profile); ok {
		return RollResult{Face: forced, Forced: true}
	}

	weights := [6]float64{1, 1, 1, 1, 1, 1}
	applyProgressiveSixPity(&weights, req.Momentum)
	applyParticipationGuarantee(&weights, req.Momentum, allInBase, profile)
	applyLuckDebtBalancing(&weights, req.Momentum)
	urgency := 0.0
	if profile.MaxMatchTime > 0 {
		urgency = clamp01(req.ElapsedSeconds / profile.MaxMatchTime)
	}
	applyTempo(&weights, faces, rc, urgency)
	applyTacticalRelevance(&weights, faces)
	applyKillLeaderPressure(&weights, faces, rc, req.Momentum)
	applyEscapePreservation(&weights, faces, rc)
	applyAntiSnowball(&weights, faces, rc)
	applyLastPlaceHope(&weights, faces, rc)
	applyStoryPhaseOverrides(&weights, faces, req.Director)
	applySpreadAwareness(&weights, faces, rc)
	applyAssistBoosts(&weights, req.Momentum, rc)
	applyAntiFrustration(&weights, faces, req.Momentum, profile)
	applyDramaAndClutch(&weights, faces, req.Momentum, rc)
	applyUrgencyFloor(&weights, urgency)
	applyEntropyNoise(&weights, req.RNG)

	probs := normalizeWithFloor(weights, profile.EntropyFloor)
	probs = perceptionMask(probs, req.RNG, profile)
	probs = minimumSixGuard(probs, allInBase, baseFraction(req.Tokens, req.Controlled), req.Momentum, rc, urgency, profile)

	face := sample(probs, req.RNG)
	face = applyTripleSixSuppression(face, probs, req.Momentum, req.RNG)

	return RollResult{Face: face}
}

func allTokensInBase(tokens map[domain.Color][]domain.Token, controlled []domain.Color) bool {
	for _, c := range controlled {
		for _, t := range tokens[c] {
			if !t.InBase() {
				return false
			}
		}
	}
	return true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// checkForcedSix implements the progressive six pity and participation
// guarantee force conditions, gated by the per-match force limiter.
func checkForcedSix(m *PlayerMomentum, force *ForceState, allInBase bool, profile Profile) (int, bool) {
	forceEligible := force.ForcedCount < profile.ForceBudgetPerMatch &&
		(force.RollCounter-force.LastForcedRoll) >= profile.ForceMinGap
	emergencyBaseLock := allInBase && m.TurnsAllTokensInBase >= profile.AssistAtTurnsInBase+2

	shouldForce := m.TurnsSinceSix >= profile.ForceAtTurnsSinceSix ||
		(allInBase && m.TurnsAllTokensInBase >= profile.AssistAtTurnsInBase+3)

	if shouldForce && (forceEligible || emergencyBaseLock) {
		force.ForcedCount++
		force.LastForcedRoll = force.RollCounter
		return 6, true
	}
	return 0, false
}

func applyProgressiveSixPity(w *[6]float64, m *PlayerMomentum) {
	if m.TurnsSinceSix <= 0 {
		return
	}
	boost := 1.0 + math.Min(float64(m.TurnsSinceSix)*0.08, 1.2)
	w[5] *= boost
}

func applyParticipationGuarantee(w *[6]float64, m *PlayerMomentum, allInBase bool, profile Profile) {
	if !allInBase {
		return
	}
	if m.TurnsAllTokensInBase >= profile.AssistAtTurnsInBase {
		w[5] *= 1.0 + float64(m.TurnsAllTokensInBase-profile.AssistAtTurnsInBase+1)*0.25
	}
}

func applyLuckDebtBalancing(w *[6]float64, m *PlayerMomentum) {
	switch {
	case m.LuckDelta < -1.5:
		for i := 0; i < 6; i++ {
			w[i] *= 1.12
		}
	case m.LuckDelta > 1.5:
		w[4] *= 0.85
		w[5] *= 0.82
	}
}

func applyTempo(w *[6]float64, faces [7]faceContext, rc rankContext, urgency float64) {
	phaseFactor := 1.0
	switch rc.matchPhase {
	case PhaseLate:
		phaseFactor = 1.3
	case PhaseMid:
		phaseFactor = 1.12
	}
	urgencyFactor := 1.0 + urgency*0.25
	for f := 1; f <= 6; f++ {
		if faces[f].playable {
			w[f-1] *= phaseFactor * urgencyFactor
		}
		if f >= 5 {
			w[f-1] *= phaseFactor
		}
	}
}

func applyTacticalRelevance(w *[6]float64, faces [7]faceContext) {
	for f := 1; f <= 6; f++ {
		if faces[f].playable {
			w[f-1] *= 1.3
		} else {
			w[f-1] *= 0.74
		}
		if faces[f].kill {
			w[f-1] *= 1.24
		}
		if faces[f].finish {
			w[f-1] *= 1.20
		}
	}
}

func applyKillLeaderPressure(w *[6]float64, faces [7]faceContext, rc rankContext, m *PlayerMomentum) {
	for f := 1; f <= 6; f++ {
		if faces[f].leaderKill && rc.behindGap > 0 {
			w[f-1] *= 1.35
		}
		if faces[f].leaderPressure {
			w[f-1] *= 1.15
		}
		if faces[f].revengeTargetKill && m.RevengeArmedTurns > 0 {
			w[f-1] *= 1.30
		}
	}
}

func applyEscapePreservation(w *[6]float64, faces [7]faceContext, rc rankContext) {
	if rc.behindGap <= 0 {
		return
	}
	for f := 1; f <= 6; f++ {
		if faces[f].escape {
			w[f-1] *= 1.24
		}
	}
}

func applyAntiSnowball(w *[6]float64, faces [7]faceContext, rc rankContext) {
	if !rc.isLeader {
		return
	}
	w[4] *= 0.9
	w[5] *= 0.88
	for f := 1; f <= 6; f++ {
		if faces[f].escape {
			w[f-1] *= 0.94
		}
		if faces[f].leaderPressure {
			w[f-1] *= 1.1
		}
	}
}

func applyLastPlaceHope(w *[6]float64, faces [7]faceContext, rc rankContext) {
	if !rc.isLast {
		return
	}
	for f := 1; f <= 6; f++ {
		if faces[f].playable {
			w[f-1] *= 1.15
		}
		if f <= 2 {
			w[f-1] *= 0.92
		}
	}
}

func applyStoryPhaseOverrides(w *[6]float64, faces [7]faceContext, d *StoryDirectorState) {
	switch d.Phase {
	case "fights":
		for f := 1; f <= 6; f++ {
			if faces[f].kill {
				w[f-1] *= 1.1
			}
		}
	case "finish":
		for f := 1; f <= 6; f++ {
			if faces[f].finish {
				w[f-1] *= 1.15
			}
		}
	case "hope", "chaos":
		for f := 1; f <= 6; f++ {
			if faces[f].playable {
				w[f-1] *= 1.08
			}
		}
	}
}

func applySpreadAwareness(w *[6]float64, faces [7]faceContext, rc rankContext) {
	anyKill := false
	for f := 1; f <= 6; f++ {
		if faces[f].kill {
			anyKill = true
		}
	}
	if rc.spreadHigh && anyKill {
		for f := 1; f <= 6; f++ {
			if faces[f].kill {
				w[f-1] *= 1.2
			}
		}
		return
	}
	for f := 1; f <= 6; f++ {
		if faces[f].playable {
			w[f-1] *= 1.08
		}
	}
}

// applyAssistBoosts folds the rubber band, dead-turn rescue, emotion
// recovery, and session-pressure assist bundle into one bounded multiplier,
// since each is a small ceiling-capped nudge triggered by overlapping
// conditions (behind, stuck, or long session).
func applyAssistBoosts(w *[6]float64, m *PlayerMomentum, rc rankContext) {
	boost := 1.0
	if rc.behindRatio > 0.3 {
		boost += 0.1
	}
	if m.NoMoveStreak >= 2 {
		boost += 0.08
	}
	if m.SessionAssistScore > 0 {
		boost += math.Min(m.SessionAssistScore*0.02, 0.1)
	}
	if boost > 1.25 {
		boost = 1.25
	}
	if boost == 1.0 {
		return
	}
	for i := 0; i < 6; i++ {
		w[i] *= boost
	}
}

func applyAntiFrustration(w *[6]float64, faces [7]faceContext, m *PlayerMomentum, profile Profile) {
	if m.LowRollPatternScore() >= profile.LowRollThreshold {
		w[0] *= 0.85
		w[1] *= 0.85
		w[3] *= 1.18
		w[4] *= 1.18
		w[5] *= 1.18
	}
	n := len(m.RecentRolls)
	if n == 0 {
		return
	}
	last := m.RecentRolls[n-1]
	repeat := 1
	for i := n - 2; i >= 0 && m.RecentRolls[i] == last; i-- {
		repeat++
	}
	if repeat >= 2 {
		w[last-1] *= 0.7
	}
	band := func(v int) int {
		switch {
		case v <= 2:
			return 0
		case v <= 4:
			return 1
		default:
			return 2
		}
	}
	if n >= 3 {
		b := band(last)
		bandRepeat := 1
		for i := n - 2; i >= 0 && band(m.RecentRolls[i]) == b; i-- {
			bandRepeat++
		}
		if bandRepeat >= 3 {
			for f := 1; f <= 6; f++ {
				if band(f) == b {
					w[f-1] *= 0.75
				}
			}
		}
	}
}

func applyDramaAndClutch(w *[6]float64, faces [7]faceContext, m *PlayerMomentum, rc rankContext) {
	if m.RevengeArmedTurns > 0 {
		for f := 1; f <= 6; f++ {
			if faces[f].kill {
				w[f-1] *= 1.2
			}
		}
	}
	if rc.closeChase || rc.anyNearWin {
		w[0] *= 1.06
		w[5] *= 1.06
	}
}

func applyUrgencyFloor(w *[6]float64, urgency float64) {
	if urgency < 0.7 {
		return
	}
	t := (urgency - 0.7) / 0.3
	w[0] *= 1 - 0.3*t
	w[1] *= 1 - 0.2*t
	w[4] *= 1 + 0.2*t
	w[5] *= 1 + 0.3*t
}

func applyEntropyNoise(w *[6]float64, rng RNG) {
	for i := 0; i < 6; i++ {
		jitter := 0.97 + rng.Float64()*0.06
		w[i] *= jitter
	}
}

func normalizeWithFloor(w [6]float64, floor float64) [6]float64 {
	var probs [6]float64
	total := 0.0
	for i := 0; i < 6; i++ {
		if w[i] < 0 {
			w[i] = 0
		}
		total += w[i]
	}
	if total <= 0 {
		for i := range probs {
			probs[i] = 1.0 / 6
		}
		return probs
	}
	for i := 0; i < 6; i++ {
		probs[i] = w[i] / total
	}
	// Lift faces below the floor to it and take the shortfall from the other
	// faces in proportion to how far each sits above the floor, so every face
	// ends at or above the floor and the total stays 1.
	short, spare := 0.0, 0.0
	for _, p := range probs {
		if p < floor {
			short += floor - p
		} else {
			spare += p - floor
		}
	}
	for i := 0; i < 6; i++ {
		if probs[i] < floor {
			probs[i] = floor
		} else if spare > 0 {
			probs[i] -= short * (probs[i] - floor) / spare
		}
	}
	return renormalize(probs)
}

func renormalize(probs [6]float64) [6]float64 {
	total := 0.0
	for _, p := range probs {
		total += p
	}
	if total <= 0 {
		for i := range probs {
			probs[i] = 1.0 / 6
		}
		return probs
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

func perceptionMask(probs [6]float64, rng RNG, profile Profile) [6]float64 {
	alpha := profile.PerceptionAlphaMin + rng.Float64()*(profile.PerceptionAlphaMax-profile.PerceptionAlphaMin)
	for i := range probs {
		probs[i] = probs[i]*(1-alpha) + (1.0/6)*alpha
	}
	cap := profile.MaxFaceProbability
	excess := 0.0
	for i := range probs {
		if probs[i] > cap {
			excess += probs[i] - cap
			probs[i] = cap
		}
	}
	if excess > 0 {
		share := excess / 6
		for i := range probs {
			if probs[i] < cap {
				probs[i] += share
			}
		}
	}
	for i := range probs {
		probs[i] *= 0.995 + rng.Float64()*0.01
	}
	return renormalize(probs)
}

func minimumSixGuard(probs [6]float64, allInBase bool, baseFrac float64, m *PlayerMomentum, rc rankContext, urgency float64, profile Profile) [6]float64 {
	floor := 0.10
	switch {
	case allInBase:
		floor = 0.34
	case baseFrac >= 0.75:
		floor = 0.24
	case m.NoMoveStreak >= 2:
		floor = 0.20
	case urgency >= 0.9:
		floor = 0.16
	}
	if rc.isLeader && rc.selfNearWin {
		floor *= 0.6
	}
	if probs[5] >= floor {
		return probs
	}
	deficit := floor - probs[5]
	probs[5] = floor
	totalOthers := 0.0
	for i := 0; i < 5; i++ {
		totalOthers += probs[i]
	}
	if totalOthers <= 0 {
		return renormalize(probs)
	}
	for i := 0; i < 5; i++ {
		probs[i] -= deficit * (probs[i] / totalOthers)
		if probs[i] < 0 {
			probs[i] = 0
		}
	}
	return renormalize(probs)
}

func baseFraction(tokens map[domain.Color][]domain.Token, controlled []domain.Color) float64 {
	total, inBase := 0, 0
	for _, c := range controlled {
		for _, t := range tokens[c] {
			total++
			if t.InBase() {
				inBase++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(inBase) / float64(total)
}

func sample(probs [6]float64, rng RNG) int {
	r := rng.Float64()
	cum := 0.0
	for i := 0; i < 6; i++ {
		cum += probs[i]
		if r < cum {
			return i + 1
		}
	}
	return 6
}

func applyTripleSixSuppression(face int, probs [6]float64, m *PlayerMomentum, rng RNG) int {
	if face != 6 {
		return face
	}
	switch m.ConsecutiveSixes {
	case 2:
		return resampleWithoutSix(probs, rng)
	case 1:
		if rng.Float64() < 0.85 {
			return resampleWithoutSix(probs, rng)
		}
	}
	return face
}

func resampleWithoutSix(probs [6]float64, rng RNG) int {
	var p5 [5]float64
	total := 0.0
	for i := 0; i < 5; i++ {
		p5[i] = probs[i]
		total += p5[i]
	}
	if total <= 0 {
		return 1 + int(rng.Float64()*5)
	}
	r := rng.Float64() * total
	cum := 0.0
	for i := 0; i < 5; i++ {
		cum += p5[i]
		if r < cum {
			return i + 1
		}
	}
	return 5
}
