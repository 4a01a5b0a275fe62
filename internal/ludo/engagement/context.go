package engagement

import (
	"math"
	"sort"

	"ludobackend/internal/domain"
	"ludobackend/internal/ludo/board"
	"ludobackend/internal/ludo/rules"
)

// Side is a set of colors acted as one unit for ranking purposes: one color
// in individual mode, two partnered colors in team mode.
type Side struct {
	ID     string
	Colors []domain.Color
}

// MatchPhase classifies the match arc by completion fraction.
type MatchPhase string

const (
	PhaseEarly MatchPhase = "early"
	PhaseMid   MatchPhase = "mid"
	PhaseLate  MatchPhase = "late"
)

// faceContext is the per-face classification computed in pipeline step 1.
type faceContext struct {
	playable          bool
	kill              bool
	leaderKill        bool
	leaderPressure    bool
	escape            bool
	finish            bool
	revengeTargetKill bool
}

// rankContext is the per-roll ranking snapshot computed in pipeline step 2.
type rankContext struct {
	progress       map[string]float64
	currentSideID  string
	leaderSideID   string
	lastSideID     string
	isLeader       bool
	isLast         bool
	leadGap        float64
	behindGap      float64
	behindRatio    float64
	matchPhase     MatchPhase
	spreadHigh     bool
	anyNearWin     bool
	selfNearWin    bool
	closeChase     bool
	totalSeats     int
}

const maxSideProgress = 4 * 95.0

func progressScore(tokens map[domain.Color][]domain.Token, colors []domain.Color) float64 {
	score := 0.0
	for _, c := range colors {
		for _, t := range tokens[c] {
			switch {
			case t.Status == domain.TokenHome:
				score += 95
			case t.OnHomeRun():
				score += 30 + 14 + float64(t.Steps)
			case t.OnMainTrack() && !t.InBase():
				score += 30 + float64(t.Steps)
			}
		}
	}
	return score
}

func cellsToFinish(tokens map[domain.Color][]domain.Token, colors []domain.Color) float64 {
	best := math.MaxFloat64
	for _, c := range colors {
		for _, t := range tokens[c] {
			if t.Status == domain.TokenHome {
				continue
			}
			remaining := float64(domain.PositionHome) - float64(t.Steps)
			if remaining < best {
				best = remaining
			}
		}
	}
	if best == math.MaxFloat64 {
		return 0
	}
	return best
}

func buildRankContext(tokens map[domain.Color][]domain.Token, sides []Side, currentSideID string) rankContext {
	rc := rankContext{progress: map[string]float64{}, totalSeats: len(sides)}
	bestProgress, worstProgress := -1.0, math.MaxFloat64
	for _, s := range sides {
		p := progressScore(tokens, s.Colors)
		rc.progress[s.ID] = p
		if p > bestProgress {
			bestProgress = p
			rc.leaderSideID = s.ID
		}
		if p < worstProgress {
			worstProgress = p
			rc.lastSideID = s.ID
		}
	}
	rc.currentSideID = currentSideID
	rc.isLeader = rc.leaderSideID == currentSideID
	rc.isLast = rc.lastSideID == currentSideID
	rc.leadGap = bestProgress - rc.progress[currentSideID]
	rc.behindGap = rc.leadGap
	if bestProgress > 0 {
		rc.behindRatio = rc.behindGap / bestProgress
	}
	rc.closeChase = rc.behindGap <= 14 && rc.behindGap >= 0

	finished, totalTokens := 0, 0
	var activeSteps []float64
	for _, toks := range tokens {
		for _, t := range toks {
			totalTokens++
			if t.Status == domain.TokenHome {
				finished++
			}
			if !t.InBase() && t.Status != domain.TokenHome {
				activeSteps = append(activeSteps, float64(t.Steps))
			}
		}
	}
	frac := 0.0
	if totalTokens > 0 {
		frac = float64(finished) / float64(totalTokens)
	}
	switch {
	case frac < 0.12:
		rc.matchPhase = PhaseEarly
	case frac < 0.55:
		rc.matchPhase = PhaseMid
	default:
		rc.matchPhase = PhaseLate
	}
	rc.spreadHigh = stdev(activeSteps) > 15

	for _, s := range sides {
		if cellsToFinish(tokens, s.Colors) <= 10 {
			rc.anyNearWin = true
			if s.ID == currentSideID {
				rc.selfNearWin = true
			}
		}
	}
	return rc
}

// ProgressScore is the exported form of progressScore, used by the room
// coordinator to rank sides for taunt targeting outside a roll.
func ProgressScore(tokens map[domain.Color][]domain.Token, colors []domain.Color) float64 {
	return progressScore(tokens, colors)
}

// RankSides orders sides by progress and returns the leader, second-place
// ("chasing") and last-place side IDs. chaserID is empty when fewer than two
// sides are given.
func RankSides(tokens map[domain.Color][]domain.Token, sides []Side) (leaderID, chaserID, lastID string) {
	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(sides))
	for _, s := range sides {
		ranked = append(ranked, scored{id: s.ID, score: progressScore(tokens, s.Colors)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 0 {
		leaderID = ranked[0].id
		lastID = ranked[len(ranked)-1].id
	}
	if len(ranked) > 1 {
		chaserID = ranked[1].id
	}
	return
}

func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

// buildFaceContext runs findValidMoves for every face 1..6 and classifies
// each face per §4.3 step 1.
func buildFaceContext(tokens map[domain.Color][]domain.Token, controlled []domain.Color, rc rankContext, revengeColors []string) [7]faceContext {
	var ctx [7]faceContext
	for face := 1; face <= 6; face++ {
		moves := rules.FindValidMoves(tokens, face, controlled)
		fc := faceContext{}
		if len(moves) > 0 {
			fc.playable = true
		}
		for _, mv := range moves {
			tok := findToken(tokens, mv)
			if tok == nil {
				continue
			}
			sim := rules.ApplyMove(*tok, face, tokens, controlled, false)
			if sim.UpdatedToken.Status == domain.TokenHome {
				fc.finish = true
			}
			for _, cap := range sim.Captured {
				fc.kill = true
				if isRevengeTarget(string(cap.Color), revengeColors) {
					fc.revengeTargetKill = true
				}
				if isLeaderColor(cap.Color, tokens, rc) {
					fc.leaderKill = true
				}
			}
			if isThreatenedEscape(*tok, sim.UpdatedToken, tokens, controlled) {
				fc.escape = true
			}
			if isLeaderPressure(sim.UpdatedToken, tokens, controlled, rc) {
				fc.leaderPressure = true
			}
		}
		ctx[face] = fc
	}
	return ctx
}

func findToken(tokens map[domain.Color][]domain.Token, ref domain.ValidMove) *domain.Token {
	for _, t := range tokens[ref.Color] {
		if t.ID == ref.TokenID {
			cp := t
			return &cp
		}
	}
	return nil
}

func isRevengeTarget(color string, revengeColors []string) bool {
	for _, c := range revengeColors {
		if c == color {
			return true
		}
	}
	return false
}

// isLeaderColor treats the leading side's colors as "leader colors" for
// targeting purposes.
func isLeaderColor(color domain.Color, tokens map[domain.Color][]domain.Token, rc rankContext) bool {
	return rc.leaderSideID != "" && rc.progress[rc.leaderSideID] == progressScore(tokens, []domain.Color{color})
}

func isThreatenedEscape(before, after domain.Token, tokens map[domain.Color][]domain.Token, controlled []domain.Color) bool {
	wasThreatened := before.OnMainTrack() && !before.InBase() && !board.IsSafeIndex(before.Position) && nearbyEnemy(before.Position, tokens, controlled)
	nowSafe := after.Status == domain.TokenSafe || after.OnHomeRun() || after.Status == domain.TokenHome || !nearbyEnemy(after.Position, tokens, controlled)
	return wasThreatened && nowSafe
}

func nearbyEnemy(position int, tokens map[domain.Color][]domain.Token, controlled []domain.Color) bool {
	for color, toks := range tokens {
		if contains(controlled, color) {
			continue
		}
		for _, t := range toks {
			if t.InBase() || t.Status == domain.TokenHome {
				continue
			}
			d := ((position - t.Position) % domain.MainTrackLen + domain.MainTrackLen) % domain.MainTrackLen
			if d >= 1 && d <= 6 {
				return true
			}
		}
	}
	return false
}

func isLeaderPressure(after domain.Token, tokens map[domain.Color][]domain.Token, controlled []domain.Color, rc rankContext) bool {
	if !after.OnMainTrack() {
		return false
	}
	for color, toks := range tokens {
		if contains(controlled, color) || !isLeaderColor(color, tokens, rc) {
			continue
		}
		for _, t := range toks {
			if t.InBase() || t.Status == domain.TokenHome {
				continue
			}
			d := ((t.Position - after.Position) % domain.MainTrackLen + domain.MainTrackLen) % domain.MainTrackLen
			if d >= 1 && d <= 6 && !board.IsSafeIndex(t.Position) {
				return true
			}
		}
	}
	return false
}

func contains(colors []domain.Color, c domain.Color) bool {
	for _, cc := range colors {
		if cc == c {
			return true
		}
	}
	return false
}
