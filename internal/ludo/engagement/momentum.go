package engagement

import "time"

// PlayerMomentum is the persisted per-seat rolling history the weighting
// pipeline reads and the reported-outcome hook updates. JSON-serialized into
// the shared cache under engagement:{roomId}:player:{pid}:momentum.
type PlayerMomentum struct {
	RecentRolls          []int     `json:"recentRolls"`
	NoMoveStreak         int       `json:"noMoveStreak"`
	TurnsSinceSix        int       `json:"turnsSinceSix"`
	TurnsAllTokensInBase int       `json:"turnsAllTokensInBase"`
	LuckDelta            float64   `json:"luckDelta"`
	RevengeArmedTurns    int       `json:"revengeArmedTurns"`
	RevengeTargetColors  []string  `json:"revengeTargetColors"`
	RecentlyKilledTurns  int       `json:"recentlyKilledTurns"`
	PowerRollCharges     int       `json:"powerRollCharges"`
	SessionAssistScore   float64   `json:"sessionAssistScore"`
	ConsecutiveSixes     int       `json:"consecutiveSixes"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

const recentRollsCap = 10
const powerRollChargesCap = 3

// ReportOutcome folds one resolved roll into the momentum, per §4.3's
// reported-outcome hook.
func (m *PlayerMomentum) ReportOutcome(rolled int, hadValidMove, allInBase, wasForced bool, forgiveness float64) {
	m.RecentRolls = append(m.RecentRolls, rolled)
	if len(m.RecentRolls) > recentRollsCap {
		m.RecentRolls = m.RecentRolls[len(m.RecentRolls)-recentRollsCap:]
	}

	if !hadValidMove {
		m.NoMoveStreak++
	} else {
		m.NoMoveStreak = 0
	}

	if rolled == 6 {
		m.TurnsSinceSix = 0
		m.ConsecutiveSixes++
	} else {
		m.TurnsSinceSix++
		m.ConsecutiveSixes = 0
	}

	if allInBase {
		m.TurnsAllTokensInBase++
	} else {
		m.TurnsAllTokensInBase = 0
	}

	if forgiveness < 0.6 {
		forgiveness = 0.6
	}
	if forgiveness > 0.99 {
		forgiveness = 0.99
	}
	m.LuckDelta = m.LuckDelta*forgiveness + (float64(rolled) - 3.5)

	if m.RevengeArmedTurns > 0 {
		m.RevengeArmedTurns--
	}
	if m.RecentlyKilledTurns > 0 {
		m.RecentlyKilledTurns--
	}
	if m.PowerRollCharges > 0 && !wasForced {
		m.PowerRollCharges--
	}
	m.UpdatedAt = time.Now()
}

// ReportCapture folds one capture event into attacker and victim momentum.
func ReportCapture(attacker, victim *PlayerMomentum, attackerColor string, revengeWindowTurns, recentlyKilledTurns int) {
	attacker.PowerRollCharges++
	if attacker.PowerRollCharges > powerRollChargesCap {
		attacker.PowerRollCharges = powerRollChargesCap
	}
	if victim.RevengeArmedTurns < revengeWindowTurns {
		victim.RevengeArmedTurns = revengeWindowTurns
	}
	found := false
	for _, c := range victim.RevengeTargetColors {
		if c == attackerColor {
			found = true
			break
		}
	}
	if !found {
		victim.RevengeTargetColors = append(victim.RevengeTargetColors, attackerColor)
	}
	if victim.RecentlyKilledTurns < recentlyKilledTurns {
		victim.RecentlyKilledTurns = recentlyKilledTurns
	}
}

// LowRollPatternScore is the fraction of recent rolls that are ≤2.
func (m *PlayerMomentum) LowRollPatternScore() float64 {
	if len(m.RecentRolls) == 0 {
		return 0
	}
	n := 0
	for _, r := range m.RecentRolls {
		if r <= 2 {
			n++
		}
	}
	return float64(n) / float64(len(m.RecentRolls))
}

// StoryDirectorState is the per-room match-arc tracker.
type StoryDirectorState struct {
	Phase             string `json:"phase"`
	TotalRolls        int    `json:"totalRolls"`
	CaptureCount      int    `json:"captureCount"`
	LeaderChangeCount int    `json:"leaderChangeCount"`
	ComebackPulses    int    `json:"comebackPulses"`
	LastLeaderColor   string `json:"lastLeaderColor"`
}

// ForceState is the per-room forced-outcome budget tracker.
type ForceState struct {
	ForcedCount    int `json:"forcedCount"`
	LastForcedRoll int `json:"lastForcedRoll"`
	RollCounter    int `json:"rollCounter"`
}
