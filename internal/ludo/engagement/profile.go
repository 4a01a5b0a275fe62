package engagement

// Profile bundles the numeric knobs the weighting pipeline reads. The system
// ships one canonical profile; tests may construct alternates.
type Profile struct {
	EntropyFloor        float64
	PerceptionAlphaMin   float64
	PerceptionAlphaMax   float64
	MaxFaceProbability   float64
	ForceAtTurnsSinceSix int
	AssistAtTurnsInBase  int
	LowRollThreshold     float64
	MaxMatchTime         float64 // seconds, for urgency calc
	RevengeWindowTurns   int
	RecentlyKilledTurns  int
	ForceBudgetPerMatch  int
	ForceMinGap          int
}

// DefaultProfile is the canonical tuning bundle.
var DefaultProfile = Profile{
	EntropyFloor:         0.05,
	PerceptionAlphaMin:   0.06,
	PerceptionAlphaMax:   0.14,
	MaxFaceProbability:   0.46,
	ForceAtTurnsSinceSix: 10,
	AssistAtTurnsInBase:  4,
	LowRollThreshold:     0.5,
	MaxMatchTime:         45 * 60,
	RevengeWindowTurns:   8,
	RecentlyKilledTurns:  3,
	ForceBudgetPerMatch:  6,
	ForceMinGap:          3,
}
