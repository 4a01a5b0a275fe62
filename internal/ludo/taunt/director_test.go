package taunt

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcess_SuggestionModeReturnsTopThreeDistinct(t *testing.T) {
	s := NewRoomState("room-1", ModeSuggestion)
	rng := rand.New(rand.NewSource(1))
	out := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-a", At: time.Now()}, "seat-b", "seat-c", rng)
	assert.LessOrEqual(t, len(out.Suggestions), 3)
	seen := map[string]bool{}
	for _, id := range out.Suggestions {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestProcess_AutoModeRespectsCooldown(t *testing.T) {
	s := NewRoomState("room-1", ModeAuto)
	rng := rand.New(rand.NewSource(1))
	now := time.Now()

	out1 := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-a", At: now}, "", "", rng)
	assert.NotEmpty(t, out1.AutoLineID)

	out2 := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-a", At: now.Add(1 * time.Second)}, "", "", rng)
	assert.Empty(t, out2.AutoLineID)

	out3 := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-a", At: now.Add(6 * time.Second)}, "", "", rng)
	assert.NotEmpty(t, out3.AutoLineID)
}

func TestProcess_AutoModeRespectsPerActorLimitPerMinute(t *testing.T) {
	s := NewRoomState("room-1", ModeAuto)
	rng := rand.New(rand.NewSource(1))
	now := time.Now()
	emitted := 0
	for i := 0; i < DefaultLimitPerMin+3; i++ {
		out := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-a", At: now.Add(time.Duration(i) * DefaultCooldown)}, "", "", rng)
		if out.AutoLineID != "" {
			emitted++
		}
	}
	assert.LessOrEqual(t, emitted, DefaultLimitPerMin)
}

func TestProcess_AutoModeRespectsRoomBurst(t *testing.T) {
	s := NewRoomState("room-1", ModeAuto)
	rng := rand.New(rand.NewSource(1))
	now := time.Now()

	out1 := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-a", At: now}, "", "", rng)
	out2 := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-b", At: now.Add(500 * time.Millisecond)}, "", "", rng)
	out3 := s.Process(EventInput{Type: EventCaptured, ActorSeatID: "seat-c", At: now.Add(900 * time.Millisecond)}, "", "", rng)

	assert.NotEmpty(t, out1.AutoLineID)
	assert.NotEmpty(t, out2.AutoLineID)
	assert.Empty(t, out3.AutoLineID)
}

func TestSelectTarget_LeaderTargetsChaser(t *testing.T) {
	target := selectTarget(EventInput{Type: EventRolledSix, ActorWasLeader: true}, "leader-seat", "chaser-seat")
	assert.Equal(t, "chaser-seat", target)
}

func TestSelectTarget_NonLeaderTargetsLeader(t *testing.T) {
	target := selectTarget(EventInput{Type: EventRolledSix, ActorWasLeader: false}, "leader-seat", "chaser-seat")
	assert.Equal(t, "leader-seat", target)
}

func TestIsRevengeKill_WithinWindow(t *testing.T) {
	s := NewRoomState("room-1", ModeSuggestion)
	start := time.Now()
	s.RecordCapture("seat-a", "seat-b", start)
	assert.True(t, s.IsRevengeKill("seat-b", "seat-a", start.Add(2*time.Minute)))
}

func TestIsRevengeKill_OutsideWindowExpires(t *testing.T) {
	s := NewRoomState("room-1", ModeSuggestion)
	start := time.Now()
	s.RecordCapture("seat-a", "seat-b", start)
	assert.False(t, s.IsRevengeKill("seat-b", "seat-a", start.Add(5*time.Minute)))
}

func TestRankLines_OnlyMatchesTrigger(t *testing.T) {
	s := NewRoomState("room-1", ModeSuggestion)
	candidates := rankLines(EventEnteredSafe, eventEmotions[EventEnteredSafe], s, "seat-a")
	for _, c := range candidates {
		assert.Contains(t, c.Triggers, EventEnteredSafe)
	}
	assert.NotEmpty(t, candidates)
}

func TestHybridMode_RestrictsAutoToSpecificTriggers(t *testing.T) {
	s := NewRoomState("room-1", ModeHybrid)
	rng := rand.New(rand.NewSource(1))
	out := s.Process(EventInput{Type: EventEnteredSafe, ActorSeatID: "seat-a", At: time.Now()}, "", "", rng)
	assert.Empty(t, out.AutoLineID)
	assert.NotEmpty(t, out.Suggestions)
}
