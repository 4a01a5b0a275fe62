// Package taunt implements the event-driven social reaction layer: event to
// emotion mapping, target selection, line ranking, and a suggestion/auto
// dispatch policy with rate limiting and revenge memory.
package taunt

import (
	"math/rand"
	"sort"
	"time"
)

// EventInput is one TauntEventInput emitted from roll/move resolution.
type EventInput struct {
	Type            EventType
	ActorSeatID     string
	ActorWasLast    bool
	ActorWasLeader  bool
	RevengeActive   bool
	TargetWasLeader bool
	At              time.Time
}

// CaptureRecord is one (killer, victim, ts) memory entry used to detect
// revenge kills within the 4-minute window.
type CaptureRecord struct {
	Killer string
	Victim string
	At     time.Time
}

const revengeWindow = 4 * time.Minute

// ActorState is the per-actor cooldown/limit bookkeeping.
type ActorState struct {
	LastLineID    string
	LastEmitAt    time.Time
	EmitTimestamps []time.Time
}

// RoomState is the per-room social state, serialized into the shared cache
// under taunt:{roomId}:state.
type RoomState struct {
	RoomID          string
	Mode            Mode
	Actors          map[string]*ActorState
	RecentLineIDs   []string
	Captures        []CaptureRecord
	RoomAutoEmits   []time.Time
}

type Mode string

const (
	ModeSuggestion Mode = "suggestion"
	ModeHybrid     Mode = "hybrid"
	ModeAuto       Mode = "auto"
)

const (
	DefaultCooldown     = 5 * time.Second
	DefaultLimitPerMin  = 6
	DefaultAutoBurst    = 2
	autoBurstWindow     = 3 * time.Second
	recentLineMemory    = 8
)

func NewRoomState(roomID string, mode Mode) *RoomState {
	return &RoomState{RoomID: roomID, Mode: mode, Actors: map[string]*ActorState{}}
}

func (s *RoomState) actor(id string) *ActorState {
	a, ok := s.Actors[id]
	if !ok {
		a = &ActorState{}
		s.Actors[id] = a
	}
	return a
}

// Outcome is what the coordinator actually does with this batch of events.
type Outcome struct {
	Suggestions []string // line IDs, top-3 distinct, suggestion/hybrid mode
	AutoLineID  string   // non-empty if an auto message should be emitted now
	TargetSeatID string
}

// Process runs one event through steps 1-4 of §4.4 and returns the dispatch
// decision. leaderSeatID/chasingSeatID resolve step 2's target selection;
// the caller (Room Coordinator) knows current standings.
func (s *RoomState) Process(evt EventInput, leaderSeatID, chasingSeatID string, rng *rand.Rand) Outcome {
	emotions := eventEmotions[evt.Type]
	target := selectTarget(evt, leaderSeatID, chasingSeatID)

	candidates := rankLines(evt.Type, emotions, s, evt.ActorSeatID)
	if len(candidates) == 0 {
		return Outcome{TargetSeatID: target}
	}

	out := Outcome{TargetSeatID: target}
	actor := s.actor(evt.ActorSeatID)

	switch s.Mode {
	case ModeSuggestion:
		out.Suggestions = pickTop3(candidates, rng)
	case ModeAuto:
		if id, ok := s.tryAutoEmit(evt.ActorSeatID, actor, candidates[0].ID, evt.At); ok {
			out.AutoLineID = id
		}
	case ModeHybrid:
		out.Suggestions = pickTop3(candidates, rng)
		if isRestrictedAutoTrigger(evt.Type) {
			if id, ok := s.tryAutoEmit(evt.ActorSeatID, actor, candidates[0].ID, evt.At); ok {
				out.AutoLineID = id
			}
		}
	}
	return out
}

func isRestrictedAutoTrigger(t EventType) bool {
	switch t {
	case EventCaptured, EventRevengeKill, EventRolledSix:
		return true
	default:
		return false
	}
}

func selectTarget(evt EventInput, leaderSeatID, chasingSeatID string) string {
	switch evt.Type {
	case EventCaptured, EventGotCaptured, EventRevengeKill:
		return "" // caller supplies the concrete victim/attacker seat directly
	}
	if evt.ActorWasLeader {
		return chasingSeatID
	}
	return leaderSeatID
}

type scoredLine struct {
	Line
	score float64
}

func rankLines(trigger EventType, emotions []Emotion, s *RoomState, actorID string) []scoredLine {
	var out []scoredLine
	actor := s.actor(actorID)
	for _, line := range Catalog {
		triggerHit := containsEventType(line.Triggers, trigger)
		if !triggerHit {
			continue
		}
		score := line.Weight
		score += 0.5 * float64(emotionIntersection(line.Emotions, emotions))
		if line.ID == actor.LastLineID {
			score *= 0.5
		}
		if recentlyUsed(s.RecentLineIDs, line.ID) {
			score *= 0.7
		}
		out = append(out, scoredLine{Line: line, score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func containsEventType(ts []EventType, t EventType) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

func emotionIntersection(a, b []Emotion) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
			}
		}
	}
	return n
}

func recentlyUsed(recent []string, id string) bool {
	for _, r := range recent {
		if r == id {
			return true
		}
	}
	return false
}

func pickTop3(candidates []scoredLine, rng *rand.Rand) []string {
	pool := candidates
	if len(pool) > 6 {
		pool = pool[:6]
	}
	total := 0.0
	for _, c := range pool {
		total += c.score
	}
	if total <= 0 {
		var ids []string
		for i := 0; i < len(pool) && i < 3; i++ {
			ids = append(ids, pool[i].ID)
		}
		return ids
	}
	chosen := map[string]bool{}
	var ids []string
	for len(ids) < 3 && len(chosen) < len(pool) {
		r := rng.Float64() * total
		cum := 0.0
		for _, c := range pool {
			if chosen[c.ID] {
				continue
			}
			cum += c.score
			if r < cum {
				chosen[c.ID] = true
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

// tryAutoEmit enforces per-actor cooldown, per-actor per-minute limit, and
// per-room burst limit before allowing an auto-dispatch.
func (s *RoomState) tryAutoEmit(actorID string, actor *ActorState, lineID string, now time.Time) (string, bool) {
	if !actor.LastEmitAt.IsZero() && now.Sub(actor.LastEmitAt) < DefaultCooldown {
		return "", false
	}
	actor.EmitTimestamps = pruneOlderThan(actor.EmitTimestamps, now, time.Minute)
	if len(actor.EmitTimestamps) >= DefaultLimitPerMin {
		return "", false
	}
	s.RoomAutoEmits = pruneOlderThan(s.RoomAutoEmits, now, autoBurstWindow)
	if len(s.RoomAutoEmits) >= DefaultAutoBurst {
		return "", false
	}

	actor.LastEmitAt = now
	actor.LastLineID = lineID
	actor.EmitTimestamps = append(actor.EmitTimestamps, now)
	s.RoomAutoEmits = append(s.RoomAutoEmits, now)
	s.RecentLineIDs = append(s.RecentLineIDs, lineID)
	if len(s.RecentLineIDs) > recentLineMemory {
		s.RecentLineIDs = s.RecentLineIDs[len(s.RecentLineIDs)-recentLineMemory:]
	}
	return lineID, true
}

func pruneOlderThan(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	out := ts[:0:0]
	for _, t := range ts {
		if now.Sub(t) < window {
			out = append(out, t)
		}
	}
	return out
}

// RecordCapture stores a (killer, victim, ts) memory entry.
func (s *RoomState) RecordCapture(killer, victim string, at time.Time) {
	s.Captures = append(s.Captures, CaptureRecord{Killer: killer, Victim: victim, At: at})
}

// IsRevengeKill reports whether a capture by victimOfOriginal against
// killerOfOriginal within the revenge window turns this capture into
// revenge_kill.
func (s *RoomState) IsRevengeKill(newKiller, newVictim string, at time.Time) bool {
	for i := len(s.Captures) - 1; i >= 0; i-- {
		c := s.Captures[i]
		if at.Sub(c.At) > revengeWindow {
			break
		}
		if c.Killer == newVictim && c.Victim == newKiller {
			return true
		}
	}
	return false
}
