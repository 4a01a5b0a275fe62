package taunt

// EventType is one trigger emitted from roll/move resolution.
type EventType string

const (
	EventRolledSix      EventType = "rolled_six"
	EventReleasedToken  EventType = "released_token"
	EventCaptured       EventType = "captured"
	EventGotCaptured    EventType = "got_captured"
	EventEnteredSafe    EventType = "entered_safe"
	EventNearWin        EventType = "near_win"
	EventLeadChange     EventType = "lead_change"
	EventLastPlace      EventType = "last_place"
	EventRevengeKill    EventType = "revenge_kill"
	EventClutchRoll     EventType = "clutch_roll"
)

// Emotion is a candidate reaction category a line is tagged with.
type Emotion string

const (
	EmotionDominance     Emotion = "dominance"
	EmotionRevenge       Emotion = "revenge"
	EmotionMockEscape    Emotion = "mock_escape"
	EmotionAppreciation  Emotion = "appreciation"
	EmotionPanicReaction Emotion = "panic_reaction"
	EmotionPressure      Emotion = "pressure"
	EmotionComeback      Emotion = "comeback"
	EmotionClutch        Emotion = "clutch"
)

// eventEmotions is the fixed event→emotion table from §4.4 step 1.
var eventEmotions = map[EventType][]Emotion{
	EventRolledSix:     {EmotionDominance, EmotionAppreciation},
	EventReleasedToken: {EmotionAppreciation},
	EventCaptured:      {EmotionDominance, EmotionRevenge},
	EventGotCaptured:   {EmotionPanicReaction, EmotionPressure},
	EventEnteredSafe:   {EmotionMockEscape},
	EventNearWin:       {EmotionClutch, EmotionDominance},
	EventLeadChange:    {EmotionComeback, EmotionPressure},
	EventLastPlace:     {EmotionPanicReaction, EmotionComeback},
	EventRevengeKill:   {EmotionRevenge, EmotionDominance},
	EventClutchRoll:    {EmotionClutch},
}

// Line is one catalog entry: a message tagged with the triggers and
// emotions it serves, plus a base weight.
type Line struct {
	ID       string
	Text     string
	Triggers []EventType
	Emotions []Emotion
	Weight   float64
}

// Catalog is the static line set. Organic and small on purpose: a handful
// of lines per trigger is plenty for a quick-message picker.
var Catalog = []Line{
	{ID: "dom-1", Text: "Too easy.", Triggers: []EventType{EventCaptured, EventRolledSix}, Emotions: []Emotion{EmotionDominance}, Weight: 1.0},
	{ID: "dom-2", Text: "Right where I wanted you.", Triggers: []EventType{EventCaptured}, Emotions: []Emotion{EmotionDominance}, Weight: 0.9},
	{ID: "rev-1", Text: "That's for earlier.", Triggers: []EventType{EventRevengeKill}, Emotions: []Emotion{EmotionRevenge}, Weight: 1.2},
	{ID: "rev-2", Text: "Debt collected.", Triggers: []EventType{EventRevengeKill, EventCaptured}, Emotions: []Emotion{EmotionRevenge}, Weight: 1.0},
	{ID: "esc-1", Text: "Not today.", Triggers: []EventType{EventEnteredSafe}, Emotions: []Emotion{EmotionMockEscape}, Weight: 0.8},
	{ID: "esc-2", Text: "So close.", Triggers: []EventType{EventEnteredSafe}, Emotions: []Emotion{EmotionMockEscape}, Weight: 0.7},
	{ID: "app-1", Text: "Finally rolling.", Triggers: []EventType{EventReleasedToken, EventRolledSix}, Emotions: []Emotion{EmotionAppreciation}, Weight: 0.7},
	{ID: "panic-1", Text: "Ouch.", Triggers: []EventType{EventGotCaptured}, Emotions: []Emotion{EmotionPanicReaction}, Weight: 1.0},
	{ID: "panic-2", Text: "Not fair.", Triggers: []EventType{EventGotCaptured, EventLastPlace}, Emotions: []Emotion{EmotionPanicReaction}, Weight: 0.8},
	{ID: "press-1", Text: "Watch your back.", Triggers: []EventType{EventLeadChange, EventGotCaptured}, Emotions: []Emotion{EmotionPressure}, Weight: 0.9},
	{ID: "come-1", Text: "Here comes the comeback.", Triggers: []EventType{EventLeadChange, EventLastPlace}, Emotions: []Emotion{EmotionComeback}, Weight: 1.1},
	{ID: "clutch-1", Text: "Clutch.", Triggers: []EventType{EventClutchRoll, EventNearWin}, Emotions: []Emotion{EmotionClutch}, Weight: 1.2},
	{ID: "clutch-2", Text: "No pressure.", Triggers: []EventType{EventNearWin}, Emotions: []Emotion{EmotionClutch}, Weight: 0.9},
}
