// Package rules is the pure Ludo rule engine: legal-move enumeration, move
// application, captures, win detection, turn rotation. No function here
// performs I/O or holds state between calls; every function is a plain
// transform over the arguments it is given.
package rules

import (
	"ludobackend/internal/domain"
	"ludobackend/internal/ludo/board"
)

// FindValidMoves returns the set of (tokenId, color) pairs legal for dice,
// across every color in controlled. controlled is [currentColor] in
// individual mode, or [currentColor, partner] in team mode.
func FindValidMoves(tokens map[domain.Color][]domain.Token, dice int, controlled []domain.Color) []domain.ValidMove {
	var moves []domain.ValidMove
	for _, color := range controlled {
		for _, tok := range tokens[color] {
			if tok.Status == domain.TokenHome {
				continue
			}
			if tok.InBase() {
				if dice == 6 {
					moves = append(moves, domain.ValidMove{TokenID: tok.ID, Color: color})
				}
				continue
			}

			stackSize := countControlledAt(tokens, controlled, tok.Position)
			isStack := stackSize >= 2 && tok.OnMainTrack() && !board.IsSafeIndex(tok.Position)
			effectiveDice := dice
			if isStack {
				if dice%2 != 0 || dice/2 < 1 {
					continue
				}
				effectiveDice = dice / 2
			}

			if tok.OnHomeRun() {
				offset := tok.Position - domain.MainTrackLen
				if offset+effectiveDice <= board.H {
					moves = append(moves, domain.ValidMove{TokenID: tok.ID, Color: color})
				}
				continue
			}

			canContinue, canEnterHome := legalOnMainTrack(tok, effectiveDice, tokens, controlled, isStack)
			if canContinue || canEnterHome {
				moves = append(moves, domain.ValidMove{TokenID: tok.ID, Color: color})
			}
		}
	}
	return moves
}

// countControlledAt counts tokens of any controlled color sitting at position.
func countControlledAt(tokens map[domain.Color][]domain.Token, controlled []domain.Color, position int) int {
	n := 0
	for _, c := range controlled {
		for _, t := range tokens[c] {
			if t.Position == position && (t.Status == domain.TokenActive || t.Status == domain.TokenSafe) {
				n++
			}
		}
	}
	return n
}

// distanceToArrow and completesLap implement the spec's home-entry timing
// math. The -2 offset in EntryIndexAdjusted is preserved bit-exact.
func distanceToArrow(color domain.Color, position int) int {
	adj := board.EntryIndexAdjusted(color)
	return ((adj-position)%domain.MainTrackLen + domain.MainTrackLen) % domain.MainTrackLen
}

const rotationThreshold = 50

func completesLap(steps, dist int) bool {
	return steps+dist >= rotationThreshold
}

// legalOnMainTrack decides whether a main-track token may continue along the
// track and/or turn into its home run for effectiveDice.
func legalOnMainTrack(tok domain.Token, effectiveDice int, tokens map[domain.Color][]domain.Token, controlled []domain.Color, isStack bool) (canContinue, canEnterHome bool) {
	dist := distanceToArrow(tok.Color, tok.Position)
	lapDone := completesLap(tok.Steps, dist)
	overshoot := effectiveDice - dist
	homeEntryPossible := lapDone && effectiveDice > dist && overshoot >= 1 && overshoot <= board.H+1

	if homeEntryPossible {
		canEnterHome = !pathBlockaded(tok.Color, tok.Position, dist, tokens, controlled, isStack)
		return false, canEnterHome
	}
	canContinue = !pathBlockaded(tok.Color, tok.Position, effectiveDice, tokens, controlled, isStack)
	return canContinue, false
}

// pathBlockaded checks the `steps` cells ahead of position for an enemy
// blockade (two-or-more same-color enemy tokens) on a non-safe cell. A stack
// of ≥2 controlled tokens may break through; a lone token may not.
func pathBlockaded(color domain.Color, position, steps int, tokens map[domain.Color][]domain.Token, controlled []domain.Color, isStack bool) bool {
	if isStack {
		return false
	}
	for s := 1; s <= steps; s++ {
		cell := (position + s) % domain.MainTrackLen
		if board.IsSafeIndex(cell) {
			continue
		}
		if hasEnemyBlockade(cell, tokens, controlled) {
			return true
		}
	}
	return false
}

func isControlled(color domain.Color, controlled []domain.Color) bool {
	for _, c := range controlled {
		if c == color {
			return true
		}
	}
	return false
}

// hasEnemyBlockade reports whether some non-controlled color has ≥2 active
// or safe tokens on cell.
func hasEnemyBlockade(cell int, tokens map[domain.Color][]domain.Token, controlled []domain.Color) bool {
	for color, toks := range tokens {
		if isControlled(color, controlled) {
			continue
		}
		n := 0
		for _, t := range toks {
			if t.Position == cell && (t.Status == domain.TokenActive || t.Status == domain.TokenSafe) {
				n++
			}
		}
		if n >= 2 {
			return true
		}
	}
	return false
}

// MoveResult is the outcome of applying one token's move.
type MoveResult struct {
	UpdatedToken domain.Token
	Captured     []domain.TokenRef
}

// ApplyMove mutates a single token's projected next state given effectiveDice
// (already halved by the caller for a forced-stack move) and reports
// captures. allTokens is the full board scan used for capture/blockade
// detection; alliedColors are the mover's own controlled colors.
func ApplyMove(tok domain.Token, effectiveDice int, tokens map[domain.Color][]domain.Token, alliedColors []domain.Color, isStackMove bool) MoveResult {
	if tok.InBase() {
		return MoveResult{UpdatedToken: domain.Token{
			ID:       tok.ID,
			Color:    tok.Color,
			Position: board.HomeStart(tok.Color),
			Status:   domain.TokenActive,
			Steps:    0,
		}}
	}

	if tok.OnHomeRun() {
		offset := tok.Position - domain.MainTrackLen
		newOffset := offset + effectiveDice
		next := tok
		next.Steps += effectiveDice
		if newOffset >= board.H {
			next.Position = domain.PositionHome
			next.Status = domain.TokenHome
		} else {
			next.Position = domain.MainTrackLen + newOffset
			next.Status = domain.TokenSafe
		}
		return MoveResult{UpdatedToken: next}
	}

	dist := distanceToArrow(tok.Color, tok.Position)
	lapDone := completesLap(tok.Steps, dist)
	overshoot := effectiveDice - dist
	homeEntryPossible := lapDone && effectiveDice > dist && overshoot >= 1 && overshoot <= board.H+1

	if homeEntryPossible {
		next := tok
		next.Steps += effectiveDice
		newOffset := overshoot - 1
		if newOffset >= board.H {
			next.Position = domain.PositionHome
			next.Status = domain.TokenHome
		} else {
			next.Position = domain.MainTrackLen + newOffset
			next.Status = domain.TokenSafe
		}
		return MoveResult{UpdatedToken: next}
	}

	newPos := (tok.Position + effectiveDice) % domain.MainTrackLen
	next := tok
	next.Position = newPos
	next.Steps += effectiveDice
	next.Status = domain.TokenActive
	var captured []domain.TokenRef
	if board.IsSafeIndex(newPos) {
		next.Status = domain.TokenSafe
	} else {
		captured = resolveCapture(newPos, tokens, alliedColors, isStackMove)
	}
	return MoveResult{UpdatedToken: next, Captured: captured}
}

// resolveCapture implements §4.2's capture table: a lone enemy token on the
// cell is captured. When two or more enemy tokens share the cell, a lone
// mover captures nothing, and a stack mover of ≥2 captures each same-color
// group of ≥2 wholesale; single tokens sharing the cell with tokens of
// another enemy color are not captured.
func resolveCapture(cell int, tokens map[domain.Color][]domain.Token, alliedColors []domain.Color, isStackMove bool) []domain.TokenRef {
	type hit struct {
		color domain.Color
		ids   []int
	}
	var hits []hit
	total := 0
	for color, toks := range tokens {
		if isControlled(color, alliedColors) {
			continue
		}
		var ids []int
		for _, t := range toks {
			if t.Position == cell && (t.Status == domain.TokenActive || t.Status == domain.TokenSafe) {
				ids = append(ids, t.ID)
			}
		}
		if len(ids) > 0 {
			hits = append(hits, hit{color: color, ids: ids})
			total += len(ids)
		}
	}
	if total == 0 {
		return nil
	}
	if total == 1 {
		h := hits[0]
		return []domain.TokenRef{{ID: h.ids[0], Color: h.color}}
	}
	// ≥2 enemy tokens present. A same-color blockade (len(ids) ≥ 2) is only
	// capturable by a stack mover (findValidMoves keeps a lone mover off it);
	// a lone mover landing on tokens of different enemy colors captures none.
	if !isStackMove {
		return nil
	}
	var captured []domain.TokenRef
	for _, h := range hits {
		if len(h.ids) >= 2 {
			for _, id := range h.ids {
				captured = append(captured, domain.TokenRef{ID: id, Color: h.color})
			}
		}
	}
	return captured
}

// ApplyCapture resets a captured token to base, per the steps=-1 sentinel
// kept asymmetric with the steps=0 used on base release.
func ApplyCapture(tok domain.Token) domain.Token {
	tok.Position = domain.PositionBase
	tok.Status = domain.TokenBase
	tok.Steps = domain.StepsCapturedSentinel
	return tok
}

// CheckWin reports whether all four tokens of color have reached home.
func CheckWin(tokens []domain.Token, color domain.Color) bool {
	n := 0
	for _, t := range tokens {
		if t.Color != color {
			continue
		}
		if t.Status == domain.TokenHome {
			n++
		}
	}
	return n == 4
}

// AdvanceTurn returns the next seat index in canonical order whose seat has
// not already finished, unless skipWinners is false (team mode keeps
// rotating through teammates of a finished color).
func AdvanceTurn(currentIndex int, seatIDs []string, winners []domain.Winner, skipWinners bool) int {
	n := len(seatIDs)
	if n == 0 {
		return currentIndex
	}
	hasWon := func(seatID string) bool {
		for _, w := range winners {
			if w.SeatID == seatID {
				return true
			}
		}
		return false
	}
	next := (currentIndex + 1) % n
	if !skipWinners {
		return next
	}
	for i := 0; i < n; i++ {
		if !hasWon(seatIDs[next]) {
			return next
		}
		next = (next + 1) % n
	}
	return currentIndex
}

// ForcedStackGroup returns the full set of controlled-color tokens sharing
// tok's cell (including tok itself) when that cell forces a joint move,
// or just {tok} otherwise.
func ForcedStackGroup(tok domain.Token, tokens map[domain.Color][]domain.Token, controlled []domain.Color) []domain.Token {
	if !tok.OnMainTrack() || board.IsSafeIndex(tok.Position) {
		return []domain.Token{tok}
	}
	var group []domain.Token
	for _, c := range controlled {
		for _, t := range tokens[c] {
			if t.Position == tok.Position && (t.Status == domain.TokenActive || t.Status == domain.TokenSafe) {
				group = append(group, t)
			}
		}
	}
	if len(group) < 2 {
		return []domain.Token{tok}
	}
	return group
}
