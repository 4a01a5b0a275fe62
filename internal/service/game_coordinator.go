package service

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand"
	"time"

	"ludobackend/internal/apierror"
	"ludobackend/internal/domain"
	"ludobackend/internal/gamecache"
	"ludobackend/internal/ludo/board"
	"ludobackend/internal/ludo/engagement"
	"ludobackend/internal/ludo/rules"
	"ludobackend/internal/ludo/taunt"
)

const moveGracePeriod = 20 * time.Second

// momentumForgiveness is the ρ decay applied to luckDelta on every reported
// roll (§4.3's reported-outcome hook); fixed rather than tuned per-profile.
const momentumForgiveness = 0.85

// StartGame transitions a waiting room with at least two seats, all ready, into play: deals
// tokens, picks a random starting seat, and primes the cache.
func (rc *RoomCoordinator) StartGame(ctx context.Context, userID uint, roomIDStr string) (*domain.Room, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}

	v, err := rc.cache.RunExclusive(ctx, roomIDStr, rc.roomLoader(roomID), func(ctx context.Context, e *gamecache.Entry) (interface{}, error) {
		room := e.Room
		if room.Status != domain.RoomWaiting {
			return nil, apierror.New(apierror.KindConflict, "room is not waiting for players")
		}
		hostID, _ := domain.ParseID(room.HostSeatID)
		hostIsCaller := false
		for _, s := range e.Seats {
			if s.ID == hostID && s.UserID == userID {
				hostIsCaller = true
			}
		}
		if !hostIsCaller {
			return nil, apierror.ErrNotHost
		}
		if len(e.Seats) < 2 {
			return nil, apierror.New(apierror.KindValidation, "at least 2 seats are required to start")
		}
		for _, s := range e.Seats {
			if !s.Ready {
				return nil, apierror.New(apierror.KindConflict, "all seats must be ready")
			}
		}

		colors := board.ColorOrder(room.Settings.MaxPlayers)
		tokens := make(map[domain.Color][]domain.Token, len(colors))
		for _, c := range colors {
			toks := make([]domain.Token, 4)
			for i := 0; i < 4; i++ {
				toks[i] = domain.Token{ID: i, Color: c, Position: domain.PositionBase, Status: domain.TokenBase}
			}
			tokens[c] = toks
		}

		idx, err := secureRandIndex(len(e.Seats))
		if err != nil {
			return nil, fmt.Errorf("pick starting seat: %w", err)
		}
		room.CurrentPlayerIndex = idx

		gb := &domain.GameBoard{Tokens: tokens, CurrentPlayerID: e.Seats[idx].PublicID()}
		gb.AppendLog("Game started")
		room.GameBoard = gb
		room.Status = domain.RoomInProgress
		e.Dirty = true

		if room.Settings.Mode == domain.ModeTeam {
			teams := buildTeamSnapshots(room.ID, e.Seats, room.Settings.TeamNames)
			for _, team := range teams {
				if err := rc.teamRepo.Save(ctx, &team); err != nil {
					return nil, fmt.Errorf("save team snapshot: %w", err)
				}
			}
			e.Teams = teams
		}
		rc.mirrorRoomState(ctx, e, roomIDStr, map[string]interface{}{"type": "game_start", "startingSeatId": gb.CurrentPlayerID})
		return room, nil
	})
	if err != nil {
		return nil, err
	}
	room := v.(*domain.Room)
	rc.recordEvent(ctx, roomID, domain.EventGameStart, &userID, nil, room.GameBoard.Revision, nil)
	return room, nil
}

func secureRandIndex(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	v, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func controlledColors(seat domain.Seat, maxPlayers int, mode domain.RoomMode) []domain.Color {
	if mode != domain.ModeTeam {
		return []domain.Color{seat.Color}
	}
	return []domain.Color{seat.Color, board.PartnerColor(seat.Color, maxPlayers)}
}

func (rc *RoomCoordinator) resolveCurrentSeat(room *domain.Room, seats []domain.Seat) (*domain.Seat, error) {
	if len(seats) == 0 {
		return nil, apierror.ErrSeatNotFound
	}
	if room.GameBoard != nil && room.GameBoard.CurrentPlayerID != "" {
		for i := range seats {
			if seats[i].PublicID() == room.GameBoard.CurrentPlayerID {
				return &seats[i], nil
			}
		}
	}
	idx := room.CurrentPlayerIndex
	if idx < 0 {
		idx = 0
	}
	if idx >= len(seats) {
		idx = len(seats) - 1
	}
	return &seats[idx], nil
}

func seatIDsOf(seats []domain.Seat) []string {
	ids := make([]string, len(seats))
	for i, s := range seats {
		ids[i] = s.PublicID()
	}
	return ids
}

func allTokensInBase(tokens map[domain.Color][]domain.Token, colors []domain.Color) bool {
	for _, c := range colors {
		for _, t := range tokens[c] {
			if !t.InBase() {
				return false
			}
		}
	}
	return true
}

// buildSides groups seats into progress-ranking units: one per seat in
// individual mode, one per team pair in team mode.
func buildSides(room *domain.Room, seats []domain.Seat) []engagement.Side {
	if room.Settings.Mode != domain.ModeTeam {
		sides := make([]engagement.Side, len(seats))
		for i, s := range seats {
			sides[i] = engagement.Side{ID: s.PublicID(), Colors: []domain.Color{s.Color}}
		}
		return sides
	}
	byTeam := map[int][]domain.Color{}
	order := []int{}
	for _, s := range seats {
		if s.TeamIndex == nil {
			continue
		}
		if _, ok := byTeam[*s.TeamIndex]; !ok {
			order = append(order, *s.TeamIndex)
		}
		byTeam[*s.TeamIndex] = append(byTeam[*s.TeamIndex], s.Color)
	}
	sides := make([]engagement.Side, 0, len(order))
	for _, idx := range order {
		sides = append(sides, engagement.Side{ID: fmt.Sprintf("team:%d", idx), Colors: byTeam[idx]})
	}
	return sides
}

func sideIDFor(seat domain.Seat, room *domain.Room) string {
	if room.Settings.Mode == domain.ModeTeam && seat.TeamIndex != nil {
		return fmt.Sprintf("team:%d", *seat.TeamIndex)
	}
	return seat.PublicID()
}

// representativeSeat resolves a side ID (a seat's own ID in individual mode,
// a "team:N" ID in team mode) down to one concrete seat ID for taunt
// targeting, which always addresses an individual seat.
func representativeSeat(sideID string, seats []domain.Seat, mode domain.RoomMode) string {
	if mode != domain.ModeTeam {
		return sideID
	}
	for _, s := range seats {
		if s.TeamIndex != nil && fmt.Sprintf("team:%d", *s.TeamIndex) == sideID {
			return s.PublicID()
		}
	}
	return ""
}

func remainingSeatCount(seats []domain.Seat, winners []domain.Winner) int {
	n := 0
	for _, s := range seats {
		finished := false
		for _, w := range winners {
			if w.SeatID == s.PublicID() {
				finished = true
				break
			}
		}
		if !finished {
			n++
		}
	}
	return n
}

// RollDice resolves one dice request for the current seat.
func (rc *RoomCoordinator) RollDice(ctx context.Context, userID uint, roomIDStr string) (*RollOutcome, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}

	v, err := rc.cache.RunExclusive(ctx, roomIDStr, rc.roomLoader(roomID), func(ctx context.Context, e *gamecache.Entry) (interface{}, error) {
		room := e.Room
		gb := room.GameBoard
		if gb == nil || room.Status != domain.RoomInProgress {
			return nil, apierror.New(apierror.KindConflict, "game is not in progress")
		}
		seat, err := rc.resolveCurrentSeat(room, e.Seats)
		if err != nil {
			return nil, err
		}
		if seat.UserID != userID {
			return nil, apierror.ErrNotYourTurn
		}
		if gb.DiceValue != nil {
			return nil, apierror.ErrAlreadyRolled
		}
		if room.Settings.Mode == domain.ModeIndividual && gb.HasWinner(seat.PublicID()) {
			return nil, apierror.ErrWinnerCannotRoll
		}

		controlled := controlledColors(*seat, room.Settings.MaxPlayers, room.Settings.Mode)

		var face int
		var forced bool
		if rc.cfg.EngagementEnabled {
			if e.Director == nil {
				e.Director = &engagement.StoryDirectorState{Phase: "start"}
			}
			if e.Force == nil {
				e.Force = &engagement.ForceState{}
			}
			req := engagement.RollRequest{
				Tokens:         gb.Tokens,
				CurrentColor:   seat.Color,
				Controlled:     controlled,
				Sides:          buildSides(room, e.Seats),
				CurrentSideID:  sideIDFor(*seat, room),
				Momentum:       e.SeatMomentum(seat.PublicID()),
				Director:       e.Director,
				Force:          e.Force,
				Profile:        engagement.DefaultProfile,
				RNG:            engagement.CryptoRNG{},
				ElapsedSeconds: float64(e.Director.TotalRolls) * 15,
			}
			result := engagement.Roll(req)
			face, forced = result.Face, result.Forced
			e.Director.TotalRolls++
		} else {
			face = engagement.UniformFallback(engagement.CryptoRNG{})
		}

		now := time.Now()
		gb.DiceValue = &face
		gb.LastRollAt = &now
		validMoves := rules.FindValidMoves(gb.Tokens, face, controlled)
		gb.ValidMoves = validMoves

		advancedNoMove := false
		if len(validMoves) == 0 {
			gb.AppendLog(fmt.Sprintf("%s rolled %d, no valid move", seat.Color, face))
			gb.DiceValue = nil
			gb.ValidMoves = nil
			gb.LastRollAt = nil
			seatIDs := seatIDsOf(e.Seats)
			room.CurrentPlayerIndex = rules.AdvanceTurn(room.CurrentPlayerIndex, seatIDs, gb.Winners, room.Settings.Mode == domain.ModeIndividual)
			gb.CurrentPlayerID = seatIDs[room.CurrentPlayerIndex]
			advancedNoMove = true
		}

		if rc.cfg.EngagementEnabled {
			allInBase := allTokensInBase(gb.Tokens, controlled)
			e.SeatMomentum(seat.PublicID()).ReportOutcome(face, len(validMoves) > 0, allInBase, forced, momentumForgiveness)
		}

		var tauntEvents []TauntEventOut
		if rc.cfg.TauntEnabled {
			tauntEvents = rc.emitRollTaunts(e, room, *seat, face, len(validMoves) > 0, now)
		}

		gb.Revision++
		e.Dirty = true
		rc.mirrorRoomState(ctx, e, roomIDStr, map[string]interface{}{"type": "dice_roll", "seatId": seat.PublicID(), "face": face})
		rc.mirrorEngagementState(ctx, e, roomIDStr, seat.PublicID())

		patch := DicePatch{
			Revision:           gb.Revision,
			CurrentPlayerIndex: room.CurrentPlayerIndex,
			CurrentPlayerID:    gb.CurrentPlayerID,
			DiceValue:          gb.DiceValue,
			ValidMoves:         validMovesOut(gb.ValidMoves),
			LastRollAt:         gb.LastRollAt,
		}
		return &RollOutcome{Dice: face, Patch: patch, TauntEvents: tauntEvents, AdvancedNoMove: advancedNoMove}, nil
	})
	if err != nil {
		return nil, err
	}
	outcome := v.(*RollOutcome)
	rc.recordEvent(ctx, roomID, domain.EventDiceRoll, &userID, nil, outcome.Patch.Revision, outcome)
	return outcome, nil
}

func validMovesOut(moves []domain.ValidMove) []ValidMoveOut {
	out := make([]ValidMoveOut, len(moves))
	for i, m := range moves {
		out[i] = ValidMoveOut{TokenID: m.TokenID, Color: string(m.Color)}
	}
	return out
}

func (rc *RoomCoordinator) emitRollTaunts(e *gamecache.Entry, room *domain.Room, seat domain.Seat, face int, hasValidMove bool, now time.Time) []TauntEventOut {
	if e.Taunt == nil {
		e.Taunt = taunt.NewRoomState(room.PublicID(), tauntModeOf(room.Settings.TauntMode))
	}
	leaderSide, chaserSide, lastSide := engagement.RankSides(room.GameBoard.Tokens, buildSides(room, e.Seats))
	leaderSeatID := representativeSeat(leaderSide, e.Seats, room.Settings.Mode)
	chaserSeatID := representativeSeat(chaserSide, e.Seats, room.Settings.Mode)
	actorSideID := sideIDFor(seat, room)

	var inputs []taunt.EventInput
	if face == 6 {
		inputs = append(inputs, taunt.EventInput{Type: taunt.EventRolledSix, ActorSeatID: seat.PublicID(), At: now})
	}
	if face >= 5 && remainingSeatCount(e.Seats, room.GameBoard.Winners) <= 2 {
		inputs = append(inputs, taunt.EventInput{Type: taunt.EventClutchRoll, ActorSeatID: seat.PublicID(), At: now})
	}
	if actorSideID == lastSide && hasValidMove {
		inputs = append(inputs, taunt.EventInput{Type: taunt.EventLastPlace, ActorSeatID: seat.PublicID(), ActorWasLast: true, At: now})
	}

	var out []TauntEventOut
	rng := mathrand.New(mathrand.NewSource(now.UnixNano()))
	for _, in := range inputs {
		result := e.Taunt.Process(in, leaderSeatID, chaserSeatID, rng)
		out = append(out, tauntOutcomeOut(result)...)
	}
	return out
}

func tauntOutcomeOut(o taunt.Outcome) []TauntEventOut {
	var out []TauntEventOut
	if len(o.Suggestions) > 0 {
		out = append(out, TauntEventOut{TargetSeatID: o.TargetSeatID, Suggestions: o.Suggestions})
	}
	if o.AutoLineID != "" {
		out = append(out, TauntEventOut{TargetSeatID: o.TargetSeatID, AutoLineID: o.AutoLineID})
	}
	return out
}

func tauntModeOf(mode domain.TauntMode) taunt.Mode {
	switch mode {
	case domain.TauntAuto:
		return taunt.ModeAuto
	case domain.TauntHybrid:
		return taunt.ModeHybrid
	default:
		return taunt.ModeSuggestion
	}
}

// MakeMove applies one move against the outstanding dice value.
func (rc *RoomCoordinator) MakeMove(ctx context.Context, userID uint, roomIDStr string, tokenID int, moveColor domain.Color, diceValue int) (*MoveOutcome, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}

	v, err := rc.cache.RunExclusive(ctx, roomIDStr, rc.roomLoader(roomID), func(ctx context.Context, e *gamecache.Entry) (interface{}, error) {
		room := e.Room
		gb := room.GameBoard
		if gb == nil || room.Status != domain.RoomInProgress {
			return nil, apierror.New(apierror.KindConflict, "game is not in progress")
		}
		seat, err := rc.resolveCurrentSeat(room, e.Seats)
		if err != nil {
			return nil, err
		}
		if seat.UserID != userID {
			return nil, apierror.ErrNotYourTurn
		}
		if gb.DiceValue == nil || *gb.DiceValue != diceValue {
			return nil, apierror.ErrDiceMismatch
		}
		controlled := controlledColors(*seat, room.Settings.MaxPlayers, room.Settings.Mode)
		if room.Settings.Mode == domain.ModeTeam && !colorIn(controlled, moveColor) {
			return nil, apierror.ErrInvalidTeamColor
		}
		var matched bool
		for _, m := range gb.ValidMoves {
			if m.TokenID == tokenID && m.Color == moveColor {
				matched = true
				break
			}
		}
		if !matched {
			return nil, apierror.ErrInvalidMove
		}

		var mover *domain.Token
		for i := range gb.Tokens[moveColor] {
			if gb.Tokens[moveColor][i].ID == tokenID {
				mover = &gb.Tokens[moveColor][i]
			}
		}
		if mover == nil {
			return nil, apierror.ErrInvalidMove
		}

		group := rules.ForcedStackGroup(*mover, gb.Tokens, controlled)
		isStackMove := len(group) >= 2
		effectiveDice := diceValue
		if isStackMove {
			effectiveDice = diceValue / 2
		}

		if rc.cfg.TauntEnabled && e.Taunt == nil {
			e.Taunt = taunt.NewRoomState(room.PublicID(), tauntModeOf(room.Settings.TauntMode))
		}

		sides := buildSides(room, e.Seats)
		leaderBefore, _, _ := engagement.RankSides(gb.Tokens, sides)
		nearWinBefore := anyTokenNearWin(gb.Tokens, controlled)

		capturedSeen := map[domain.TokenRef]bool{}
		var captured []CapturedOut
		var capturedVictimSeatIDs []string
		anyHomeTransition := false
		enteredSafeCount := 0
		for _, tok := range group {
			beforeStatus := tok.Status
			result := rules.ApplyMove(tok, effectiveDice, gb.Tokens, controlled, isStackMove)
			setToken(gb.Tokens, result.UpdatedToken)
			if result.UpdatedToken.Status == domain.TokenHome {
				anyHomeTransition = true
			}
			if result.UpdatedToken.Status == domain.TokenSafe && beforeStatus != domain.TokenSafe {
				enteredSafeCount++
			}
			for _, ref := range result.Captured {
				if capturedSeen[ref] {
					continue
				}
				capturedSeen[ref] = true
				victim := findTokenByRef(gb.Tokens, ref)
				if victim == nil {
					continue
				}
				setToken(gb.Tokens, rules.ApplyCapture(*victim))
				captured = append(captured, CapturedOut{TokenID: ref.ID, Color: string(ref.Color)})
				victimSeatID := seatForColor(e.Seats, ref.Color)
				capturedVictimSeatIDs = append(capturedVictimSeatIDs, victimSeatID)
				if rc.cfg.EngagementEnabled && victimSeatID != "" {
					attacker := e.SeatMomentum(seat.PublicID())
					engagement.ReportCapture(attacker, e.SeatMomentum(victimSeatID), string(moveColor), engagement.DefaultProfile.RevengeWindowTurns, engagement.DefaultProfile.RecentlyKilledTurns)
				}
				if e.Taunt != nil && victimSeatID != "" {
					e.Taunt.RecordCapture(seat.PublicID(), victimSeatID, time.Now())
				}
			}
		}

		wonNow := false
		if rules.CheckWin(gb.Tokens[moveColor], moveColor) && !gb.HasWinner(seat.PublicID()) {
			gb.Winners = append(gb.Winners, domain.Winner{SeatID: seat.PublicID(), Rank: len(gb.Winners) + 1})
			gb.AppendLog(fmt.Sprintf("%s finished in place %d", moveColor, len(gb.Winners)))
			wonNow = true
		}

		leaderAfter, _, _ := engagement.RankSides(gb.Tokens, sides)
		leadChanged := leaderBefore != "" && leaderAfter != "" && leaderBefore != leaderAfter
		newLeaderSeatID := representativeSeat(leaderAfter, e.Seats, room.Settings.Mode)
		nearWinNow := !wonNow && !nearWinBefore && anyTokenNearWin(gb.Tokens, controlled)

		gb.DiceValue = nil
		gb.ValidMoves = nil
		gb.LastRollAt = nil

		gameCompleted := len(gb.Winners) == room.Settings.MaxPlayers
		if gameCompleted {
			room.Status = domain.RoomCompleted
		} else if diceValue == 6 || len(captured) > 0 || anyHomeTransition {
			// extra turn: current seat keeps the board
		} else {
			seatIDs := seatIDsOf(e.Seats)
			room.CurrentPlayerIndex = rules.AdvanceTurn(room.CurrentPlayerIndex, seatIDs, gb.Winners, room.Settings.Mode == domain.ModeIndividual)
			gb.CurrentPlayerID = seatIDs[room.CurrentPlayerIndex]
		}

		var tauntEvents []TauntEventOut
		if rc.cfg.TauntEnabled {
			tauntEvents = rc.emitMoveTaunts(e, room, *seat, captured, capturedVictimSeatIDs, enteredSafeCount, leadChanged, newLeaderSeatID, nearWinNow, time.Now())
		}

		gb.Revision++
		e.Dirty = true
		rc.mirrorRoomState(ctx, e, roomIDStr, map[string]interface{}{"type": "move", "seatId": seat.PublicID(), "tokenId": tokenID, "color": string(moveColor)})
		rc.mirrorEngagementState(ctx, e, roomIDStr, seat.PublicID())

		patch := MovePatch{
			Revision:           gb.Revision,
			CurrentPlayerIndex: room.CurrentPlayerIndex,
			CurrentPlayerID:    gb.CurrentPlayerID,
			Tokens:             tokensOut(gb.Tokens),
			Winners:            winnersOut(gb.Winners),
			GameCompleted:      gameCompleted,
		}
		return &MoveOutcome{Patch: patch, TauntEvents: tauntEvents, Captured: captured}, nil
	})
	if err != nil {
		return nil, err
	}
	outcome := v.(*MoveOutcome)
	rc.recordEvent(ctx, roomID, domain.EventMove, &userID, nil, outcome.Patch.Revision, outcome)
	return outcome, nil
}

func setToken(tokens map[domain.Color][]domain.Token, tok domain.Token) {
	list := tokens[tok.Color]
	for i := range list {
		if list[i].ID == tok.ID {
			list[i] = tok
			return
		}
	}
}

func findTokenByRef(tokens map[domain.Color][]domain.Token, ref domain.TokenRef) *domain.Token {
	for i := range tokens[ref.Color] {
		if tokens[ref.Color][i].ID == ref.ID {
			return &tokens[ref.Color][i]
		}
	}
	return nil
}

func seatForColor(seats []domain.Seat, color domain.Color) string {
	for _, s := range seats {
		if s.Color == color {
			return s.PublicID()
		}
	}
	return ""
}

// nearWinThreshold is how many steps short of home a controlled, unfinished
// token must be to count as "close to finishing" for EventNearWin.
const nearWinThreshold = 3

func anyTokenNearWin(tokens map[domain.Color][]domain.Token, colors []domain.Color) bool {
	for _, c := range colors {
		for _, t := range tokens[c] {
			if t.Finished() {
				continue
			}
			remaining := domain.PositionHome - t.Position
			if remaining > 0 && remaining <= nearWinThreshold {
				return true
			}
		}
	}
	return false
}

// emitMoveTaunts builds the step-8 event batch for one resolved move:
// released_token, captured/got_captured/revenge_kill (one pair per capture,
// each targeted at the other party), entered_safe, lead_change, and near_win.
func (rc *RoomCoordinator) emitMoveTaunts(e *gamecache.Entry, room *domain.Room, seat domain.Seat, captured []CapturedOut, capturedVictimSeatIDs []string, enteredSafeCount int, leadChanged bool, newLeaderSeatID string, nearWin bool, now time.Time) []TauntEventOut {
	if e.Taunt == nil {
		e.Taunt = taunt.NewRoomState(room.PublicID(), tauntModeOf(room.Settings.TauntMode))
	}
	leaderSide, chaserSide, _ := engagement.RankSides(room.GameBoard.Tokens, buildSides(room, e.Seats))
	leaderSeatID := representativeSeat(leaderSide, e.Seats, room.Settings.Mode)
	chaserSeatID := representativeSeat(chaserSide, e.Seats, room.Settings.Mode)

	type pending struct {
		input  taunt.EventInput
		target string // overrides selectTarget's result when non-empty
	}
	var pendings []pending

	if len(captured) == 0 {
		pendings = append(pendings, pending{input: taunt.EventInput{Type: taunt.EventReleasedToken, ActorSeatID: seat.PublicID(), At: now}})
	}
	for i := range captured {
		victimSeatID := ""
		if i < len(capturedVictimSeatIDs) {
			victimSeatID = capturedVictimSeatIDs[i]
		}
		revenge := victimSeatID != "" && e.Taunt.IsRevengeKill(seat.PublicID(), victimSeatID, now)
		evtType := taunt.EventCaptured
		if revenge {
			evtType = taunt.EventRevengeKill
		}
		pendings = append(pendings, pending{
			input:  taunt.EventInput{Type: evtType, ActorSeatID: seat.PublicID(), RevengeActive: revenge, At: now},
			target: victimSeatID,
		})
		if victimSeatID != "" {
			pendings = append(pendings, pending{
				input:  taunt.EventInput{Type: taunt.EventGotCaptured, ActorSeatID: victimSeatID, At: now},
				target: seat.PublicID(),
			})
		}
	}
	for i := 0; i < enteredSafeCount; i++ {
		pendings = append(pendings, pending{input: taunt.EventInput{Type: taunt.EventEnteredSafe, ActorSeatID: seat.PublicID(), At: now}})
	}
	if leadChanged && newLeaderSeatID != "" {
		pendings = append(pendings, pending{input: taunt.EventInput{Type: taunt.EventLeadChange, ActorSeatID: newLeaderSeatID, ActorWasLeader: true, At: now}})
	}
	if nearWin {
		pendings = append(pendings, pending{input: taunt.EventInput{Type: taunt.EventNearWin, ActorSeatID: seat.PublicID(), At: now}})
	}

	var out []TauntEventOut
	rng := mathrand.New(mathrand.NewSource(now.UnixNano()))
	for _, p := range pendings {
		result := e.Taunt.Process(p.input, leaderSeatID, chaserSeatID, rng)
		if p.target != "" {
			result.TargetSeatID = p.target
		}
		out = append(out, tauntOutcomeOut(result)...)
	}
	return out
}

func tokensOut(tokens map[domain.Color][]domain.Token) map[string][]TokenOut {
	out := make(map[string][]TokenOut, len(tokens))
	for color, toks := range tokens {
		list := make([]TokenOut, len(toks))
		for i, t := range toks {
			list[i] = TokenOut{ID: t.ID, Position: t.Position, Status: string(t.Status), Steps: t.Steps}
		}
		out[string(color)] = list
	}
	return out
}

func winnersOut(winners []domain.Winner) []WinnerOut {
	out := make([]WinnerOut, len(winners))
	for i, w := range winners {
		out[i] = WinnerOut{SeatID: w.SeatID, Rank: w.Rank}
	}
	return out
}

// AdvanceTurn lets the current seat self-skip once the 20-second move grace
// since the last roll has elapsed.
func (rc *RoomCoordinator) AdvanceTurn(ctx context.Context, userID uint, roomIDStr string) (*TurnAdvancePatch, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}

	v, err := rc.cache.RunExclusive(ctx, roomIDStr, rc.roomLoader(roomID), func(ctx context.Context, e *gamecache.Entry) (interface{}, error) {
		room := e.Room
		gb := room.GameBoard
		if gb == nil || room.Status != domain.RoomInProgress {
			return nil, apierror.New(apierror.KindConflict, "game is not in progress")
		}
		seat, err := rc.resolveCurrentSeat(room, e.Seats)
		if err != nil {
			return nil, err
		}
		if seat.UserID != userID {
			return nil, apierror.ErrNotYourTurn
		}
		if gb.LastRollAt != nil && time.Since(*gb.LastRollAt) < moveGracePeriod {
			return nil, apierror.ErrMoveTimeNotExpired
		}

		seatIDs := seatIDsOf(e.Seats)
		room.CurrentPlayerIndex = rules.AdvanceTurn(room.CurrentPlayerIndex, seatIDs, gb.Winners, room.Settings.Mode == domain.ModeIndividual)
		gb.CurrentPlayerID = seatIDs[room.CurrentPlayerIndex]
		gb.DiceValue = nil
		gb.ValidMoves = nil
		gb.LastRollAt = nil
		gb.Revision++
		e.Dirty = true
		rc.mirrorRoomState(ctx, e, roomIDStr, map[string]interface{}{"type": "turn_advance", "seatId": seat.PublicID()})

		return &TurnAdvancePatch{Revision: gb.Revision, CurrentPlayerIndex: room.CurrentPlayerIndex, CurrentPlayerID: gb.CurrentPlayerID}, nil
	})
	if err != nil {
		return nil, err
	}
	patch := v.(*TurnAdvancePatch)
	rc.recordEvent(ctx, roomID, domain.EventTurnAdvance, &userID, nil, patch.Revision, patch)
	return patch, nil
}
