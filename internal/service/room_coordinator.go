package service

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"ludobackend/internal/apierror"
	"ludobackend/internal/domain"
	"ludobackend/internal/gamecache"
	redisstate "ludobackend/internal/infra/state/redis"
	"ludobackend/internal/ludo/board"
	"ludobackend/internal/repository"
)

// RoomCoordinatorConfig carries the engagement/taunt feature toggles and the
// shared-cache mirror's TTL/bound knobs, all read from the environment per
// §6.
type RoomCoordinatorConfig struct {
	EngagementEnabled   bool
	TauntEnabled        bool
	TauntCooldown       time.Duration
	TauntLimitPerMin    int
	TauntAutoBurstLimit int

	GameStateCacheTTL   time.Duration
	GameMoveLogTTL      time.Duration
	GameMoveLogMaxItems int
}

// RoomCoordinator is the Room Coordinator: lifecycle operations (create,
// join, leave, ready, slot-move, start) plus in-game operations (roll, move,
// advance-turn). Each validates authorization and current status, then (for
// in-game operations) invokes the rule/engagement/taunt primitives inside
// the Game State Cache's runExclusive. stateRepo is nil when the server runs
// without a shared cache, in which case every mirror write is a no-op.
type RoomCoordinator struct {
	cache     *gamecache.Cache
	roomRepo  repository.RoomRepository
	seatRepo  repository.SeatRepository
	teamRepo  repository.TeamRepository
	eventRepo repository.GameEventRepository
	stateRepo *redisstate.StateRepository
	cfg       RoomCoordinatorConfig
}

func NewRoomCoordinator(cache *gamecache.Cache, roomRepo repository.RoomRepository, seatRepo repository.SeatRepository, teamRepo repository.TeamRepository, eventRepo repository.GameEventRepository, stateRepo *redisstate.StateRepository, cfg RoomCoordinatorConfig) *RoomCoordinator {
	if cache == nil || roomRepo == nil || seatRepo == nil || teamRepo == nil || eventRepo == nil {
		panic("RoomCoordinator requires a non-nil cache and all repositories")
	}
	return &RoomCoordinator{cache: cache, roomRepo: roomRepo, seatRepo: seatRepo, teamRepo: teamRepo, eventRepo: eventRepo, stateRepo: stateRepo, cfg: cfg}
}

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const roomCodeLength = 6
const maxCodeAttempts = 10

func (rc *RoomCoordinator) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		taken, err := rc.roomRepo.IsCodeTaken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
		logrus.WithField("code", code).Warn("room code collision, retrying")
	}
	return "", fmt.Errorf("exhausted %d attempts generating a unique room code", maxCodeAttempts)
}

func randomCode() (string, error) {
	b := make([]byte, roomCodeLength)
	for i := range b {
		n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// CreateRoom creates a waiting room and seats the creator as host.
func (rc *RoomCoordinator) CreateRoom(ctx context.Context, hostUserID uint, maxPlayers int, mode domain.RoomMode, visibility domain.Visibility, selectedColor domain.Color, tauntMode domain.TauntMode) (*domain.Room, *domain.Seat, error) {
	colors := board.ColorOrder(maxPlayers)
	if colors == nil {
		return nil, nil, apierror.New(apierror.KindValidation, "maxPlayers must be one of 2,3,4,5,6")
	}
	if mode == domain.ModeTeam && maxPlayers != 4 && maxPlayers != 6 {
		return nil, nil, apierror.New(apierror.KindValidation, "team mode requires 4 or 6 players")
	}
	if tauntMode == "" {
		tauntMode = domain.TauntSuggestion
	}

	code, err := rc.generateUniqueCode(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to generate room code")
		return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	room := &domain.Room{
		Code:   code,
		Status: domain.RoomWaiting,
		Settings: domain.RoomSettings{
			MaxPlayers: maxPlayers,
			Mode:       mode,
			Visibility: visibility,
			TauntMode:  tauntMode,
		},
	}
	if err := rc.roomRepo.Save(ctx, room); err != nil {
		logrus.WithError(err).Error("failed to save new room")
		return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	color := selectedColor
	if color == "" || !colorIn(colors, color) {
		color = colors[0]
	}
	seat := &domain.Seat{RoomID: room.ID, UserID: hostUserID, Color: color, Position: 0, Status: domain.SeatWaiting}
	if mode == domain.ModeTeam {
		idx := 0
		seat.TeamIndex = &idx
	}
	if err := rc.seatRepo.Save(ctx, seat); err != nil {
		logrus.WithError(err).Error("failed to seat room creator")
		return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	room.HostSeatID = seat.PublicID()
	if err := rc.roomRepo.Save(ctx, room); err != nil {
		logrus.WithError(err).Error("failed to record room host")
		return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	rc.recordEvent(ctx, room.ID, domain.EventRoomCreated, &hostUserID, &seat.ID, 0, map[string]interface{}{"code": room.Code})
	logrus.WithFields(logrus.Fields{"room_id": room.ID, "code": room.Code}).Info("room created")
	return room, seat, nil
}

func colorIn(colors []domain.Color, c domain.Color) bool {
	for _, x := range colors {
		if x == c {
			return true
		}
	}
	return false
}

// JoinRoom seats userID into the room identified by code, per §5's
// shared-resource policy: color/slot assignment is read-choose-write against
// the durable store directly, serialized by the (roomId,userId) unique
// index and a retry on color collision, not by runExclusive.
func (rc *RoomCoordinator) JoinRoom(ctx context.Context, userID uint, code string, selectedColor domain.Color) (*domain.Room, *domain.Seat, error) {
	room, err := rc.roomRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, nil, mapRoomLookupErr(err)
	}
	return rc.joinRoom(ctx, userID, room, selectedColor)
}

// JoinRoomByID is the same operation addressed by the room's opaque ID.
func (rc *RoomCoordinator) JoinRoomByID(ctx context.Context, userID uint, roomIDStr string, selectedColor domain.Color) (*domain.Room, *domain.Seat, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, nil, apierror.ErrRoomNotFound
	}
	room, err := rc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, nil, mapRoomLookupErr(err)
	}
	return rc.joinRoom(ctx, userID, room, selectedColor)
}

func (rc *RoomCoordinator) joinRoom(ctx context.Context, userID uint, room *domain.Room, selectedColor domain.Color) (*domain.Room, *domain.Seat, error) {
	if room.Status != domain.RoomWaiting {
		return nil, nil, apierror.ErrRoomNotJoinable
	}

	if existing, err := rc.seatRepo.FindByRoomAndUser(ctx, room.ID, userID); err == nil {
		return room, existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	colors := board.ColorOrder(room.Settings.MaxPlayers)
	const maxJoinAttempts = 5
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		seats, err := rc.seatRepo.ListByRoom(ctx, room.ID)
		if err != nil {
			return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
		}
		if len(seats) >= room.Settings.MaxPlayers {
			return nil, nil, apierror.ErrRoomFull
		}

		taken := map[domain.Color]bool{}
		for _, s := range seats {
			taken[s.Color] = true
		}
		color := selectedColor
		if color == "" || taken[color] || !colorIn(colors, color) {
			color = firstFree(colors, taken)
		}
		if color == "" {
			return nil, nil, apierror.ErrRoomFull
		}

		seat := &domain.Seat{RoomID: room.ID, UserID: userID, Color: color, Position: len(seats), Status: domain.SeatWaiting}
		if room.Settings.Mode == domain.ModeTeam {
			idx := teamIndexForPosition(color, colors)
			seat.TeamIndex = &idx
		}
		if err := rc.seatRepo.Save(ctx, seat); err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				continue // lost the race for this color/slot, retry
			}
			return nil, nil, apierror.New(apierror.KindInternal, "internal server error")
		}
		rc.recordEvent(ctx, room.ID, domain.EventPlayerJoined, &userID, &seat.ID, 0, map[string]interface{}{"color": color})
		return room, seat, nil
	}
	return nil, nil, apierror.New(apierror.KindConflict, "room join retries exhausted")
}

func firstFree(colors []domain.Color, taken map[domain.Color]bool) domain.Color {
	for _, c := range colors {
		if !taken[c] {
			return c
		}
	}
	return ""
}

// teamIndexForPosition maps canonical-order position i to team i mod (n/2),
// matching board.PartnerColor's (idx + n/2) mod n pairing.
func teamIndexForPosition(color domain.Color, colors []domain.Color) int {
	n := len(colors)
	for i, c := range colors {
		if c == color {
			return i % (n / 2)
		}
	}
	return 0
}

// buildTeamSnapshots derives the persisted Team rows for a team-mode room
// from its current seats: team i holds the seats at canonical-order
// positions i and i+maxPlayers/2 (teamIndexForPosition). It builds at least
// two teams, more when a seat carries a higher team index, named from
// teamNames when it holds one name per team and "Team 1", "Team 2", ...
// otherwise.
func buildTeamSnapshots(roomID uint, seats []domain.Seat, teamNames []string) []domain.Team {
	count := 2
	for _, s := range seats {
		if s.TeamIndex != nil && *s.TeamIndex >= count {
			count = *s.TeamIndex + 1
		}
	}
	teams := make([]domain.Team, count)
	for i := range teams {
		teams[i] = domain.Team{RoomID: roomID, TeamIndex: i, Name: fmt.Sprintf("Team %d", i+1)}
		if len(teamNames) == count {
			teams[i].Name = teamNames[i]
		}
	}
	for _, s := range seats {
		if s.TeamIndex == nil {
			continue
		}
		idx := *s.TeamIndex
		if idx < 0 {
			continue
		}
		teams[idx].SeatIDs = append(teams[idx].SeatIDs, s.ID)
	}
	return teams
}

// LeaveRoom removes userID's seat, hands off host if needed, and tears the
// room down (cascade delete + cache eviction) once the last seat leaves.
func (rc *RoomCoordinator) LeaveRoom(ctx context.Context, userID uint, roomIDStr string) error {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return apierror.ErrRoomNotFound
	}
	room, err := rc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return mapRoomLookupErr(err)
	}
	seat, err := rc.seatRepo.FindByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierror.ErrSeatNotFound
		}
		return apierror.New(apierror.KindInternal, "internal server error")
	}

	if err := rc.seatRepo.Delete(ctx, seat.ID); err != nil {
		return apierror.New(apierror.KindInternal, "internal server error")
	}
	rc.recordEvent(ctx, roomID, domain.EventPlayerLeft, &userID, &seat.ID, 0, nil)

	remaining, err := rc.seatRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return apierror.New(apierror.KindInternal, "internal server error")
	}

	if len(remaining) == 0 {
		rc.cache.Evict(roomIDStr)
		if rc.stateRepo != nil {
			_ = rc.stateRepo.Delete(ctx, rc.stateRepo.RoomStateKey(roomIDStr), rc.stateRepo.RoomMovesKey(roomIDStr), rc.stateRepo.ForceStateKey(roomIDStr), rc.stateRepo.StoryDirectorKey(roomIDStr), rc.stateRepo.TauntStateKey(roomIDStr))
		}
		_ = rc.teamRepo.DeleteByRoom(ctx, roomID)
		_ = rc.seatRepo.DeleteByRoom(ctx, roomID)
		_ = rc.roomRepo.Delete(ctx, roomID)
		return nil
	}

	if room.HostSeatID == seat.PublicID() {
		newHost := remaining[0]
		room.HostSeatID = newHost.PublicID()
		if err := rc.roomRepo.Save(ctx, room); err != nil {
			return apierror.New(apierror.KindInternal, "internal server error")
		}
	}
	return nil
}

// SetReady flips a seat's ready flag while the room is waiting.
func (rc *RoomCoordinator) SetReady(ctx context.Context, userID uint, roomIDStr string, ready bool) (*domain.Seat, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}
	room, err := rc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, mapRoomLookupErr(err)
	}
	if room.Status != domain.RoomWaiting {
		return nil, apierror.New(apierror.KindConflict, "room is not waiting for players")
	}
	seat, err := rc.seatRepo.FindByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.ErrSeatNotFound
		}
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	seat.Ready = ready
	if err := rc.seatRepo.Save(ctx, seat); err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	rc.recordEvent(ctx, roomID, domain.EventPlayerReady, &userID, &seat.ID, 0, map[string]interface{}{"ready": ready})
	return seat, nil
}

// SetSlot reassigns a seat to a different canonical-order slot (team mode
// only), swapping colors with whoever currently holds that slot if taken.
func (rc *RoomCoordinator) SetSlot(ctx context.Context, userID uint, roomIDStr string, slotIndex int) (*domain.Seat, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}
	room, err := rc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, mapRoomLookupErr(err)
	}
	if room.Status != domain.RoomWaiting {
		return nil, apierror.New(apierror.KindConflict, "room is not waiting for players")
	}
	colors := board.ColorOrder(room.Settings.MaxPlayers)
	if slotIndex < 0 || slotIndex >= len(colors) {
		return nil, apierror.New(apierror.KindValidation, "slotIndex out of range")
	}

	seats, err := rc.seatRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	var mine *domain.Seat
	var occupant *domain.Seat
	targetColor := colors[slotIndex]
	for i := range seats {
		if seats[i].UserID == userID {
			mine = &seats[i]
		}
		if seats[i].Color == targetColor {
			occupant = &seats[i]
		}
	}
	if mine == nil {
		return nil, apierror.ErrSeatNotFound
	}
	if occupant != nil && occupant.ID != mine.ID {
		occupant.Color = mine.Color
		if room.Settings.Mode == domain.ModeTeam {
			idx := teamIndexForPosition(occupant.Color, colors)
			occupant.TeamIndex = &idx
		}
		if err := rc.seatRepo.Save(ctx, occupant); err != nil {
			return nil, apierror.New(apierror.KindInternal, "internal server error")
		}
	}
	mine.Color = targetColor
	if room.Settings.Mode == domain.ModeTeam {
		idx := teamIndexForPosition(targetColor, colors)
		mine.TeamIndex = &idx
	}
	if err := rc.seatRepo.Save(ctx, mine); err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	rc.recordEvent(ctx, roomID, domain.EventSlotChange, &userID, &mine.ID, 0, map[string]interface{}{"slotIndex": slotIndex})
	return mine, nil
}

// SetTeamNames renames the two teams (host only, team mode, waiting).
func (rc *RoomCoordinator) SetTeamNames(ctx context.Context, userID uint, roomIDStr string, teamNames []string) (*domain.Room, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}
	room, err := rc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, mapRoomLookupErr(err)
	}
	if room.Status != domain.RoomWaiting {
		return nil, apierror.New(apierror.KindConflict, "room is not waiting for players")
	}
	if room.Settings.Mode != domain.ModeTeam {
		return nil, apierror.New(apierror.KindValidation, "team names only apply in team mode")
	}
	if room.HostSeatID != "" {
		hostID, _ := domain.ParseID(room.HostSeatID)
		hostSeat, err := rc.seatRepo.FindByID(ctx, hostID)
		if err != nil || hostSeat.UserID != userID {
			return nil, apierror.ErrNotHost
		}
	}
	if len(teamNames) != 2 {
		return nil, apierror.New(apierror.KindValidation, "team mode requires exactly 2 team names")
	}
	room.Settings.TeamNames = teamNames
	if err := rc.roomRepo.Save(ctx, room); err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}

	seats, err := rc.seatRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	for _, team := range buildTeamSnapshots(roomID, seats, teamNames) {
		if err := rc.teamRepo.Save(ctx, &team); err != nil {
			return nil, apierror.New(apierror.KindInternal, "internal server error")
		}
	}

	rc.recordEvent(ctx, roomID, domain.EventTeamNames, &userID, nil, 0, map[string]interface{}{"teamNames": teamNames})
	return room, nil
}

// ListPublicRooms returns public waiting rooms for the lobby listing.
func (rc *RoomCoordinator) ListPublicRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := rc.roomRepo.ListPublicWaiting(ctx)
	if err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	return rooms, nil
}

// GetRoom returns the room with its ordered seats and teams.
func (rc *RoomCoordinator) GetRoom(ctx context.Context, roomIDStr string) (*domain.Room, []domain.Seat, []domain.Team, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, nil, nil, apierror.ErrRoomNotFound
	}
	room, err := rc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, nil, nil, mapRoomLookupErr(err)
	}
	// A started game lives in the cache; the stored status only catches up at
	// the next flush, so a cached entry that has left waiting is served first.
	loader := rc.roomLoader(roomID)
	if room.Status != domain.RoomInProgress {
		loader = func(context.Context) (*domain.Room, []domain.Seat, []domain.Team, error) {
			return nil, nil, nil, errors.New("room not cached")
		}
	}
	if cached, seats, teams, err := rc.cache.Snapshot(ctx, roomIDStr, loader); err == nil && cached.Status != domain.RoomWaiting {
		return cached, seats, teams, nil
	}
	seats, err := rc.seatRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	teams, err := rc.teamRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, nil, nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	return room, seats, teams, nil
}

// ListEvents returns the most recent audit events for a room.
func (rc *RoomCoordinator) ListEvents(ctx context.Context, roomIDStr string, limit int) ([]domain.GameEvent, error) {
	roomID, ok := domain.ParseID(roomIDStr)
	if !ok {
		return nil, apierror.ErrRoomNotFound
	}
	events, err := rc.eventRepo.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, apierror.New(apierror.KindInternal, "internal server error")
	}
	return events, nil
}

func mapRoomLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.ErrRoomNotFound
	}
	return apierror.New(apierror.KindInternal, "internal server error")
}

// roomLoader is the gamecache.Loader backing every runExclusive call for
// roomID: it reads the room, its seats (ordered by position) and its teams
// from the durable store on first access to an active room.
func (rc *RoomCoordinator) roomLoader(roomID uint) gamecache.Loader {
	return func(ctx context.Context) (*domain.Room, []domain.Seat, []domain.Team, error) {
		room, err := rc.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			return nil, nil, nil, mapRoomLookupErr(err)
		}
		seats, err := rc.seatRepo.ListByRoom(ctx, roomID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load seats for room %d: %w", roomID, err)
		}
		teams, err := rc.teamRepo.ListByRoom(ctx, roomID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load teams for room %d: %w", roomID, err)
		}
		return room, seats, teams, nil
	}
}

// roomStateMirror is what gets written to room:{id}:state: enough to
// warm-recover an Entry's membership snapshot without re-hitting the
// durable store, per §4.5(c).
type roomStateMirror struct {
	Room  *domain.Room  `json:"room"`
	Seats []domain.Seat `json:"seats"`
	Teams []domain.Team `json:"teams"`
}

// mirrorRoomState writes the room's current snapshot to the shared cache,
// appends moveSummary (if non-nil) to the bounded recent-events log, and
// bumps the cache-side revision counter. Called from inside the same
// runExclusive critical section as the mutation it mirrors, per
// gamecache.Entry's concurrency requirement. A no-op when stateRepo is nil.
func (rc *RoomCoordinator) mirrorRoomState(ctx context.Context, e *gamecache.Entry, roomIDStr string, moveSummary interface{}) {
	if rc.stateRepo == nil {
		return
	}
	mirror := roomStateMirror{Room: e.Room, Seats: e.Seats, Teams: e.Teams}
	if err := rc.stateRepo.SetJSON(ctx, rc.stateRepo.RoomStateKey(roomIDStr), mirror, rc.cfg.GameStateCacheTTL); err != nil {
		logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to mirror room state to shared cache")
	}
	if moveSummary != nil {
		if err := rc.stateRepo.PushLog(ctx, rc.stateRepo.RoomMovesKey(roomIDStr), moveSummary, rc.cfg.GameMoveLogMaxItems, rc.cfg.GameMoveLogTTL); err != nil {
			logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to append move log to shared cache")
		}
	}
	if _, err := rc.stateRepo.IncrementRevision(ctx, roomIDStr); err != nil {
		logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to increment shared-cache revision")
	}
}

// mirrorEngagementState writes whichever of momentum/force/director/taunt
// the entry currently has populated, keyed per §4.12/§6. A no-op when
// stateRepo is nil.
func (rc *RoomCoordinator) mirrorEngagementState(ctx context.Context, e *gamecache.Entry, roomIDStr string, seatID string) {
	if rc.stateRepo == nil {
		return
	}
	if m, ok := e.Momentum[seatID]; ok && m != nil {
		if err := rc.stateRepo.SetJSON(ctx, rc.stateRepo.MomentumKey(roomIDStr, seatID), m, rc.cfg.GameStateCacheTTL); err != nil {
			logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to mirror momentum state")
		}
	}
	if e.Force != nil {
		if err := rc.stateRepo.SetJSON(ctx, rc.stateRepo.ForceStateKey(roomIDStr), e.Force, rc.cfg.GameStateCacheTTL); err != nil {
			logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to mirror force state")
		}
	}
	if e.Director != nil {
		if err := rc.stateRepo.SetJSON(ctx, rc.stateRepo.StoryDirectorKey(roomIDStr), e.Director, rc.cfg.GameStateCacheTTL); err != nil {
			logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to mirror story director state")
		}
	}
	if e.Taunt != nil {
		if err := rc.stateRepo.SetJSON(ctx, rc.stateRepo.TauntStateKey(roomIDStr), e.Taunt, rc.cfg.GameStateCacheTTL); err != nil {
			logrus.WithError(err).WithField("room_id", roomIDStr).Warn("failed to mirror taunt state")
		}
	}
}

func (rc *RoomCoordinator) recordEvent(ctx context.Context, roomID uint, eventType domain.EventType, actorUserID *uint, actorSeatID *uint, revision uint64, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage("null")
	}
	event := &domain.GameEvent{RoomID: roomID, Type: eventType, ActorUserID: actorUserID, ActorSeatID: actorSeatID, Revision: revision, Payload: raw, CreatedAt: time.Now()}
	if err := rc.eventRepo.Append(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "event_type": eventType}).Warn("failed to record game event")
	}
}
