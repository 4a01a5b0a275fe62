package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ludobackend/internal/apierror"
	"ludobackend/internal/domain"
	"ludobackend/internal/gamecache"
	"ludobackend/internal/service"
)

func newCoordinator() (*service.RoomCoordinator, *fakeRoomRepo, *fakeSeatRepo, *fakeTeamRepo, *fakeEventRepo) {
	rooms := newFakeRoomRepo()
	seats := newFakeSeatRepo()
	teams := newFakeTeamRepo()
	events := newFakeEventRepo()
	rc := service.NewRoomCoordinator(gamecache.New(), rooms, seats, teams, events, nil, service.RoomCoordinatorConfig{
		EngagementEnabled: true,
		TauntEnabled:      true,
	})
	return rc, rooms, seats, teams, events
}

func TestCreateRoom_SeatsHostAndAssignsCode(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, seat, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	assert.Len(t, room.Code, 6)
	assert.Equal(t, domain.RoomWaiting, room.Status)
	assert.Equal(t, seat.PublicID(), room.HostSeatID)
	assert.Equal(t, uint(1), seat.UserID)
}

func TestCreateRoom_RejectsInvalidMaxPlayers(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	_, _, err := rc.CreateRoom(context.Background(), 1, 7, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.Error(t, err)
}

func TestCreateRoom_TeamModeRequiresEvenSeatCount(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	_, _, err := rc.CreateRoom(context.Background(), 1, 3, domain.ModeTeam, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.Error(t, err)
}

func TestJoinRoom_AssignsFreeColorAndPosition(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, hostSeat, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)

	_, joinedSeat, err := rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)
	assert.NotEqual(t, hostSeat.Color, joinedSeat.Color)
	assert.Equal(t, 1, joinedSeat.Position)
}

func TestJoinRoom_RejectsWhenFull(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, _, err := rc.CreateRoom(ctx, 1, 2, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	_, _, err = rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)

	_, _, err = rc.JoinRoom(ctx, 3, room.Code, "")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrRoomFull, err)
}

func TestJoinRoom_ReturnsExistingSeatOnRepeatJoin(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, _, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	_, first, err := rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)

	_, second, err := rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestJoinRoom_RejectsWhenRoomNotWaiting(t *testing.T) {
	rc, rooms, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, _, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	room.Status = domain.RoomInProgress
	require.NoError(t, rooms.Save(ctx, room))

	_, _, err = rc.JoinRoom(ctx, 2, room.Code, "")
	require.Error(t, err)
	assert.Equal(t, apierror.ErrRoomNotJoinable, err)
}

func TestLeaveRoom_HandsOffHostWhenHostLeaves(t *testing.T) {
	rc, rooms, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, hostSeat, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	_, otherSeat, err := rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)

	require.NoError(t, rc.LeaveRoom(ctx, 1, room.PublicID()))

	updated, err := rooms.FindByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, otherSeat.PublicID(), updated.HostSeatID)
	assert.NotEqual(t, hostSeat.PublicID(), updated.HostSeatID)
}

func TestLeaveRoom_TearsDownRoomWhenLastSeatLeaves(t *testing.T) {
	rc, rooms, seats, _, _ := newCoordinator()
	ctx := context.Background()

	room, _, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)

	require.NoError(t, rc.LeaveRoom(ctx, 1, room.PublicID()))

	_, err = rooms.FindByID(ctx, room.ID)
	require.Error(t, err)
	remaining, err := seats.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSetReady_RequiresRoomWaiting(t *testing.T) {
	rc, rooms, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, _, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	room.Status = domain.RoomInProgress
	require.NoError(t, rooms.Save(ctx, room))

	_, err = rc.SetReady(ctx, 1, room.PublicID(), true)
	require.Error(t, err)
}

func TestSetSlot_SwapsWithCurrentOccupant(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, hostSeat, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	_, guestSeat, err := rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)

	guestOriginalColor := guestSeat.Color
	updated, err := rc.SetSlot(ctx, 1, room.PublicID(), 1)
	require.NoError(t, err)
	assert.Equal(t, guestOriginalColor, updated.Color)
	_ = hostSeat
}

func TestGetRoom_ReturnsRoomWithSeats(t *testing.T) {
	rc, _, _, _, _ := newCoordinator()
	ctx := context.Background()

	room, _, err := rc.CreateRoom(ctx, 1, 4, domain.ModeIndividual, domain.VisibilityPublic, "", domain.TauntSuggestion)
	require.NoError(t, err)
	_, _, err = rc.JoinRoom(ctx, 2, room.Code, "")
	require.NoError(t, err)

	gotRoom, seats, _, err := rc.GetRoom(ctx, room.PublicID())
	require.NoError(t, err)
	assert.Equal(t, room.ID, gotRoom.ID)
	assert.Len(t, seats, 2)
}
