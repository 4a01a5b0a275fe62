package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	wshandler "ludobackend/internal/handler/websocket"
	"ludobackend/internal/domain"
	"ludobackend/internal/gamecache"
	"ludobackend/internal/hub"
	"ludobackend/internal/repository"
	"ludobackend/internal/service"
)

func TestNewHandler_PanicsOnNilDeps(t *testing.T) {
	rooms := service.NewRoomCoordinator(gamecache.New(), stubRoomRepo{}, stubSeatRepo{}, stubTeamRepo{}, stubEventRepo{}, nil, service.RoomCoordinatorConfig{})
	assert.Panics(t, func() { wshandler.NewHandler(nil, rooms) })
	assert.Panics(t, func() { wshandler.NewHandler(hub.NewHub(), nil) })
}

func TestHandleConnection_UnauthorizedWithoutUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := service.NewRoomCoordinator(gamecache.New(), stubRoomRepo{}, stubSeatRepo{}, stubTeamRepo{}, stubEventRepo{}, nil, service.RoomCoordinatorConfig{})
	h := wshandler.NewHandler(hub.NewHub(), rooms)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/ws/room/1", nil)
	c.Params = gin.Params{{Key: "roomId", Value: "1"}}

	h.HandleConnection(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleConnection_RoomNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := service.NewRoomCoordinator(gamecache.New(), stubRoomRepo{}, stubSeatRepo{}, stubTeamRepo{}, stubEventRepo{}, nil, service.RoomCoordinatorConfig{})
	h := wshandler.NewHandler(hub.NewHub(), rooms)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/ws/room/999", nil)
	c.Params = gin.Params{{Key: "roomId", Value: "999"}}
	c.Set("user_id", uint(1))

	h.HandleConnection(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Stub repositories: the FindBy* lookups error not-found, enough to drive
// GetRoom's lookup-failure path without a database; the other methods
// return zero values.

type stubRoomRepo struct{}

func (stubRoomRepo) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	return nil, repository.ErrNotFound
}
func (stubRoomRepo) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	return nil, repository.ErrNotFound
}
func (stubRoomRepo) Save(ctx context.Context, room *domain.Room) error       { return nil }
func (stubRoomRepo) Delete(ctx context.Context, id uint) error               { return nil }
func (stubRoomRepo) ListPublicWaiting(ctx context.Context) ([]domain.Room, error) {
	return nil, nil
}
func (stubRoomRepo) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	return false, nil
}

type stubSeatRepo struct{}

func (stubSeatRepo) FindByID(ctx context.Context, id uint) (*domain.Seat, error) {
	return nil, repository.ErrNotFound
}
func (stubSeatRepo) ListByRoom(ctx context.Context, roomID uint) ([]domain.Seat, error) {
	return nil, nil
}
func (stubSeatRepo) FindByRoomAndUser(ctx context.Context, roomID, userID uint) (*domain.Seat, error) {
	return nil, repository.ErrNotFound
}
func (stubSeatRepo) Save(ctx context.Context, seat *domain.Seat) error    { return nil }
func (stubSeatRepo) Delete(ctx context.Context, id uint) error           { return nil }
func (stubSeatRepo) DeleteByRoom(ctx context.Context, roomID uint) error { return nil }

type stubTeamRepo struct{}

func (stubTeamRepo) ListByRoom(ctx context.Context, roomID uint) ([]domain.Team, error) {
	return nil, nil
}
func (stubTeamRepo) Save(ctx context.Context, team *domain.Team) error    { return nil }
func (stubTeamRepo) DeleteByRoom(ctx context.Context, roomID uint) error { return nil }

type stubEventRepo struct{}

func (stubEventRepo) Append(ctx context.Context, event *domain.GameEvent) error { return nil }
func (stubEventRepo) ListByRoom(ctx context.Context, roomID uint, limit int) ([]domain.GameEvent, error) {
	return nil, nil
}
func (stubEventRepo) DeleteByRoom(ctx context.Context, roomID uint) error { return nil }
func (stubEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
