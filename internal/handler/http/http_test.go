package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "ludobackend/internal/handler/http"
	"ludobackend/internal/domain"
	"ludobackend/internal/gamecache"
	"ludobackend/internal/hub"
	"ludobackend/internal/repository"
	"ludobackend/internal/service"
)

// Minimal in-memory repositories, just enough to drive the handlers without
// a database. Mirrors the shape of internal/service's own test fakes.

type fakeRoomRepo struct {
	mu     sync.Mutex
	rooms  map[uint]*domain.Room
	nextID uint
}

func newFakeRoomRepo() *fakeRoomRepo { return &fakeRoomRepo{rooms: map[uint]*domain.Room{}} }

func (f *fakeRoomRepo) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoomRepo) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRoomRepo) Save(ctx context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.ID == 0 {
		f.nextID++
		room.ID = f.nextID
	}
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeRoomRepo) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	return nil
}

func (f *fakeRoomRepo) ListPublicWaiting(ctx context.Context) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, r := range f.rooms {
		if r.Status == domain.RoomWaiting && r.Settings.Visibility == domain.VisibilityPublic {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type fakeSeatRepo struct {
	mu     sync.Mutex
	seats  map[uint]*domain.Seat
	nextID uint
}

func newFakeSeatRepo() *fakeSeatRepo { return &fakeSeatRepo{seats: map[uint]*domain.Seat{}} }

func (f *fakeSeatRepo) FindByID(ctx context.Context, id uint) (*domain.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeatRepo) ListByRoom(ctx context.Context, roomID uint) ([]domain.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Seat
	for _, s := range f.seats {
		if s.RoomID == roomID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSeatRepo) FindByRoomAndUser(ctx context.Context, roomID, userID uint) (*domain.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.seats {
		if s.RoomID == roomID && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSeatRepo) Save(ctx context.Context, seat *domain.Seat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seat.ID == 0 {
		f.nextID++
		seat.ID = f.nextID
	}
	cp := *seat
	f.seats[seat.ID] = &cp
	return nil
}

func (f *fakeSeatRepo) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seats, id)
	return nil
}

func (f *fakeSeatRepo) DeleteByRoom(ctx context.Context, roomID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.seats {
		if s.RoomID == roomID {
			delete(f.seats, id)
		}
	}
	return nil
}

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[uint][]domain.Team
}

func newFakeTeamRepo() *fakeTeamRepo { return &fakeTeamRepo{teams: map[uint][]domain.Team{}} }

func (f *fakeTeamRepo) ListByRoom(ctx context.Context, roomID uint) ([]domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Team{}, f.teams[roomID]...), nil
}

func (f *fakeTeamRepo) Save(ctx context.Context, team *domain.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teams[team.RoomID] = append(f.teams[team.RoomID], *team)
	return nil
}

func (f *fakeTeamRepo) DeleteByRoom(ctx context.Context, roomID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.teams, roomID)
	return nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.GameEvent
}

func newFakeEventRepo() *fakeEventRepo { return &fakeEventRepo{} }

func (f *fakeEventRepo) Append(ctx context.Context, event *domain.GameEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = uint(len(f.events) + 1)
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventRepo) ListByRoom(ctx context.Context, roomID uint, limit int) ([]domain.GameEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.GameEvent
	for _, e := range f.events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeEventRepo) DeleteByRoom(ctx context.Context, roomID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []domain.GameEvent
	for _, e := range f.events {
		if e.RoomID != roomID {
			kept = append(kept, e)
		}
	}
	f.events = kept
	return nil
}

func (f *fakeEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []domain.GameEvent
	var removed int64
	for _, e := range f.events {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return removed, nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]*domain.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{users: map[uint]*domain.User{}} }

func (f *fakeUserRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Save(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == 0 {
		for _, u := range f.users {
			if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
				return repository.ErrDuplicateEntry
			}
		}
		f.nextID++
		user.ID = f.nextID
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func newTestRoomHandler(t *testing.T) *httphandler.RoomHandler {
	t.Helper()
	rooms := service.NewRoomCoordinator(gamecache.New(), newFakeRoomRepo(), newFakeSeatRepo(), newFakeTeamRepo(), newFakeEventRepo(), nil, service.RoomCoordinatorConfig{})
	return httphandler.NewRoomHandler(rooms, hub.NewHub())
}

func performRequest(method, path string, body interface{}, userID uint, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if userID != 0 {
		c.Set("user_id", userID)
	}
	handler(c)
	return w
}

func TestCreateRoom_Unauthorized(t *testing.T) {
	h := newTestRoomHandler(t)
	w := performRequest("POST", "/rooms", gin.H{"maxPlayers": 4, "mode": "individual", "visibility": "public"}, 0, h.CreateRoom)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRoom_Success(t *testing.T) {
	h := newTestRoomHandler(t)
	w := performRequest("POST", "/rooms", gin.H{"maxPlayers": 4, "mode": "individual", "visibility": "public"}, 7, h.CreateRoom)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Room struct {
				ID   string `json:"id"`
				Code string `json:"code"`
			} `json:"room"`
			Seat struct {
				ID     string `json:"id"`
				UserID string `json:"userId"`
			} `json:"seat"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.Room.ID)
	assert.Len(t, resp.Data.Room.Code, 6)
	assert.Equal(t, "7", resp.Data.Seat.UserID)
}

func TestCreateRoom_InvalidMaxPlayers(t *testing.T) {
	h := newTestRoomHandler(t)
	w := performRequest("POST", "/rooms", gin.H{"maxPlayers": 9, "mode": "individual", "visibility": "public"}, 7, h.CreateRoom)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoom_NotFound(t *testing.T) {
	h := newTestRoomHandler(t)
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/rooms/999", nil)
	c.Params = gin.Params{{Key: "id", Value: "999"}}
	h.GetRoom(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPublicRooms_Empty(t *testing.T) {
	h := newTestRoomHandler(t)
	w := performRequest("GET", "/rooms", nil, 0, h.ListPublicRooms)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rooms":[]`)
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	auth, err := service.NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)
	require.NoError(t, err)
	h := httphandler.NewAuthHandler(auth)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("not json")))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterThenLogin(t *testing.T) {
	auth, err := service.NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)
	require.NoError(t, err)
	h := httphandler.NewAuthHandler(auth)

	w := performRequest("POST", "/auth/register", gin.H{"username": "alice", "password": "secret1", "email": "alice@example.com"}, 0, h.Register)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest("POST", "/auth/login", gin.H{"username": "alice", "password": "secret1"}, 0, h.Login)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	auth, err := service.NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)
	require.NoError(t, err)
	h := httphandler.NewAuthHandler(auth)

	w := performRequest("POST", "/auth/register", gin.H{"username": "bob", "password": "secret1"}, 0, h.Register)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest("POST", "/auth/register", gin.H{"username": "bob", "password": "secret2"}, 0, h.Register)
	assert.NotEqual(t, http.StatusOK, w.Code)
}
