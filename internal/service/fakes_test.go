package service_test

import (
	"context"
	"sync"
	"time"

	"ludobackend/internal/domain"
	"ludobackend/internal/repository"
)

// fakeRoomRepo, fakeSeatRepo, fakeTeamRepo and fakeEventRepo are small
// in-memory stand-ins for the GORM-backed repositories, sufficient to drive
// the coordinators' branching without a database.

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
		for _, s := range f.seats {
			if s.RoomID == seat.RoomID && (s.Color == seat.Color || s.UserID == seat.UserID) {
				return repository.ErrDuplicateEntry
			}
		}
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
	mu     sync.Mutex
	teams  map[uint]*domain.Team
	nextID uint
}

func newFakeTeamRepo() *fakeTeamRepo { return &fakeTeamRepo{teams: map[uint]*domain.Team{}} }

func (f *fakeTeamRepo) ListByRoom(ctx context.Context, roomID uint) ([]domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Team
	for _, t := range f.teams {
		if t.RoomID == roomID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTeamRepo) Save(ctx context.Context, team *domain.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if team.ID == 0 {
		f.nextID++
		team.ID = f.nextID
	}
	cp := *team
	f.teams[team.ID] = &cp
	return nil
}

func (f *fakeTeamRepo) DeleteByRoom(ctx context.Context, roomID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.teams {
		if t.RoomID == roomID {
			delete(f.teams, id)
		}
	}
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
		return nil, repository.ErrUserNotFound
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
	return nil, repository.ErrUserNotFound
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
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}
