// Package gamecache is the Game State Cache: in-memory authoritative
// per-room state, per-room FIFO serialization via an actor goroutine, and a
// write-behind flush to the durable store. Grounded on the teacher's
// internal/hub.Hub.Run single-goroutine dispatch loop, generalized to one
// actor per room so unrelated rooms never serialize against each other.
package gamecache

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"ludobackend/internal/domain"
	"ludobackend/internal/ludo/engagement"
	"ludobackend/internal/ludo/taunt"
)

// Entry is the authoritative runtime record for one room. Room carries the
// write-behind-flushed fields (status, currentPlayerIndex, gameBoard); Seats
// and Teams are the membership snapshot the coordinator loads on first
// access to a started game and keeps fresh itself. Momentum/Director/Force/
// Taunt are lazily populated by the coordinator's roll/move tasks the first
// time they run for the room, and from then on live only in memory plus
// their shared-cache mirror, per the concurrency model's requirement that
// reporting engagement/taunt outcomes happens inside the same critical
// section as the game-state mutation it is reported for.
type Entry struct {
	Room  *domain.Room
	Seats []domain.Seat
	Teams []domain.Team

	Momentum map[string]*engagement.PlayerMomentum // keyed by seat public ID
	Director *engagement.StoryDirectorState
	Force    *engagement.ForceState
	Taunt    *taunt.RoomState

	Dirty bool
}

// SeatMomentum returns (creating if absent) the momentum record for seatID.
func (e *Entry) SeatMomentum(seatID string) *engagement.PlayerMomentum {
	if e.Momentum == nil {
		e.Momentum = map[string]*engagement.PlayerMomentum{}
	}
	m, ok := e.Momentum[seatID]
	if !ok {
		m = &engagement.PlayerMomentum{}
		e.Momentum[seatID] = m
	}
	return m
}

type task struct {
	fn     func(context.Context, *Entry) (interface{}, error)
	ctx    context.Context
	result chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// actor is the single-goroutine owner of one room's Entry. All mutating
// access to the Entry happens on this goroutine, so no lock is needed inside
// task functions.
type actor struct {
	roomID string
	tasks  chan task
	entry  *Entry
}

func newActor(roomID string, entry *Entry) *actor {
	a := &actor{roomID: roomID, tasks: make(chan task, 64), entry: entry}
	go a.run()
	return a
}

func (a *actor) run() {
	for t := range a.tasks {
		v, err := t.fn(t.ctx, a.entry)
		t.result <- taskResult{value: v, err: err}
	}
}

// Cache holds one actor per active room.
type Cache struct {
	mu     sync.Mutex
	actors map[string]*actor
}

func New() *Cache {
	return &Cache{actors: map[string]*actor{}}
}

// Loader supplies the initial Room/Seats/Teams for a room on first access
// since process start or since the last eviction.
type Loader func(context.Context) (*domain.Room, []domain.Seat, []domain.Team, error)

// getOrLoad returns the existing actor for roomID, or creates one by calling
// loader if this is the first access.
func (c *Cache) getOrLoad(ctx context.Context, roomID string, loader Loader) (*actor, error) {
	c.mu.Lock()
	if a, ok := c.actors[roomID]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	room, seats, teams, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.actors[roomID]; ok {
		return a, nil
	}
	a := newActor(roomID, &Entry{Room: room, Seats: seats, Teams: teams})
	c.actors[roomID] = a
	return a, nil
}

// RunExclusive serializes fn against every other task submitted for roomID.
// Tasks for different rooms run concurrently. loader supplies the initial
// Entry on first access; it is not called again while the room stays cached.
func (c *Cache) RunExclusive(ctx context.Context, roomID string, loader Loader, fn func(context.Context, *Entry) (interface{}, error)) (interface{}, error) {
	a, err := c.getOrLoad(ctx, roomID, loader)
	if err != nil {
		return nil, fmt.Errorf("gamecache: load room %s: %w", roomID, err)
	}

	resultCh := make(chan taskResult, 1)
	select {
	case a.tasks <- task{fn: fn, ctx: ctx, result: resultCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Evict tears down the room's actor and drops its in-memory entry. Called
// when the last seat leaves a room.
func (c *Cache) Evict(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.actors[roomID]; ok {
		close(a.tasks)
		delete(c.actors, roomID)
	}
}

// snapshotDirty runs inside the room's actor: if the entry is dirty, it
// returns a copy of the room and clears the flag; the durable write itself
// happens outside any critical section, in the caller.
func snapshotDirty(ctx context.Context, e *Entry) (interface{}, error) {
	if !e.Dirty {
		return (*domain.Room)(nil), nil
	}
	e.Dirty = false
	cp := *e.Room
	if e.Room.GameBoard != nil {
		board := *e.Room.GameBoard
		cp.GameBoard = &board
	}
	return &cp, nil
}

// FlushDirty snapshots every dirty room and writes it via persist, clearing
// the dirty flag before the write so a concurrent mutation marks it dirty
// again rather than being silently absorbed into this flush. A room whose
// write fails is marked dirty again, so the next call retries it.
func (c *Cache) FlushDirty(ctx context.Context, persist func(context.Context, *domain.Room) error) {
	c.mu.Lock()
	roomIDs := make([]string, 0, len(c.actors))
	for id := range c.actors {
		roomIDs = append(roomIDs, id)
	}
	c.mu.Unlock()

	for _, roomID := range roomIDs {
		v, err := c.RunExclusive(ctx, roomID, neverLoad, snapshotDirty)
		if err != nil {
			logrus.WithField("room_id", roomID).WithError(err).Warn("gamecache: flush snapshot failed")
			continue
		}
		room, _ := v.(*domain.Room)
		if room == nil {
			continue
		}
		if err := persist(ctx, room); err != nil {
			logrus.WithField("room_id", roomID).WithError(err).Warn("gamecache: flush persist failed, will retry next tick")
			_, _ = c.RunExclusive(ctx, roomID, neverLoad, func(ctx context.Context, e *Entry) (interface{}, error) {
				e.Dirty = true
				return nil, nil
			})
		}
	}
}

func neverLoad(ctx context.Context) (*domain.Room, []domain.Seat, []domain.Team, error) {
	return nil, nil, nil, fmt.Errorf("gamecache: room not cached and no loader supplied")
}

// Snapshot returns a shallow copy of the room's current state without
// affecting its dirty flag, used for read-only endpoints.
func (c *Cache) Snapshot(ctx context.Context, roomID string, loader Loader) (*domain.Room, []domain.Seat, []domain.Team, error) {
	v, err := c.RunExclusive(ctx, roomID, loader, func(ctx context.Context, e *Entry) (interface{}, error) {
		cp := *e.Room
		if e.Room.GameBoard != nil {
			board := *e.Room.GameBoard
			cp.GameBoard = &board
		}
		seats := append([]domain.Seat(nil), e.Seats...)
		teams := append([]domain.Team(nil), e.Teams...)
		return []interface{}{&cp, seats, teams}, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	parts, _ := v.([]interface{})
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("gamecache: malformed snapshot for room %s", roomID)
	}
	room, _ := parts[0].(*domain.Room)
	seats, _ := parts[1].([]domain.Seat)
	teams, _ := parts[2].([]domain.Team)
	return room, seats, teams, nil
}
