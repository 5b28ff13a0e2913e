package mathpuzzle

import (
	"slices"
	"sync"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/protocol"
)

// Lobby owns the set of open rooms. Its lock only guards the map; room
// state is read under each room's own lock.
type Lobby struct {
	mu     sync.Mutex
	rooms  map[int]*Room
	nextID int
	max    int
}

func newLobby(limit int) *Lobby {
	return &Lobby{
		rooms:  make(map[int]*Room),
		nextID: 1,
		max:    limit,
	}
}

// add allocates the next id and registers the room build returns. The room
// is unreachable by anyone else until add returns, so build may lock it.
func (l *Lobby) add(build func(id int) *Room) *Room {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.rooms) >= l.max {
		return nil
	}

	id := l.nextID
	l.nextID++

	r := build(id)
	if r == nil {
		l.nextID--
		return nil
	}
	l.rooms[id] = r
	return r
}

func (l *Lobby) get(id int) *Room {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rooms[id]
}

func (l *Lobby) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms, id)
}

func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}

// snapshot returns the rooms ordered by id.
func (l *Lobby) snapshot() []*Room {
	l.mu.Lock()
	list := make([]*Room, 0, len(l.rooms))
	for _, r := range l.rooms {
		list = append(list, r)
	}
	l.mu.Unlock()

	slices.SortFunc(list, func(a, b *Room) int { return a.id - b.id })
	return list
}

// RoomInfo describes a room for the HTTP lobby view.
type RoomInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Started bool   `json:"started"`
}

// Rooms lists every open room.
func (l *Lobby) Rooms() []RoomInfo {
	rooms := l.snapshot()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.closed {
			out = append(out, RoomInfo{ID: r.id, Name: r.name, Players: r.countLocked(), Started: r.started})
		}
		r.mu.Unlock()
	}
	return out
}

// listing encodes the ROOM_LIST message. Rooms with a game underway are
// not joinable and are left out.
func (l *Lobby) listing() string {
	var entries []protocol.RoomSummary
	for _, info := range l.Rooms() {
		if info.Started {
			continue
		}
		entries = append(entries, protocol.RoomSummary{ID: info.ID, Name: info.Name, Players: info.Players})
	}
	return protocol.RoomList(entries)
}
