// Package registry tracks which canvas room each live connection belongs to.
package registry

import "sync"

// Member is anything that can sit in a room. IDs must be unique per process.
type Member interface {
	ID() string
}

// Registry maps canvas ids to their members. A member is in at most one room.
type Registry[M Member] struct {
	mu           sync.RWMutex
	rooms        map[string]map[string]M
	memberToRoom map[string]string
}

func New[M Member]() *Registry[M] {
	return &Registry[M]{
		rooms:        make(map[string]map[string]M),
		memberToRoom: make(map[string]string),
	}
}

// Join moves m into canvasId, leaving whatever room it was in before.
// It returns the previous room and whether membership changed.
func (r *Registry[M]) Join(m M, canvasId string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ID()
	previous, inRoom := r.memberToRoom[id]
	if inRoom && previous == canvasId {
		return previous, false
	}
	if inRoom {
		r.removeLocked(id, previous)
	}

	room, ok := r.rooms[canvasId]
	if !ok {
		room = make(map[string]M)
		r.rooms[canvasId] = room
	}
	room[id] = m
	r.memberToRoom[id] = canvasId

	return previous, true
}

// Leave removes m from its room. Calling it for a member in no room is a no-op.
func (r *Registry[M]) Leave(m M) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ID()
	canvasId, ok := r.memberToRoom[id]
	if !ok {
		return "", false
	}
	r.removeLocked(id, canvasId)
	return canvasId, true
}

func (r *Registry[M]) removeLocked(id string, canvasId string) {
	delete(r.memberToRoom, id)
	room := r.rooms[canvasId]
	delete(room, id)
	if len(room) == 0 {
		delete(r.rooms, canvasId)
	}
}

// MembersOf returns a copy of the room's members, safe to range over without the lock.
func (r *Registry[M]) MembersOf(canvasId string) []M {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[canvasId]
	members := make([]M, 0, len(room))
	for _, m := range room {
		members = append(members, m)
	}
	return members
}

func (r *Registry[M]) RoomOf(memberId string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canvasId, ok := r.memberToRoom[memberId]
	return canvasId, ok
}

func (r *Registry[M]) Size(canvasId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[canvasId])
}

// Rooms returns the number of non-empty rooms.
func (r *Registry[M]) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
