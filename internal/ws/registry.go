package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handle is one live duplex stream to a participant. The registry owns a
// handle for the duration of its room membership; the lifecycle code keeps
// a transient reference while reading and writing.
type Handle interface {
	// Enqueue hands a frame to the handle's outbound queue without
	// blocking. Fails when the queue is full or the stream is torn down.
	Enqueue(payload []byte) error

	// Kick closes the handle's stream. Used when its room is force
	// deleted out from under it.
	Kick()
}

// Registry maps room name -> set of live handles. It is the single shared
// mutable structure touched by every connection, so every operation is
// synchronized: the outer mutex guards the room map, each room's mutex
// guards its member set. Lock order is always outer then inner.
type Registry struct {
	log zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*roomMembers
}

// roomMembers is one room's live connection set. Members map handle to its
// assigned client id, so set membership and the identifier mapping cannot
// drift apart.
type roomMembers struct {
	mu      sync.RWMutex
	members map[Handle]string
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:   log.With().Str("component", "registry").Logger(),
		rooms: make(map[string]*roomMembers),
	}
}

// Join inserts the handle into the room's set, creating the set if absent,
// and returns the freshly assigned client id.
func (r *Registry) Join(room string, h Handle) string {
	id := uuid.NewString()

	r.mu.Lock()
	rm := r.rooms[room]
	if rm == nil {
		rm = &roomMembers{members: make(map[Handle]string)}
		r.rooms[room] = rm
	}
	rm.mu.Lock()
	rm.members[h] = id
	count := len(rm.members)
	rm.mu.Unlock()
	r.mu.Unlock()

	r.log.Debug().Str("room", room).Str("client_id", id).Int("members", count).Msg("client joined")
	return id
}

// Leave removes the handle from the room's set, dropping the room entry
// when it empties. No-op when the handle is already absent: disconnect
// cleanup may race with a forced room deletion.
func (r *Registry) Leave(room string, h Handle) {
	r.mu.Lock()
	rm := r.rooms[room]
	if rm == nil {
		r.mu.Unlock()
		return
	}
	rm.mu.Lock()
	delete(rm.members, h)
	remaining := len(rm.members)
	rm.mu.Unlock()
	if remaining == 0 {
		delete(r.rooms, room)
	}
	r.mu.Unlock()

	r.log.Debug().Str("room", room).Int("members", remaining).Msg("client left")
}

// Broadcast delivers the payload to every handle currently in the room,
// skipping exclude when non-nil. Delivery is best-effort per recipient: a
// failed enqueue is logged and never aborts the rest of the batch; the
// broken handle's own disconnect path cleans it up.
func (r *Registry) Broadcast(room string, payload []byte, exclude Handle) {
	r.mu.RLock()
	rm := r.rooms[room]
	r.mu.RUnlock()
	if rm == nil {
		return
	}

	// Snapshot under the lock, deliver outside it.
	rm.mu.RLock()
	targets := make([]Handle, 0, len(rm.members))
	for h := range rm.members {
		if h != exclude {
			targets = append(targets, h)
		}
	}
	rm.mu.RUnlock()

	for _, h := range targets {
		if err := h.Enqueue(payload); err != nil {
			r.log.Warn().Err(err).Str("room", room).Msg("dropping frame for slow or closed client")
		}
	}
}

// CountInRoom returns the live membership size, 0 when no connections.
func (r *Registry) CountInRoom(room string) int {
	r.mu.RLock()
	rm := r.rooms[room]
	r.mu.RUnlock()
	if rm == nil {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}

// ClientID looks up the identifier assigned to a handle at join time.
func (r *Registry) ClientID(room string, h Handle) (string, bool) {
	r.mu.RLock()
	rm := r.rooms[room]
	r.mu.RUnlock()
	if rm == nil {
		return "", false
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	id, ok := rm.members[h]
	return id, ok
}

// ActiveRooms returns a snapshot of room name -> live connection count.
func (r *Registry) ActiveRooms() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.rooms))
	for name, rm := range r.rooms {
		rm.mu.RLock()
		counts[name] = len(rm.members)
		rm.mu.RUnlock()
	}
	return counts
}

// ClientCount returns the number of live connections across all rooms.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, rm := range r.rooms {
		rm.mu.RLock()
		total += len(rm.members)
		rm.mu.RUnlock()
	}
	return total
}

// RoomCount returns the number of rooms with at least one live connection.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// EvictRoom removes the room's registry entry and closes every member's
// stream. Invoked when a room is deleted while connections are still
// joined; each kicked member then runs its normal disconnect cleanup,
// where Leave no-ops against the already-evicted room.
func (r *Registry) EvictRoom(room string) {
	r.mu.Lock()
	rm := r.rooms[room]
	delete(r.rooms, room)
	r.mu.Unlock()
	if rm == nil {
		return
	}

	rm.mu.Lock()
	evicted := make([]Handle, 0, len(rm.members))
	for h := range rm.members {
		evicted = append(evicted, h)
	}
	rm.members = make(map[Handle]string)
	rm.mu.Unlock()

	for _, h := range evicted {
		h.Kick()
	}
	r.log.Info().Str("room", room).Int("evicted", len(evicted)).Msg("room evicted")
}
