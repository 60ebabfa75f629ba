package rooms

import (
	"sync"

	"github.com/syncify/syncify/backend/go-services/pkg/logger"
	"github.com/syncify/syncify/backend/go-services/pkg/metrics"
)

// Conn is the transport handle the registry needs: a stable identity plus a
// non-blocking send. Send reports false when the peer is backpressured or
// gone; the registry drops the message in that case (at-most-once delivery).
type Conn interface {
	ID() string
	Send(msg []byte) bool
}

type entry struct {
	conn        Conn
	displayName string
}

// Registry tracks room membership in memory. Rooms materialize on first join
// and are garbage-collected when the last member leaves; there is no create
// or destroy lifecycle and no cross-process state.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*entry // roomID -> connID -> entry
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]*entry)}
}

// Join adds the connection to the room and returns the updated membership so
// the caller can announce it. A connection may be a member of any number of
// rooms; rooms accept unlimited joins.
func (r *Registry) Join(conn Conn, roomID, displayName string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]*entry)
		r.rooms[roomID] = room
	}
	room[conn.ID()] = &entry{conn: conn, displayName: displayName}
	logger.Debugf("room %s: %s joined as %q (%d members)", roomID, conn.ID(), displayName, len(room))
	return membersLocked(room)
}

// Leave removes the connection from the room and returns its identity for
// the departure announcement. The room is dropped once empty.
func (r *Registry) Leave(connID, roomID string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return Member{}, false
	}
	e, ok := room[connID]
	if !ok {
		return Member{}, false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	return Member{ConnID: connID, DisplayName: e.displayName}, true
}

// Disconnect removes the connection from every room it had joined and
// returns one Departure per room. Disconnection is indistinguishable from an
// explicit leave at the protocol level.
func (r *Registry) Disconnect(connID string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Departure
	for roomID, room := range r.rooms {
		e, ok := room[connID]
		if !ok {
			continue
		}
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, roomID)
		}
		out = append(out, Departure{
			RoomID: roomID,
			Member: Member{ConnID: connID, DisplayName: e.displayName},
		})
	}
	return out
}

// Members returns a snapshot of the room's membership; nil when the room
// does not exist.
func (r *Registry) Members(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return membersLocked(room)
}

// Broadcast delivers msg to every current member of the room except
// excludeConnID. Delivery is best-effort: a member whose transport cannot
// accept the write right now simply misses the event. Returns the number of
// members the message was handed to.
func (r *Registry) Broadcast(roomID string, msg []byte, excludeConnID string) int {
	r.mu.RLock()
	conns := make([]Conn, 0)
	if room, ok := r.rooms[roomID]; ok {
		for id, e := range room {
			if id == excludeConnID {
				continue
			}
			conns = append(conns, e.conn)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if c.Send(msg) {
			delivered++
		} else {
			metrics.EventsDropped.Inc()
		}
	}
	metrics.EventsRelayed.Add(float64(delivered))
	return delivered
}

func membersLocked(room map[string]*entry) []Member {
	out := make([]Member, 0, len(room))
	for id, e := range room {
		out = append(out, Member{ConnID: id, DisplayName: e.displayName})
	}
	return out
}
