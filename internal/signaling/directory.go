package signaling

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Directory tracks which identities are members of which communities. It is
// the single source of truth for membership; sessions do not keep their own
// list of joined rooms.
//
// Membership notifications are queued while mu is held, so every member sees
// roster snapshots in the order the joins and leaves were applied.
type Directory struct {
	mu       sync.Mutex
	rooms    map[string]map[Identity]struct{}
	byMember map[Identity]map[string]struct{}

	router *Router
	now    func() int64
	logger *slog.Logger
}

func newDirectory(router *Router, now func() int64, logger *slog.Logger) *Directory {
	return &Directory{
		rooms:    make(map[string]map[Identity]struct{}),
		byMember: make(map[Identity]map[string]struct{}),
		router:   router,
		now:      now,
		logger:   logger,
	}
}

// Join adds id to room, creating the room on first join, and returns the
// resulting member snapshot. Every member, the joiner included, receives the
// roster; user-joined is only announced when membership actually changed.
func (d *Directory) Join(room string, id Identity) []Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[Identity]struct{})
		d.rooms[room] = members
		d.logger.Info("community created", "community", room)
	}

	_, already := members[id]
	if !already {
		members[id] = struct{}{}
		rooms, ok := d.byMember[id]
		if !ok {
			rooms = make(map[string]struct{})
			d.byMember[id] = rooms
		}
		rooms[room] = struct{}{}
	}

	snapshot := sortedMembers(members)
	d.router.SendToAll(snapshot, protocol.CommunityMembers{
		CommunityID: room,
		Members:     identityStrings(snapshot),
	})
	if !already {
		d.router.SendToAll(snapshot, protocol.UserJoined{UserID: id.String(), CommunityID: room})
		d.logger.Info("joined community", "identity", id, "community", room, "members", len(snapshot))
	}

	return snapshot
}

// Leave removes id from room. A room left with no members is forgotten.
// Leaving a room one is not a member of changes nothing but still announces
// user-left to whoever is in the room, and returns ErrNotAMember.
func (d *Directory) Leave(room string, id Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		return ErrUnknownRoom
	}

	if _, member := members[id]; !member {
		d.router.SendToAll(sortedMembers(members), protocol.UserLeft{UserID: id.String(), CommunityID: room})
		return ErrNotAMember
	}

	d.removeLocked(room, id)
	return nil
}

// LeaveAll removes id from every room it belongs to, notifying each room's
// remaining members, and returns the rooms it left.
func (d *Directory) LeaveAll(id Identity) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	rooms := slices.Sorted(maps.Keys(d.byMember[id]))
	for _, room := range rooms {
		d.removeLocked(room, id)
	}
	return rooms
}

// removeLocked drops a known membership and notifies the remaining members.
// d.mu must be held.
func (d *Directory) removeLocked(room string, id Identity) {
	members := d.rooms[room]
	delete(members, id)

	if rooms, ok := d.byMember[id]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(d.byMember, id)
		}
	}

	if len(members) == 0 {
		delete(d.rooms, room)
		d.logger.Info("community deleted", "community", room)
		return
	}

	snapshot := sortedMembers(members)
	d.router.SendToAll(snapshot, protocol.CommunityMembers{
		CommunityID: room,
		Members:     identityStrings(snapshot),
	})
	d.router.SendToAll(snapshot, protocol.UserLeft{UserID: id.String(), CommunityID: room})
	d.logger.Info("left community", "identity", id, "community", room, "members", len(snapshot))
}

// RoomsContaining returns the rooms id is currently a member of.
func (d *Directory) RoomsContaining(id Identity) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.byMember[id]))
}

// Members returns a sorted snapshot of room's members, or nil when the room
// does not exist.
func (d *Directory) Members(room string) []Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		return nil
	}
	return sortedMembers(members)
}

// Sizes returns the member count of every live room.
func (d *Directory) Sizes() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]int, len(d.rooms))
	for room, members := range d.rooms {
		out[room] = len(members)
	}
	return out
}

// BroadcastMessage relays a chat line from sender to every member of room,
// the sender included. It returns the number of members reached.
func (d *Directory) BroadcastMessage(room string, sender Identity, text string) int {
	return d.router.SendToRoom(room, protocol.CommunityMessage{
		UserID:      sender.String(),
		CommunityID: room,
		Message:     text,
		Timestamp:   d.now(),
	}, "")
}

func sortedMembers(set map[Identity]struct{}) []Identity {
	return slices.Sorted(maps.Keys(set))
}

func identityStrings(ids []Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
