package realtime

import "sort"

// Rooms tracks which connections have joined which rooms. Membership is keyed
// by connection, not by user. Like Registry it relies on the Hub for locking.
type Rooms struct {
	members map[string]map[string]struct{}
	byConn  map[string]map[string]struct{}
}

// NewRooms returns an empty membership tracker.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		byConn:  make(map[string]map[string]struct{}),
	}
}

// Join adds connID to roomID and reports whether the membership is new.
func (r *Rooms) Join(connID, roomID string) bool {
	if connID == "" || roomID == "" {
		return false
	}

	if _, exists := r.members[roomID][connID]; exists {
		return false
	}

	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]struct{})
	}
	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}

	r.members[roomID][connID] = struct{}{}
	r.byConn[connID][roomID] = struct{}{}
	return true
}

// Members returns the connection ids joined to roomID, sorted.
func (r *Rooms) Members(roomID string) []string {
	return sortedKeys(r.members[roomID])
}

// IsMember reports whether connID has joined roomID.
func (r *Rooms) IsMember(connID, roomID string) bool {
	_, ok := r.members[roomID][connID]
	return ok
}

// RoomsOf returns the rooms connID has joined, sorted.
func (r *Rooms) RoomsOf(connID string) []string {
	return sortedKeys(r.byConn[connID])
}

// Purge removes connID from every room it joined and returns those rooms.
// Rooms left without members are forgotten.
func (r *Rooms) Purge(connID string) []string {
	joined := r.byConn[connID]
	if len(joined) == 0 {
		delete(r.byConn, connID)
		return nil
	}

	left := sortedKeys(joined)
	for _, roomID := range left {
		members := r.members[roomID]
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, roomID)
		}
	}
	delete(r.byConn, connID)
	return left
}

// Count returns the number of rooms with at least one member.
func (r *Rooms) Count() int {
	return len(r.members)
}

// Reset drops all memberships.
func (r *Rooms) Reset() {
	r.members = make(map[string]map[string]struct{})
	r.byConn = make(map[string]map[string]struct{})
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
