package realtime

// Registry maps a user identity to the one connection currently bound to it.
// It is not safe for concurrent use on its own; the Hub serialises access.
type Registry struct {
	byUser map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]string)}
}

// Register binds userID to connID. When another connection was bound to the
// same identity it is returned so the caller can force it closed; the new
// binding replaces it either way.
func (r *Registry) Register(userID, connID string) (evicted string, replaced bool) {
	if userID == "" || connID == "" {
		return "", false
	}

	previous, ok := r.byUser[userID]
	r.byUser[userID] = connID
	if !ok || previous == connID {
		return "", false
	}
	return previous, true
}

// Unregister removes the binding only while it still points at connID, so
// cleanup from a superseded connection never drops the newer session.
func (r *Registry) Unregister(userID, connID string) bool {
	current, ok := r.byUser[userID]
	if !ok || current != connID {
		return false
	}
	delete(r.byUser, userID)
	return true
}

// Lookup reports the connection bound to userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Len returns the number of bound identities.
func (r *Registry) Len() int {
	return len(r.byUser)
}

// Snapshot copies the current bindings.
func (r *Registry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.byUser))
	for userID, connID := range r.byUser {
		out[userID] = connID
	}
	return out
}

// Reset drops every binding.
func (r *Registry) Reset() {
	r.byUser = make(map[string]string)
}
