package realtime

import (
	"go.uber.org/zap"

	"github.com/charlesng35/chatrelay/pkg/metrics"
)

// Relay fans a chat payload out to the members of its room.
type Relay struct {
	rooms   *Rooms
	resolve func(connID string) (Conn, bool)
	log     *zap.Logger
}

// NewRelay builds a relay over the membership tracker. resolve maps a member
// connection id to its live handle.
func NewRelay(rooms *Rooms, resolve func(connID string) (Conn, bool), log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{rooms: rooms, resolve: resolve, log: log}
}

// Relay delivers payload as a receive_message event to every member of room
// except senderID. Delivery is a non-blocking enqueue per recipient; a
// recipient that cannot accept the event is skipped. It returns how many
// recipients accepted the event and how many were dropped.
func (r *Relay) Relay(senderID, room string, payload Payload) (delivered, dropped int) {
	if room == "" || payload == nil {
		return 0, 0
	}

	event := Event{Name: EventReceiveMessage, Data: payload}
	for _, memberID := range r.rooms.Members(room) {
		if memberID == senderID {
			continue
		}

		conn, ok := r.resolve(memberID)
		if !ok {
			dropped++
			continue
		}
		if !conn.Send(event) {
			dropped++
			r.log.Debug("dropping delivery to saturated connection",
				zap.String("room", room),
				zap.String("conn_id", memberID),
			)
			continue
		}
		delivered++
	}

	metrics.Deliveries.WithLabelValues("delivered").Add(float64(delivered))
	metrics.Deliveries.WithLabelValues("dropped").Add(float64(dropped))
	return delivered, dropped
}
