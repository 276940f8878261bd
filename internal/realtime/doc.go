// Package realtime tracks which user identity is attached to which live
// connection, which connections have joined which chat rooms, and relays
// room-scoped chat messages between connections.
//
// The Hub composes a Registry (user -> connection, single active session per
// user), a Rooms tracker (room -> member connections) and a Relay (room
// fan-out excluding the sender). Every Hub operation runs under one lock, so
// registry and membership updates are never observed half-applied and a
// fan-out completes before the next operation starts.
//
// The Server type adapts gorilla/websocket connections to the Hub using the
// socket_id, join_room, send_message and receive_message events.
package realtime
