package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Wire event names.
const (
	EventSocketID       = "socket_id"
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
)

// ErrMissingRoom is returned when a chat payload does not name a room.
var ErrMissingRoom = errors.New("realtime: payload has no room")

// Event is a single JSON frame exchanged with a client.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Payload is a send_message body exactly as the client declared it. It is
// relayed verbatim, including fields the server does not know about. Numbers
// are held as json.Number so their original text survives re-encoding.
type Payload map[string]any

// ChatMessage is the typed view of a Payload.
type ChatMessage struct {
	Room    string `json:"room" mapstructure:"room"`
	Author  string `json:"author" mapstructure:"author"`
	Message string `json:"message" mapstructure:"message"`
	Time    string `json:"time" mapstructure:"time"`
}

// Decode extracts the well-known fields. Scalars of other JSON types are
// converted to strings so numeric room keys keep working.
func (p Payload) Decode() (ChatMessage, error) {
	var msg ChatMessage
	if err := weakDecode(map[string]any(p), &msg); err != nil {
		return ChatMessage{}, fmt.Errorf("realtime: decode chat payload: %w", err)
	}
	if strings.TrimSpace(msg.Room) == "" {
		return ChatMessage{}, ErrMissingRoom
	}
	return msg, nil
}

// Room returns the room the payload is addressed to. Other fields are not
// inspected, so a payload with odd author or text types is still relayed.
func (p Payload) Room() (string, error) {
	value, ok := p["room"]
	if !ok || value == nil {
		return "", ErrMissingRoom
	}

	var room string
	if err := weakDecode(value, &room); err != nil {
		return "", fmt.Errorf("realtime: invalid room: %w", err)
	}
	if strings.TrimSpace(room) == "" {
		return "", ErrMissingRoom
	}
	return room, nil
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	cpy := make(Payload, len(p))
	for k, v := range p {
		cpy[k] = v
	}
	return cpy
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeFrame(raw []byte) (inboundFrame, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return inboundFrame{}, fmt.Errorf("realtime: invalid frame: %w", err)
	}
	frame.Event = strings.TrimSpace(frame.Event)
	if frame.Event == "" {
		return inboundFrame{}, errors.New("realtime: frame has no event name")
	}
	return frame, nil
}

// decodeRoomID accepts a JSON string or number as a room identifier.
func decodeRoomID(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", ErrMissingRoom
	}

	var raw any
	if err := unmarshalNumbers(data, &raw); err != nil {
		return "", fmt.Errorf("realtime: invalid room id: %w", err)
	}

	var room string
	if err := weakDecode(raw, &room); err != nil {
		return "", fmt.Errorf("realtime: invalid room id: %w", err)
	}
	if strings.TrimSpace(room) == "" {
		return "", ErrMissingRoom
	}
	return room, nil
}

func decodePayload(data json.RawMessage) (Payload, error) {
	if len(data) == 0 {
		return nil, ErrMissingRoom
	}

	var payload Payload
	if err := unmarshalNumbers(data, &payload); err != nil {
		return nil, fmt.Errorf("realtime: invalid message payload: %w", err)
	}
	if payload == nil {
		return nil, ErrMissingRoom
	}
	return payload, nil
}

// unmarshalNumbers decodes a single JSON value, keeping numbers as json.Number.
func unmarshalNumbers(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after value")
	}
	return nil
}

func weakDecode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
