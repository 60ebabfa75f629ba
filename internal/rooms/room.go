package rooms

import "encoding/json"

// Message types carried on the realtime surface.
const (
	TypeJoinRoom        = "join-room"
	TypeLeaveRoom       = "leave-room"
	TypePlaybackEvent   = "playback-event"
	TypePeerJoined      = "peer-joined"
	TypePeerLeft        = "peer-left"
	TypePlaybackCommand = "playback-command"
)

// Envelope is the wire shape shared by inbound and outbound realtime
// messages. Unused fields are omitted per message type.
type Envelope struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	ID       string          `json:"id,omitempty"`
	UserName string          `json:"userName,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Member is one joined connection's identity within a room.
type Member struct {
	ConnID      string `json:"id"`
	DisplayName string `json:"userName"`
}

// Departure records a room a disconnected connection was removed from, so
// the caller can announce exactly one peer-left per room.
type Departure struct {
	RoomID string
	Member Member
}
