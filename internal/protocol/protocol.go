package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeLogin   = "LOGIN"
	TypeWelcome = "WELCOME"
	TypePing    = "PING"
	TypePong    = "PONG"
	TypeMove    = "MOVE"
	TypeUseItem = "USE_ITEM"
	TypeMap     = "MAP"

	TypeMovedEntity   = "MOVED_ENTITY"
	TypeChangedEntity = "CHANGED_ENTITY"
	TypeRemovedEntity = "REMOVED_ENTITY"
	TypeError         = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
