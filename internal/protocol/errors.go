package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoUnknownType = "E_PROTO_UNKNOWN_TYPE"
	ErrProtoVersion     = "E_PROTO_VERSION"

	// Session state.
	ErrNotLoggedIn     = "E_NOT_LOGGED_IN"
	ErrAlreadyLoggedIn = "E_ALREADY_LOGGED_IN"

	// Rule/action layer.
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoUnknownType: {},
	ErrProtoVersion:     {},
	ErrNotLoggedIn:      {},
	ErrAlreadyLoggedIn:  {},
	ErrInvalidTarget:    {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// NewError builds an ERROR message.
func NewError(code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		Code:            code,
		Message:         message,
	}
}
