package errors

import "fmt"

// CloseCode is a WebSocket close status sent when the remote breaks the protocol.
type CloseCode uint16

const (
	CloseUnknown CloseCode = 4000 + iota
	CloseOpcode
	CloseInvalidMessage
	CloseNotAuthenticated
	CloseAuthenticationFailed
	CloseAlreadyAuthenticated
)

func (c CloseCode) Reason() string {
	switch c {
	case CloseOpcode:
		return "Opcode not allowed"
	case CloseInvalidMessage:
		return "Invalid message"
	case CloseNotAuthenticated:
		return "Not authenticated"
	case CloseAuthenticationFailed:
		return "Authentication failed"
	case CloseAlreadyAuthenticated:
		return "Already authenticated"
	default:
		return "Unknown error"
	}
}

// Violation is returned by handlers to close the connection instead of replying.
type Violation struct {
	Code CloseCode
}

func (v Violation) Error() string {
	return fmt.Sprintf("protocol violation %d: %s", v.Code, v.Code.Reason())
}
