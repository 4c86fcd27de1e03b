package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrNotFound           = fmt.Errorf("key not found")
	ErrDuplicateKey       = fmt.Errorf("duplicate key")
	ErrConnectionNotFound = fmt.Errorf("connection not found in registry")
	ErrConnectionClosed   = fmt.Errorf("connection is closed")
	ErrMailboxFull        = fmt.Errorf("mailbox is full")
	ErrUnknownEncoding    = fmt.Errorf("unknown encoding")
	ErrInvalidEnvelope    = fmt.Errorf("invalid envelope")
	ErrInvalidPayload     = fmt.Errorf("payload is not a non-empty map")
	ErrInvalidToken       = fmt.Errorf("invalid session token")
	ErrGatheringTimeout   = fmt.Errorf("ICE gathering timed out")
	ErrNoLocalDescription = fmt.Errorf("no local description after gathering")
)
