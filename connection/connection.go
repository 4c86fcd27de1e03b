// Package connection holds the two connection actors: the WebSocket control
// connection and the WebRTC peer connection it spawns after a room join.
//
// Each actor owns its state and runs on one goroutine fed by a mailbox.
// Socket reads and WebRTC negotiation run on helper goroutines that post
// their results back into the mailbox.
package connection

import (
	"context"
	"messenger/domain"
	"messenger/protocol/control"
	"messenger/services"
	"time"
)

const writeTimeout = 10 * time.Second

type ControlConfig struct {
	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration
	ReadLimit         int64
	MailboxSize       int
}

type PeerConfig struct {
	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration
	BufferSize        int
	MailboxSize       int
}

// Owner is the control connection as seen by the peer connection it spawned.
type Owner interface {
	Send(msg control.Message) error
	// Close asks the owner to stop.
	Close()
	// Detach tells the owner this peer is gone.
	Detach(peer PeerHandle)
}

// PeerHandle is the peer connection as seen by its owner.
type PeerHandle interface {
	Accept(sdp string) error
	Close()
}

// PeerStarter spawns the peer connection of a freshly joined control connection.
// The peer reuses the control connection id.
type PeerStarter interface {
	StartPeer(ctx context.Context, owner Owner, connectionID domain.ID, membership services.Membership) (PeerHandle, error)
}
