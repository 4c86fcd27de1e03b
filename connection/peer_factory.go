package connection

import (
	"context"
	"messenger/domain"
	"messenger/errors"
	"messenger/protocol"
	"messenger/rtc"
	"messenger/services"
)

// PeerFactory starts real WebRTC peer connections.
type PeerFactory struct {
	sessions rtc.Factory
	config   PeerConfig
	deps     PeerDependencies
}

func NewPeerFactory(sessions rtc.Factory, config PeerConfig, deps PeerDependencies) *PeerFactory {
	return &PeerFactory{sessions: sessions, config: config, deps: deps}
}

// StartPeer returns once the actor runs; negotiation continues in the background.
// The peer lives until closed or until ctx ends.
func (f *PeerFactory) StartPeer(ctx context.Context, owner Owner, connectionID domain.ID, membership services.Membership) (PeerHandle, error) {
	session, err := f.sessions.NewSession()
	if err != nil {
		return nil, errors.Internal(errors.KindWebRTC, err)
	}
	p := NewPeerConnection(connectionID, session, owner, membership, f.config, f.deps)
	go p.Run(ctx)
	return p, nil
}

// WithCodec returns a factory whose peers speak codec, the encoding their control connection negotiated.
func (f *PeerFactory) WithCodec(codec protocol.Codec) *PeerFactory {
	cp := *f
	cp.deps.Codec = codec
	return &cp
}
