// Package rtc wraps pion/webrtc into the small capability a peer connection
// needs: produce an offer with one detached data channel, accept the answer,
// and close.
package rtc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"messenger/errors"
	"time"

	"github.com/pion/webrtc/v4"
)

const DefaultGatherTimeout = 15 * time.Second

// Session is one server-side WebRTC peer connection.
type Session interface {
	// Offer opens the data channel and returns the local SDP once ICE
	// gathering completes. onOpen receives the detached channel when the
	// remote opens it, from a pion goroutine.
	Offer(ctx context.Context, onOpen func(channel io.ReadWriteCloser)) (string, error)
	// Accept applies the remote answer.
	Accept(sdp string) error
	Close() error
}

type Factory interface {
	NewSession() (Session, error)
}

type Config struct {
	ICEServers      []string
	IncludeLoopback bool
	GatherTimeout   time.Duration
}

type PionFactory struct {
	api           *webrtc.API
	configuration webrtc.Configuration
	gatherTimeout time.Duration
	log           *slog.Logger
}

func NewPionFactory(config Config, log *slog.Logger) *PionFactory {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(config.IncludeLoopback)

	configuration := webrtc.Configuration{}
	if len(config.ICEServers) > 0 {
		configuration.ICEServers = []webrtc.ICEServer{{URLs: config.ICEServers}}
	}
	gatherTimeout := config.GatherTimeout
	if gatherTimeout <= 0 {
		gatherTimeout = DefaultGatherTimeout
	}
	return &PionFactory{
		api:           webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine)),
		configuration: configuration,
		gatherTimeout: gatherTimeout,
		log:           log,
	}
}

func (f *PionFactory) NewSession() (Session, error) {
	pc, err := f.api.NewPeerConnection(f.configuration)
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}
	session := &pionSession{pc: pc, gatherTimeout: f.gatherTimeout, log: f.log}
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		f.log.Debug("ICE connection state changed", "state", state.String())
	})
	return session, nil
}

type pionSession struct {
	pc            *webrtc.PeerConnection
	gatherTimeout time.Duration
	log           *slog.Logger
}

func (s *pionSession) Offer(ctx context.Context, onOpen func(channel io.ReadWriteCloser)) (string, error) {
	dc, err := s.pc.CreateDataChannel("", nil)
	if err != nil {
		return "", fmt.Errorf("creating data channel: %w", err)
	}
	dc.OnOpen(func() {
		raw, err := dc.Detach()
		if err != nil {
			s.log.Error("Cannot detach data channel", "error", err)
			_ = dc.Close()
			return
		}
		onOpen(raw)
	})

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("creating SDP offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}

	// Vanilla ICE: the offer carries every candidate.
	timer := time.NewTimer(s.gatherTimeout)
	defer timer.Stop()
	select {
	case <-gatherComplete:
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", errors.ErrGatheringTimeout, s.gatherTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	local := s.pc.LocalDescription()
	if local == nil {
		return "", errors.ErrNoLocalDescription
	}
	return local.SDP, nil
}

func (s *pionSession) Accept(sdp string) error {
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	return nil
}

func (s *pionSession) Close() error {
	return s.pc.Close()
}
