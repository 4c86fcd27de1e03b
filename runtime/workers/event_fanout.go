package workers

import (
	"context"
	"log/slog"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/protocol"
	"messenger/protocol/peer"
	"messenger/repositories"
	"time"

	"github.com/samber/lo"
)

// Broadcaster delivers one message to many peer connections.
type Broadcaster interface {
	Broadcast(ids []domain.ID, msg peer.Message) int
}

// EventFanout turns domain events into unsolicited Dispatch messages for
// every peer connection of the event's room.
//
// Delivery is best effort: Publish waits up to the publish timeout for room
// in the buffer before dropping the event, and connections whose mailbox is
// full miss the dispatch.
// Publish is safe for concurrent use; Run must be driven by a single goroutine.
type EventFanout struct {
	log            *slog.Logger
	users          repositories.IUserRepository
	peers          Broadcaster
	events         chan event.DomainEvent
	publishTimeout time.Duration
}

const defaultPublishTimeout = 250 * time.Millisecond

func NewEventFanout(log *slog.Logger, users repositories.IUserRepository, peers Broadcaster, bufferSize int) *EventFanout {
	return &EventFanout{
		log:            log,
		users:          users,
		peers:          peers,
		events:         make(chan event.DomainEvent, bufferSize),
		publishTimeout: defaultPublishTimeout,
	}
}

func (w *EventFanout) WithPublishTimeout(timeout time.Duration) *EventFanout {
	w.publishTimeout = timeout
	return w
}

// Publish blocks the caller only while the buffer is full.
func (w *EventFanout) Publish(evt event.DomainEvent) {
	select {
	case w.events <- evt:
		return
	default:
	}
	timer := time.NewTimer(w.publishTimeout)
	defer timer.Stop()
	select {
	case w.events <- evt:
	case <-timer.C:
		w.log.Warn("Fan-out buffer full, event dropped", "room_id", evt.RoomID(), "waited", w.publishTimeout)
	}
}

// Len reports the events waiting to be fanned out.
func (w *EventFanout) Len() int {
	return len(w.events)
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fan-out")
			return nil
		}
	}
}

// Fanout resolves the room's live peer connections and dispatches evt to them.
func (w *EventFanout) Fanout(evt event.DomainEvent) {
	payload, ok := toDispatch(evt)
	if !ok {
		w.log.Warn("Unsupported domain event", "event", evt)
		return
	}
	users, err := w.users.GetUsersByRoom(evt.RoomID())
	if err != nil {
		w.log.Error("Cannot resolve room members", "room_id", evt.RoomID(), "error", err)
		return
	}
	recipients := lo.FlatMap(users, func(u domain.User, _ int) []domain.ID {
		return u.ActiveConnectionIDs
	})
	if len(recipients) == 0 {
		return
	}
	delivered := w.peers.Broadcast(recipients, peer.Message{
		ID:      protocol.UnsolicitedID,
		Opcode:  peer.Dispatch,
		Payload: payload,
	})
	w.log.Debug("Event dispatched", "room_id", evt.RoomID(), "recipients", len(recipients), "delivered", delivered)
}

func toDispatch(evt event.DomainEvent) (protocol.Payload, bool) {
	switch e := evt.(type) {
	case event.UserUpdated:
		return peer.DispatchUserUpdate{User: e.User.Public()}, true
	case event.MessagePosted:
		return peer.DispatchMessageUpdate{Message: e.Message.Public()}, true
	default:
		return nil, false
	}
}
