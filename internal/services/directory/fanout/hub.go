// Package fanout provides the in-process pub/sub hub that carries chat
// events from the operation services to realtime subscribers.
package fanout

import (
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/services/directory/domain"
)

// EventType identifies what happened inside a chat.
type EventType string

const (
	EventMessageCreated     EventType = "message.created"
	EventMessageEdited      EventType = "message.edited"
	EventMessageDeleted     EventType = "message.deleted"
	EventMessagePinned      EventType = "message.pinned"
	EventMessageUnpinned    EventType = "message.unpinned"
	EventParticipantJoined  EventType = "participant.joined"
	EventParticipantRemoved EventType = "participant.removed"
	EventParticipantBanned  EventType = "participant.banned"
	EventParticipantUnbanned EventType = "participant.unbanned"
	EventRoleChanged        EventType = "participant.role_changed"
	EventChatDeleted        EventType = "chat.deleted"
)

// Event is one chat occurrence delivered to subscribers. Message and
// Participant are set when the event concerns one.
type Event struct {
	Type        EventType
	ChatID      string
	ActorID     string
	Message     *domain.Message
	Participant *domain.Participant
	OccurredAt  time.Time
}

// subscriberBuffer bounds how far a slow consumer may lag before events
// are dropped for it.
const subscriberBuffer = 32

type subscriber struct {
	events chan Event
}

type channel struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// Hub is a registry of per-chat event channels. Publish is fire-and-forget:
// subscribers that cannot keep up lose events rather than blocking senders.
type Hub struct {
	mu       sync.Mutex
	channels map[string]*channel
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string]*channel)}
}

func (h *Hub) channelFor(chatID string) *channel {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[chatID]
	if ok {
		return ch
	}
	ch = &channel{subscribers: make(map[*subscriber]struct{})}
	h.channels[chatID] = ch
	return ch
}

// Subscribe registers a consumer for one chat. The returned cancel
// function detaches the consumer and closes its event channel. Callers
// must authorize the subscription before calling.
func (h *Hub) Subscribe(chatID string) (<-chan Event, func()) {
	ch := h.channelFor(chatID)
	sub := &subscriber{events: make(chan Event, subscriberBuffer)}

	ch.mu.Lock()
	ch.subscribers[sub] = struct{}{}
	ch.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ch.mu.Lock()
			delete(ch.subscribers, sub)
			ch.mu.Unlock()
			close(sub.events)
		})
	}
	return sub.events, cancel
}

// Publish delivers an event to the chat's current subscribers. Full
// subscriber buffers drop the event for that subscriber only.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	ch, ok := h.channels[event.ChatID]
	h.mu.Unlock()
	if !ok {
		return
	}

	// Non-blocking sends happen under the channel lock so a concurrent
	// cancel cannot close a buffer mid-send.
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for sub := range ch.subscribers {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// SubscriberCount reports how many consumers a chat currently has.
func (h *Hub) SubscriberCount(chatID string) int {
	h.mu.Lock()
	ch, ok := h.channels[chatID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subscribers)
}
