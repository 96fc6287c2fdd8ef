// Package bus provides the in-process publish/subscribe channel used to
// decouple the advisory core from the surfaces that trigger it or
// consume its output. Delivery is synchronous, in subscription order,
// at most once per subscriber per publish. It is not a message queue:
// nothing is buffered, retried or delivered across processes.
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/storage/models"
)

type Topic string

const (
	// TopicOpenSession asks that an advisory session open pre-filled.
	TopicOpenSession Topic = "open-session"
	// TopicAircraftChanged carries the new models.SelectedAircraft.
	TopicAircraftChanged Topic = "aircraft-changed"
	// TopicPredictionsGenerated carries a PredictionsPayload.
	TopicPredictionsGenerated Topic = "predictions-generated"
	// TopicAssessmentsChanged signals the assessment history mutated.
	// It has no payload.
	TopicAssessmentsChanged Topic = "assessments-changed"
)

// OpenSessionRequest is the payload of TopicOpenSession.
type OpenSessionRequest struct {
	Query   string `json:"query,omitempty"`
	Context string `json:"context,omitempty"`
}

// PredictionsPayload is the payload of TopicPredictionsGenerated.
type PredictionsPayload struct {
	Alerts []models.PredictedAlert `json:"alerts"`
}

type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an injected dependency, never a package global. A handler must
// not publish to the topic it is handling; each topic here is produced
// by exactly one component type, which keeps that from arising.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64
	logger *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for a topic and returns the function
// that removes it. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, sub := range list {
			if sub.id == id {
				b.subs[topic] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers payload to every current subscriber of topic, in
// subscription order, on the caller's goroutine.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	list := make([]subscription, len(b.subs[topic]))
	copy(list, b.subs[topic])
	b.mu.RUnlock()

	b.logger.Debug("Publishing event",
		zap.String("topic", string(topic)),
		zap.Int("subscribers", len(list)),
	)

	for _, sub := range list {
		sub.handler(payload)
	}
}
