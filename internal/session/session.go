// Package session holds the in-memory conversation state for one open
// advisory panel. A session lives for the lifetime of its panel and is
// discarded, not persisted, on close.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/advisory"
	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/metrics"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
)

const seededContent = "Maintenance assistant initialized. Ask about inspections, troubleshooting or compliance deadlines; uploaded manuals are cited as evidence where available."

// Config wires a session to its collaborators. OnMessage fires for
// every appended message; OnOpenRequest fires when an open-session
// event arrives, before any pre-filled query is submitted. Both may be
// nil.
type Config struct {
	Service    *advisory.Service
	Events     *bus.Bus
	ReplyDelay time.Duration

	OnMessage     func(models.Message)
	OnOpenRequest func(bus.OpenSessionRequest)
}

// Session is the ordered user/assistant message log plus the isSending
// guard. All methods are safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	messages  []models.Message
	isSending bool
	aircraft  *models.SelectedAircraft
	seed      models.Message

	svc        *advisory.Service
	events     *bus.Bus
	replyDelay time.Duration
	onMessage  func(models.Message)

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	unsubs    []func()
}

// New opens a session: seeds the greeting message from the current
// manual snapshot and starts tracking aircraft-changed and
// open-session events.
func New(cfg Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		svc:        cfg.Service,
		events:     cfg.Events,
		replyDelay: cfg.ReplyDelay,
		onMessage:  cfg.OnMessage,
		ctx:        ctx,
		cancel:     cancel,
	}

	store := cfg.Service.Store()
	s.aircraft = store.SelectedAircraft(ctx)

	// The seed carries the manual-derived references when manuals are
	// already present, ahead of the default regulatory citations.
	s.seed = models.Message{
		Type:       models.MessageTypeAssistant,
		Content:    seededContent,
		References: advisory.BuildReferences(store.Manuals(ctx)),
	}
	s.messages = []models.Message{s.seed}

	s.unsubs = append(s.unsubs, cfg.Events.Subscribe(bus.TopicAircraftChanged, func(payload any) {
		aircraft, ok := payload.(*models.SelectedAircraft)
		if !ok {
			return
		}
		s.mu.Lock()
		s.aircraft = aircraft
		s.mu.Unlock()
	}))

	s.unsubs = append(s.unsubs, cfg.Events.Subscribe(bus.TopicOpenSession, func(payload any) {
		req, ok := payload.(bus.OpenSessionRequest)
		if !ok {
			return
		}
		if cfg.OnOpenRequest != nil {
			cfg.OnOpenRequest(req)
		}
		if req.Query != "" {
			s.Submit(req.Query, req.Context)
		}
	}))

	metrics.SessionsActive.Inc()

	return s
}

// Submit appends a user message and schedules the assistant reply
// after the configured delay. Returns false without side effects when
// the query is blank after trimming or a send is already in flight.
func (s *Session) Submit(query, contextTag string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return false
	}

	s.mu.Lock()
	if s.isSending {
		s.mu.Unlock()
		logger.Debug("Submit blocked, reply already in flight")
		return false
	}
	s.isSending = true
	userMsg := models.Message{Type: models.MessageTypeUser, Content: query}
	s.messages = append(s.messages, userMsg)
	aircraft := s.aircraft
	s.mu.Unlock()

	s.notify(userMsg)

	go s.completeReply(query, contextTag, aircraft)
	return true
}

// completeReply waits out the simulated inference latency, then runs
// the exchange against a fresh state snapshot. A session closed while
// the reply is pending discards the result instead of applying it.
func (s *Session) completeReply(query, contextTag string, aircraft *models.SelectedAircraft) {
	timer := time.NewTimer(s.replyDelay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
	}

	result := s.svc.Respond(s.ctx, advisory.Request{
		Query:    query,
		Context:  contextTag,
		Aircraft: aircraft,
		Trigger:  "session",
	})

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, result.Reply)
	s.isSending = false
	s.mu.Unlock()

	s.notify(result.Reply)
}

// Clear resets the session to its seeded greeting. No-op while a reply
// is in flight.
func (s *Session) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSending {
		return false
	}
	s.messages = []models.Message{s.seed}
	return true
}

// Messages returns a snapshot of the conversation so far.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// IsSending reports whether a reply is in flight.
func (s *Session) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSending
}

// Close cancels any pending reply and detaches from the event bus.
// Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		for _, unsub := range s.unsubs {
			unsub()
		}
		metrics.SessionsActive.Dec()
		logger.Debug("Session closed", zap.Int("messages", len(s.Messages())))
	})
}

func (s *Session) notify(msg models.Message) {
	if s.onMessage != nil {
		s.onMessage(msg)
	}
}
