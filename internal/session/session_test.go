package session

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeromx/backend/internal/advisory"
	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/history"
	"github.com/aeromx/backend/internal/state"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

type harness struct {
	store  *state.MemoryStore
	events *bus.Bus
	svc    *advisory.Service
}

func newHarness() *harness {
	store := state.NewMemoryStore()
	events := bus.New(nil)
	recorder := history.NewRecorder(store, events)
	return &harness{
		store:  store,
		events: events,
		svc:    advisory.NewService(store, events, recorder, nil, nil),
	}
}

func (h *harness) open(t *testing.T, delay time.Duration) *Session {
	t.Helper()
	sess := New(Config{Service: h.svc, Events: h.events, ReplyDelay: delay})
	t.Cleanup(sess.Close)
	return sess
}

func TestNewSeedsGreeting(t *testing.T) {
	h := newHarness()
	sess := h.open(t, time.Millisecond)

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageTypeAssistant, msgs[0].Type)
	assert.Contains(t, msgs[0].Content, "Maintenance assistant")
	// No manuals stored, so the seed carries the default citations only.
	assert.Len(t, msgs[0].References, 4)
}

func TestSeedCitesStoredManuals(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.SetManuals(context.Background(), []models.ManualReference{
		{Filename: "AMM-29.pdf", Category: "Hydraulic Power"},
	}))
	sess := h.open(t, time.Millisecond)

	refs := sess.Messages()[0].References
	require.Len(t, refs, 5)
	assert.Equal(t, "AMM-29.pdf", refs[0].Title)
}

func TestSubmitBlankQueryRejected(t *testing.T) {
	h := newHarness()
	sess := h.open(t, time.Millisecond)

	assert.False(t, sess.Submit("", "records"))
	assert.False(t, sess.Submit("   \t ", "records"))
	assert.Len(t, sess.Messages(), 1)
	assert.False(t, sess.IsSending())
}

func TestSubmitWhileSendingIsNoOp(t *testing.T) {
	h := newHarness()
	sess := h.open(t, 200*time.Millisecond)

	require.True(t, sess.Submit("hydraulic pressure low", ""))
	assert.True(t, sess.IsSending())

	// The guard drops the second submit entirely: no user message, no
	// second reply scheduled.
	assert.False(t, sess.Submit("engine oil analysis", ""))
	assert.Len(t, sess.Messages(), 2)
}

func TestReplyArrivesAfterDelay(t *testing.T) {
	h := newHarness()
	sess := h.open(t, 10*time.Millisecond)

	require.True(t, sess.Submit("brake wear inspection", ""))

	require.Eventually(t, func() bool {
		return len(sess.Messages()) == 3 && !sess.IsSending()
	}, time.Second, 5*time.Millisecond)

	msgs := sess.Messages()
	assert.Equal(t, models.MessageTypeUser, msgs[1].Type)
	assert.Equal(t, "brake wear inspection", msgs[1].Content)
	assert.Equal(t, models.MessageTypeAssistant, msgs[2].Type)
	assert.NotEmpty(t, msgs[2].Summary)
}

func TestClearIsNoOpWhileSending(t *testing.T) {
	h := newHarness()
	sess := h.open(t, 100*time.Millisecond)

	require.True(t, sess.Submit("inspection due", ""))
	assert.False(t, sess.Clear())
	assert.Len(t, sess.Messages(), 2)

	require.Eventually(t, func() bool {
		return !sess.IsSending()
	}, time.Second, 5*time.Millisecond)

	assert.True(t, sess.Clear())
	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Maintenance assistant")
}

func TestCloseDiscardsPendingReply(t *testing.T) {
	h := newHarness()
	sess := New(Config{Service: h.svc, Events: h.events, ReplyDelay: 50 * time.Millisecond})

	require.True(t, sess.Submit("turbine blade check", ""))
	sess.Close()

	time.Sleep(150 * time.Millisecond)
	assert.Len(t, sess.Messages(), 2)
	// Closing twice must not panic or double-decrement anything.
	sess.Close()
}

func TestTracksAircraftChangedEvents(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.SetManuals(context.Background(), []models.ManualReference{
		{Filename: "AMM.pdf"},
	}))
	sess := h.open(t, 5*time.Millisecond)

	h.events.Publish(bus.TopicAircraftChanged, &models.SelectedAircraft{
		Registration: "N456CD",
		Model:        "PA-28",
	})

	require.True(t, sess.Submit("torque values", ""))
	require.Eventually(t, func() bool {
		return len(sess.Messages()) == 3
	}, time.Second, 5*time.Millisecond)

	reply := sess.Messages()[2]
	assert.True(t, strings.HasPrefix(reply.Summary, "Aircraft N456CD (PA-28):"), reply.Summary)
}

func TestOpenSessionEventSubmitsPrefilledQuery(t *testing.T) {
	h := newHarness()

	var opened []bus.OpenSessionRequest
	sess := New(Config{
		Service:    h.svc,
		Events:     h.events,
		ReplyDelay: 5 * time.Millisecond,
		OnOpenRequest: func(req bus.OpenSessionRequest) {
			opened = append(opened, req)
		},
	})
	t.Cleanup(sess.Close)

	h.events.Publish(bus.TopicOpenSession, bus.OpenSessionRequest{
		Query:   "hydraulic leak at left main",
		Context: "records-page",
	})

	require.Len(t, opened, 1)
	assert.Equal(t, "records-page", opened[0].Context)

	require.Eventually(t, func() bool {
		return len(sess.Messages()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.True(t, strings.HasPrefix(sess.Messages()[2].Summary, "[records-page]"))
}

func TestOpenSessionEventWithoutQueryOnlyNotifies(t *testing.T) {
	h := newHarness()

	notified := false
	sess := New(Config{
		Service:    h.svc,
		Events:     h.events,
		ReplyDelay: time.Millisecond,
		OnOpenRequest: func(bus.OpenSessionRequest) {
			notified = true
		},
	})
	t.Cleanup(sess.Close)

	h.events.Publish(bus.TopicOpenSession, bus.OpenSessionRequest{})

	assert.True(t, notified)
	assert.Len(t, sess.Messages(), 1)
	assert.False(t, sess.IsSending())
}

func TestOnMessageFiresForEachAppend(t *testing.T) {
	h := newHarness()

	var mu sync.Mutex
	var got []models.Message
	sess := New(Config{
		Service:    h.svc,
		Events:     h.events,
		ReplyDelay: 5 * time.Millisecond,
		OnMessage: func(msg models.Message) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		},
	})
	t.Cleanup(sess.Close)

	require.True(t, sess.Submit("check compliance deadline", ""))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.MessageTypeUser, got[0].Type)
	assert.Equal(t, models.MessageTypeAssistant, got[1].Type)
}
