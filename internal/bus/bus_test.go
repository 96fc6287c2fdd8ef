package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := New(nil)

	var order []string
	b.Subscribe(TopicAssessmentsChanged, func(any) { order = append(order, "first") })
	b.Subscribe(TopicAssessmentsChanged, func(any) { order = append(order, "second") })

	b.Publish(TopicAssessmentsChanged, nil)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishDeliversAtMostOncePerSubscriber(t *testing.T) {
	b := New(nil)

	count := 0
	b.Subscribe(TopicOpenSession, func(any) { count++ })

	b.Publish(TopicOpenSession, OpenSessionRequest{Query: "q"})
	b.Publish(TopicOpenSession, OpenSessionRequest{Query: "q"})

	assert.Equal(t, 2, count)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)

	count := 0
	unsubscribe := b.Subscribe(TopicPredictionsGenerated, func(any) { count++ })

	b.Publish(TopicPredictionsGenerated, PredictionsPayload{})
	unsubscribe()
	b.Publish(TopicPredictionsGenerated, PredictionsPayload{})

	assert.Equal(t, 1, count)

	// A second unsubscribe is harmless.
	unsubscribe()
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := New(nil)
	b.Publish(TopicAircraftChanged, nil)
}

func TestTopicsAreIsolated(t *testing.T) {
	b := New(nil)

	var got []Topic
	b.Subscribe(TopicOpenSession, func(any) { got = append(got, TopicOpenSession) })
	b.Subscribe(TopicAircraftChanged, func(any) { got = append(got, TopicAircraftChanged) })

	b.Publish(TopicAircraftChanged, nil)

	assert.Equal(t, []Topic{TopicAircraftChanged}, got)
}

func TestPayloadPassthrough(t *testing.T) {
	b := New(nil)

	var received OpenSessionRequest
	b.Subscribe(TopicOpenSession, func(payload any) {
		if req, ok := payload.(OpenSessionRequest); ok {
			received = req
		}
	})

	b.Publish(TopicOpenSession, OpenSessionRequest{Query: "hydraulic leak", Context: "records"})

	assert.Equal(t, "hydraulic leak", received.Query)
	assert.Equal(t, "records", received.Context)
}
