package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
)

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	sub, cancel := hub.Subscribe()
	defer cancel()

	job := models.NewJob("owner-1", 5, true)
	hub.Publish(EventJobCreated, job)

	event := <-sub
	assert.Equal(t, EventJobCreated, event.Type)
	require.NotNil(t, event.Job)
	assert.Equal(t, job.ID, event.Job.ID)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	sub, cancel := hub.Subscribe()

	cancel()
	_, open := <-sub
	assert.False(t, open, "channel closes on unsubscribe")
	assert.Equal(t, 0, hub.SubscriberCount())

	// Publishing after unsubscribe must not panic.
	hub.Publish(EventJobDone, models.NewJob("owner-1", 1, true))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	_, cancel := hub.Subscribe()
	defer cancel()

	// Overflow the buffered channel; Publish must never block.
	job := models.NewJob("owner-1", 1, true)
	for i := 0; i < 100; i++ {
		hub.Publish(EventJobProgress, job)
	}
}

func TestHub_DoubleCancelIsSafe(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	_, cancel := hub.Subscribe()
	cancel()
	cancel()
}
