package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carlamarinaap/go-shop/internal/ticket"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEventSource struct {
	m         sync.Mutex
	events    []*ticket.OutboxEvent
	fetchErr  error
	markErr   error
	published []int64
}

func (m *mockEventSource) GetUnpublishedEvents(context.Context, int) ([]*ticket.OutboxEvent, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var pending []*ticket.OutboxEvent
	for _, e := range m.events {
		done := false
		for _, id := range m.published {
			if id == e.ID {
				done = true
				break
			}
		}
		if !done {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (m *mockEventSource) MarkEventPublished(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.published = append(m.published, id)
	return nil
}

func (m *mockEventSource) publishedCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.published)
}

type fakeWriter struct {
	messages []kafkaGo.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestPoller(source EventSource, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		tick:   time.Millisecond,
		batch:  100,
		source: source,
		writer: writer,
	}
}

func testEvent(id int64) *ticket.OutboxEvent {
	return &ticket.OutboxEvent{
		ID:          id,
		AggregateID: "ticket-1",
		EventType:   ticket.EventTicketCreated,
		Payload:     []byte(`{"amount":6}`),
	}
}

func TestDrain_PublishesAndMarks(t *testing.T) {
	source := &mockEventSource{events: []*ticket.OutboxEvent{testEvent(1), testEvent(2)}}
	writer := &fakeWriter{}
	poller := newTestPoller(source, writer)

	poller.drain(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte("ticket-1"), writer.messages[0].Key)
	assert.Equal(t, []byte(`{"amount":6}`), writer.messages[0].Value)
	require.Len(t, writer.messages[0].Headers, 1)
	assert.Equal(t, "event_type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, []int64{1, 2}, source.published)
}

func TestDrain_PublishFailureLeavesEventPending(t *testing.T) {
	source := &mockEventSource{events: []*ticket.OutboxEvent{testEvent(1)}}
	writer := &fakeWriter{err: errors.New("broker unavailable")}
	poller := newTestPoller(source, writer)

	poller.drain(context.Background())
	assert.Empty(t, source.published)

	// Next tick retries after the broker recovers.
	writer.err = nil
	poller.drain(context.Background())
	assert.Equal(t, []int64{1}, source.published)
}

func TestDrain_FetchFailureIsSafe(t *testing.T) {
	source := &mockEventSource{fetchErr: errors.New("db down")}
	writer := &fakeWriter{}
	poller := newTestPoller(source, writer)

	poller.drain(context.Background())
	assert.Empty(t, writer.messages)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	source := &mockEventSource{events: []*ticket.OutboxEvent{testEvent(1)}}
	writer := &fakeWriter{}
	poller := newTestPoller(source, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return source.publishedCount() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
