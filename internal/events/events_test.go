package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not finish")
	}
}

func TestFireDelivers(t *testing.T) {
	log, _ := test.NewNullLogger()
	pub := &recordingPublisher{}

	wait(t, Fire(pub, log, TypeUserRegistered, UserRegistered{UserID: 7, Email: "a@b.c", Username: "ab"}))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, TypeUserRegistered, ev.Type)
	assert.NotEmpty(t, ev.ID)

	var payload UserRegistered
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, int64(7), payload.UserID)
}

func TestFireSwallowsFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	pub := &recordingPublisher{err: errors.New("broker down")}

	wait(t, Fire(pub, log, TypeMenuPublished, MenuPublished{Date: "2024-06-01"}))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, TypeMenuPublished, entry.Data["event_type"])
}

// fakeConfirmation resolves when the test calls resolve
type fakeConfirmation struct {
	done chan struct{}
	ack  bool
}

func newFakeConfirmation() *fakeConfirmation {
	return &fakeConfirmation{done: make(chan struct{})}
}

func (c *fakeConfirmation) resolve(ack bool) {
	c.ack = ack
	close(c.done)
}

func (c *fakeConfirmation) WaitContext(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.done:
	}
	return c.ack, nil
}

// fakeChannel hands out one queued confirmation per publishing
type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	confirms  []*fakeConfirmation
	err       error
}

func (f *fakeChannel) publish(_ context.Context, _, key string, msg amqp.Publishing) (confirmation, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	conf := f.confirms[0]
	f.confirms = f.confirms[1:]
	return conf, nil
}

func (f *fakeChannel) Close() error { return nil }

func resolved(ack bool) *fakeConfirmation {
	c := newFakeConfirmation()
	c.resolve(ack)
	return c
}

func TestAMQPPublisherWaitsForAck(t *testing.T) {
	ch := &fakeChannel{confirms: []*fakeConfirmation{resolved(true), resolved(false)}}
	p := newAMQPPublisher(ch, "bookameal.events")

	ev, err := New(TypeMenuPublished, MenuPublished{Date: "2024-06-01"})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.published, 1)
	assert.Equal(t, TypeMenuPublished, ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, ev.ID, ch.published[0].MessageId)

	assert.Error(t, p.Publish(context.Background(), ev))
}

func TestAMQPPublisherHonoursContext(t *testing.T) {
	p := newAMQPPublisher(&fakeChannel{confirms: []*fakeConfirmation{newFakeConfirmation()}}, "x")
	ev, err := New(TypeUserRegistered, UserRegistered{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Publish(ctx, ev), context.DeadlineExceeded)
}

func TestAMQPPublisherLateAckDoesNotMaskNack(t *testing.T) {
	first, second := newFakeConfirmation(), newFakeConfirmation()
	p := newAMQPPublisher(&fakeChannel{confirms: []*fakeConfirmation{first, second}}, "x")
	ev, err := New(TypeUserRegistered, UserRegistered{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Publish(ctx, ev), context.DeadlineExceeded)

	// the ack for the timed-out publishing arrives late, then the broker
	// rejects the next one
	first.resolve(true)
	second.resolve(false)

	err = p.Publish(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nack")
}

func TestAMQPPublisherPublishError(t *testing.T) {
	p := newAMQPPublisher(&fakeChannel{err: amqp.ErrClosed}, "x")
	ev, err := New(TypeUserRegistered, UserRegistered{})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Publish(context.Background(), ev), amqp.ErrClosed)
}

func TestLogPublisher(t *testing.T) {
	log, hook := test.NewNullLogger()
	ev, err := New(TypeUserRegistered, UserRegistered{UserID: 1})
	require.NoError(t, err)

	require.NoError(t, NewLogPublisher(log).Publish(context.Background(), ev))
	assert.Equal(t, ev.ID, hook.LastEntry().Data["event_id"])
}
