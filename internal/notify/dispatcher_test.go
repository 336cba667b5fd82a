package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen-backend/internal/order/domain/models"
	"canteen-backend/pkg/logger"
)

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func newRecordingSink(name string, err error) *recordingSink {
	return &recordingSink{name: name, err: err, done: make(chan struct{}, 8)}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, evt Event) error {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	s.done <- struct{}{}
	return s.err
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("sink was not invoked")
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testEvent() Event {
	return Event{
		OwnerEvent: "orderUpdated",
		AdminEvent: "ordersUpdated",
		Order: models.Order{
			ID:           uuid.New(),
			Email:        "alice@example.com",
			Notification: "Your order is ready for pickup",
		},
	}
}

func TestDispatchReachesAllSinks(t *testing.T) {
	a := newRecordingSink("a", nil)
	b := newRecordingSink("b", nil)
	d := NewDispatcher(logger.Nop(), a, b)

	d.Dispatch(context.Background(), testEvent())
	a.wait(t)
	b.wait(t)

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestSinkFailureDoesNotAffectOthers(t *testing.T) {
	failing := newRecordingSink("failing", errors.New("connection refused"))
	ok := newRecordingSink("ok", nil)
	d := NewDispatcher(logger.Nop(), failing, ok)

	// must not panic or propagate anything
	d.Dispatch(context.Background(), testEvent())
	failing.wait(t)
	ok.wait(t)

	assert.Equal(t, 1, ok.count())
}

type contextSink struct {
	release chan struct{}
	ctxErr  chan error
}

func (s *contextSink) Name() string { return "context" }

func (s *contextSink) Deliver(ctx context.Context, _ Event) error {
	<-s.release
	s.ctxErr <- ctx.Err()
	return nil
}

func TestDeliveryOutlivesCallerContext(t *testing.T) {
	sink := &contextSink{
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	d := NewDispatcher(logger.Nop(), sink)

	// The caller's context ends as soon as the HTTP handler returns; the
	// sink must still get a live context for its own I/O.
	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, testEvent())
	cancel()
	close(sink.release)

	select {
	case err := <-sink.ctxErr:
		assert.NoError(t, err, "sink context must not be cancelled with the request")
	case <-time.After(time.Second):
		t.Fatal("sink was not invoked")
	}
}

type fakeEmitter struct {
	mu      sync.Mutex
	grouped map[string][]any
	all     []any
	events  []string
	fail    bool
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{grouped: make(map[string][]any)}
}

func (f *fakeEmitter) EmitToGroup(key, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("no subscribers")
	}
	f.grouped[key] = append(f.grouped[key], payload)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) EmitToAll(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("no subscribers")
	}
	f.all = append(f.all, payload)
	f.events = append(f.events, event)
	return nil
}

func TestHubSinkAddressesBothAudiences(t *testing.T) {
	emitter := newFakeEmitter()
	sink := &HubSink{Hub: emitter}

	evt := testEvent()
	require.NoError(t, sink.Deliver(context.Background(), evt))

	require.Len(t, emitter.grouped["alice@example.com"], 1)
	owner := emitter.grouped["alice@example.com"][0].(models.Order)
	assert.Equal(t, "Your order is ready for pickup", owner.Notification)

	require.Len(t, emitter.all, 1)
	admin := emitter.all[0].(models.Order)
	assert.Empty(t, admin.Notification, "admin broadcast must not carry the notification text")

	assert.Equal(t, []string{"orderUpdated", "ordersUpdated"}, emitter.events)
}

func TestHubSinkSkipsEmptyEventNames(t *testing.T) {
	emitter := newFakeEmitter()
	sink := &HubSink{Hub: emitter}

	evt := testEvent()
	evt.AdminEvent = ""
	require.NoError(t, sink.Deliver(context.Background(), evt))
	assert.Empty(t, emitter.all)
}

func TestHubSinkReportsEmptyRooms(t *testing.T) {
	emitter := newFakeEmitter()
	emitter.fail = true
	sink := &HubSink{Hub: emitter}

	err := sink.Deliver(context.Background(), testEvent())
	assert.Error(t, err)
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) DeviceToken(context.Context, string) (string, error) {
	return s.token, s.err
}

func TestPushSinkSkipsEventsWithoutPushContent(t *testing.T) {
	sink := &PushSink{Tokens: staticTokens{token: "tok"}}

	evt := testEvent() // no PushTitle set
	assert.NoError(t, sink.Deliver(context.Background(), evt))
}

func TestPushSinkFailsWithoutDeviceToken(t *testing.T) {
	sink := &PushSink{Tokens: staticTokens{}}

	evt := testEvent()
	evt.PushTitle = "Order Update"
	assert.Error(t, sink.Deliver(context.Background(), evt))
}
