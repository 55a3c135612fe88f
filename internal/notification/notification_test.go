package notification

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauusd-engine/internal/events"
	"xauusd-engine/internal/store"
)

type fakeRecorder struct {
	inserted []*store.Notification
	failNext bool
}

func (f *fakeRecorder) InsertNotification(ctx context.Context, n *store.Notification) error {
	if f.failNext {
		return assertErr{"store failure"}
	}
	f.inserted = append(f.inserted, n)
	return nil
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

type fakeEmail struct {
	sent    int
	lastErr error
}

func (f *fakeEmail) Send(ctx context.Context, subject, body string) error {
	f.sent++
	return f.lastErr
}

func TestManager_NotifyInsertsAndPublishes(t *testing.T) {
	repo := &fakeRecorder{}
	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.SubscribeAll(func(e events.Event) { received <- e })

	mgr := NewManager(repo, nil, bus, zerolog.Nop())
	err := mgr.Notify(context.Background(), "u1", KindBotError, "title", "body")
	require.NoError(t, err)

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, KindBotError, repo.inserted[0].Kind)

	evt := <-received
	assert.Equal(t, events.EventNotification, evt.Type)
}

func TestManager_NotifyPropagatesStoreFailure(t *testing.T) {
	repo := &fakeRecorder{failNext: true}
	mgr := NewManager(repo, nil, events.NewBus(), zerolog.Nop())
	err := mgr.Notify(context.Background(), "u1", KindBotError, "title", "body")
	assert.Error(t, err)
}

// Email failures must not surface to the caller — best effort only.
func TestManager_NotifySwallowsEmailFailure(t *testing.T) {
	repo := &fakeRecorder{}
	email := &fakeEmail{lastErr: assertErr{"smtp down"}}
	mgr := NewManager(repo, email, events.NewBus(), zerolog.Nop())
	err := mgr.Notify(context.Background(), "u1", KindBotError, "title", "body")
	require.NoError(t, err)
	assert.Equal(t, 1, email.sent)
}

func TestSendGridSender_UnconfiguredIsNoOp(t *testing.T) {
	sender := NewSendGridSender("", "", "")
	err := sender.Send(context.Background(), "subject", "body")
	assert.NoError(t, err)
}
