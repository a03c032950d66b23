package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/service"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
	"github.com/yeisme/drivemini/pkg/queue"
)

// goChannelBus 让 gochannel 满足 queue.Publisher 与 service.Subscriber.
type goChannelBus struct {
	*gochannel.GoChannel
}

func (b goChannelBus) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	return b.GoChannel.Publish(topic, msgs...)
}

func newNotes(t *testing.T, maxLen int) (*service.NoteService, *recordingPublisher, clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(modTime)
	events, pub := newEmitter()

	svc := service.NewNoteService(kv.NewMemoryKV(clock), events, nil, configs.NoteConfig{MaxLength: maxLen}, clock)

	return svc, pub, clock
}

func TestNote_EmptyByDefault(t *testing.T) {
	svc, _, _ := newNotes(t, 100)

	n, err := svc.Get(context.Background())
	require.NoError(t, err)

	assert.Empty(t, n.Content)
	assert.Empty(t, n.Revision)
	assert.Zero(t, n.WordCount)
	assert.NotEmpty(t, n.ETag)
}

func TestNote_PutThenGet(t *testing.T) {
	svc, pub, _ := newNotes(t, 100)
	ctx := context.Background()

	put, err := svc.Put(ctx, "buy milk and eggs", "")
	require.NoError(t, err)
	assert.False(t, put.Overwrote)
	assert.Len(t, put.Revision, 26)
	assert.Equal(t, 4, put.WordCount)
	assert.Equal(t, modTime, put.UpdatedAt)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, put.Note, *got)
	assert.Equal(t, 1, pub.count(queue.TopicNoteUpdated))
}

func TestNote_LastWriteWinsReportsOverwrite(t *testing.T) {
	svc, _, clock := newNotes(t, 100)
	ctx := context.Background()

	first, err := svc.Put(ctx, "v1", "")
	require.NoError(t, err)

	clock.Advance(time.Second)

	second, err := svc.Put(ctx, "v2", first.ETag)
	require.NoError(t, err)
	assert.False(t, second.Overwrote, "matching If-Match is a clean update")

	third, err := svc.Put(ctx, "v3 from a stale tab", first.ETag)
	require.NoError(t, err)
	assert.True(t, third.Overwrote)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v3 from a stale tab", got.Content)
	assert.NotEqual(t, first.ETag, got.ETag)
}

func TestNote_TooLong(t *testing.T) {
	svc, pub, _ := newNotes(t, 5)

	_, err := svc.Put(context.Background(), "你好世界！", "")
	require.NoError(t, err, "length counts characters, not bytes")

	_, err = svc.Put(context.Background(), strings.Repeat("x", 6), "")
	require.ErrorIs(t, err, service.ErrNoteTooLong)
	assert.Equal(t, 1, pub.count(queue.TopicNoteUpdated))
}

func TestNote_ETagDependsOnRevision(t *testing.T) {
	assert.NotEqual(t, service.NoteETag("r1", "same"), service.NoteETag("r2", "same"))
	assert.Equal(t, service.NoteETag("r1", "same"), service.NoteETag("r1", "same"))
	assert.True(t, strings.HasPrefix(service.NoteETag("r", "c"), `"`))
}

func TestNote_Stream(t *testing.T) {
	bus := goChannelBus{gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})}
	t.Cleanup(func() { _ = bus.Close() })

	mem := kv.NewMemoryKV(nil)
	svc := service.NewNoteService(mem, queue.NewEmitter(bus, allEvents()), bus, configs.NoteConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := svc.Stream(ctx)
	require.NoError(t, err)

	_, err = svc.Put(ctx, "live edit", "")
	require.NoError(t, err)

	select {
	case n := <-updates:
		assert.Equal(t, "live edit", n.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("no note update received")
	}

	cancel()

	for range updates {
	}
}

func TestNote_StreamWithoutQueue(t *testing.T) {
	svc, _, _ := newNotes(t, 10)

	_, err := svc.Stream(context.Background())
	require.Error(t, err)
}
