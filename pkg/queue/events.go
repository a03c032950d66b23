package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/drivemini/pkg/configs"
)

// Publisher 是 Emitter 依赖的最小发布接口，mq.Client 满足该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Emitter 按 EventsConfig 开关发布领域事件，nil Emitter 或 nil Publisher 时不做任何事.
type Emitter struct {
	pub Publisher
	cfg configs.EventsConfig
}

// NewEmitter 创建事件发布器.
func NewEmitter(pub Publisher, cfg configs.EventsConfig) *Emitter {
	return &Emitter{pub: pub, cfg: cfg}
}

func publish[T any](ctx context.Context, e *Emitter, enabled bool, topic string, payload T) error {
	if e == nil || e.pub == nil || !e.cfg.Enabled || !enabled {
		return nil
	}

	opts := []HeaderOption{WithProducer(configs.AppName)}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, WithTraceID(sc.TraceID().String()))
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return e.pub.Publish(ctx, topic, msg)
}

// UsageComputed 发布 drive.usage.computed.
func (e *Emitter) UsageComputed(ctx context.Context, p UsageComputedPayload) error {
	return publish(ctx, e, e != nil && e.cfg.UsageComputed, TopicUsageComputed, p)
}

// StorageFull 发布 drive.storage.full.
func (e *Emitter) StorageFull(ctx context.Context, p StorageFullPayload) error {
	return publish(ctx, e, e != nil && e.cfg.StorageFull, TopicStorageFull, p)
}

// ObjectStored 发布 drive.object.stored.
func (e *Emitter) ObjectStored(ctx context.Context, p ObjectStoredPayload) error {
	return publish(ctx, e, e != nil && e.cfg.ObjectStored, TopicObjectStored, p)
}

// ObjectDeleted 发布 drive.object.deleted.
func (e *Emitter) ObjectDeleted(ctx context.Context, p ObjectDeletedPayload) error {
	return publish(ctx, e, e != nil && e.cfg.ObjectDeleted, TopicObjectDeleted, p)
}

// NoteUpdated 发布 drive.note.updated.
func (e *Emitter) NoteUpdated(ctx context.Context, p NoteUpdatedPayload) error {
	return publish(ctx, e, e != nil && e.cfg.NoteUpdated, TopicNoteUpdated, p)
}
