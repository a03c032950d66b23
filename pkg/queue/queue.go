// Package queue 定义领域事件：统一信封、主题与负载，以及按配置开关发布事件的 Emitter.
//
// 消息信封（Envelope）JSON 结构
//
//	{
//	  "header": {
//	    "topic": "drive.usage.computed",
//	    "trace_id": "optional-trace-id",
//	    "producer": "drivemini",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 订阅示例
//
//	ch, _ := client.Subscribe(ctx, queue.TopicNoteUpdated)
//	for m := range ch {
//		env, _ := queue.ParseWatermillMessage[queue.NoteUpdatedPayload](m)
//		// 使用 env.Header / env.Payload ...
//		m.Ack()
//	}
//
// 注意事项
//  1. occurred_at 为 UTC，RFC3339 格式
//  2. 消费者应忽略未知字段
package queue

import (
	"fmt"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

// PayloadVersionV1 当前信封版本.
const PayloadVersionV1 = "v1"

// watermill 消息元数据键.
const (
	MetaTopic      = "topic"
	MetaOccurredAt = "occurred_at"
	MetaTraceID    = "trace_id"
	MetaProducer   = "producer"
)

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 设置 TraceID.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// NewEventHeader 创建事件头，OccurredAt 取当前 UTC 时间.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	h := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&h)
	}

	return h
}

// Encode 序列化信封.
func Encode[T any](msg Message[T]) ([]byte, error) {
	b, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", msg.Header.Topic, err)
	}

	return b, nil
}

// Decode 反序列化信封.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]
	if err := sonic.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode event: %w", err)
	}

	return m, nil
}

// NewWatermillMessage 构造 watermill 消息，头部同时写入元数据便于不解包过滤.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	h := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: h, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewULID(), data)
	msg.Metadata = message.Metadata{
		MetaTopic:      topic,
		MetaOccurredAt: h.OccurredAt.Format(time.RFC3339Nano),
	}

	if h.TraceID != "" {
		msg.Metadata.Set(MetaTraceID, h.TraceID)
	}

	if h.Producer != "" {
		msg.Metadata.Set(MetaProducer, h.Producer)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载，版本不匹配时返回错误.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	m, err := Decode[T](msg.Payload)
	if err != nil {
		return m, err
	}

	if m.Header.Version != "" && m.Header.Version != PayloadVersionV1 {
		return m, fmt.Errorf("unsupported event version %q on %s", m.Header.Version, m.Header.Topic)
	}

	return m, nil
}
