package service_test

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/queue"
)

const testRoot = "uploads/"

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range msgs {
		r.topics = append(r.topics, topic)
		r.msgs = append(r.msgs, m)
	}

	return nil
}

func (r *recordingPublisher) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for _, t := range r.topics {
		if t == topic {
			n++
		}
	}

	return n
}

func allEvents() configs.EventsConfig {
	cfg := configs.EventsConfig{Enabled: true}
	cfg.UsageComputed = true
	cfg.StorageFull = true
	cfg.ObjectStored = true
	cfg.ObjectDeleted = true
	cfg.NoteUpdated = true

	return cfg
}

func newEmitter() (*queue.Emitter, *recordingPublisher) {
	pub := &recordingPublisher{}
	return queue.NewEmitter(pub, allEvents()), pub
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Clear(context.Context) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	return 0, nil
}

func (c *countingInvalidator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}
