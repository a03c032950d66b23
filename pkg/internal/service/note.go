package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/queue"
)

// Subscriber 订阅消息主题，*mq.Client 实现了它.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// storedNote KV 中保存的笔记.
type storedNote struct {
	Content   string    `json:"content"`
	Revision  string    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteService 共享笔记，最后写入者获胜.
type NoteService struct {
	kv     kv.KVStore
	events *queue.Emitter
	sub    Subscriber
	cfg    configs.NoteConfig
	clock  clockwork.Clock
	logger zerolog.Logger

	mu sync.Mutex
}

// NewNoteService 创建共享笔记服务，sub 为 nil 时 Stream 不可用.
func NewNoteService(store kv.KVStore, events *queue.Emitter, sub Subscriber, cfg configs.NoteConfig, clock clockwork.Clock) *NoteService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.Key == "" {
		cfg.Key = configs.DefaultNoteKey
	}

	if cfg.MaxLength <= 0 {
		cfg.MaxLength = configs.DefaultNoteMaxLength
	}

	return &NoteService{
		kv:     store,
		events: events,
		sub:    sub,
		cfg:    cfg,
		clock:  clock,
		logger: log.Component("note"),
	}
}

// NoteETag 由版本与内容计算 ETag.
func NoteETag(revision, content string) string {
	h := xxhash.New()
	_, _ = h.WriteString(revision)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(content)

	return strconv.Quote(strconv.FormatUint(h.Sum64(), 16))
}

func toNote(s storedNote) types.Note {
	return types.Note{
		Content:   s.Content,
		Revision:  s.Revision,
		UpdatedAt: s.UpdatedAt,
		WordCount: len(strings.Fields(s.Content)),
		ETag:      NoteETag(s.Revision, s.Content),
	}
}

// Get 读取当前笔记，从未写入时返回空笔记.
func (s *NoteService) Get(ctx context.Context) (*types.Note, error) {
	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	n := toNote(stored)

	return &n, nil
}

// Put 覆盖写入笔记. ifMatch 非空且与当前 ETag 不同时仍然写入，但返回 Overwrote.
func (s *NoteService) Put(ctx context.Context, content, ifMatch string) (*types.PutNoteResponse, error) {
	if n := utf8.RuneCountInString(content); n > s.cfg.MaxLength {
		return nil, fmt.Errorf("%w: %d characters, limit %d", ErrNoteTooLong, n, s.cfg.MaxLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	overwrote := ifMatch != "" && ifMatch != NoteETag(prev.Revision, prev.Content)

	now := s.clock.Now().UTC()
	next := storedNote{Content: content, Revision: newID(now), UpdatedAt: now}

	data, err := sonic.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode note: %w", err)
	}

	if err := s.kv.Set(ctx, s.cfg.Key, data, 0); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}

	n := toNote(next)

	if overwrote {
		s.logger.Info().Str("revision", n.Revision).Str("if_match", ifMatch).Msg("note overwritten over a stale revision")
	}

	if err := s.events.NoteUpdated(ctx, queue.NoteUpdatedPayload{
		Revision:  n.Revision,
		ETag:      n.ETag,
		Length:    utf8.RuneCountInString(content),
		Overwrote: overwrote,
		UpdatedAt: now,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("publish note updated failed")
	}

	return &types.PutNoteResponse{Note: n, Overwrote: overwrote}, nil
}

// Stream 订阅笔记更新，每条事件后推送当前笔记；ctx 取消后通道关闭.
func (s *NoteService) Stream(ctx context.Context) (<-chan types.Note, error) {
	if s.sub == nil {
		return nil, errors.New("note stream requires a message queue")
	}

	msgs, err := s.sub.Subscribe(ctx, queue.TopicNoteUpdated)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", queue.TopicNoteUpdated, err)
	}

	out := make(chan types.Note)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				msg.Ack()

				n, err := s.Get(ctx)
				if err != nil {
					s.logger.Warn().Err(err).Msg("load note for stream failed")
					continue
				}

				select {
				case out <- *n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *NoteService) load(ctx context.Context) (storedNote, error) {
	data, err := s.kv.Get(ctx, s.cfg.Key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return storedNote{}, nil
		}

		return storedNote{}, fmt.Errorf("load note: %w", err)
	}

	var n storedNote
	if err := sonic.Unmarshal(data, &n); err != nil {
		return storedNote{}, fmt.Errorf("decode note: %w", err)
	}

	return n, nil
}
