package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yeisme/drivemini/pkg/configs"
)

// NATSKV 基于 JetStream KeyValue 的实现，键级 TTL 由 withExpiry 写入值头部.
type NATSKV struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSKV 连接 NATS 并创建或复用 bucket.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("nats kv: unexpected config %T", config)
	}

	opts := []nats.Option{nats.Name(configs.AppName + "-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats kv: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats kv: jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: configs.AppName + " cache, upload tasks and shared note",
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats kv: bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, kv: kv}, nil
}

// load 读取并解包一条记录，过期记录顺带删除.
func (n *NATSKV) load(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, notFound(key)
	}

	if err != nil {
		return nil, fmt.Errorf("nats kv: get %s: %w", key, err)
	}

	val, expired := stripExpiry(entry.Value(), time.Now())
	if expired {
		_ = n.kv.Delete(ctx, key)
		return nil, notFound(key)
	}

	return val, nil
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	return n.load(ctx, key)
}

func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := n.kv.Put(ctx, key, withExpiry(value, ttl, time.Now())); err != nil {
		return fmt.Errorf("nats kv: put %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	if err := n.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats kv: delete %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.load(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 遍历 bucket 的全部键，过滤模式与过期记录.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("nats kv: list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var out []string

	for key := range lister.Keys() {
		if !matchPattern(pattern, key) {
			continue
		}

		if _, err := n.load(ctx, key); err == nil {
			out = append(out, key)
		}
	}

	return out, nil
}

func (n *NATSKV) Close() error {
	return n.conn.Drain()
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
