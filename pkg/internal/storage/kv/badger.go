package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/yeisme/drivemini/pkg/configs"
)

// BadgerKV 基于 Badger 的嵌入式持久化 KV 实现，TTL 由 Badger 原生支持（秒级精度）.
type BadgerKV struct {
	db *badgerdb.DB
}

// NewBadgerKV 创建 Badger KV 实例.
func NewBadgerKV(_ context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.BadgerKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Badger config")
	}

	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badgerdb.DefaultOptions(cfg.Dir)
	}

	db, err := badgerdb.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &BadgerKV{db: db}, nil
}

// Get 获取键的值.
func (b *BadgerKV) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte

	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		out, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, notFound(key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return out, nil
}

// Set 设置键的值.
func (b *BadgerKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		e := badgerdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}

		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键.
func (b *BadgerKV) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在.
func (b *BadgerKV) Exists(_ context.Context, key string) (bool, error) {
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}

	return true, nil
}

// Keys 遍历所有键并按 glob 过滤.
func (b *BadgerKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			k := string(it.Item().KeyCopy(nil))
			if matchPattern(pattern, k) {
				keys = append(keys, k)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	sort.Strings(keys)

	return keys, nil
}

// Close 关闭数据库.
func (b *BadgerKV) Close() error {
	return b.db.Close()
}

func init() {
	RegisterKVFactory(KVTypeBadger, NewBadgerKV)
}
