package kv

import (
	"bytes"
	"encoding/binary"
	"time"
)

// expiryHeader 标记带过期时间的值，后接 8 字节大端 unix 纳秒.
// 用于自身不支持键级 TTL 的后端.
var expiryHeader = []byte("DMX1")

const expiryHeaderLen = 4 + 8

// withExpiry 在 ttl > 0 时给 value 加上过期头.
func withExpiry(value []byte, ttl time.Duration, now time.Time) []byte {
	if ttl <= 0 {
		return value
	}

	out := make([]byte, expiryHeaderLen, expiryHeaderLen+len(value))
	copy(out, expiryHeader)
	binary.BigEndian.PutUint64(out[len(expiryHeader):], uint64(now.Add(ttl).UnixNano()))

	return append(out, value...)
}

// stripExpiry 去掉过期头，expired 为 true 时 value 无意义.
func stripExpiry(b []byte, now time.Time) (value []byte, expired bool) {
	if len(b) < expiryHeaderLen || !bytes.HasPrefix(b, expiryHeader) {
		return b, false
	}

	deadline := int64(binary.BigEndian.Uint64(b[len(expiryHeader):expiryHeaderLen]))
	if now.UnixNano() >= deadline {
		return nil, true
	}

	return b[expiryHeaderLen:], false
}
