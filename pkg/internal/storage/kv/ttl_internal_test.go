package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryHeader(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	plain := withExpiry([]byte("v"), 0, now)
	assert.Equal(t, []byte("v"), plain)

	b := withExpiry([]byte("value"), time.Minute, now)
	v, expired := stripExpiry(b, now.Add(59*time.Second))
	assert.False(t, expired)
	assert.Equal(t, []byte("value"), v)

	_, expired = stripExpiry(b, now.Add(time.Minute))
	assert.True(t, expired)

	v, expired = stripExpiry([]byte("DMX"), now)
	assert.False(t, expired)
	assert.Equal(t, []byte("DMX"), v)
}
