package quota_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeisme/drivemini/pkg/internal/quota"
)

func TestValidateUpload(t *testing.T) {
	snap := func(used, total int64) *quota.UsageSnapshot {
		s := quota.NewSnapshot(used, total, time.Time{})
		return &s
	}

	tests := []struct {
		name      string
		sizes     []int64
		snap      *quota.UsageSnapshot
		allowed   bool
		signal    quota.Signal
		shortfall int64
		projected float64
	}{
		{"rejected", []int64{600}, snap(500, 1000), false, quota.SignalRejected, 100, 100},
		{"advisory at 90 percent", []int64{400}, snap(500, 1000), true, quota.SignalAdvisory, 0, 90},
		{"ok", []int64{50}, snap(100, 1000), true, quota.SignalOK, 0, 15},
		{"unknown without snapshot", []int64{1 << 40}, nil, true, quota.SignalUnknown, 0, 0},
		{"warning above 95", []int64{460}, snap(500, 1000), true, quota.SignalWarning, 0, 96},
		{"exactly 80 is ok", []int64{300}, snap(500, 1000), true, quota.SignalOK, 0, 80},
		{"exactly fills remaining", []int64{200, 300}, snap(500, 1000), true, quota.SignalWarning, 0, 100},
		{"empty batch", nil, snap(100, 1000), true, quota.SignalOK, 0, 10},
		{"over quota rejects everything", []int64{1}, snap(2000, 1000), false, quota.SignalRejected, 1, 100},
		{"overflowing batch is rejected", []int64{math.MaxInt64, math.MaxInt64}, snap(500, 1000), false, quota.SignalRejected, math.MaxInt64 - 500, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := quota.ValidateUpload(tt.sizes, tt.snap)

			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.signal, d.Signal)
			assert.Equal(t, tt.shortfall, d.ShortfallBytes)
			assert.GreaterOrEqual(t, d.CandidateBytes, int64(0))
			assert.InDelta(t, tt.projected, d.ProjectedPercent, 1e-9)
			assert.NotEmpty(t, d.Message)
		})
	}
}

func TestValidateUpload_MessageUsesHumanSizes(t *testing.T) {
	s := quota.NewSnapshot(4<<30, 5<<30, time.Time{})

	d := quota.ValidateUpload([]int64{2 << 30}, &s)

	assert.Equal(t, quota.SignalRejected, d.Signal)
	assert.Equal(t, int64(1<<30), d.ShortfallBytes)
	assert.Contains(t, d.Message, "1.0 GiB")
}

func TestValidateUpload_CandidateBytesSaturates(t *testing.T) {
	s := quota.NewSnapshot(0, 1000, time.Time{})

	d := quota.ValidateUpload([]int64{math.MaxInt64, 1, -7}, &s)

	assert.Equal(t, int64(math.MaxInt64), d.CandidateBytes)
	assert.False(t, d.Allowed)

	d = quota.ValidateUpload([]int64{100, -7, 200}, &s)
	assert.Equal(t, int64(300), d.CandidateBytes)
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		percent float64
		want    quota.Level
	}{
		{0, quota.LevelLow},
		{60, quota.LevelLow},
		{60.1, quota.LevelModerate},
		{80, quota.LevelModerate},
		{80.5, quota.LevelHigh},
		{95, quota.LevelHigh},
		{99, quota.LevelCritical},
	}

	for _, tt := range tests {
		r := quota.Recommend(tt.percent)
		assert.Equal(t, tt.want, r.Level, "percent %v", tt.percent)
		assert.NotEmpty(t, r.Message)
	}
}

func TestFilesRemaining(t *testing.T) {
	assert.Equal(t, int64(0), quota.FilesRemaining(-5))
	assert.Equal(t, int64(0), quota.FilesRemaining(quota.AverageFileBytes-1))
	assert.Equal(t, int64(102), quota.FilesRemaining(1<<30))
}
