package quota

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Signal 容量检查结论.
type Signal string

const (
	SignalOK       Signal = "ok"
	SignalUnknown  Signal = "unknown"
	SignalAdvisory Signal = "advisory"
	SignalWarning  Signal = "warning"
	SignalRejected Signal = "rejected"
)

const (
	warningPercent  = 95.0
	advisoryPercent = 80.0
)

// Decision 上传前容量检查的结果.
type Decision struct {
	Allowed          bool    `json:"allowed"`
	Signal           Signal  `json:"signal"`
	CandidateBytes   int64   `json:"candidate_bytes"`
	RemainingBytes   int64   `json:"remaining_bytes"`
	ShortfallBytes   int64   `json:"shortfall_bytes,omitempty"`
	ProjectedPercent float64 `json:"projected_percent"`
	Message          string  `json:"message"`
}

// ValidateUpload 判断一批文件能否放入剩余空间.
// snap 为 nil 表示用量未知，此时放行.
func ValidateUpload(sizes []int64, snap *UsageSnapshot) Decision {
	sum := batchBytes(sizes)

	d := Decision{CandidateBytes: sum}

	if snap == nil {
		d.Allowed = true
		d.Signal = SignalUnknown
		d.Message = fmt.Sprintf("Storage usage is unknown, uploading %s without a capacity check", humanize.IBytes(uint64(sum)))

		return d
	}

	d.RemainingBytes = snap.RemainingBytes
	if snap.TotalBytes > 0 {
		d.ProjectedPercent = min((float64(snap.UsedBytes)+float64(sum))*100/float64(snap.TotalBytes), 100)
	} else {
		d.ProjectedPercent = 100
	}

	switch {
	case sum > snap.RemainingBytes:
		d.Signal = SignalRejected
		d.ShortfallBytes = sum - snap.RemainingBytes
		d.Message = fmt.Sprintf("Not enough space: %s needed, %s available (%s short)",
			humanize.IBytes(uint64(sum)), humanize.IBytes(uint64(snap.RemainingBytes)),
			humanize.IBytes(uint64(d.ShortfallBytes)))
	case d.ProjectedPercent > warningPercent:
		d.Allowed = true
		d.Signal = SignalWarning
		d.Message = fmt.Sprintf("Storage will be almost full after this upload (%.1f%% of %s)",
			d.ProjectedPercent, humanize.IBytes(uint64(snap.TotalBytes)))
	case d.ProjectedPercent > advisoryPercent:
		d.Allowed = true
		d.Signal = SignalAdvisory
		d.Message = fmt.Sprintf("Storage will be %.1f%% full after this upload", d.ProjectedPercent)
	default:
		d.Allowed = true
		d.Signal = SignalOK
		d.Message = fmt.Sprintf("%s fits, %s left afterwards",
			humanize.IBytes(uint64(sum)), humanize.IBytes(uint64(snap.RemainingBytes-sum)))
	}

	return d
}

// batchBytes 累加文件大小，溢出时停在 math.MaxInt64.
func batchBytes(sizes []int64) int64 {
	var sum int64
	for _, s := range sizes {
		if s <= 0 {
			continue
		}

		if sum > math.MaxInt64-s {
			return math.MaxInt64
		}

		sum += s
	}

	return sum
}
