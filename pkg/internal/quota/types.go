// Package quota 估算对象存储用量并据此做上传前容量检查.
//
// 估算是有界的：从根路径出发最多向下两层，每个目录最多统计前 100 个对象、
// 递归前 20 个子目录（均按列举顺序截断），因此结果是下界而非精确值.
// 单个对象或子目录失败只记为 0 并计入 WalkStats；只有根目录列举失败才终止估算.
package quota

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound 路径或对象不存在，列举时视为空目录.
	ErrNotFound = errors.New("quota: not found")
	// ErrRootListing 根目录列举失败，估算无结果.
	ErrRootListing = errors.New("quota: root listing failed")
)

// ObjectRef 列举结果中的对象.
type ObjectRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FolderRef 列举结果中的子目录，Path 以 "/" 结尾.
type FolderRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing 一个目录的直接子项，顺序即存储返回的顺序.
type Listing struct {
	Folders []FolderRef `json:"folders"`
	Objects []ObjectRef `json:"objects"`
}

// ObjectMeta 对象元数据.
type ObjectMeta struct {
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Gateway 对象存储的最小只读视图.
type Gateway interface {
	ListChildren(ctx context.Context, path string) (Listing, error)
	GetMetadata(ctx context.Context, path string) (ObjectMeta, error)
}

// OutcomeKind 单个遍历项的结果类型.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeSkipped
)

// SkipReason 跳过原因.
type SkipReason string

const (
	ReasonMetadata SkipReason = "metadata"
	ReasonListing  SkipReason = "listing"
)

// Outcome 记录一个被跳过的对象或目录.
type Outcome struct {
	Kind   OutcomeKind `json:"-"`
	Path   string      `json:"path"`
	Reason SkipReason  `json:"reason"`
	Err    string      `json:"error,omitempty"`
}

// WalkStats 一次遍历的计数.
type WalkStats struct {
	Folders          int       `json:"folders"`
	Objects          int       `json:"objects"`
	Skipped          int       `json:"skipped"`
	TruncatedObjects int       `json:"truncated_objects"`
	TruncatedFolders int       `json:"truncated_folders"`
	Skips            []Outcome `json:"skips,omitempty"`
}

// UsageSnapshot 某一时刻的用量估算结果，构造后不再修改.
type UsageSnapshot struct {
	UsedBytes      int64     `json:"used_bytes"`
	TotalBytes     int64     `json:"total_bytes"`
	RemainingBytes int64     `json:"remaining_bytes"`
	PercentUsed    float64   `json:"percent_used"`
	ComputedAt     time.Time `json:"computed_at"`
	Stats          WalkStats `json:"stats"`
}

// NewSnapshot 由已用量与总容量构造快照，剩余量不小于 0，使用率不超过 100.
func NewSnapshot(used, total int64, at time.Time) UsageSnapshot {
	used = max(used, 0)

	s := UsageSnapshot{
		UsedBytes:  used,
		TotalBytes: total,
		ComputedAt: at,
	}

	if total <= 0 {
		s.PercentUsed = 100
		return s
	}

	s.RemainingBytes = max(total-used, 0)
	s.PercentUsed = min(float64(used)*100/float64(total), 100)

	return s
}
