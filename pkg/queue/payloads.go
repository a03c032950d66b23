package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID，发布时从 context 中的 span 提取.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 用量领域 --------------------------

// UsageComputedPayload 一次估算完成后的快照摘要.
type UsageComputedPayload struct {
	UsedBytes      int64     `json:"used_bytes"`
	TotalBytes     int64     `json:"total_bytes"`
	RemainingBytes int64     `json:"remaining_bytes"`
	PercentUsed    float64   `json:"percent_used"`
	ObjectsCounted int       `json:"objects_counted"`
	Skipped        int       `json:"skipped"`
	ComputedAt     time.Time `json:"computed_at"`
}

// StorageFullPayload 使用率告警.
type StorageFullPayload struct {
	PercentUsed    float64 `json:"percent_used"`
	RemainingBytes int64   `json:"remaining_bytes"`
	Level          string  `json:"level"`
}

// -------------------------- 对象存储领域 --------------------------

// ObjectRef 标识对象存储中的一个对象.
type ObjectRef struct {
	Bucket      string `json:"bucket"`
	ObjectKey   string `json:"object_key"`
	Size        int64  `json:"size,omitempty"`
	ETag        string `json:"etag,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// ObjectStoredPayload 上传完成.
type ObjectStoredPayload struct {
	Object   ObjectRef `json:"object"`
	FileName string    `json:"file_name,omitempty"`
	TaskID   string    `json:"task_id,omitempty"`
	Zipped   bool      `json:"zipped,omitempty"`
}

// ObjectDeletedPayload 对象被删除.
type ObjectDeletedPayload struct {
	Object ObjectRef `json:"object"`
}

// -------------------------- 共享笔记 --------------------------

// NoteUpdatedPayload 笔记已保存.
type NoteUpdatedPayload struct {
	Revision  string    `json:"revision"`
	ETag      string    `json:"etag"`
	Length    int       `json:"length"`
	Overwrote bool      `json:"overwrote"`
	UpdatedAt time.Time `json:"updated_at"`
}
