package queue

// 主题命名规范：drive.<领域>.<事件>.
const (
	TopicUsageComputed = "drive.usage.computed" // 新的用量快照已计算并写入缓存
	TopicStorageFull   = "drive.storage.full"   // 使用率超过告警阈值
	TopicObjectStored  = "drive.object.stored"  // 对象已写入对象存储
	TopicObjectDeleted = "drive.object.deleted" // 对象已从存储中删除
	TopicNoteUpdated   = "drive.note.updated"   // 共享笔记内容被覆盖写入
)

// AllTopics 返回全部主题，便于 CLI 展示.
func AllTopics() []string {
	return []string{
		TopicUsageComputed,
		TopicStorageFull,
		TopicObjectStored,
		TopicObjectDeleted,
		TopicNoteUpdated,
	}
}
