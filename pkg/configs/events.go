package configs

import "github.com/spf13/viper"

// EventsConfig 领域事件开关，Enabled 为 false 时全部关闭.
type EventsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	UsageComputed bool `mapstructure:"usage_computed"`
	// StorageFull 使用率超过 95% 时发布
	StorageFull   bool `mapstructure:"storage_full"`
	ObjectStored  bool `mapstructure:"object_stored"`
	ObjectDeleted bool `mapstructure:"object_deleted"`
	// NoteUpdated 关闭后笔记的 SSE 推送收不到更新
	NoteUpdated bool `mapstructure:"note_updated"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.usage_computed", true)
	v.SetDefault("events.storage_full", false)
	v.SetDefault("events.object_stored", true)
	v.SetDefault("events.object_deleted", true)
	v.SetDefault("events.note_updated", true)
}
