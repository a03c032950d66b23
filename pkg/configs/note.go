package configs

import "github.com/spf13/viper"

const (
	DefaultNoteKey       = "shared-note/content"
	DefaultNoteMaxLength = 100000 // 以字符计
)

// NoteConfig 共享笔记配置.
type NoteConfig struct {
	Key       string `mapstructure:"key"        rule:"required"`
	MaxLength int    `mapstructure:"max_length" rule:"min=1"`
}

func (c *NoteConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("note.key", DefaultNoteKey)
	v.SetDefault("note.max_length", DefaultNoteMaxLength)
}
