package configs

import "github.com/spf13/viper"

const (
	DefaultSearchMaxDepth    = 3  // 相对路径段数小于该值时继续向下搜索
	DefaultSearchHistorySize = 10 // 保留的搜索历史条数
	DefaultSearchMaxResults  = 200
)

// SearchConfig 搜索配置.
type SearchConfig struct {
	MaxDepth    int `mapstructure:"max_depth"    rule:"min=1,max=16"`
	HistorySize int `mapstructure:"history_size" rule:"min=0,max=100"`
	MaxResults  int `mapstructure:"max_results"  rule:"min=1"`
}

func (c *SearchConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("search.max_depth", DefaultSearchMaxDepth)
	v.SetDefault("search.history_size", DefaultSearchHistorySize)
	v.SetDefault("search.max_results", DefaultSearchMaxResults)
}
