package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DBType 数据库类型，同一方言有多个别名.
type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgre"
	Pg         DBType = "pg"

	MySQL   DBType = "mysql"
	MariaDB DBType = "mariadb"

	// SQLite 默认类型，Database 为不带扩展名的文件路径.
	SQLite DBType = "sqlite"
)

// DBConfig 用量历史数据库配置，Enabled 为 false 时不记录历史.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     DBType `mapstructure:"type"     rule:"oneof=postgresql postgre pg mysql mariadb sqlite"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"     rule:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" rule:"required"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"    rule:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    rule:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" rule:"gte=0"`
}

// GetDBType 返回方言的展示名.
func (c *DBConfig) GetDBType() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return "PostgreSQL"
	case MySQL, MariaDB:
		return "MySQL"
	case SQLite:
		return "SQLite"
	}

	return "Unknown"
}

// GetDSN 按方言拼接连接串，未知类型返回空串.
func (c *DBConfig) GetDSN() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
	case MySQL, MariaDB:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case SQLite:
		return "file:" + c.Database + ".db"
	}

	return ""
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.enabled", true)
	v.SetDefault("db.type", SQLite)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.database", "data/"+AppName)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 0)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
}
