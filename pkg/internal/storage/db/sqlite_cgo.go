//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"

	"github.com/yeisme/drivemini/pkg/configs"
)

// 有 cgo 时使用 mattn/go-sqlite3.
func init() {
	RegisterDialectorFactory(configs.SQLite, sqlite.Open)
}
