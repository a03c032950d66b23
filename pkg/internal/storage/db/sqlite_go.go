//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"

	"github.com/yeisme/drivemini/pkg/configs"
)

// 无 cgo 时使用纯 Go 的 modernc sqlite.
func init() {
	RegisterDialectorFactory(configs.SQLite, sqlite.Open)
}
