package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"

	"github.com/yeisme/drivemini/pkg/configs"
)

func init() {
	RegisterDialectorFactory(configs.MySQL, mysql.Open)
	RegisterDialectorFactory(configs.MariaDB, mysql.Open)

	for _, t := range []configs.DBType{configs.PostgreSQL, configs.Postgres, configs.Pg} {
		RegisterDialectorFactory(t, postgres.Open)
	}
}
