package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/db"
)

func TestRegisteredTypes(t *testing.T) {
	kinds := db.GetRegisteredDBTypes()
	assert.Contains(t, kinds, configs.SQLite)
	assert.Contains(t, kinds, configs.PostgreSQL)
	assert.IsIncreasing(t, kinds)
}

func TestNew_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "data", "usage"),
		MaxIdleConns: 1,
	}

	c, err := db.New(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, c.HealthCheck(ctx))
	require.NoError(t, c.GetDB().Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, c.Close())
	assert.FileExists(t, cfg.Database+".db")
}

func TestNew_Unsupported(t *testing.T) {
	_, err := db.New(context.Background(), &configs.DBConfig{Type: "oracle"})
	require.Error(t, err)
}
