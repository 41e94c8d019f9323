package database

import (
	"context"
	"testing"

	"PimSync/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	db, err := Open(context.Background(), DriverSQLite, ":memory:", logging.Discard())
	require.NoError(t, err)
	defer db.Close()

	var tables []string
	err = db.Select(&tables, "SELECT name FROM sqlite_master WHERE type='table' AND name LIKE 'pim_%' ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []string{"pim_category_map", "pim_product_map", "pim_sync_log"}, tables)

	// повторная миграция не падает
	require.NoError(t, Migrate(context.Background(), db))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", logging.Discard())
	assert.Error(t, err)
}
