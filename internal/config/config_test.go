package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[PIM]
URL = https://pim.local
Login = user
Password = secret

[STOREFRONT]
URL = https://shop.local
Email = admin@shop.local
ApiKey = key

[SYNC]
Workers = 6

[catalog "21"]
CompanyID = 3
StorefrontID = 1
SyncProducts = true
SyncCategories = false

[catalog "default"]
CompanyID = 2
StorefrontID = 2
SyncProducts = true
SyncCategories = true
`

func TestLoadString(t *testing.T) {
	c, err := LoadString(testConfig)
	require.NoError(t, err)

	assert.Equal(t, "https://pim.local", c.PIM.URL)
	assert.Equal(t, 3300, c.PIM.TokenLifetime)
	assert.Equal(t, "v1", c.PIM.APIVersion)
	assert.Equal(t, 6, c.SYNC.Workers)
	assert.Equal(t, "delta", c.SYNC.DefaultType)
	assert.Equal(t, "sqlite3", c.DB.Driver)
	assert.Len(t, c.Catalog, 2)
}

func TestCatalogMapping(t *testing.T) {
	c, err := LoadString(testConfig)
	require.NoError(t, err)

	catalog, key := c.CatalogMapping("21")
	assert.Equal(t, "21", key)
	assert.Equal(t, 3, catalog.CompanyID)
	assert.Equal(t, 1, catalog.StorefrontID)
	assert.False(t, catalog.SyncCategories)

	catalog, key = c.CatalogMapping("unknown")
	assert.Equal(t, DefaultCatalogKey, key)
	assert.Equal(t, 2, catalog.CompanyID)
	assert.True(t, catalog.SyncCategories)
}

func TestValidateRequiresDefaultCatalog(t *testing.T) {
	_, err := LoadString(`
[PIM]
URL = https://pim.local
Login = user
Password = secret

[STOREFRONT]
URL = https://shop.local

[catalog "21"]
CompanyID = 3
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestValidateMissingSettings(t *testing.T) {
	_, err := LoadString(`
[catalog "default"]
CompanyID = 1
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIM.URL")
	assert.Contains(t, err.Error(), "STOREFRONT.URL")
}

func TestValidateSyncType(t *testing.T) {
	_, err := LoadString(testConfig + `
[SYNC]
DefaultType = manual
`)
	require.Error(t, err)
}

func TestServiceTokenFromEnv(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "from-env")

	c, err := LoadString(testConfig)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.SERVICE.Token)
}
