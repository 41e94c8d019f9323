package sync

import (
	"context"
	"testing"
	"time"

	"PimSync/internal/config"
	"PimSync/internal/sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schedulerConfig() *config.Config {
	cfg := testConfig()
	cfg.SYNC.DefaultType = "delta"
	cfg.Catalog["21"].AutoSync = true
	cfg.Catalog["default"].AutoSync = true
	cfg.Catalog["5"] = &config.Catalog{CompanyID: 5, StorefrontID: 5, AutoSync: true, SyncCategories: true, SyncProducts: true}
	cfg.Catalog["6"] = &config.Catalog{CompanyID: 6, StorefrontID: 6}
	return cfg
}

func TestAutoSyncCatalogs(t *testing.T) {
	f := newFixture(t, schedulerConfig(), samplePIM())
	assert.Equal(t, []string{"21", "5"}, f.svc.AutoSyncCatalogs())
}

func TestSyncAutoCatalogs(t *testing.T) {
	f := newFixture(t, schedulerConfig(), samplePIM())

	runs := f.svc.SyncAutoCatalogs(context.Background())
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, models.StatusCompleted, run.Status, run.Error)
		assert.Equal(t, models.SyncDelta, run.Type)
	}
	assert.Equal(t, 2, f.pim.deltaCalls)
}

func TestRunSchedulerStopsOnCancel(t *testing.T) {
	f := newFixture(t, schedulerConfig(), samplePIM())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunScheduler(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
