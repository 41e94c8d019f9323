package sync

import (
	"context"
	"sort"
	"time"

	"PimSync/internal/config"
	"PimSync/internal/sync/models"
)

// AutoSyncCatalogs каталоги с AutoSync = true, секция default не участвует
func (s *Service) AutoSyncCatalogs() []string {
	var ids []string
	for id, c := range s.cfg.Catalog {
		if id == config.DefaultCatalogKey || c == nil || !c.AutoSync {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SyncAutoCatalogs один проход планировщика: синхронизация по SYNC.DefaultType для каждого каталога с AutoSync
func (s *Service) SyncAutoCatalogs(ctx context.Context) []models.SyncRun {
	s.logger.Info("Start SyncAutoCatalogs")
	defer s.logger.Info("End SyncAutoCatalogs")

	syncType, err := models.ParseSyncType(s.cfg.SYNC.DefaultType)
	if err != nil {
		syncType = models.SyncDelta
	}

	var runs []models.SyncRun
	for _, id := range s.AutoSyncCatalogs() {
		if ctx.Err() != nil {
			break
		}
		run := s.SyncCatalog(ctx, id, syncType, 0)
		runs = append(runs, run)
	}
	return runs
}

// RunScheduler запускает SyncAutoCatalogs сразу и затем каждые interval, до отмены контекста
func (s *Service) RunScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Infof("Start RunScheduler, интервал %s", interval)
	defer s.logger.Info("End RunScheduler")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.SyncAutoCatalogs(ctx)
		s.cleanupOldLogs(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) cleanupOldLogs(ctx context.Context) {
	if _, err := s.CleanupOldLogs(ctx); err != nil {
		s.logger.Errorf("failed in CleanupOldLogs, error: %v", err)
	}
}
