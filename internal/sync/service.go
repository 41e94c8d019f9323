package sync

import (
	"context"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"PimSync/internal/config"
	csmodels "PimSync/internal/csapi/models"
	"PimSync/internal/database/model/mapping"
	"PimSync/internal/database/model/synclog"
	pimmodels "PimSync/internal/pimapi/models"
	"PimSync/internal/sync/category"
	"PimSync/internal/sync/models"
	"PimSync/internal/sync/product"
	"PimSync/pkg/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	MinDeltaDays = 1
	MaxDeltaDays = 365

	// maxErrorDetails сколько ошибок сущностей попадает в журнал
	maxErrorDetails = 20
)

var ErrAlreadyRunning = errors.New("sync already running")

type PimSource interface {
	Authenticate(ctx context.Context) error
	GetCategories(ctx context.Context, catalogID string) ([]*pimmodels.Category, error)
	GetAllProducts(ctx context.Context, catalogID string) ([]*pimmodels.Product, error)
	GetChangedProducts(ctx context.Context, catalogID string, sinceDays int) ([]*pimmodels.Product, error)
}

type Storefront interface {
	Version(ctx context.Context) (string, error)
	CreateCategory(ctx context.Context, c *csmodels.Category) (int, error)
	UpdateCategory(ctx context.Context, ID int, c *csmodels.Category) (int, error)
	CategoryExists(ctx context.Context, ID int) bool
	CreateProduct(ctx context.Context, p *csmodels.Product) (int, error)
	UpdateProduct(ctx context.Context, ID int, p *csmodels.Product) (int, error)
}

type MappingStore interface {
	LoadMap(ctx context.Context, scope mapping.Scope, kind mapping.Kind) (map[string]int, error)
	Save(ctx context.Context, m *mapping.Mapping) error
	Cleanup(ctx context.Context, scope mapping.Scope, kind mapping.Kind) (int64, error)
}

type LogStore interface {
	Create(ctx context.Context, e *synclog.Entry) error
	Finish(ctx context.Context, e *synclog.Entry) error
	HasRunning(ctx context.Context, catalogID string, companyID, storefrontID int, since time.Time) (bool, error)
	List(ctx context.Context, companyID int, limit int) ([]*synclog.Entry, error)
	ClearAll(ctx context.Context, companyID int) (int64, error)
	ClearOlderThan(ctx context.Context, companyID int, before time.Time) (int64, error)
	ClearFailed(ctx context.Context, companyID int) (int64, error)
}

// Notifier отправка сообщений во внешний канал (telegram)
type Notifier interface {
	SendMessage(text string) error
}

type Service struct {
	cfg      *config.Config
	pim      PimSource
	cs       Storefront
	mappings MappingStore
	logs     LogStore
	logger   logrus.FieldLogger
	notifier Notifier
	now      func() time.Time

	mu     gosync.Mutex
	guards map[string]*gosync.Mutex
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func NewService(cfg *config.Config, pim PimSource, cs Storefront, mappings MappingStore, logs LogStore, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		pim:      pim,
		cs:       cs,
		mappings: mappings,
		logs:     logs,
		logger:   logger,
		now:      time.Now,
		guards:   make(map[string]*gosync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampDays окно delta-синхронизации, 0 - значение из настроек
func (s *Service) ClampDays(days int) int {
	if days <= 0 {
		days = s.cfg.SYNC.Days
	}
	switch {
	case days < MinDeltaDays:
		return MinDeltaDays
	case days > MaxDeltaDays:
		return MaxDeltaDays
	}
	return days
}

func (s *Service) maxExecution() time.Duration {
	if s.cfg.SYNC.MaxExecutionTime <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.cfg.SYNC.MaxExecutionTime) * time.Second
}

func (s *Service) guard(scope mapping.Scope) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.String()
	m, found := s.guards[key]
	if !found {
		m = &gosync.Mutex{}
		s.guards[key] = m
	}
	return m
}

// SyncCatalog синхронизирует каталог PIM в витрину. Всегда возвращает заполненный SyncRun,
// ошибки попадают в Status и Error.
func (s *Service) SyncCatalog(ctx context.Context, catalogID string, syncType models.SyncType, days int) (run models.SyncRun) {
	if catalogID == "" {
		catalogID = s.cfg.PIM.CatalogID
	}

	run = models.SyncRun{
		RunID:     uuid.NewString(),
		Status:    models.StatusStarted,
		Type:      syncType,
		CatalogID: catalogID,
		StartTime: s.now(),
	}
	logger := s.logger.WithFields(logrus.Fields{"run_id": run.RunID, "catalog_id": catalogID})

	fail := func(err error) models.SyncRun {
		run.Status = models.StatusFailed
		run.Error = err.Error()
		run.EndTime = s.now()
		logger.Errorf("Ошибка синхронизации: %v", err)
		return run
	}

	if _, err := models.ParseSyncType(string(syncType)); err != nil {
		return fail(err)
	}

	catalogCfg, key := s.cfg.CatalogMapping(catalogID)
	if catalogCfg == nil {
		return fail(errors.Errorf("no catalog mapping for %s", catalogID))
	}
	if key != catalogID {
		logger.Infof("Для каталога %s нет настроек, используется %s", catalogID, key)
	}

	scope := mapping.Scope{CatalogID: catalogID, CompanyID: catalogCfg.CompanyID, StorefrontID: catalogCfg.StorefrontID}
	run.CompanyID = scope.CompanyID
	run.StorefrontID = scope.StorefrontID

	guard := s.guard(scope)
	if !guard.TryLock() {
		return fail(ErrAlreadyRunning)
	}
	defer guard.Unlock()

	running, err := s.logs.HasRunning(ctx, scope.CatalogID, scope.CompanyID, scope.StorefrontID, run.StartTime.Add(-s.maxExecution()))
	if err != nil {
		logger.Warnf("Не удалось проверить запущенные синхронизации: %v", err)
	} else if running {
		return fail(ErrAlreadyRunning)
	}

	entry := &synclog.Entry{
		RunID:        run.RunID,
		SyncType:     syncType.String(),
		CatalogID:    scope.CatalogID,
		CompanyID:    scope.CompanyID,
		StorefrontID: scope.StorefrontID,
		StartedAt:    run.StartTime.Unix(),
		Status:       synclog.StatusRunning,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		logger.Warnf("Не удалось создать запись журнала синхронизации: %v", err)
	}

	logger.Infof("Start SyncCatalog: тип %s, %s", syncType, catalogCfg)
	defer func() {
		if r := recover(); r != nil {
			logging.Critical(logger, "Критическая ошибка синхронизации: %v", r)
			run.Status = models.StatusFailed
			run.Error = fmt.Sprintf("panic: %v", r)
		}
		if run.EndTime.IsZero() {
			run.EndTime = s.now()
		}
		s.finish(entry, &run, logger)
		logger.Infof("End SyncCatalog: %s за %s", run.Status, run.Duration())
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.maxExecution())
	defer cancel()

	err = s.run(runCtx, &run, catalogCfg, scope, syncType, days, logger)
	run.EndTime = s.now()
	if err != nil {
		run.Status = models.StatusFailed
		run.Error = err.Error()
		logger.Errorf("Ошибка синхронизации: %v", err)
		return run
	}

	run.Status = models.StatusCompleted
	return run
}

func (s *Service) run(ctx context.Context, run *models.SyncRun, catalogCfg *config.Catalog, scope mapping.Scope,
	syncType models.SyncType, days int, logger logrus.FieldLogger) error {

	err := s.pim.Authenticate(ctx)
	if err != nil {
		return errors.Wrap(err, "failed PIM authentication")
	}

	categoryIDs, err := s.mappings.LoadMap(ctx, scope, mapping.KindCategory)
	if err != nil {
		return errors.Wrap(err, "failed to load category mapping")
	}

	if catalogCfg.SyncCategories {
		roots, err := s.pim.GetCategories(ctx, scope.CatalogID)
		if err != nil {
			return errors.Wrap(err, "failed to load categories")
		}

		reconciler := category.NewReconciler(s.cs, s.mappings, scope, categoryIDs, logger)
		run.Categories, err = reconciler.Sync(ctx, roots)
		categoryIDs = reconciler.Map()
		if err != nil {
			return errors.Wrap(err, "category sync aborted")
		}
	} else {
		logger.Info("Синхронизация категорий отключена для каталога")
	}

	if !catalogCfg.SyncProducts {
		logger.Info("Синхронизация товаров отключена для каталога")
		return nil
	}

	var products []*pimmodels.Product
	if syncType == models.SyncFull {
		products, err = s.pim.GetAllProducts(ctx, scope.CatalogID)
	} else {
		products, err = s.pim.GetChangedProducts(ctx, scope.CatalogID, s.ClampDays(days))
	}
	if err != nil {
		return errors.Wrap(err, "failed to load products")
	}
	logger.Infof("Получено товаров из PIM: %d", len(products))

	productIDs, err := s.mappings.LoadMap(ctx, scope, mapping.KindProduct)
	if err != nil {
		return errors.Wrap(err, "failed to load product mapping")
	}

	engine := product.NewEngine(s.cs, s.mappings, scope, categoryIDs, productIDs, s.cfg.SYNC.Workers, logger)
	run.Products, err = engine.Sync(ctx, products)
	if err != nil {
		return errors.Wrap(err, "product sync aborted")
	}
	return nil
}

// finish обновляет запись журнала и отправляет отчет
func (s *Service) finish(entry *synclog.Entry, run *models.SyncRun, logger logrus.FieldLogger) {
	entry.CompletedAt = run.EndTime.Unix()
	entry.Status = synclog.StatusCompleted
	if run.Status == models.StatusFailed {
		entry.Status = synclog.StatusFailed
	}
	entry.AffectedCategories = run.Categories.Affected()
	entry.AffectedProducts = run.Products.Affected()
	entry.ErrorDetails = ErrorDetails(run)

	if entry.LogID > 0 {
		// контекст запуска может быть уже отменен
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.logs.Finish(ctx, entry); err != nil {
			logger.Errorf("Не удалось обновить запись журнала %d: %v", entry.LogID, err)
		}
	}

	if s.notifier == nil {
		return
	}
	if run.Status == models.StatusFailed || s.cfg.TELEGRAM.Report {
		if err := s.notifier.SendMessage(Report(run)); err != nil {
			logger.Errorf("failed telegram.SendMessage(), error: %v", err)
		}
	}
}

// ErrorDetails ошибка запуска и первые ошибки сущностей для журнала
func ErrorDetails(run *models.SyncRun) string {
	var lines []string
	if run.Error != "" {
		lines = append(lines, run.Error)
	}

	errs := append(run.Categories.Errors(), run.Products.Errors()...)
	for i, e := range errs {
		if i == maxErrorDetails {
			lines = append(lines, fmt.Sprintf("... и еще %d", len(errs)-maxErrorDetails))
			break
		}
		lines = append(lines, e)
	}
	return strings.Join(lines, "\n")
}

// Report текст отчета о запуске
func Report(run *models.SyncRun) string {
	m := []string{
		fmt.Sprintf("PIM синхронизация %s: %s", run.Type, run.Status),
		fmt.Sprintf("Каталог %s, компания %d, витрина %d", run.CatalogID, run.CompanyID, run.StorefrontID),
		fmt.Sprintf("Категории: создано %d, обновлено %d, ошибок %d", run.Categories.Created, run.Categories.Updated, run.Categories.Failed),
		fmt.Sprintf("Товары: создано %d, обновлено %d, ошибок %d", run.Products.Created, run.Products.Updated, run.Products.Failed),
	}
	if run.Error != "" {
		m = append(m, "Ошибка: "+run.Error)
	}
	return strings.Join(m, "\n")
}

// TestConnections проверяет доступность PIM и CS-Cart
func (s *Service) TestConnections(ctx context.Context) models.ConnectionReport {
	s.logger.Info("Start TestConnections")
	defer s.logger.Info("End TestConnections")

	var report models.ConnectionReport
	if err := s.pim.Authenticate(ctx); err != nil {
		report.PIM.Error = err.Error()
	} else {
		report.PIM.Success = true
	}

	if v, err := s.cs.Version(ctx); err != nil {
		report.Storefront.Error = err.Error()
	} else {
		report.Storefront.Success = true
		s.logger.Infof("CS-Cart версия %s", v)
	}

	catalogCfg, _ := s.cfg.CatalogMapping(s.cfg.PIM.CatalogID)
	now := s.now().Unix()
	entry := &synclog.Entry{
		RunID:       uuid.NewString(),
		SyncType:    synclog.TypeTestConnection,
		CatalogID:   s.cfg.PIM.CatalogID,
		StartedAt:   now,
		CompletedAt: now,
		Status:      synclog.StatusCompleted,
	}
	if catalogCfg != nil {
		entry.CompanyID = catalogCfg.CompanyID
		entry.StorefrontID = catalogCfg.StorefrontID
	}
	if !report.OK() {
		entry.Status = synclog.StatusFailed
		var errs []string
		if report.PIM.Error != "" {
			errs = append(errs, "PIM: "+report.PIM.Error)
		}
		if report.Storefront.Error != "" {
			errs = append(errs, "CS-Cart: "+report.Storefront.Error)
		}
		entry.ErrorDetails = strings.Join(errs, "\n")
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warnf("Не удалось записать проверку соединения в журнал: %v", err)
	}

	return report
}

func (s *Service) LogEntries(ctx context.Context, companyID, limit int) ([]*synclog.Entry, error) {
	entries, err := s.logs.List(ctx, companyID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed in LogEntries")
	}
	return entries, nil
}

const (
	ClearAll    = "clear_all"
	ClearOld    = "clear_old"
	ClearFailed = "clear_failed"
)

// ClearLogs очистка журнала: clear_all, clear_old (старше LogRetentionDays) или clear_failed
func (s *Service) ClearLogs(ctx context.Context, companyID int, action string) (int64, error) {
	var n int64
	var err error
	switch action {
	case ClearAll:
		n, err = s.logs.ClearAll(ctx, companyID)
	case ClearOld:
		n, err = s.logs.ClearOlderThan(ctx, companyID, s.retentionCutoff())
	case ClearFailed:
		n, err = s.logs.ClearFailed(ctx, companyID)
	default:
		return 0, errors.Errorf("unknown clear action %q", action)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed in ClearLogs(%s)", action)
	}

	s.logger.Infof("Журнал очищен (%s): удалено %d записей", action, n)
	return n, nil
}

// CleanupOldLogs удаляет записи старше срока хранения по всем компаниям
func (s *Service) CleanupOldLogs(ctx context.Context) (int64, error) {
	return s.ClearLogs(ctx, 0, ClearOld)
}

func (s *Service) retentionCutoff() time.Time {
	days := s.cfg.SYNC.LogRetentionDays
	if days <= 0 {
		days = 30
	}
	return s.now().AddDate(0, 0, -days)
}

// CleanupMappings удаляет таблицы соответствий каталога. Следующий запуск создаст сущности заново.
func (s *Service) CleanupMappings(ctx context.Context, catalogID string) (categories, products int64, err error) {
	if catalogID == "" {
		catalogID = s.cfg.PIM.CatalogID
	}
	catalogCfg, _ := s.cfg.CatalogMapping(catalogID)
	if catalogCfg == nil {
		return 0, 0, errors.Errorf("no catalog mapping for %s", catalogID)
	}
	scope := mapping.Scope{CatalogID: catalogID, CompanyID: catalogCfg.CompanyID, StorefrontID: catalogCfg.StorefrontID}

	guard := s.guard(scope)
	if !guard.TryLock() {
		return 0, 0, ErrAlreadyRunning
	}
	defer guard.Unlock()

	categories, err = s.mappings.Cleanup(ctx, scope, mapping.KindCategory)
	if err != nil {
		return 0, 0, err
	}
	products, err = s.mappings.Cleanup(ctx, scope, mapping.KindProduct)
	if err != nil {
		return categories, 0, err
	}
	return categories, products, nil
}
