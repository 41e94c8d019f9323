package product

import (
	"context"
	"sync"

	csmodels "PimSync/internal/csapi/models"
	"PimSync/internal/database/model/mapping"
	pimmodels "PimSync/internal/pimapi/models"
	"PimSync/internal/sync/models"
	"PimSync/internal/syncerr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 8
)

// API часть клиента CS-Cart, нужная для товаров
type API interface {
	CreateProduct(ctx context.Context, p *csmodels.Product) (int, error)
	UpdateProduct(ctx context.Context, ID int, p *csmodels.Product) (int, error)
}

type MappingSaver interface {
	Save(ctx context.Context, m *mapping.Mapping) error
}

type Engine struct {
	api        API
	store      MappingSaver
	scope      mapping.Scope
	categories map[string]int
	products   *idMap
	workers    int
	logger     logrus.FieldLogger
}

// NewEngine categories - карта категорий после синхронизации дерева, только для чтения.
// products - загруженная карта товаров.
func NewEngine(api API, store MappingSaver, scope mapping.Scope, categories, products map[string]int, workers int, logger logrus.FieldLogger) *Engine {
	return &Engine{
		api:        api,
		store:      store,
		scope:      scope,
		categories: categories,
		products:   newIDMap(products),
		workers:    ClampWorkers(workers),
		logger:     logger,
	}
}

// ClampWorkers 0 - значение по умолчанию, иначе 1..8
func ClampWorkers(n int) int {
	switch {
	case n <= 0:
		return DefaultWorkers
	case n > MaxWorkers:
		return MaxWorkers
	}
	return n
}

// Map карта товаров после синхронизации
func (e *Engine) Map() map[string]int {
	return e.products.Snapshot()
}

// Sync обрабатывает товары пулом воркеров. Детали идут в порядке входного списка.
// Ошибка возвращается, если запуск надо прервать (отмена контекста, авторизация).
func (e *Engine) Sync(ctx context.Context, products []*pimmodels.Product) (models.Result, error) {
	e.logger.Infof("Start SyncProducts, товаров: %d, воркеров: %d", len(products), e.workers)
	defer e.logger.Info("End SyncProducts")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		claimed sync.Map
		abort   error
		abortMu sync.Mutex
	)
	outcomes := make([][]*models.Detail, len(products))
	jobs := make(chan int)

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := products[idx]
				if _, loaded := claimed.LoadOrStore(p.ID.String(), idx); loaded {
					e.logger.Debugf("Товар %s встречается повторно, пропускаем", p.ID)
					outcomes[idx] = []*models.Detail{{
						Action:    models.ActionSkipped,
						PimID:     p.ID.String(),
						PimHeader: p.Header,
					}}
					continue
				}

				details, err := e.sync(ctx, p)
				outcomes[idx] = details
				if err != nil {
					abortMu.Lock()
					if abort == nil {
						abort = err
					}
					abortMu.Unlock()
					cancel()
				}
			}
		}()
	}

feed:
	for idx := range products {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var result models.Result
	for _, details := range outcomes {
		for _, d := range details {
			result.Record(d)
		}
	}

	e.logger.Infof("Товары: всего %d, создано %d, обновлено %d, ошибок %d",
		result.Total, result.Created, result.Updated, result.Failed)

	if abort != nil {
		return result, abort
	}
	// отмена могла прийти уже после того, как все товары разобраны воркерами
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) sync(ctx context.Context, p *pimmodels.Product) ([]*models.Detail, error) {
	pimID := p.ID.String()

	categoryIDs := e.ResolveCategories(p)
	if len(categoryIDs) == 0 {
		err := &syncerr.ValidationError{Field: "categories", Message: "no mapped categories for product"}
		e.logger.Warnf("Товар %s (%s): %v", pimID, p.Header, err)
		return []*models.Detail{{
			Action:    models.ActionValidationFailed,
			PimID:     pimID,
			PimHeader: p.Header,
			Error:     err.Error(),
		}}, nil
	}

	payload, err := BuildPayload(p, categoryIDs, e.scope)
	if err != nil {
		return []*models.Detail{{
			Action:    models.ActionValidationFailed,
			PimID:     pimID,
			PimHeader: p.Header,
			Error:     err.Error(),
		}}, nil
	}

	existingID, mapped := e.products.Get(pimID)

	var targetID int
	action := models.ActionCreated
	if mapped {
		action = models.ActionUpdated
		targetID, err = e.api.UpdateProduct(ctx, existingID, payload)
		if err == nil && targetID <= 0 {
			targetID = existingID
		}
	} else {
		targetID, err = e.api.CreateProduct(ctx, payload)
	}

	if err != nil {
		failed := models.ActionCreateFailed
		if mapped {
			failed = models.ActionUpdateFailed
		}
		e.logger.Errorf("Ошибка синхронизации товара %s (%s): %v", pimID, p.Header, err)

		details := []*models.Detail{{
			Action:    failed,
			PimID:     pimID,
			PimHeader: p.Header,
			Error:     err.Error(),
		}}
		if syncerr.IsAuth(err) {
			return details, errors.Wrapf(err, "product %s", pimID)
		}
		return details, nil
	}

	e.products.Set(pimID, targetID)
	details := []*models.Detail{{
		Action:    action,
		PimID:     pimID,
		PimHeader: p.Header,
		TargetID:  targetID,
	}}

	err = e.store.Save(ctx, &mapping.Mapping{
		Kind:         mapping.KindProduct,
		PimID:        pimID,
		PimSyncUID:   p.UID(),
		TargetID:     targetID,
		CatalogID:    e.scope.CatalogID,
		CompanyID:    e.scope.CompanyID,
		StorefrontID: e.scope.StorefrontID,
	})
	if err != nil {
		e.logger.Errorf("Не удалось сохранить соответствие товара %s -> %d: %v", pimID, targetID, err)
		details = append(details, &models.Detail{
			Action:    models.ActionMappingFailed,
			PimID:     pimID,
			PimHeader: p.Header,
			TargetID:  targetID,
			Error:     err.Error(),
		})
	}

	return details, nil
}

// ResolveCategories id категорий CS-Cart для товара: catalogAdditional, а если пусто - catalogId.
// Без повторов, порядок сохраняется. Неизвестные категории отбрасываются.
func (e *Engine) ResolveCategories(p *pimmodels.Product) []int {
	refs := p.CategoryRefs()
	if len(refs) == 0 && p.CatalogID != "" {
		refs = []string{p.CatalogID.String()}
	}

	seen := make(map[int]bool, len(refs))
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		id, found := e.categories[ref]
		if !found {
			e.logger.Debugf("Категория PIM %s товара %s не найдена в таблице соответствий", ref, p.ID)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// BuildPayload тело запроса CS-Cart для товара
func BuildPayload(p *pimmodels.Product, categoryIDs []int, scope mapping.Scope) (*csmodels.Product, error) {
	if p.Header == "" {
		return nil, &syncerr.ValidationError{Field: "header", Message: "empty product name"}
	}
	if len(categoryIDs) == 0 {
		return nil, &syncerr.ValidationError{Field: "categories", Message: "no mapped categories for product"}
	}

	code := p.BarCode
	if code == "" {
		code = p.Articul
	}

	status := "D"
	if p.Enabled {
		status = "A"
	}

	return &csmodels.Product{
		Product:          p.Header,
		ProductCode:      code,
		Status:           status,
		Price:            p.Price.Float64(),
		Weight:           p.Weight.Float64(),
		Length:           p.Length.Float64(),
		Width:            p.Width.Float64(),
		Height:           p.Height.Float64(),
		FullDescription:  p.Content,
		ShortDescription: p.Description,
		CategoryIDs:      categoryIDs,
		MainCategory:     categoryIDs[0],
		CompanyID:        scope.CompanyID,
		StorefrontID:     scope.StorefrontID,
	}, nil
}
