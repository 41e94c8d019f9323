package category

import (
	"context"

	csmodels "PimSync/internal/csapi/models"
	"PimSync/internal/database/model/mapping"
	pimmodels "PimSync/internal/pimapi/models"
	"PimSync/internal/sync/models"
	"PimSync/internal/syncerr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// API часть клиента CS-Cart, нужная для категорий
type API interface {
	CreateCategory(ctx context.Context, c *csmodels.Category) (int, error)
	UpdateCategory(ctx context.Context, ID int, c *csmodels.Category) (int, error)
	CategoryExists(ctx context.Context, ID int) bool
}

type MappingSaver interface {
	Save(ctx context.Context, m *mapping.Mapping) error
}

// Reconciler переносит дерево категорий PIM в CS-Cart обходом в глубину.
type Reconciler struct {
	api    API
	store  MappingSaver
	scope  mapping.Scope
	ids    map[string]int
	logger logrus.FieldLogger
}

// NewReconciler ids - загруженная карта pim_id -> category_id, дополняется по ходу обхода.
func NewReconciler(api API, store MappingSaver, scope mapping.Scope, ids map[string]int, logger logrus.FieldLogger) *Reconciler {
	if ids == nil {
		ids = make(map[string]int)
	}
	return &Reconciler{
		api:    api,
		store:  store,
		scope:  scope,
		ids:    ids,
		logger: logger,
	}
}

// Map карта соответствий после синхронизации
func (r *Reconciler) Map() map[string]int {
	return r.ids
}

// Sync обходит корни по порядку. Ошибка возвращается только если запуск
// надо прервать: отмена контекста или отказ в авторизации.
func (r *Reconciler) Sync(ctx context.Context, roots []*pimmodels.Category) (models.Result, error) {
	r.logger.Info("Start SyncCategories")
	defer r.logger.Info("End SyncCategories")

	var result models.Result
	for _, root := range roots {
		nodeResult, err := r.walk(ctx, root, 0)
		result.Add(nodeResult)
		if err != nil {
			return result, err
		}
	}

	r.logger.Infof("Категории: всего %d, создано %d, обновлено %d, ошибок %d",
		result.Total, result.Created, result.Updated, result.Failed)
	return result, nil
}

// walk результат узла = собственный исход + сумма по детям, детали в порядке обхода.
func (r *Reconciler) walk(ctx context.Context, node *pimmodels.Category, parentID int) (models.Result, error) {
	var result models.Result
	if err := ctx.Err(); err != nil {
		return result, err
	}

	childParent := parentID
	if node.IsCatalogRoot(parentID) {
		r.logger.Debugf("Пропускаем корневую категорию каталога: %s (ID: %s)", node.Header, node.ID)
		result.Record(&models.Detail{
			Action:    models.ActionSkipped,
			PimID:     node.ID.String(),
			PimHeader: node.Header,
		})
	} else {
		details, targetID, err := r.sync(ctx, node, parentID)
		for _, d := range details {
			result.Record(d)
		}
		if err != nil {
			return result, err
		}
		if targetID <= 0 {
			// без id родителя дети не переносятся, иначе они окажутся у другого родителя
			if len(node.Children) > 0 {
				r.logger.Warnf("Категория %s (%s) не синхронизирована, вложенные категории пропущены", node.ID, node.Header)
			}
			for _, child := range node.Children {
				result.Add(r.unresolved(child, node.ID.String()))
			}
			return result, nil
		}
		childParent = targetID
	}

	for _, child := range node.Children {
		childResult, err := r.walk(ctx, child, childParent)
		result.Add(childResult)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// unresolved помечает поддерево, родитель которого не получил id в CS-Cart
func (r *Reconciler) unresolved(node *pimmodels.Category, parentPimID string) models.Result {
	var result models.Result
	err := &syncerr.ValidationError{Field: "parent_id", Message: "unresolved parent " + parentPimID}
	result.Record(&models.Detail{
		Action:    models.ActionValidationFailed,
		PimID:     node.ID.String(),
		PimHeader: node.Header,
		Error:     err.Error(),
	})
	for _, child := range node.Children {
		result.Add(r.unresolved(child, node.ID.String()))
	}
	return result
}

// sync создает или обновляет один узел. Возвращает детали и id категории в CS-Cart для дочерних узлов.
// При ошибке обновления это прежний id из таблицы соответствий, при ошибке создания 0.
func (r *Reconciler) sync(ctx context.Context, node *pimmodels.Category, parentID int) ([]*models.Detail, int, error) {
	pimID := node.ID.String()

	payload, err := BuildPayload(node, parentID, r.scope)
	if err != nil {
		r.logger.Warnf("Категория %s не прошла проверку: %v", pimID, err)
		return []*models.Detail{{
			Action:    models.ActionValidationFailed,
			PimID:     pimID,
			PimHeader: node.Header,
			ParentID:  parentID,
			Error:     err.Error(),
		}}, 0, nil
	}

	existingID, mapped := r.ids[pimID]
	if mapped && !r.api.CategoryExists(ctx, existingID) {
		r.logger.Warnf("Категория %d из таблицы соответствий не найдена в CS-Cart, создаем заново (PIM ID: %s)", existingID, pimID)
		mapped = false
	}

	var targetID int
	action := models.ActionCreated
	if mapped {
		action = models.ActionUpdated
		targetID, err = r.api.UpdateCategory(ctx, existingID, payload)
		if err == nil && targetID <= 0 {
			targetID = existingID
		}
	} else {
		targetID, err = r.api.CreateCategory(ctx, payload)
	}

	if err != nil {
		failed := models.ActionCreateFailed
		if mapped {
			failed = models.ActionUpdateFailed
		}
		r.logger.Errorf("Ошибка синхронизации категории %s (%s): %v", pimID, node.Header, err)

		details := []*models.Detail{{
			Action:    failed,
			PimID:     pimID,
			PimHeader: node.Header,
			ParentID:  parentID,
			Error:     err.Error(),
		}}
		if syncerr.IsAuth(err) || ctx.Err() != nil {
			return details, 0, errors.Wrapf(err, "category %s", pimID)
		}
		if mapped {
			return details, existingID, nil
		}
		return details, 0, nil
	}

	r.ids[pimID] = targetID
	details := []*models.Detail{{
		Action:    action,
		PimID:     pimID,
		PimHeader: node.Header,
		TargetID:  targetID,
		ParentID:  parentID,
	}}
	r.logger.Debugf("Категория %s: %s -> %d (parent %d)", action, pimID, targetID, parentID)

	err = r.store.Save(ctx, &mapping.Mapping{
		Kind:         mapping.KindCategory,
		PimID:        pimID,
		PimSyncUID:   node.UID(),
		TargetID:     targetID,
		CatalogID:    r.scope.CatalogID,
		CompanyID:    r.scope.CompanyID,
		StorefrontID: r.scope.StorefrontID,
	})
	if err != nil {
		r.logger.Errorf("Не удалось сохранить соответствие категории %s -> %d: %v", pimID, targetID, err)
		details = append(details, &models.Detail{
			Action:    models.ActionMappingFailed,
			PimID:     pimID,
			PimHeader: node.Header,
			TargetID:  targetID,
			Error:     err.Error(),
		})
	}

	return details, targetID, nil
}

// BuildPayload тело запроса CS-Cart для категории PIM
func BuildPayload(node *pimmodels.Category, parentID int, scope mapping.Scope) (*csmodels.Category, error) {
	if node.Header == "" {
		return nil, &syncerr.ValidationError{Field: "header", Message: "empty category name"}
	}

	status := "D"
	if node.Enabled {
		status = "A"
	}

	payload := &csmodels.Category{
		Category:        node.Header,
		Status:          status,
		Position:        node.Pos,
		Description:     node.Content,
		MetaKeywords:    node.HtKeywords,
		MetaDescription: node.HtDesc,
		PageTitle:       node.HtHead,
		SeoName:         Slug(node.Header),
		CompanyID:       scope.CompanyID,
		StorefrontID:    scope.StorefrontID,
	}
	if parentID > 0 {
		payload.ParentID = parentID
	}
	return payload, nil
}
