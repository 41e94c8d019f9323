package mapping

import (
	"context"
	"fmt"
	"time"

	"PimSync/internal/syncerr"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindCategory Kind = "category"
	KindProduct  Kind = "product"
)

func (k Kind) table() string {
	if k == KindProduct {
		return "pim_product_map"
	}
	return "pim_category_map"
}

func (k Kind) targetColumn() string {
	if k == KindProduct {
		return "cscart_product_id"
	}
	return "cscart_category_id"
}

func (k Kind) Valid() bool {
	return k == KindCategory || k == KindProduct
}

// Scope каталог PIM и пара компания/витрина, в которую он синхронизируется
type Scope struct {
	CatalogID    string
	CompanyID    int
	StorefrontID int
}

func (s Scope) String() string {
	return fmt.Sprintf("catalog=%s company=%d storefront=%d", s.CatalogID, s.CompanyID, s.StorefrontID)
}

type Mapping struct {
	ID           int    `db:"id"`
	Kind         Kind   `db:"-"`
	PimID        string `db:"pim_id"`
	PimSyncUID   string `db:"pim_sync_uid"`
	TargetID     int    `db:"target_id"`
	CatalogID    string `db:"catalog_id"`
	CompanyID    int    `db:"company_id"`
	StorefrontID int    `db:"storefront_id"`
	Timestamp    int64  `db:"timestamp"`
}

type Store struct {
	db     *sqlx.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewStore(db *sqlx.DB, logger logrus.FieldLogger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Select все соответствия области
func (s *Store) Select(ctx context.Context, scope Scope, kind Kind) ([]*Mapping, error) {
	s.logger.Debugf("Start Mapping.Select(%s)", kind)
	defer s.logger.Debugf("End Mapping.Select(%s)", kind)

	query := s.db.Rebind(fmt.Sprintf(`SELECT id, pim_id, pim_sync_uid, %s AS target_id, catalog_id, company_id, storefront_id, timestamp
		FROM %s WHERE catalog_id=? AND company_id=? AND storefront_id=? ORDER BY id;`, kind.targetColumn(), kind.table()))

	var mappings []*Mapping
	err := s.db.SelectContext(ctx, &mappings, query, scope.CatalogID, scope.CompanyID, scope.StorefrontID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT; query:\n%s(%s)", query, scope)
	}
	for _, m := range mappings {
		m.Kind = kind
	}

	s.logger.Debugf("Количество полученных строк: %d", len(mappings))
	return mappings, nil
}

// LoadMap pim_id -> id в CS-Cart для области.
func (s *Store) LoadMap(ctx context.Context, scope Scope, kind Kind) (map[string]int, error) {
	mappings, err := s.Select(ctx, scope, kind)
	if err != nil {
		return nil, err
	}

	result := make(map[string]int, len(mappings))
	for _, m := range mappings {
		result[m.PimID] = m.TargetID
	}
	return result, nil
}

// Save upsert по (pim_sync_uid, catalog_id, company_id, storefront_id).
func (s *Store) Save(ctx context.Context, m *Mapping) error {
	if !m.Kind.Valid() {
		return &syncerr.MappingStoreError{Kind: string(m.Kind), PimID: m.PimID, Err: errors.New("unknown mapping kind")}
	}
	if m.PimSyncUID == "" {
		m.PimSyncUID = m.PimID
	}
	if m.Timestamp == 0 {
		m.Timestamp = s.now().Unix()
	}

	column := m.Kind.targetColumn()
	query := s.db.Rebind(fmt.Sprintf(`INSERT INTO %[1]s (pim_id, pim_sync_uid, %[2]s, catalog_id, company_id, storefront_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pim_sync_uid, catalog_id, company_id, storefront_id)
		DO UPDATE SET pim_id=excluded.pim_id, %[2]s=excluded.%[2]s, timestamp=excluded.timestamp;`, m.Kind.table(), column))

	s.logger.Debugf("UPSERT %s pim_id=%s -> %d", m.Kind, m.PimID, m.TargetID)
	_, err := s.db.ExecContext(ctx, query,
		m.PimID, m.PimSyncUID, m.TargetID, m.CatalogID, m.CompanyID, m.StorefrontID, m.Timestamp)
	if err != nil {
		return &syncerr.MappingStoreError{
			Kind:  string(m.Kind),
			PimID: m.PimID,
			Err:   errors.Wrapf(err, "failed UPSERT; query:\n%s", query),
		}
	}
	return nil
}

// Cleanup удаляет соответствия области. Возвращает число удаленных строк.
func (s *Store) Cleanup(ctx context.Context, scope Scope, kind Kind) (int64, error) {
	s.logger.Infof("Очистка соответствий %s: %s", kind, scope)

	query := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE catalog_id=? AND company_id=? AND storefront_id=?;", kind.table()))
	result, err := s.db.ExecContext(ctx, query, scope.CatalogID, scope.CompanyID, scope.StorefrontID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed DELETE; query:\n%s(%s)", query, scope)
	}

	n, _ := result.RowsAffected()
	s.logger.Infof("Удалено строк: %d", n)
	return n, nil
}
