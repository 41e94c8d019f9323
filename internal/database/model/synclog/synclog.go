package synclog

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	TypeFull           = "full"
	TypeDelta          = "delta"
	TypeManual         = "manual"
	TypeTestConnection = "test_connection"
)

type Entry struct {
	LogID              int64  `db:"log_id" json:"log_id"`
	RunID              string `db:"run_id" json:"run_id"`
	SyncType           string `db:"sync_type" json:"sync_type"`
	CatalogID          string `db:"catalog_id" json:"catalog_id"`
	CompanyID          int    `db:"company_id" json:"company_id"`
	StorefrontID       int    `db:"storefront_id" json:"storefront_id"`
	StartedAt          int64  `db:"started_at" json:"started_at"`
	CompletedAt        int64  `db:"completed_at" json:"completed_at"`
	Status             string `db:"status" json:"status"`
	AffectedCategories int    `db:"affected_categories" json:"affected_categories"`
	AffectedProducts   int    `db:"affected_products" json:"affected_products"`
	ErrorDetails       string `db:"error_details" json:"error_details"`
}

type Store struct {
	db     *sqlx.DB
	logger logrus.FieldLogger
}

func NewStore(db *sqlx.DB, logger logrus.FieldLogger) *Store {
	return &Store{db: db, logger: logger}
}

// Create добавляет запись и заполняет LogID.
func (s *Store) Create(ctx context.Context, e *Entry) error {
	s.logger.Debug("Start SyncLog.Create")
	defer s.logger.Debug("End SyncLog.Create")

	query := s.db.Rebind(`INSERT INTO pim_sync_log (run_id, sync_type, catalog_id, company_id, storefront_id, started_at, completed_at, status,
		affected_categories, affected_products, error_details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING log_id;`)

	err := s.db.QueryRowxContext(ctx, query,
		e.RunID, e.SyncType, e.CatalogID, e.CompanyID, e.StorefrontID, e.StartedAt, e.CompletedAt, e.Status,
		e.AffectedCategories, e.AffectedProducts, e.ErrorDetails).Scan(&e.LogID)
	if err != nil {
		return errors.Wrapf(err, "failed INSERT; query:\n%s", query)
	}
	return nil
}

// Finish сохраняет итог запуска.
func (s *Store) Finish(ctx context.Context, e *Entry) error {
	s.logger.Debug("Start SyncLog.Finish")
	defer s.logger.Debug("End SyncLog.Finish")

	query := s.db.Rebind(`UPDATE pim_sync_log SET completed_at=?, status=?, affected_categories=?, affected_products=?, error_details=?
		WHERE log_id=?;`)
	_, err := s.db.ExecContext(ctx, query,
		e.CompletedAt, e.Status, e.AffectedCategories, e.AffectedProducts, e.ErrorDetails, e.LogID)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE; query:\n%s(%d)", query, e.LogID)
	}
	return nil
}

// HasRunning есть ли запуск со статусом running для области, начатый не раньше since.
// Более старые записи running считаются брошенными.
func (s *Store) HasRunning(ctx context.Context, catalogID string, companyID, storefrontID int, since time.Time) (bool, error) {
	query := s.db.Rebind(`SELECT COUNT(*) FROM pim_sync_log
		WHERE status=? AND catalog_id=? AND company_id=? AND storefront_id=? AND started_at>=?;`)

	var n int
	err := s.db.GetContext(ctx, &n, query, StatusRunning, catalogID, companyID, storefrontID, since.Unix())
	if err != nil {
		return false, errors.Wrapf(err, "failed SELECT; query:\n%s", query)
	}
	return n > 0, nil
}

// List последние записи компании, companyID <= 0 - по всем компаниям.
func (s *Store) List(ctx context.Context, companyID int, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []*Entry
	var err error
	if companyID > 0 {
		query := s.db.Rebind("SELECT * FROM pim_sync_log WHERE company_id=? ORDER BY started_at DESC, log_id DESC LIMIT ?;")
		err = s.db.SelectContext(ctx, &entries, query, companyID, limit)
	} else {
		query := s.db.Rebind("SELECT * FROM pim_sync_log ORDER BY started_at DESC, log_id DESC LIMIT ?;")
		err = s.db.SelectContext(ctx, &entries, query, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT pim_sync_log")
	}
	return entries, nil
}

func (s *Store) ClearAll(ctx context.Context, companyID int) (int64, error) {
	if companyID > 0 {
		return s.exec(ctx, "DELETE FROM pim_sync_log WHERE company_id=?;", companyID)
	}
	return s.exec(ctx, "DELETE FROM pim_sync_log;")
}

// ClearOlderThan удаляет завершенные записи, начатые раньше before.
func (s *Store) ClearOlderThan(ctx context.Context, companyID int, before time.Time) (int64, error) {
	if companyID > 0 {
		return s.exec(ctx, "DELETE FROM pim_sync_log WHERE company_id=? AND started_at<? AND status<>?;",
			companyID, before.Unix(), StatusRunning)
	}
	return s.exec(ctx, "DELETE FROM pim_sync_log WHERE started_at<? AND status<>?;", before.Unix(), StatusRunning)
}

func (s *Store) ClearFailed(ctx context.Context, companyID int) (int64, error) {
	if companyID > 0 {
		return s.exec(ctx, "DELETE FROM pim_sync_log WHERE company_id=? AND status=?;", companyID, StatusFailed)
	}
	return s.exec(ctx, "DELETE FROM pim_sync_log WHERE status=?;", StatusFailed)
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	query = s.db.Rebind(query)
	s.logger.Debugf("DELETE:\n%s(%v)", query, args)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed DELETE; query:\n%s", query)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
