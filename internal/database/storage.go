package database

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const DB_SCHEMA_SQLITE = `CREATE TABLE IF NOT EXISTS pim_category_map (
	id integer PRIMARY KEY AUTOINCREMENT,
	pim_id text NOT NULL,
	pim_sync_uid text NOT NULL,
	cscart_category_id integer NOT NULL,
	catalog_id text NOT NULL,
	company_id integer NOT NULL DEFAULT 0,
	storefront_id integer NOT NULL DEFAULT 0,
	timestamp integer NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS pim_category_map_natural_key
	ON pim_category_map (pim_sync_uid, catalog_id, company_id, storefront_id);

CREATE TABLE IF NOT EXISTS pim_product_map (
	id integer PRIMARY KEY AUTOINCREMENT,
	pim_id text NOT NULL,
	pim_sync_uid text NOT NULL,
	cscart_product_id integer NOT NULL,
	catalog_id text NOT NULL,
	company_id integer NOT NULL DEFAULT 0,
	storefront_id integer NOT NULL DEFAULT 0,
	timestamp integer NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS pim_product_map_natural_key
	ON pim_product_map (pim_sync_uid, catalog_id, company_id, storefront_id);

CREATE TABLE IF NOT EXISTS pim_sync_log (
	log_id integer PRIMARY KEY AUTOINCREMENT,
	run_id text NOT NULL DEFAULT '',
	sync_type text NOT NULL,
	catalog_id text NOT NULL DEFAULT '',
	company_id integer NOT NULL DEFAULT 0,
	storefront_id integer NOT NULL DEFAULT 0,
	started_at integer NOT NULL,
	completed_at integer NOT NULL DEFAULT 0,
	status text NOT NULL,
	affected_categories integer NOT NULL DEFAULT 0,
	affected_products integer NOT NULL DEFAULT 0,
	error_details text NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS pim_sync_log_company ON pim_sync_log (company_id, started_at);
`

const DB_SCHEMA_POSTGRES = `CREATE TABLE IF NOT EXISTS pim_category_map (
	id serial PRIMARY KEY,
	pim_id text NOT NULL,
	pim_sync_uid text NOT NULL,
	cscart_category_id integer NOT NULL,
	catalog_id text NOT NULL,
	company_id integer NOT NULL DEFAULT 0,
	storefront_id integer NOT NULL DEFAULT 0,
	timestamp bigint NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS pim_category_map_natural_key
	ON pim_category_map (pim_sync_uid, catalog_id, company_id, storefront_id);

CREATE TABLE IF NOT EXISTS pim_product_map (
	id serial PRIMARY KEY,
	pim_id text NOT NULL,
	pim_sync_uid text NOT NULL,
	cscart_product_id integer NOT NULL,
	catalog_id text NOT NULL,
	company_id integer NOT NULL DEFAULT 0,
	storefront_id integer NOT NULL DEFAULT 0,
	timestamp bigint NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS pim_product_map_natural_key
	ON pim_product_map (pim_sync_uid, catalog_id, company_id, storefront_id);

CREATE TABLE IF NOT EXISTS pim_sync_log (
	log_id serial PRIMARY KEY,
	run_id text NOT NULL DEFAULT '',
	sync_type text NOT NULL,
	catalog_id text NOT NULL DEFAULT '',
	company_id integer NOT NULL DEFAULT 0,
	storefront_id integer NOT NULL DEFAULT 0,
	started_at bigint NOT NULL,
	completed_at bigint NOT NULL DEFAULT 0,
	status text NOT NULL,
	affected_categories integer NOT NULL DEFAULT 0,
	affected_products integer NOT NULL DEFAULT 0,
	error_details text NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS pim_sync_log_company ON pim_sync_log (company_id, started_at);
`

// Schema схема для драйвера
func Schema(driver string) string {
	if driver == DriverPostgres {
		return DB_SCHEMA_POSTGRES
	}
	return DB_SCHEMA_SQLITE
}
