package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/gcfg.v1"
)

const (
	DefaultPath       = "./config/config.ini"
	DefaultCatalogKey = "default"
)

type (
	// Catalog связка каталога PIM с компанией и витриной CS-Cart
	Catalog struct {
		CompanyID      int
		StorefrontID   int
		Name           string
		Description    string
		AutoSync       bool
		SyncProducts   bool
		SyncCategories bool
	}

	Config struct {
		PIM struct {
			URL            string
			Login          string
			Password       string
			CatalogID      string
			APIVersion     string
			TokenLifetime  int // секунды
			CacheLifetime  int // секунды
			Timeout        int
			ConnectTimeout int
			RetryCount     int
			PageSize       int
		}
		STOREFRONT struct {
			URL            string
			Email          string
			ApiKey         string
			RPS            int
			Timeout        int
			ConnectTimeout int
			RetryCount     int
			PageSize       int
		}
		SYNC struct {
			Enabled          bool
			DefaultType      string
			Days             int
			Workers          int
			MaxExecutionTime int
			LogRetentionDays int
			Interval         int // минуты, 0 - планировщик в режиме сервиса выключен
		}
		DB struct {
			Driver string
			DSN    string
		}
		LOG struct {
			Level string
			Dir   string
		}
		TELEGRAM struct {
			BotToken string
			ChatID   int64
			Report   bool
		}
		SERVICE struct {
			PORT  int
			Token string // токен для /pim_sync/*, без него режим сервиса не стартует
		}
		Catalog map[string]*Catalog
	}
)

var cfg *Config
var once sync.Once

// GetConfig читает ./config/config.ini один раз за процесс.
func GetConfig() *Config {
	once.Do(func() {
		logger := log.New(io.MultiWriter(os.Stdout), "CONFIG ", log.Ldate|log.Ltime|log.Lshortfile)
		logger.Print("Config:>Read application configurations")

		c, err := Load(DefaultPath)
		if err != nil {
			logger.Fatalf("Config:>Failed to read config: %s", err)
		}
		logger.Print("Config:>Config is read")
		cfg = c
	})

	return cfg
}

// Load читает конфиг из файла, применяет переменные окружения (.env) и значения по умолчанию.
func Load(path string) (*Config, error) {
	var c Config
	err := gcfg.ReadFileInto(&c, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse gcfg data from %s", path)
	}

	return prepare(&c)
}

// LoadString то же что Load, но из строки.
func LoadString(s string) (*Config, error) {
	var c Config
	err := gcfg.ReadStringInto(&c, s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse gcfg data")
	}

	return prepare(&c)
}

func prepare(c *Config) (*Config, error) {
	// .env может отсутствовать
	_ = godotenv.Load()
	c.applyEnv()
	c.setDefaults()

	err := c.Validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PIM_LOGIN"); v != "" {
		c.PIM.Login = v
	}
	if v := os.Getenv("PIM_PASSWORD"); v != "" {
		c.PIM.Password = v
	}
	if v := os.Getenv("STOREFRONT_EMAIL"); v != "" {
		c.STOREFRONT.Email = v
	}
	if v := os.Getenv("STOREFRONT_API_KEY"); v != "" {
		c.STOREFRONT.ApiKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.TELEGRAM.BotToken = v
	}
	if v := os.Getenv("SERVICE_TOKEN"); v != "" {
		c.SERVICE.Token = v
	}
}

func (c *Config) setDefaults() {
	if c.PIM.APIVersion == "" {
		c.PIM.APIVersion = "v1"
	}
	if c.PIM.TokenLifetime <= 0 {
		c.PIM.TokenLifetime = 3300
	}
	if c.PIM.CacheLifetime <= 0 {
		c.PIM.CacheLifetime = 3600
	}
	if c.PIM.Timeout <= 0 {
		c.PIM.Timeout = 30
	}
	if c.PIM.ConnectTimeout <= 0 {
		c.PIM.ConnectTimeout = 10
	}
	if c.PIM.RetryCount < 0 {
		c.PIM.RetryCount = 0
	}
	if c.PIM.PageSize <= 0 {
		c.PIM.PageSize = 100
	}
	if c.STOREFRONT.RPS <= 0 {
		c.STOREFRONT.RPS = 10
	}
	if c.STOREFRONT.Timeout <= 0 {
		c.STOREFRONT.Timeout = 30
	}
	if c.STOREFRONT.ConnectTimeout <= 0 {
		c.STOREFRONT.ConnectTimeout = 10
	}
	if c.STOREFRONT.PageSize <= 0 {
		c.STOREFRONT.PageSize = 100
	}
	if c.SYNC.DefaultType == "" {
		c.SYNC.DefaultType = "delta"
	}
	if c.SYNC.Days <= 0 {
		c.SYNC.Days = 1
	}
	if c.SYNC.Workers <= 0 {
		c.SYNC.Workers = 4
	}
	if c.SYNC.MaxExecutionTime <= 0 {
		c.SYNC.MaxExecutionTime = 300
	}
	if c.SYNC.Interval < 0 {
		c.SYNC.Interval = 0
	}
	if c.SYNC.LogRetentionDays <= 0 {
		c.SYNC.LogRetentionDays = 30
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite3"
	}
	if c.DB.DSN == "" {
		c.DB.DSN = "pimsync.db"
	}
	if c.LOG.Level == "" {
		c.LOG.Level = "info"
	}
	if c.SERVICE.PORT == 0 {
		c.SERVICE.PORT = 8080
	}
}

// Validate проверяет обязательные настройки.
func (c *Config) Validate() error {
	var missing []string
	if c.PIM.URL == "" {
		missing = append(missing, "PIM.URL")
	}
	if c.PIM.Login == "" {
		missing = append(missing, "PIM.Login")
	}
	if c.PIM.Password == "" {
		missing = append(missing, "PIM.Password")
	}
	if c.STOREFRONT.URL == "" {
		missing = append(missing, "STOREFRONT.URL")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if _, found := c.Catalog[DefaultCatalogKey]; !found {
		return errors.New(`catalog mapping must contain a [catalog "default"] section`)
	}

	switch c.SYNC.DefaultType {
	case "full", "delta":
	default:
		return errors.Errorf("SYNC.DefaultType must be full or delta, got %q", c.SYNC.DefaultType)
	}

	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		return errors.Errorf("unsupported DB.Driver %q", c.DB.Driver)
	}

	return nil
}

// CatalogMapping возвращает настройки каталога, при отсутствии - настройки default.
// Второе значение - ключ секции, которая была применена.
func (c *Config) CatalogMapping(catalogID string) (*Catalog, string) {
	if catalog, found := c.Catalog[catalogID]; found && catalog != nil {
		return catalog, catalogID
	}
	return c.Catalog[DefaultCatalogKey], DefaultCatalogKey
}

func (c *Catalog) String() string {
	return fmt.Sprintf("company_id=%d storefront_id=%d sync_categories=%t sync_products=%t",
		c.CompanyID, c.StorefrontID, c.SyncCategories, c.SyncProducts)
}
