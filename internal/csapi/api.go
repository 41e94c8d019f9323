package csapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"PimSync/internal/cs-api-go/client"
	csoptions "PimSync/internal/cs-api-go/options"
	"PimSync/internal/csapi/models"
	"PimSync/internal/csapi/options"
	"PimSync/internal/syncerr"
	"PimSync/internal/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CSAPI interface {
	Version(ctx context.Context) (string, error)
	TestConnection(ctx context.Context) bool

	ListCategories(ctx context.Context, opts ...options.Option) ([]*models.CategoryItem, error)
	CreateCategory(ctx context.Context, c *models.Category) (int, error)
	UpdateCategory(ctx context.Context, ID int, c *models.Category) (int, error)
	CategoryExists(ctx context.Context, ID int) bool

	CreateProduct(ctx context.Context, p *models.Product) (int, error)
	UpdateProduct(ctx context.Context, ID int, p *models.Product) (int, error)
}

type Options struct {
	URL            string
	Email          string
	APIKey         string
	RPS            int
	Timeout        time.Duration
	ConnectTimeout time.Duration
	RetryCount     int
	RetryWait      time.Duration
	PageSize       int
}

type csapi struct {
	api      client.Client
	pageSize int
	logger   logrus.FieldLogger
}

func NewAPI(opts Options, logger logrus.FieldLogger) CSAPI {
	factory := client.Factory{}

	api := factory.NewClient(csoptions.Basic{
		URL:    opts.URL,
		Email:  opts.Email,
		APIKey: opts.APIKey,
		Options: csoptions.Advanced{
			Prefix:         "/api/2.0/",
			UserAgent:      version.GetVersion().UserAgent(),
			Timeout:        opts.Timeout,
			ConnectTimeout: opts.ConnectTimeout,
			RetryCount:     opts.RetryCount,
			RetryWait:      opts.RetryWait,
			RPS:            opts.RPS,
		},
	})

	return newAPI(api, opts.PageSize, logger)
}

func newAPI(api client.Client, pageSize int, logger logrus.FieldLogger) *csapi {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &csapi{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
	}
}

var (
	htmlMessage = regexp.MustCompile(`(?is)<h3>Message</h3>.*?<p[^>]*>(.*?)</p>`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
)

// isHTML ответ с HTML-страницей (фатальная ошибка PHP) вместо JSON
func isHTML(body []byte) bool {
	return bytes.Contains(body, []byte("<!DOCTYPE html>")) || bytes.Contains(body, []byte("<html"))
}

func htmlErrorMessage(body []byte) string {
	message := "Ошибка на стороне сервера"
	if m := htmlMessage.FindSubmatch(body); m != nil {
		message = strings.TrimSpace(htmlTag.ReplaceAllString(string(m[1]), ""))
	}
	return message
}

// readResponse читает тело, превращает HTML и коды >= 400 в HttpError и раскладывает JSON в out.
func (c *csapi) readResponse(method, endpoint string, r *http.Response, out interface{}) error {
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Errorf("failed Body.Close()")
		}
	}(r.Body)

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.Wrapf(err, "ошибка при io.ReadAll(r.Body), endpoint:%s", endpoint)
	}
	c.logger.Debugf("CS-Cart API ответ: HTTP %d, длина: %d", r.StatusCode, len(bodyBytes))

	if isHTML(bodyBytes) {
		status := r.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return &syncerr.HttpError{
			Method:     method,
			URL:        endpoint,
			StatusCode: status,
			Body:       "CS-Cart API error: " + htmlErrorMessage(bodyBytes) + " (HTML response)",
		}
	}

	if r.StatusCode >= http.StatusBadRequest {
		if r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden {
			return &syncerr.AuthError{System: "CS-Cart", Message: fmt.Sprintf("HTTP %d %s", r.StatusCode, string(bodyBytes))}
		}
		return &syncerr.HttpError{
			Method:     method,
			URL:        endpoint,
			StatusCode: r.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	if out == nil {
		return nil
	}
	err = json.Unmarshal(bodyBytes, out)
	if err != nil {
		return &syncerr.DecodeError{URL: endpoint, Body: string(bodyBytes), Err: err}
	}
	return nil
}

func (c *csapi) Version(ctx context.Context) (string, error) {
	endpoint := "version"

	r, err := c.api.Get(ctx, endpoint, nil)
	if err != nil {
		return "", errors.Wrapf(err, "ошибка при отправке запроса в CS-Cart Api, endpoint:%s", endpoint)
	}

	var response models.VersionResponse
	err = c.readResponse(http.MethodGet, endpoint, r, &response)
	if err != nil {
		return "", err
	}
	if response.Version == "" {
		return "", errors.New("CS-Cart API: empty Version in response")
	}
	return response.Version, nil
}

func (c *csapi) TestConnection(ctx context.Context) bool {
	v, err := c.Version(ctx)
	if err != nil {
		c.logger.Errorf("Ошибка тестирования соединения с CS-Cart API: %v", err)
		return false
	}
	c.logger.Infof("CS-Cart API доступен, версия %s", v)
	return true
}

func (c *csapi) categoryPage(ctx context.Context, page int, opts ...options.Option) (*models.CategoryList, error) {
	endpoint := "categories"
	opts = append(opts, options.Page(page), options.ItemsPerPage(c.pageSize))
	params := options.Values(opts...)

	r, err := c.api.Get(ctx, endpoint, params)
	if err != nil {
		return nil, errors.Wrapf(err, "ошибка при отправке запроса в CS-Cart Api, endpoint:%s", endpoint)
	}

	var list models.CategoryList
	err = c.readResponse(http.MethodGet, endpoint, r, &list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// ListCategories собирает все страницы по params.total_items и params.items_per_page
func (c *csapi) ListCategories(ctx context.Context, opts ...options.Option) ([]*models.CategoryItem, error) {
	c.logger.Debug("Start ListCategories")
	defer c.logger.Debug("End ListCategories")

	var categories []*models.CategoryItem
	for page := 1; ; page++ {
		list, err := c.categoryPage(ctx, page, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "ошибка при получении ListCategories, Page:%d", page)
		}

		categories = append(categories, list.Categories...)
		c.logger.Debugf("Page load:%d", page)

		perPage := list.Params.ItemsPerPage.Int()
		if perPage <= 0 {
			perPage = c.pageSize
		}
		if len(list.Categories) == 0 || page*perPage >= list.Params.TotalItems.Int() {
			break
		}
	}

	return categories, nil
}

func (c *csapi) CreateCategory(ctx context.Context, category *models.Category) (int, error) {
	endpoint := "categories"
	if category.Category == "" {
		return 0, &syncerr.ValidationError{Field: "category", Message: "не указано название категории"}
	}
	c.logger.Debugf("Создание новой категории в CS-Cart: %s", category.Category)

	r, err := c.api.Post(ctx, endpoint, nil, category)
	if err != nil {
		return 0, errors.Wrapf(err, "ошибка при отправке запроса в CS-Cart Api, endpoint:%s", endpoint)
	}

	var response models.IDResponse
	err = c.readResponse(http.MethodPost, endpoint, r, &response)
	if err != nil {
		return 0, err
	}
	if response.CategoryID <= 0 {
		return 0, errors.New("Не удалось получить ID созданной категории")
	}
	return response.CategoryID.Int(), nil
}

func (c *csapi) UpdateCategory(ctx context.Context, ID int, category *models.Category) (int, error) {
	if ID <= 0 {
		return 0, errors.New("не указан ID категории")
	}
	endpoint := fmt.Sprintf("categories/%d", ID)
	c.logger.Debugf("Обновление категории в CS-Cart ID: %d", ID)

	r, err := c.api.Put(ctx, endpoint, category)
	if err != nil {
		return 0, errors.Wrapf(err, "ошибка при отправке запроса в CS-Cart Api, endpoint:%s", endpoint)
	}

	var response models.IDResponse
	err = c.readResponse(http.MethodPut, endpoint, r, &response)
	if err != nil {
		return 0, err
	}
	if response.CategoryID <= 0 {
		return 0, errors.New("Не удалось получить ID обновленной категории")
	}
	return response.CategoryID.Int(), nil
}

// CategoryExists любая ошибка запроса считается отсутствием категории
func (c *csapi) CategoryExists(ctx context.Context, ID int) bool {
	endpoint := fmt.Sprintf("categories/%d", ID)

	r, err := c.api.Get(ctx, endpoint, nil)
	if err != nil {
		c.logger.Debugf("Категория %d не найдена: %v", ID, err)
		return false
	}

	var item models.CategoryItem
	err = c.readResponse(http.MethodGet, endpoint, r, &item)
	if err != nil {
		c.logger.Debugf("Категория %d не найдена: %v", ID, err)
		return false
	}
	return item.CategoryID.Int() == ID
}

func (c *csapi) CreateProduct(ctx context.Context, product *models.Product) (int, error) {
	endpoint := "products"
	if product.Product == "" {
		return 0, &syncerr.ValidationError{Field: "product", Message: "не указано название товара"}
	}

	r, err := c.api.Post(ctx, endpoint, nil, product)
	if err != nil {
		return 0, errors.Wrapf(err, "ошибка при отправке запроса в CS-Cart Api, endpoint:%s", endpoint)
	}

	var response models.IDResponse
	err = c.readResponse(http.MethodPost, endpoint, r, &response)
	if err != nil {
		return 0, err
	}
	if response.ProductID <= 0 {
		return 0, errors.New("Не удалось получить ID созданного товара")
	}
	return response.ProductID.Int(), nil
}

func (c *csapi) UpdateProduct(ctx context.Context, ID int, product *models.Product) (int, error) {
	if ID <= 0 {
		return 0, errors.New("не указан ID товара")
	}
	endpoint := fmt.Sprintf("products/%d", ID)

	r, err := c.api.Put(ctx, endpoint, product)
	if err != nil {
		return 0, errors.Wrapf(err, "ошибка при отправке запроса в CS-Cart Api, endpoint:%s", endpoint)
	}

	var response models.IDResponse
	err = c.readResponse(http.MethodPut, endpoint, r, &response)
	if err != nil {
		return 0, err
	}
	if response.ProductID <= 0 {
		return 0, errors.New("Не удалось получить ID обновленного товара")
	}
	return response.ProductID.Int(), nil
}
